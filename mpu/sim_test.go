package mpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimProtectUnprotect(t *testing.T) {
	s := NewSim(2)

	region, ok := s.Protect(0x2000, 4096)
	require.True(t, ok)
	assert.Equal(t, 1, s.Count())

	addr, size, ok := s.Active(region)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x2000), addr)
	assert.Equal(t, uintptr(4096), size)

	s.Unprotect(region)
	assert.Equal(t, 0, s.Count())
	_, _, ok = s.Active(region)
	assert.False(t, ok)
}

func TestSimRespectsCapacity(t *testing.T) {
	s := NewSim(1)

	_, ok := s.Protect(0x1000, 4096)
	require.True(t, ok)

	_, ok = s.Protect(0x2000, 4096)
	assert.False(t, ok)
}

func TestSimAvailableAlwaysTrue(t *testing.T) {
	s := NewSim(0)
	assert.True(t, s.Available())
}

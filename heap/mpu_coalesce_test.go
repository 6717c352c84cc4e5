package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageheap/mpu"
)

func TestMPUCoalescesAdjacentQuarantinedPages(t *testing.T) {
	cfg := testConfig(4, 1)
	cfg.EnableMPUProtection = true
	sim := mpu.NewSim(4)

	data := make([]byte, int(cfg.PageSize)*8)
	z, err := NewZone(cfg, data, 0, sim)
	require.NoError(t, err)

	a, err := z.Allocate(900)
	require.NoError(t, err)
	b, err := z.Allocate(900)
	require.NoError(t, err)

	z.Deallocate(a)
	assert.Equal(t, 0, sim.Count(), "lone quarantined page, live neighbour: nothing protected yet")

	z.Deallocate(b)
	assert.Equal(t, 1, sim.Count(), "quarantined pages and the free tail past them coalesce into one window")

	_, size, ok := sim.Active(0)
	require.True(t, ok)
	assert.Equal(t, uintptr(8*cfg.PageSize), size, "region extends through free pages, not just quarantined ones, all the way to the zone boundary")
}

func TestMPUUnprotectsOnRecycle(t *testing.T) {
	cfg := testConfig(2, 1)
	cfg.EnableMPUProtection = true
	sim := mpu.NewSim(4)

	data := make([]byte, int(cfg.PageSize)*8)
	z, err := NewZone(cfg, data, 0, sim)
	require.NoError(t, err)

	a, err := z.Allocate(900)
	require.NoError(t, err)
	b, err := z.Allocate(900)
	require.NoError(t, err)
	c, err := z.Allocate(900)
	require.NoError(t, err)

	z.Deallocate(a)
	z.Deallocate(b)
	require.Equal(t, 1, sim.Count())

	// Quarantine capacity is 2; freeing c evicts the oldest (a) and
	// recycles its page, which must release any MPU region covering it.
	z.Deallocate(c)
	assert.LessOrEqual(t, sim.Count(), 1)
}

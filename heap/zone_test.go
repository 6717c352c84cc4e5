package heap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(quarantineCapacity uint32, checkLevel int) Config {
	cfg := DefaultConfig
	cfg.QuarantineCapacity = quarantineCapacity
	cfg.QuarantineCheckLevel = checkLevel
	cfg.ClearOnEvict = true
	cfg.FillOnFree = true
	return cfg
}

func newTestZone(t *testing.T, pages int, cfg Config) *Zone {
	t.Helper()
	data := make([]byte, int(cfg.PageSize)*pages)
	z, err := NewZone(cfg, data, 0, nil)
	require.NoError(t, err)
	return z
}

func TestZoneAllocateOnePageExactFit(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)

	reqSize := cfg.PageSize - cfg.HeaderSize - cfg.FooterSize
	ptr, err := z.Allocate(reqSize)
	require.NoError(t, err)
	require.NotNil(t, ptr)

	assert.Equal(t, 7, z.freePages)
	off, ok := z.ptrToOffset(ptr)
	require.True(t, ok)
	assert.Equal(t, int(cfg.HeaderSize), off)

	padSize := cfg.paddingSize(1, reqSize)
	assert.Equal(t, 0, padSize)
}

func TestZoneAllocateOneByteOverSpillsToSecondPage(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)

	reqSize := cfg.PageSize - cfg.HeaderSize - cfg.FooterSize + 1
	ptr, err := z.Allocate(reqSize)
	require.NoError(t, err)
	require.NotNil(t, ptr)

	assert.Equal(t, 6, z.freePages)
	padSize := cfg.paddingSize(2, reqSize)
	assert.Equal(t, int(cfg.PageSize)-1, padSize)
}

func TestZoneAllocateTooLargeReturnsErrorAndDoesNotMutate(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 2, cfg)

	before := z.freePages
	ptr, err := z.Allocate(cfg.PageSize * 10)
	assert.Nil(t, ptr)
	assert.ErrorIs(t, err, ErrOutOfPages)
	assert.Equal(t, before, z.freePages)
}

func TestZoneAllocateZeroSizeIsRejected(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 2, cfg)

	ptr, err := z.Allocate(0)
	assert.Nil(t, ptr)
	assert.ErrorIs(t, err, ErrZeroSize)
}

func TestZoneFillAndFreeScenario(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)

	var ptrs [4]unsafe.Pointer
	for i := range ptrs {
		p, err := z.Allocate(900)
		require.NoError(t, err)
		ptrs[i] = p
	}
	assert.Equal(t, 4, z.freePages)

	for _, p := range ptrs {
		z.Deallocate(p)
	}
	assert.Equal(t, 6, z.freePages)
	assert.Equal(t, 2, z.quarantine.count())
}

func TestZoneDetectsFooterOverwrite(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)

	ptr, err := z.Allocate(900)
	require.NoError(t, err)

	off, ok := z.ptrToOffset(ptr)
	require.True(t, ok)
	z.data[off+900] ^= 0xFF // first footer byte

	assert.Panics(t, func() { z.Deallocate(ptr) })
}

func TestZoneDetectsUseAfterFreeAtCheckLevelTwo(t *testing.T) {
	cfg := testConfig(2, 2)
	z := newTestZone(t, 8, cfg)

	ptr, err := z.Allocate(900)
	require.NoError(t, err)
	z.Deallocate(ptr)

	off, _ := z.ptrToOffset(ptr)
	z.data[off] ^= 0xFF

	assert.Panics(t, func() { z.Allocate(100) })
}

func TestZoneFIFOEvictionPicksEarliestFreeSequence(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)

	a, err := z.Allocate(900)
	require.NoError(t, err)
	b, err := z.Allocate(900)
	require.NoError(t, err)
	c, err := z.Allocate(900)
	require.NoError(t, err)

	z.Deallocate(b)
	z.Deallocate(a)

	aOff, _ := z.ptrToOffset(a)
	aStartPage := int(aOff) / int(cfg.PageSize)
	bOff, _ := z.ptrToOffset(b)
	bStartPage := int(bOff) / int(cfg.PageSize)

	assert.True(t, z.bitmapInUse.test(aStartPage))
	assert.True(t, z.bitmapInUse.test(bStartPage))

	z.Deallocate(c)

	// B was freed first (earliest freeSequence) so it is evicted first,
	// recycling its page back to the free pool.
	assert.False(t, z.bitmapInUse.test(bStartPage))
	assert.True(t, z.bitmapInUse.test(aStartPage))
}

func TestZoneFirstFitPlacement(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)

	// Occupancy [U U . . U . . .]
	z.bitmapInUse.setRange(0, 2)
	z.bitmapInUse.set(4)
	z.freePages = 5

	ptr, err := z.Allocate(2*cfg.PageSize - cfg.HeaderSize - cfg.FooterSize - 1)
	require.NoError(t, err)
	off, _ := z.ptrToOffset(ptr)
	assert.Equal(t, 2, off/int(cfg.PageSize))

	ptr2, err := z.Allocate(3*cfg.PageSize - cfg.HeaderSize - cfg.FooterSize - 1)
	require.NoError(t, err)
	off2, _ := z.ptrToOffset(ptr2)
	assert.Equal(t, 5, off2/int(cfg.PageSize))
}

func TestZoneOwnsPointerStrictUpperBound(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 2, cfg)

	ptr, err := z.Allocate(100)
	require.NoError(t, err)
	assert.True(t, z.OwnsPointer(ptr))

	lastByte := unsafe.Pointer(uintptr(unsafe.Pointer(&z.data[0])) + uintptr(len(z.data)-1))
	assert.True(t, z.OwnsPointer(lastByte))

	pastEnd := unsafe.Pointer(uintptr(unsafe.Pointer(&z.data[0])) + uintptr(len(z.data)))
	assert.False(t, z.OwnsPointer(pastEnd))
}

func TestZoneCallocZeroesPayload(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)

	ptr, err := z.Calloc(10, 8)
	require.NoError(t, err)
	off, _ := z.ptrToOffset(ptr)
	for i := 0; i < 80; i++ {
		assert.Equal(t, byte(0), z.data[off+i])
	}
}

func TestZoneCallocOverflowRejected(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)

	_, err := z.Calloc(1<<31, 1<<31)
	assert.ErrorIs(t, err, ErrCallocOverflow)
}

func TestZoneDeallocateNilIsNoop(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)
	assert.NotPanics(t, func() { z.Deallocate(nil) })
}

func TestZoneVerifyAllocatedAndQuarantineAfterHealthyOps(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)

	ptrs := make([]unsafe.Pointer, 0)
	for i := 0; i < 3; i++ {
		p, err := z.Allocate(900)
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	z.Deallocate(ptrs[0])

	assert.True(t, z.VerifyAllocated())
	assert.True(t, z.VerifyQuarantine())
	assert.True(t, z.RunChecks())
}

func TestZoneResetStateClearsEverything(t *testing.T) {
	cfg := testConfig(2, 1)
	z := newTestZone(t, 8, cfg)

	p, err := z.Allocate(900)
	require.NoError(t, err)
	z.Deallocate(p)

	z.resetState()
	assert.Equal(t, z.totalPages, z.freePages)
	assert.True(t, z.quarantine.isEmpty())
	assert.Equal(t, 0, z.bitmapInUse.countSet())
}

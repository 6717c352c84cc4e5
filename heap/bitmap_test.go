package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageBitmapSetClearTest(t *testing.T) {
	var b PageBitmap
	b.init(40)

	assert.False(t, b.test(5))
	b.set(5)
	assert.True(t, b.test(5))
	b.clear(5)
	assert.False(t, b.test(5))
}

func TestPageBitmapRanges(t *testing.T) {
	var b PageBitmap
	b.init(10)

	b.setRange(2, 4)
	for i := 0; i < 10; i++ {
		want := i >= 2 && i < 6
		assert.Equal(t, want, b.test(i), "page %d", i)
	}

	b.clearRange(3, 2)
	assert.True(t, b.test(2))
	assert.False(t, b.test(3))
	assert.False(t, b.test(4))
	assert.True(t, b.test(5))
}

func TestPageBitmapFindFreeRunAcrossWordBoundary(t *testing.T) {
	var b PageBitmap
	b.init(70)

	b.setRange(0, 30)
	s := b.findFreeRun(5)
	require.Equal(t, 30, s)

	b.setRange(30, 40)
	assert.Equal(t, -1, b.findFreeRun(1))
}

func TestPageBitmapFindFreeRunSkipsFullWords(t *testing.T) {
	var b PageBitmap
	b.init(128)
	b.setRange(0, 96)

	s := b.findFreeRun(10)
	require.Equal(t, 96, s)
}

func TestPageBitmapFindFreeRunRejectsOversizedOrInvalid(t *testing.T) {
	var b PageBitmap
	b.init(8)

	assert.Equal(t, -1, b.findFreeRun(0))
	assert.Equal(t, -1, b.findFreeRun(9))
}

func TestPageBitmapCounts(t *testing.T) {
	var b PageBitmap
	b.init(16)
	b.setRange(0, 5)

	assert.Equal(t, 5, b.countSet())
	assert.Equal(t, 11, b.countClear())
}

func TestPageBitmapLargestFreeRun(t *testing.T) {
	var b PageBitmap
	b.init(8)
	// occupancy: U U . . U . . .
	b.set(0)
	b.set(1)
	b.set(4)

	assert.Equal(t, 3, b.largestFreeRun())
}

func TestPageBitmapInitReusesBackingSlice(t *testing.T) {
	var b PageBitmap
	b.init(64)
	b.set(10)
	oldWords := b.words

	b.init(64)
	assert.Same(t, &oldWords[0], &b.words[0])
	assert.False(t, b.test(10))
}

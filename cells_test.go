package archbloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidthMax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		w    Width
		want uint64
	}{
		{Width1, 1},
		{Width4, 15},
		{Width8, 255},
		{Width16, 65535},
		{Width32, 1<<32 - 1},
		{Width64, ^uint64(0)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.w.Max(), "width %d", tt.w)
	}
}

func TestCellArraySizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    uint64
		w    Width
		want int
	}{
		{1, Width1, 1},
		{8, Width1, 1},
		{9, Width1, 2},
		{1, Width4, 1},
		{3, Width4, 2},
		{10, Width8, 10},
		{10, Width16, 20},
		{10, Width32, 40},
		{10, Width64, 80},
	}
	for _, tt := range tests {
		a, err := newCellArray(tt.n, tt.w)
		require.NoError(t, err)
		assert.Len(t, a.bytes(), tt.want, "n=%d w=%d", tt.n, tt.w)
		assert.Equal(t, tt.n, a.len())
		assert.Equal(t, tt.w, a.width())
	}
}

func TestCellArrayInvalid(t *testing.T) {
	t.Parallel()

	_, err := newCellArray(0, Width8)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = newCellArray(10, Width(12))
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = newCellArray(1<<62, Width64)
	require.ErrorIs(t, err, ErrOutOfMemory)

	_, err = wrapCellArray(make([]byte, 3), 10, Width8)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestCellArraySaturates(t *testing.T) {
	t.Parallel()

	for _, w := range []Width{Width1, Width4, Width8, Width16} {
		t.Run(fmt.Sprintf("width=%d", w), func(t *testing.T) {
			t.Parallel()

			a, err := newCellArray(5, w)
			require.NoError(t, err)

			a.decrement(2)
			assert.Zero(t, a.get(2), "decrement floors at zero")

			for range a.max() + 3 {
				a.increment(2)
			}
			assert.Equal(t, a.max(), a.get(2), "increment saturates")

			a.set(3, a.max()+100)
			assert.Equal(t, a.max(), a.get(3), "set clamps")

			assert.Zero(t, a.get(1))
			assert.Zero(t, a.get(4))

			a.reset()
			for i := range a.len() {
				assert.Zero(t, a.get(i))
			}
		})
	}
}

func TestCellArrayWideSaturates(t *testing.T) {
	t.Parallel()

	for _, w := range []Width{Width32, Width64} {
		a, err := newCellArray(2, w)
		require.NoError(t, err)

		a.set(0, w.Max()-1)
		a.increment(0)
		a.increment(0)
		assert.Equal(t, w.Max(), a.get(0))
		assert.Zero(t, a.get(1))
	}
}

func TestNibblePacking(t *testing.T) {
	t.Parallel()

	a, err := newCellArray(4, Width4)
	require.NoError(t, err)

	a.set(0, 0x3)
	a.set(1, 0xa)
	a.set(2, 0xf)

	assert.Equal(t, []byte{0xa3, 0x0f}, a.bytes())

	a.set(0, 0)
	assert.Equal(t, uint64(0xa), a.get(1), "writing the low nibble leaves the high nibble alone")
	a.set(1, 0)
	assert.Equal(t, []byte{0x00, 0x0f}, a.bytes())
}

func TestBitArray(t *testing.T) {
	t.Parallel()

	a, err := newCellArray(20, Width1)
	require.NoError(t, err)
	bits := a.(*bitArray)

	assert.False(t, bits.testAndSet(9))
	assert.True(t, bits.testAndSet(9))
	bits.set(0, 1)
	bits.set(19, 1)

	assert.Equal(t, []byte{0x01, 0x02, 0x08}, bits.bytes())
	assert.Equal(t, uint64(3), bits.popcount())

	bits.set(9, 0)
	assert.Equal(t, uint64(2), bits.popcount())
}

func TestBitArrayPopcountLarge(t *testing.T) {
	t.Parallel()

	a, err := newCellArray(1000, Width1)
	require.NoError(t, err)
	bits := a.(*bitArray)

	for i := uint64(0); i < 1000; i += 3 {
		bits.set(i, 1)
	}
	assert.Equal(t, uint64(334), bits.popcount())
}

func TestWordArrayLittleEndian(t *testing.T) {
	t.Parallel()

	a, err := newCellArray(2, Width16)
	require.NoError(t, err)

	a.set(1, 0x1234)
	assert.Equal(t, []byte{0, 0, 0x34, 0x12}, a.bytes())
}

func TestEntryArray(t *testing.T) {
	t.Parallel()

	a, err := newEntryArray(3, Width8, Width16)
	require.NoError(t, err)
	assert.Len(t, a.bytes(), 9)

	a.setCounter(1, 7)
	a.setTimestamp(1, 0x0102)
	assert.Equal(t, []byte{0, 0, 0, 7, 0x02, 0x01, 0, 0, 0}, a.bytes())

	for range 300 {
		a.incrementCounter(2)
	}
	assert.Equal(t, uint64(255), a.counter(2))
	assert.Zero(t, a.timestamp(2))

	a.decrementCounter(0)
	assert.Zero(t, a.counter(0))

	a.setTimestamp(0, 1<<20)
	assert.Equal(t, uint64(0xffff), a.timestamp(0), "timestamps clamp to the timer width")

	a.clearEntry(1)
	assert.Zero(t, a.counter(1))
	assert.Zero(t, a.timestamp(1))
	assert.Equal(t, uint64(255), a.counter(2))

	a.reset()
	assert.Equal(t, make([]byte, 9), a.bytes())
}

func TestEntryArrayInvalid(t *testing.T) {
	t.Parallel()

	_, err := newEntryArray(3, Width4, Width8)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = newEntryArray(0, Width8, Width8)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = wrapEntryArray(make([]byte, 5), 3, Width8, Width8)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

package archbloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbesDeterministic(t *testing.T) {
	t.Parallel()

	for _, h := range []HashFunc{HashXXH3, HashMurmur3} {
		a := h.probes(nil, []byte("hello"), 7, 144)
		b := h.probes(make([]uint64, 0, 7), []byte("hello"), 7, 144)
		require.Len(t, a, 7)
		assert.Equal(t, a, b, h.String())
		for _, p := range a {
			assert.Less(t, p, uint64(144))
		}
	}
}

func TestProbesDifferByHash(t *testing.T) {
	t.Parallel()

	a := HashXXH3.probes(nil, []byte("hello"), 16, 1<<20)
	b := HashMurmur3.probes(nil, []byte("hello"), 16, 1<<20)
	assert.NotEqual(t, a, b)
}

func TestProbesAppend(t *testing.T) {
	t.Parallel()

	dst := []uint64{42}
	dst = HashXXH3.probes(dst, []byte("x"), 3, 100)
	require.Len(t, dst, 4)
	assert.Equal(t, uint64(42), dst[0])
}

func TestProbesSpread(t *testing.T) {
	t.Parallel()

	const m = 1000
	var hits [m]int
	for i := range 30_000 {
		for _, p := range HashXXH3.probes(nil, fmt.Appendf(nil, "key-%d", i), 1, m) {
			hits[p]++
		}
	}
	for i, n := range hits {
		assert.Greater(t, n, 0, "slot %d never probed", i)
	}
}

func TestStringBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte("abc"), stringBytes("abc"))
	assert.Empty(t, stringBytes(""))
	assert.Equal(t,
		HashXXH3.probes(nil, []byte("abc"), 5, 97),
		HashXXH3.probes(nil, stringBytes("abc"), 5, 97))
}

func TestHashFuncString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "xxh3", HashXXH3.String())
	assert.Equal(t, "murmur3", HashMurmur3.String())
	assert.Equal(t, "HashFunc(9)", HashFunc(9).String())
	assert.False(t, HashFunc(0).valid())
}

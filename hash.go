package archbloom

import (
	"fmt"
	"unsafe"

	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// HashFunc selects the hash used to derive probe positions. The choice is
// recorded in saved files, so two filters are only compatible when they use
// the same function.
type HashFunc uint8

const (
	// HashXXH3 derives probes from the 128-bit xxh3 digest. It is the default.
	HashXXH3 HashFunc = 1
	// HashMurmur3 derives probes from the 128-bit MurmurHash3 digest.
	HashMurmur3 HashFunc = 2
)

func (h HashFunc) String() string {
	switch h {
	case HashXXH3:
		return "xxh3"
	case HashMurmur3:
		return "murmur3"
	default:
		return fmt.Sprintf("HashFunc(%d)", uint8(h))
	}
}

func (h HashFunc) valid() bool {
	return h == HashXXH3 || h == HashMurmur3
}

// sum128 returns the two 64-bit halves of the element's digest.
func (h HashFunc) sum128(data []byte) (h1, h2 uint64) {
	if h == HashMurmur3 {
		return murmur3.Sum128(data)
	}
	sum := xxh3.Hash128(data)
	return sum.Lo, sum.Hi
}

// probes appends k slot positions in [0, m) for data to dst.
//
// Positions are generated by double hashing, h(i) = h1 + i*h2 mod m, so a
// single digest yields any number of independent-enough probes. h2 is forced
// odd so the step is coprime with any even m.
func (h HashFunc) probes(dst []uint64, data []byte, k, m uint64) []uint64 {
	h1, h2 := h.sum128(data)
	h2 |= 1

	for i := range k {
		dst = append(dst, (h1+i*h2)%m)
	}
	return dst
}

// stringBytes returns the bytes of s without copying. The result must not be
// modified.
func stringBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

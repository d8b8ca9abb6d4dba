package archbloom

import (
	"encoding/binary"
	"math/bits"
)

// Merge returns a new filter holding the union of a and b. The inputs must
// have the same slot count, hash count and hash function. The result takes
// its name from a.
func Merge(a, b *Filter) (*Filter, error) {
	return combine(a, b, func(x, y byte) byte { return x | y }, a.insertions+b.insertions)
}

// Intersect returns a new filter holding the intersection of a and b.
// Elements common to both always test positive in the result; bit aliasing
// may hide some others.
func Intersect(a, b *Filter) (*Filter, error) {
	return combine(a, b, func(x, y byte) byte { return x & y }, min(a.insertions, b.insertions))
}

func combine(a, b *Filter, op func(x, y byte) byte, insertions uint64) (*Filter, error) {
	if err := a.compatible(&b.core); err != nil {
		return nil, err
	}

	out := make([]byte, len(a.bits.buf))
	for i := range out {
		out[i] = op(a.bits.buf[i], b.bits.buf[i])
	}
	return &Filter{
		core:       a.clone(),
		bits:       &bitArray{buf: out, n: a.slots},
		insertions: insertions,
	}, nil
}

// EstimateIntersection estimates how much a and b overlap as
//
//	popcount(a AND b) / popcount(a OR b) * 100
//
// The result is in [0, 100], and 0 when both filters are empty.
func EstimateIntersection(a, b *Filter) (float64, error) {
	if err := a.compatible(&b.core); err != nil {
		return 0, err
	}

	var and, or uint64
	x, y := a.bits.buf, b.bits.buf
	for len(x) >= 8 {
		u, v := binary.LittleEndian.Uint64(x), binary.LittleEndian.Uint64(y)
		and += uint64(bits.OnesCount64(u & v))
		or += uint64(bits.OnesCount64(u | v))
		x, y = x[8:], y[8:]
	}
	for i := range x {
		and += uint64(bits.OnesCount8(x[i] & y[i]))
		or += uint64(bits.OnesCount8(x[i] | y[i]))
	}
	return percent(and, or), nil
}

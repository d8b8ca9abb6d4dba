package archbloom

import (
	"fmt"
	"math"
)

const (
	// ln2 is the natural logarithm of 2.
	ln2 = 0.6931471805599453
	// ln2Squared is ln(2)^2.
	ln2Squared = 0.4804530139182014

	// maxStorageBytes bounds a single storage allocation. Requests above it
	// are reported as ErrOutOfMemory instead of letting make() panic.
	maxStorageBytes = uint64(1) << 46 // 64 TiB
)

// IdealSize returns the number of slots needed to hold expected elements at
// the given false positive rate:
//
//	m = ceil(-expected * ln(errorRate) / ln(2)^2)
//
// expected must be non-zero; use [OptimalParams] for validated input. Sizes
// beyond the range of uint64 saturate.
func IdealSize(expected uint64, errorRate float64) uint64 {
	m := math.Ceil(-float64(expected) * math.Log(errorRate) / ln2Squared)
	if m >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(m)
}

// HashCount returns the optimal number of hash probes for m slots holding
// expected elements, k = round((m/expected) * ln(2)), never less than 1.
func HashCount(m, expected uint64) uint64 {
	k := uint64(math.Round(float64(m) / float64(expected) * ln2))
	return max(k, 1)
}

// OptimalParams validates expected and errorRate and returns the slot count
// and hash count every filter in this package is built from.
func OptimalParams(expected uint64, errorRate float64) (m, k uint64, err error) {
	if expected == 0 {
		return 0, 0, fmt.Errorf("%w: expected capacity must be positive", ErrInvalidParameter)
	}
	if !(errorRate > 0 && errorRate < 1) {
		return 0, 0, fmt.Errorf("%w: error rate %v is not in (0, 1)", ErrInvalidParameter, errorRate)
	}

	m = IdealSize(expected, errorRate)
	k = HashCount(m, expected)
	return m, k, nil
}

// EstimateFalsePositiveRate estimates the false positive rate for m slots,
// k probes, and n entries.
// Formula: (1 - e^(-kn/m))^k
func EstimateFalsePositiveRate(m, k, n uint64) float64 {
	if m == 0 || n == 0 {
		return 0
	}

	kf := float64(k)
	return math.Pow(1-math.Exp(-kf*float64(n)/float64(m)), kf)
}

// storageSize returns ceil(slots * bits / 8) and whether it can be allocated.
func storageSize(slots uint64, bits uint64) (uint64, error) {
	if slots == 0 {
		return 0, fmt.Errorf("%w: slot count must be positive", ErrInvalidParameter)
	}
	if slots > maxStorageBytes*8/bits {
		return 0, fmt.Errorf("%w: %d slots of %d bits", ErrOutOfMemory, slots, bits)
	}
	return (slots*bits + 7) / 8, nil
}

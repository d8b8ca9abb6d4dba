package archbloom

import "fmt"

// CountingFilter is a bloom filter with a saturating counter per slot, so
// elements can be removed and their frequency estimated.
//
// Counters are 4, 8, 16, 32 or 64 bits wide. 4-bit counters are packed two
// per byte and saturate at 15.
type CountingFilter struct {
	core
	cells cellArray
}

// NewCounting creates a counting filter with counters of the given width.
func NewCounting(expected uint64, errorRate float64, width Width, opts ...Option) (*CountingFilter, error) {
	if !width.validCounter() {
		return nil, fmt.Errorf("%w: unsupported counter width %d", ErrInvalidParameter, width)
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	c, err := newCore(expected, errorRate, o)
	if err != nil {
		return nil, err
	}
	cells, err := newCellArray(c.slots, width)
	if err != nil {
		return nil, err
	}
	return &CountingFilter{core: c, cells: cells}, nil
}

// CounterWidth returns the width of each counter.
func (f *CountingFilter) CounterWidth() Width { return f.cells.width() }

// Size returns the size of the counter array in bytes.
func (f *CountingFilter) Size() uint64 { return uint64(len(f.cells.bytes())) }

// Add increments the counters for data.
func (f *CountingFilter) Add(data []byte) {
	for _, p := range f.positions(data) {
		f.cells.increment(p)
	}
}

// AddString is Add for string keys.
func (f *CountingFilter) AddString(s string) {
	f.Add(stringBytes(s))
}

// Remove decrements the counters for data. Nothing changes unless every
// counter is non-zero, so removing an absent element cannot erase slots
// shared with other elements.
func (f *CountingFilter) Remove(data []byte) {
	pos := f.positions(data)
	for _, p := range pos {
		if f.cells.get(p) == 0 {
			return
		}
	}
	for _, p := range pos {
		f.cells.decrement(p)
	}
}

// RemoveString is Remove for string keys.
func (f *CountingFilter) RemoveString(s string) {
	f.Remove(stringBytes(s))
}

// Lookup reports whether data might be in the filter.
func (f *CountingFilter) Lookup(data []byte) bool {
	for _, p := range f.positions(data) {
		if f.cells.get(p) == 0 {
			return false
		}
	}
	return true
}

// LookupString is Lookup for string keys.
func (f *CountingFilter) LookupString(s string) bool {
	return f.Lookup(stringBytes(s))
}

// Count estimates how many times data was added: the smallest of its
// counters.
func (f *CountingFilter) Count(data []byte) uint64 {
	lowest := f.cells.max()
	for _, p := range f.positions(data) {
		v := f.cells.get(p)
		if v == 0 {
			return 0
		}
		lowest = min(lowest, v)
	}
	return lowest
}

// CountString is Count for string keys.
func (f *CountingFilter) CountString(s string) uint64 {
	return f.Count(stringBytes(s))
}

// LookupOrAdd adds data and reports whether it was present beforehand.
func (f *CountingFilter) LookupOrAdd(data []byte) bool {
	present := true
	for _, p := range f.positions(data) {
		if f.cells.get(p) == 0 {
			present = false
		}
		f.cells.increment(p)
	}
	return present
}

// AddIfNotPresent adds data unless it is already present. It reports
// whether data was present.
func (f *CountingFilter) AddIfNotPresent(data []byte) bool {
	if f.Lookup(data) {
		return true
	}
	f.Add(data)
	return false
}

// ClearIfCountAbove zeroes all of data's counters if any of them exceeds
// threshold, and reports whether it did.
func (f *CountingFilter) ClearIfCountAbove(data []byte, threshold uint64) bool {
	pos := f.positions(data)
	for _, p := range pos {
		if f.cells.get(p) > threshold {
			for _, q := range pos {
				f.cells.set(q, 0)
			}
			return true
		}
	}
	return false
}

// ClearElement zeroes all of data's counters, whether or not data was
// added. Other elements sharing those slots are affected too.
func (f *CountingFilter) ClearElement(data []byte) {
	for _, p := range f.positions(data) {
		f.cells.set(p, 0)
	}
}

// DecayLinear subtracts amount from every counter, stopping at zero.
func (f *CountingFilter) DecayLinear(amount uint64) {
	for i := range f.slots {
		if v := f.cells.get(i); v != 0 {
			f.cells.set(i, v-min(v, amount))
		}
	}
}

// DecayExponential multiplies every counter by factor, truncating. Factors
// outside [0, 1] are ignored.
func (f *CountingFilter) DecayExponential(factor float64) {
	if !(factor >= 0 && factor <= 1) {
		return
	}
	for i := range f.slots {
		if v := f.cells.get(i); v != 0 {
			f.cells.set(i, uint64(float64(v)*factor))
		}
	}
}

// Clear zeroes every counter.
func (f *CountingFilter) Clear() {
	f.cells.reset()
}

// SaturationCount returns the number of non-zero counters.
func (f *CountingFilter) SaturationCount() uint64 {
	var n uint64
	for i := range f.slots {
		if f.cells.get(i) != 0 {
			n++
		}
	}
	return n
}

// Saturation returns the percentage of counters that are non-zero.
func (f *CountingFilter) Saturation() float64 {
	return percent(f.SaturationCount(), f.slots)
}

// CountElementsAboveThreshold estimates how many distinct elements have
// been added more than threshold times.
func (f *CountingFilter) CountElementsAboveThreshold(threshold uint64) uint64 {
	var n uint64
	for i := range f.slots {
		if f.cells.get(i) > threshold {
			n++
		}
	}
	return n / f.hashes
}

// AverageCount returns the mean of the non-zero counters, or 0 if all are
// zero.
func (f *CountingFilter) AverageCount() float64 {
	var sum float64
	var n uint64
	for i := range f.slots {
		if v := f.cells.get(i); v != 0 {
			sum += float64(v)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// MergeCounting returns a new counting filter whose counters are the
// saturating sums of a's and b's. Both must share slot count, hash count,
// hash function and counter width.
func MergeCounting(a, b *CountingFilter) (*CountingFilter, error) {
	if err := a.compatible(&b.core); err != nil {
		return nil, err
	}
	if a.cells.width() != b.cells.width() {
		return nil, fmt.Errorf("%w: counter widths %d and %d", ErrIncompatibleFilters,
			a.cells.width(), b.cells.width())
	}

	cells, err := newCellArray(a.slots, a.cells.width())
	if err != nil {
		return nil, err
	}
	limit := cells.max()
	for i := range a.slots {
		x, y := a.cells.get(i), b.cells.get(i)
		if y > limit-x {
			cells.set(i, limit)
		} else {
			cells.set(i, x+y)
		}
	}
	return &CountingFilter{core: a.clone(), cells: cells}, nil
}

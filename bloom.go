package archbloom

// Filter is a plain bit-vector bloom filter.
//
// Filter is not safe for concurrent use, lookups included: probe positions
// are computed into a buffer owned by the filter.
type Filter struct {
	core
	bits       *bitArray
	insertions uint64
}

// New creates a filter sized to hold expected elements at the given false
// positive rate.
func New(expected uint64, errorRate float64, opts ...Option) (*Filter, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	c, err := newCore(expected, errorRate, o)
	if err != nil {
		return nil, err
	}
	cells, err := newCellArray(c.slots, Width1)
	if err != nil {
		return nil, err
	}
	return &Filter{core: c, bits: cells.(*bitArray)}, nil
}

// Add adds data to the filter.
func (f *Filter) Add(data []byte) {
	f.lookupOrAdd(data)
}

// AddString adds a string to the filter without allocating.
func (f *Filter) AddString(s string) {
	f.lookupOrAdd(stringBytes(s))
}

// Lookup reports whether data might be in the filter. false means data was
// definitely never added.
func (f *Filter) Lookup(data []byte) bool {
	for _, p := range f.positions(data) {
		if f.bits.get(p) == 0 {
			return false
		}
	}
	return true
}

// LookupString is Lookup for string keys, without allocating.
func (f *Filter) LookupString(s string) bool {
	return f.Lookup(stringBytes(s))
}

// LookupOrAdd adds data and reports whether it was already present.
func (f *Filter) LookupOrAdd(data []byte) bool {
	return f.lookupOrAdd(data)
}

// LookupOrAddString is LookupOrAdd for string keys.
func (f *Filter) LookupOrAddString(s string) bool {
	return f.lookupOrAdd(stringBytes(s))
}

func (f *Filter) lookupOrAdd(data []byte) bool {
	present := true
	for _, p := range f.positions(data) {
		if !f.bits.testAndSet(p) {
			present = false
		}
	}
	if !present {
		f.insertions++
	}
	return present
}

// Clear removes every element and resets the insertion count.
func (f *Filter) Clear() {
	f.bits.reset()
	f.insertions = 0
}

// SaturationCount returns the number of set bits.
func (f *Filter) SaturationCount() uint64 {
	return f.bits.popcount()
}

// Saturation returns the percentage of bits that are set.
func (f *Filter) Saturation() float64 {
	return percent(f.SaturationCount(), f.slots)
}

// ClearIfSaturationExceeds clears the filter if its saturation is strictly
// above threshold percent, and reports whether it did.
func (f *Filter) ClearIfSaturationExceeds(threshold float64) bool {
	if f.Saturation() > threshold {
		f.Clear()
		return true
	}
	return false
}

// EstimateFalsePositiveRate estimates the current false positive rate from
// the number of set bits.
func (f *Filter) EstimateFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.slots, f.hashes, f.SaturationCount())
}

// Insertions returns how many adds set at least one new bit.
func (f *Filter) Insertions() uint64 { return f.insertions }

// Capacity returns insertions as a percentage of the expected element count.
// Values above 100 mean the filter is over capacity.
func (f *Filter) Capacity() float64 {
	return percent(f.insertions, f.expected)
}

// Size returns the size of the bit array in bytes.
func (f *Filter) Size() uint64 {
	return uint64(len(f.bits.buf))
}

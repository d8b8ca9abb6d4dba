package archbloom

import "fmt"

// core holds the parameters every filter type shares and generates its
// probe positions.
type core struct {
	name      string
	hash      HashFunc
	slots     uint64 // m
	hashes    uint64 // k
	expected  uint64
	errorRate float64

	scratch []uint64
}

func newCore(expected uint64, errorRate float64, o options) (core, error) {
	m, k, err := OptimalParams(expected, errorRate)
	if err != nil {
		return core{}, err
	}
	return core{
		name:      o.name,
		hash:      o.hash,
		slots:     m,
		hashes:    k,
		expected:  expected,
		errorRate: errorRate,
		scratch:   make([]uint64, 0, k),
	}, nil
}

// positions returns the k slot indexes for data. The slice is reused by
// the next call.
func (c *core) positions(data []byte) []uint64 {
	c.scratch = c.hash.probes(c.scratch[:0], data, c.hashes, c.slots)
	return c.scratch
}

// Name returns the filter's name.
func (c *core) Name() string { return c.name }

// SetName renames the filter. Names longer than [MaxNameLength] bytes are
// rejected with [ErrInvalidParameter].
func (c *core) SetName(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	c.name = name
	return nil
}

// Slots returns the number of storage cells, m.
func (c *core) Slots() uint64 { return c.slots }

// Hashes returns the number of probes per element, k.
func (c *core) Hashes() uint64 { return c.hashes }

// Expected returns the element count the filter was sized for.
func (c *core) Expected() uint64 { return c.expected }

// ErrorRate returns the false positive rate the filter was sized for.
func (c *core) ErrorRate() float64 { return c.errorRate }

// Hash returns the hash function used for probes.
func (c *core) Hash() HashFunc { return c.hash }

// compatible reports whether two filters probe identical positions for
// every element.
func (c *core) compatible(o *core) error {
	if c.slots != o.slots || c.hashes != o.hashes || c.hash != o.hash {
		return fmt.Errorf("%w: (m=%d k=%d %s) vs (m=%d k=%d %s)", ErrIncompatibleFilters,
			c.slots, c.hashes, c.hash, o.slots, o.hashes, o.hash)
	}
	return nil
}

// clone returns a copy with its own scratch buffer.
func (c *core) clone() core {
	cp := *c
	cp.scratch = make([]uint64, 0, c.hashes)
	return cp
}

func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

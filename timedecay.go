package archbloom

import "time"

// TimeDecayingFilter is a bloom filter whose elements expire a fixed
// timeout after they were last added.
//
// Each slot holds a reduced timestamp: seconds since the filter's start
// time, modulo the largest value the timer width can hold. Once that much
// time has passed since the start, ages can no longer be told apart and
// every lookup fails until [TimeDecayingFilter.Clear] or
// [TimeDecayingFilter.ResetStartTime] is called.
type TimeDecayingFilter struct {
	core
	cells   cellArray
	clock   reducedClock
	timeout uint64 // seconds
}

// NewTimeDecaying creates a filter whose entries expire after timeout,
// which is truncated to whole seconds. Unless [WithTimerWidth] is given, the
// narrowest timer width able to represent the timeout is used.
func NewTimeDecaying(expected uint64, errorRate float64, timeout time.Duration, opts ...Option) (*TimeDecayingFilter, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	secs, err := timeoutSeconds(timeout)
	if err != nil {
		return nil, err
	}
	w := o.timerWidth
	if w == 0 {
		w = timerWidthFor(secs)
	}
	if err := checkTimeout(secs, w); err != nil {
		return nil, err
	}

	c, err := newCore(expected, errorRate, o)
	if err != nil {
		return nil, err
	}
	cells, err := newCellArray(c.slots, w)
	if err != nil {
		return nil, err
	}
	return &TimeDecayingFilter{
		core:    c,
		cells:   cells,
		clock:   newReducedClock(o.clock, w),
		timeout: secs,
	}, nil
}

// Timeout returns how long entries stay live.
func (f *TimeDecayingFilter) Timeout() time.Duration {
	return time.Duration(f.timeout) * time.Second
}

// TimerWidth returns the width of each timestamp.
func (f *TimeDecayingFilter) TimerWidth() Width { return f.cells.width() }

// Size returns the size of the timestamp array in bytes.
func (f *TimeDecayingFilter) Size() uint64 { return uint64(len(f.cells.bytes())) }

// expired reports whether a non-empty timestamp has outlived the timeout.
func (f *TimeDecayingFilter) expired(now, ts uint64, pastHorizon bool) bool {
	return ts != 0 && (pastHorizon || f.clock.age(now, ts) > f.timeout)
}

// Add stamps data's slots with the current time.
func (f *TimeDecayingFilter) Add(data []byte) {
	now := f.clock.now()
	for _, p := range f.positions(data) {
		f.cells.set(p, now)
	}
}

// AddString is Add for string keys.
func (f *TimeDecayingFilter) AddString(s string) {
	f.Add(stringBytes(s))
}

// Lookup reports whether data might have been added within the timeout.
func (f *TimeDecayingFilter) Lookup(data []byte) bool {
	if f.clock.pastHorizon() {
		return false
	}
	now := f.clock.now()
	for _, p := range f.positions(data) {
		ts := f.cells.get(p)
		if ts == 0 || f.clock.age(now, ts) > f.timeout {
			return false
		}
	}
	return true
}

// LookupString is Lookup for string keys.
func (f *TimeDecayingFilter) LookupString(s string) bool {
	return f.Lookup(stringBytes(s))
}

// HasExpired reports whether data was added but has since expired. It is
// false for elements that were never added.
func (f *TimeDecayingFilter) HasExpired(data []byte) bool {
	past := f.clock.pastHorizon()
	now := f.clock.now()
	expired := false
	for _, p := range f.positions(data) {
		ts := f.cells.get(p)
		if ts == 0 {
			return false
		}
		if f.expired(now, ts, past) {
			expired = true
		}
	}
	return expired
}

// ResetIfExpired refreshes data if it has expired, and reports whether it
// did.
func (f *TimeDecayingFilter) ResetIfExpired(data []byte) bool {
	if !f.HasExpired(data) {
		return false
	}
	f.Add(data)
	return true
}

// ClearExpired zeroes every expired slot and returns how many it cleared.
func (f *TimeDecayingFilter) ClearExpired() uint64 {
	return f.sweep(true)
}

// CountExpired returns the number of expired slots.
func (f *TimeDecayingFilter) CountExpired() uint64 {
	return f.sweep(false)
}

func (f *TimeDecayingFilter) sweep(reap bool) uint64 {
	past := f.clock.pastHorizon()
	now := f.clock.now()
	var n uint64
	for i := range f.slots {
		if f.expired(now, f.cells.get(i), past) {
			n++
			if reap {
				f.cells.set(i, 0)
			}
		}
	}
	return n
}

// SaturationCount returns the number of live slots.
func (f *TimeDecayingFilter) SaturationCount() uint64 {
	past := f.clock.pastHorizon()
	now := f.clock.now()
	var n uint64
	for i := range f.slots {
		if ts := f.cells.get(i); ts != 0 && !f.expired(now, ts, past) {
			n++
		}
	}
	return n
}

// Saturation returns the percentage of slots that are live.
func (f *TimeDecayingFilter) Saturation() float64 {
	return percent(f.SaturationCount(), f.slots)
}

// Clear empties the filter and restarts its clock.
func (f *TimeDecayingFilter) Clear() {
	f.cells.reset()
	f.clock.reset()
}

// ResetStartTime restarts the clock without touching stored timestamps.
// Existing entries are reinterpreted against the new start, which pauses
// their decay relative to one another but generally changes their ages.
func (f *TimeDecayingFilter) ResetStartTime() {
	f.clock.reset()
}

// AgeElement makes data look amount older. Entries aged beyond the timeout
// become expired. It reports false, changing nothing, if data is not in the
// filter.
func (f *TimeDecayingFilter) AgeElement(data []byte, amount time.Duration) bool {
	secs, err := timeoutSeconds(amount)
	if err != nil {
		return false
	}
	pos := f.positions(data)
	for _, p := range pos {
		if f.cells.get(p) == 0 {
			return false
		}
	}

	now := f.clock.now()
	for _, p := range pos {
		age := f.clock.age(now, f.cells.get(p))
		if secs > f.timeout-min(age, f.timeout) {
			age = f.timeout + 1
		} else {
			age += secs
		}
		f.cells.set(p, f.clock.stampForAge(now, age))
	}
	return true
}

// AdjustTimeout changes the timeout and clears the slots that are expired
// under it, returning how many were cleared. This is a full scan.
func (f *TimeDecayingFilter) AdjustTimeout(timeout time.Duration) (uint64, error) {
	secs, err := timeoutSeconds(timeout)
	if err != nil {
		return 0, err
	}
	if err := checkTimeout(secs, f.cells.width()); err != nil {
		return 0, err
	}
	f.timeout = secs
	return f.ClearExpired(), nil
}

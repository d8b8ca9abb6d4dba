package archbloom

import (
	"fmt"
	"time"
)

// TimeDecayingCountingFilter pairs a saturating counter with a reduced
// timestamp in every slot. Elements can be counted and removed like in a
// [CountingFilter] and expire like in a [TimeDecayingFilter].
//
// A slot whose counter is non-zero but whose timestamp is 0 has been aged
// out by [TimeDecayingCountingFilter.AgeElement] and counts as expired. As
// with [TimeDecayingFilter], every entry reads as expired once the timer
// width's worth of seconds has passed since the start, until
// [TimeDecayingCountingFilter.Clear] or
// [TimeDecayingCountingFilter.ResetStartTime] is called.
type TimeDecayingCountingFilter struct {
	core
	entries *entryArray
	clock   reducedClock
	timeout uint64 // seconds
}

// NewTimeDecayingCounting creates a filter with the given counter and timer
// widths, each one of 8, 16, 32 or 64 bits. Entries expire after timeout,
// truncated to whole seconds.
func NewTimeDecayingCounting(expected uint64, errorRate float64, timeout time.Duration,
	counterWidth, timerWidth Width, opts ...Option,
) (*TimeDecayingCountingFilter, error) {
	if !counterWidth.isWord() {
		return nil, fmt.Errorf("%w: unsupported counter width %d", ErrInvalidParameter, counterWidth)
	}
	secs, err := timeoutSeconds(timeout)
	if err != nil {
		return nil, err
	}
	if err := checkTimeout(secs, timerWidth); err != nil {
		return nil, err
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	c, err := newCore(expected, errorRate, o)
	if err != nil {
		return nil, err
	}
	entries, err := newEntryArray(c.slots, counterWidth, timerWidth)
	if err != nil {
		return nil, err
	}
	return &TimeDecayingCountingFilter{
		core:    c,
		entries: entries,
		clock:   newReducedClock(o.clock, timerWidth),
		timeout: secs,
	}, nil
}

// Timeout returns how long entries stay live.
func (f *TimeDecayingCountingFilter) Timeout() time.Duration {
	return time.Duration(f.timeout) * time.Second
}

// CounterWidth returns the width of each counter.
func (f *TimeDecayingCountingFilter) CounterWidth() Width { return f.entries.counterW }

// TimerWidth returns the width of each timestamp.
func (f *TimeDecayingCountingFilter) TimerWidth() Width { return f.entries.timerW }

// Size returns the size of the entry array in bytes.
func (f *TimeDecayingCountingFilter) Size() uint64 { return uint64(len(f.entries.buf)) }

// stale reports whether ts is empty or older than maxAge. Past the clock's
// horizon every timestamp is stale.
func (f *TimeDecayingCountingFilter) stale(now, ts, maxAge uint64, pastHorizon bool) bool {
	return ts == 0 || pastHorizon || f.clock.age(now, ts) > maxAge
}

// Add increments data's counters and stamps them with the current time.
func (f *TimeDecayingCountingFilter) Add(data []byte) {
	now := f.clock.now()
	for _, p := range f.positions(data) {
		f.entries.incrementCounter(p)
		f.entries.setTimestamp(p, now)
	}
}

// AddString is Add for string keys.
func (f *TimeDecayingCountingFilter) AddString(s string) {
	f.Add(stringBytes(s))
}

// Lookup reports whether data might be present and unexpired.
func (f *TimeDecayingCountingFilter) Lookup(data []byte) bool {
	return f.Count(data) != 0
}

// LookupString is Lookup for string keys.
func (f *TimeDecayingCountingFilter) LookupString(s string) bool {
	return f.Lookup(stringBytes(s))
}

// Count returns the smallest of data's counters, or 0 if any of them is
// zero or expired.
func (f *TimeDecayingCountingFilter) Count(data []byte) uint64 {
	if f.clock.pastHorizon() {
		return 0
	}
	now := f.clock.now()
	lowest := f.entries.counterW.Max()
	for _, p := range f.positions(data) {
		v := f.entries.counter(p)
		if v == 0 || f.stale(now, f.entries.timestamp(p), f.timeout, false) {
			return 0
		}
		lowest = min(lowest, v)
	}
	return lowest
}

// CountString is Count for string keys.
func (f *TimeDecayingCountingFilter) CountString(s string) uint64 {
	return f.Count(stringBytes(s))
}

// Remove decrements data's counters, stopping at zero. Timestamps are left
// alone.
func (f *TimeDecayingCountingFilter) Remove(data []byte) {
	for _, p := range f.positions(data) {
		f.entries.decrementCounter(p)
	}
}

// RemoveString is Remove for string keys.
func (f *TimeDecayingCountingFilter) RemoveString(s string) {
	f.Remove(stringBytes(s))
}

// AgeElement makes data look amount older. A slot aged past the timeout is
// marked expired by zeroing its timestamp. It reports false, changing
// nothing, if any of data's counters is zero.
func (f *TimeDecayingCountingFilter) AgeElement(data []byte, amount time.Duration) bool {
	secs, err := timeoutSeconds(amount)
	if err != nil {
		return false
	}
	pos := f.positions(data)
	for _, p := range pos {
		if f.entries.counter(p) == 0 {
			return false
		}
	}

	past := f.clock.pastHorizon()
	now := f.clock.now()
	for _, p := range pos {
		ts := f.entries.timestamp(p)
		if ts == 0 {
			continue
		}
		age := f.clock.age(now, ts)
		if past || age > f.timeout || secs > f.timeout-age {
			f.entries.setTimestamp(p, 0)
		} else {
			f.entries.setTimestamp(p, f.clock.stampForAge(now, age+secs))
		}
	}
	return true
}

// AgeAndRemove empties every slot older than maxAge and returns how many it
// emptied.
func (f *TimeDecayingCountingFilter) AgeAndRemove(maxAge time.Duration) uint64 {
	secs, err := timeoutSeconds(maxAge)
	if err != nil {
		return 0
	}
	return f.sweep(secs, true)
}

func (f *TimeDecayingCountingFilter) sweep(maxAge uint64, reap bool) uint64 {
	past := f.clock.pastHorizon()
	now := f.clock.now()
	var n uint64
	for i := range f.slots {
		c, ts := f.entries.counter(i), f.entries.timestamp(i)
		if c == 0 && ts == 0 {
			continue
		}
		if f.stale(now, ts, maxAge, past) {
			n++
			if reap {
				f.entries.clearEntry(i)
			}
		}
	}
	return n
}

// AdjustTimeout changes the timeout and empties the slots that are expired
// under it, returning how many were emptied. This is a full scan.
func (f *TimeDecayingCountingFilter) AdjustTimeout(timeout time.Duration) (uint64, error) {
	secs, err := timeoutSeconds(timeout)
	if err != nil {
		return 0, err
	}
	if err := checkTimeout(secs, f.entries.timerW); err != nil {
		return 0, err
	}
	f.timeout = secs
	return f.ClearExpired(), nil
}

// HasExpired reports whether data was added but has since expired.
func (f *TimeDecayingCountingFilter) HasExpired(data []byte) bool {
	past := f.clock.pastHorizon()
	now := f.clock.now()
	expired := false
	for _, p := range f.positions(data) {
		if f.entries.counter(p) == 0 {
			return false
		}
		if f.stale(now, f.entries.timestamp(p), f.timeout, past) {
			expired = true
		}
	}
	return expired
}

// ResetIfExpired adds data again if it has expired, and reports whether it
// did.
func (f *TimeDecayingCountingFilter) ResetIfExpired(data []byte) bool {
	if !f.HasExpired(data) {
		return false
	}
	f.Add(data)
	return true
}

// ClearExpired empties every expired slot and returns how many it emptied.
func (f *TimeDecayingCountingFilter) ClearExpired() uint64 {
	return f.sweep(f.timeout, true)
}

// CountExpired returns the number of expired slots.
func (f *TimeDecayingCountingFilter) CountExpired() uint64 {
	return f.sweep(f.timeout, false)
}

// AverageCount returns the mean of the non-zero counters, or 0 if all are
// zero.
func (f *TimeDecayingCountingFilter) AverageCount() float64 {
	var sum float64
	var n uint64
	for i := range f.slots {
		if v := f.entries.counter(i); v != 0 {
			sum += float64(v)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// SaturationCount returns the number of active slots: those with a
// non-zero counter or a live timestamp.
func (f *TimeDecayingCountingFilter) SaturationCount() uint64 {
	past := f.clock.pastHorizon()
	now := f.clock.now()
	var n uint64
	for i := range f.slots {
		if f.entries.counter(i) != 0 || !f.stale(now, f.entries.timestamp(i), f.timeout, past) {
			n++
		}
	}
	return n
}

// Saturation returns the percentage of slots that are active.
func (f *TimeDecayingCountingFilter) Saturation() float64 {
	return percent(f.SaturationCount(), f.slots)
}

// Clear empties the filter and restarts its clock.
func (f *TimeDecayingCountingFilter) Clear() {
	f.entries.reset()
	f.clock.reset()
}

// ResetStartTime restarts the clock without touching stored entries.
func (f *TimeDecayingCountingFilter) ResetStartTime() {
	f.clock.reset()
}

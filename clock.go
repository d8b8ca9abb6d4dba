package archbloom

import (
	"fmt"
	"math"
	"time"
)

// Clock supplies the current time to time-decaying filters.
//
// The default clock is [time.Now]. Its monotonic reading is used to measure
// elapsed time, so adjusting the system clock does not age or revive entries.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// reducedClock maps elapsed seconds since start onto [1, max], wrapping
// around. 0 is never produced so that a zero timestamp cell means empty.
type reducedClock struct {
	clock Clock
	start time.Time
	max   uint64
}

func newReducedClock(c Clock, w Width) reducedClock {
	return reducedClock{clock: c, start: c.Now(), max: w.Max()}
}

// elapsed returns whole seconds since start. A clock that moved backwards
// reads as 0.
func (c *reducedClock) elapsed() uint64 {
	d := c.clock.Now().Sub(c.start)
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Second)
}

// now returns the current reduced time.
func (c *reducedClock) now() uint64 {
	return c.elapsed()%c.max + 1
}

// pastHorizon reports whether the reduced time has wrapped since start. At
// elapsed == max the current time reduces to the same value as a stamp
// written at start, so stored ages are ambiguous from there on.
func (c *reducedClock) pastHorizon() bool {
	return c.elapsed() >= c.max
}

// reset restarts the clock at the current time.
func (c *reducedClock) reset() {
	c.start = c.clock.Now()
}

// maxElapsedSeconds is the longest elapsed time a time.Duration can hold.
const maxElapsedSeconds = uint64(math.MaxInt64 / int64(time.Second))

// restore sets start so that elapsed() reads seconds right now. seconds is
// clamped to maxElapsedSeconds.
func (c *reducedClock) restore(seconds uint64) {
	seconds = min(seconds, maxElapsedSeconds)
	c.start = c.clock.Now().Add(-time.Duration(seconds) * time.Second)
}

// age returns how many seconds ago stored was written, given the current
// reduced time now. Both values must be in [1, max].
func (c *reducedClock) age(now, stored uint64) uint64 {
	if now >= stored {
		return now - stored
	}
	return c.max - (stored - now)
}

// stampForAge returns the reduced timestamp whose age at now is age.
// age must be below max.
func (c *reducedClock) stampForAge(now, age uint64) uint64 {
	if now > age {
		return now - age
	}
	return now + (c.max - age)
}

// timeoutSeconds converts d to whole seconds.
func timeoutSeconds(d time.Duration) (uint64, error) {
	if d < 0 {
		return 0, fmt.Errorf("%w: negative timeout %v", ErrInvalidParameter, d)
	}
	return uint64(d / time.Second), nil
}

// checkTimeout verifies that a timeout of secs seconds can be told apart
// from an expired entry with timestamps of width w.
func checkTimeout(secs uint64, w Width) error {
	if !w.isWord() {
		return fmt.Errorf("%w: unsupported timer width %d", ErrInvalidParameter, w)
	}
	if secs >= w.Max()-1 {
		return fmt.Errorf("%w: timeout of %ds does not fit a %d-bit timer", ErrInvalidParameter, secs, w)
	}
	return nil
}

// timerWidthFor returns the narrowest timer width able to hold timeouts of
// secs seconds.
func timerWidthFor(secs uint64) Width {
	for _, w := range []Width{Width8, Width16, Width32} {
		if secs < w.Max()-1 {
			return w
		}
	}
	return Width64
}

package archbloom

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestReducedClockNeverZero(t *testing.T) {
	t.Parallel()

	fc := newFakeClock()
	rc := newReducedClock(fc, Width8)
	require.Equal(t, uint64(255), rc.max)

	assert.Equal(t, uint64(1), rc.now())
	for range 1000 {
		fc.Advance(time.Second)
		now := rc.now()
		assert.NotZero(t, now)
		assert.LessOrEqual(t, now, rc.max)
	}
}

func TestReducedClockWraparound(t *testing.T) {
	t.Parallel()

	fc := newFakeClock()
	rc := newReducedClock(fc, Width8)

	fc.Advance(254 * time.Second)
	assert.Equal(t, uint64(255), rc.now())

	fc.Advance(time.Second)
	assert.Equal(t, uint64(1), rc.now(), "255 seconds wraps back to 1")

	fc.Advance(time.Second)
	assert.Equal(t, uint64(2), rc.now())
}

func TestReducedClockAge(t *testing.T) {
	t.Parallel()

	rc := newReducedClock(newFakeClock(), Width8)

	tests := []struct {
		now, stored, want uint64
	}{
		{10, 10, 0},
		{10, 3, 7},
		{1, 255, 1},
		{2, 250, 7},
		{255, 1, 254},
		{1, 2, 254},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rc.age(tt.now, tt.stored), "age(%d, %d)", tt.now, tt.stored)
	}
}

func TestReducedClockAgeAcrossWrap(t *testing.T) {
	t.Parallel()

	fc := newFakeClock()
	rc := newReducedClock(fc, Width8)

	fc.Advance(250 * time.Second)
	stored := rc.now()

	for want := range uint64(20) {
		assert.Equal(t, want, rc.age(rc.now(), stored))
		fc.Advance(time.Second)
	}
}

func TestReducedClockAge64(t *testing.T) {
	t.Parallel()

	rc := newReducedClock(newFakeClock(), Width64)
	top := ^uint64(0)

	assert.Equal(t, uint64(1), rc.age(1, top))
	assert.Equal(t, top-1, rc.age(top, 1))
}

func TestReducedClockStampForAge(t *testing.T) {
	t.Parallel()

	rc := newReducedClock(newFakeClock(), Width8)
	for _, now := range []uint64{1, 2, 100, 254, 255} {
		for _, age := range []uint64{0, 1, 5, 100, 254} {
			ts := rc.stampForAge(now, age)
			require.NotZero(t, ts)
			require.LessOrEqual(t, ts, rc.max)
			assert.Equal(t, age, rc.age(now, ts), "now=%d age=%d", now, age)
		}
	}
}

func TestReducedClockHorizon(t *testing.T) {
	t.Parallel()

	fc := newFakeClock()
	rc := newReducedClock(fc, Width8)

	fc.Advance(254 * time.Second)
	assert.False(t, rc.pastHorizon())
	fc.Advance(time.Second)
	assert.True(t, rc.pastHorizon(), "255s reduces to the same time as the start")
	assert.Equal(t, uint64(1), rc.now())

	rc.reset()
	assert.False(t, rc.pastHorizon())
	assert.Equal(t, uint64(1), rc.now())
}

func TestReducedClockBackwards(t *testing.T) {
	t.Parallel()

	fc := newFakeClock()
	rc := newReducedClock(fc, Width16)
	fc.Advance(-time.Hour)
	assert.Zero(t, rc.elapsed())
	assert.Equal(t, uint64(1), rc.now())
}

func TestReducedClockRestore(t *testing.T) {
	t.Parallel()

	fc := newFakeClock()
	rc := newReducedClock(fc, Width16)
	rc.restore(90)
	assert.Equal(t, uint64(90), rc.elapsed())
	assert.Equal(t, uint64(91), rc.now())

	rc.restore(^uint64(0))
	assert.Equal(t, maxElapsedSeconds, rc.elapsed(), "clamped rather than overflowing")
	assert.True(t, rc.pastHorizon())
}

func TestTimerWidthFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		secs uint64
		want Width
	}{
		{0, Width8},
		{253, Width8},
		{254, Width16},
		{3600, Width16},
		{65533, Width16},
		{65534, Width32},
		{1 << 33, Width64},
	}
	for _, tt := range tests {
		w := timerWidthFor(tt.secs)
		assert.Equal(t, tt.want, w, "timeout %ds", tt.secs)
		assert.NoError(t, checkTimeout(tt.secs, w))
	}
}

func TestCheckTimeout(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, checkTimeout(254, Width8), ErrInvalidParameter)
	require.ErrorIs(t, checkTimeout(10, Width4), ErrInvalidParameter)
	require.NoError(t, checkTimeout(253, Width8))

	_, err := timeoutSeconds(-time.Second)
	require.ErrorIs(t, err, ErrInvalidParameter)

	secs, err := timeoutSeconds(90*time.Second + 999*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), secs)
}

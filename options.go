package archbloom

import "fmt"

const (
	// MaxNameLength is the longest name, in bytes, a filter may carry.
	MaxNameLength = 255

	// DefaultName is the name given to filters built without [WithName].
	DefaultName = "DEFAULT"
)

// Option configures a filter at construction or load time.
type Option func(*options)

type options struct {
	name       string
	hash       HashFunc
	clock      Clock
	timerWidth Width
}

func defaultOptions() options {
	return options{
		name:  DefaultName,
		hash:  HashXXH3,
		clock: systemClock{},
	}
}

// WithName sets the filter's name. Names are informational and are stored
// in saved files.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithHash selects the hash used for probe positions. Ignored when loading,
// where the saved hash wins.
func WithHash(h HashFunc) Option {
	return func(o *options) { o.hash = h }
}

// WithClock sets the time source for time-decaying filters.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTimerWidth overrides the automatically chosen timestamp width of a
// [TimeDecayingFilter].
func WithTimerWidth(w Width) Option {
	return func(o *options) { o.timerWidth = w }
}

func buildOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkName(o.name); err != nil {
		return o, err
	}
	if !o.hash.valid() {
		return o, fmt.Errorf("%w: unknown hash function %d", ErrInvalidParameter, o.hash)
	}
	if o.clock == nil {
		return o, fmt.Errorf("%w: nil clock", ErrInvalidParameter)
	}
	return o, nil
}

func checkName(name string) error {
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name is %d bytes, limit is %d", ErrInvalidParameter, len(name), MaxNameLength)
	}
	return nil
}

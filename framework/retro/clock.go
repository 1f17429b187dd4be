package retro

import "time"

// Clock allows dependency injection of a function returning
// the current time. Event timestamps are taken from a Clock so
// that tests can use one with a predictable step.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

func (fn ClockFunc) Now() time.Time { return fn() }

// SystemClock returns the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

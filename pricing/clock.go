package pricing

import "time"

// Clock supplies the current time to time-dependent pricing rules.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a plain function to Clock. Handy for pinning time in tests.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

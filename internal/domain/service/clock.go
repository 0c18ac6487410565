package service

import "time"

// Clock supplies the current time. Session lifecycle decisions (expiry,
// refresh, freshness) all flow through one injected clock so boundary cases
// are exactly testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Package clock abstracts "now" so month windows, overdue checks and the
// forecast horizon are testable.
package clock

import "time"

// Clock is a source of the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Used in tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

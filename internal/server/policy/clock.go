package policy

import "time"

// Clock supplies the current instant to the quarter window.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Useful for pinning quarter boundaries.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// QuarterStart returns 00:00 UTC on the first day of the calendar quarter
// containing now.
func QuarterStart(now time.Time) time.Time {
	now = now.UTC()
	first := time.Month(3*((int(now.Month())-1)/3) + 1)
	return time.Date(now.Year(), first, 1, 0, 0, 0, 0, time.UTC)
}

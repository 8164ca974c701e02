package clock

import "time"

// Clock allows injecting time in domain/services.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystem returns a UTC clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{loc: time.UTC}
}

// NewSystemIn returns a clock backed by time.Now that reports times in loc.
// Calendar arithmetic (month boundaries) follows loc.
func NewSystemIn(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always returns the same instant (useful for tests).
// The instant keeps its location.
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// MonthBounds returns the half-open interval [start, next) of the calendar
// month containing t, in t's location.
func MonthBounds(t time.Time) (start, next time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

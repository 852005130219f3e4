package quota

import "time"

// DateLayout is the calendar-day identifier format stored in records.
const DateLayout = "2006-01-02"

// Clock answers "what day is it" in the reference timezone, independent of the host zone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a Clock. now may be nil (time.Now).
func NewClock(loc *time.Location, now func() time.Time) Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Clock{loc: loc, now: now}
}

// Now returns the current instant in the reference timezone.
func (c Clock) Now() time.Time { return c.now().In(c.loc) }

// Today returns the current reference-timezone date.
func (c Clock) Today() string { return c.Now().Format(DateLayout) }

// NextReset returns the next local midnight in the reference timezone.
func (c Clock) NextReset() time.Time {
	n := c.Now()
	return time.Date(n.Year(), n.Month(), n.Day()+1, 0, 0, 0, 0, c.loc)
}

// Location returns the reference timezone.
func (c Clock) Location() *time.Location { return c.loc }

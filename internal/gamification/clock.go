package gamification

import "time"

// Clock supplies the current time. Calendar-day comparisons use the
// location of the returned time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the local timezone
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// sameDay reports whether a and b fall on the same calendar day in loc
func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// isYesterday reports whether last falls on the calendar day before now
func isYesterday(last, now time.Time) bool {
	loc := now.Location()
	y, m, d := now.Date()
	dayBefore := time.Date(y, m, d-1, 12, 0, 0, 0, loc)
	return sameDay(last, dayBefore, loc)
}

// fromMillis converts a stored timestamp; zero means "never"
func fromMillis(ms int64, loc *time.Location) (time.Time, bool) {
	if ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).In(loc), true
}

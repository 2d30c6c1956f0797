package analytics

import "time"

// DaysPerWeek is the length of a weekly report window in calendar days.
const DaysPerWeek = 7

// DateLayout is the calendar date format accepted for report weeks.
const DateLayout = "2006-01-02"

// StartOfWeek returns Monday 00:00 of the week containing t, in loc.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	// time.Weekday starts on Sunday; shift so Monday is day 0.
	offset := (int(local.Weekday()) + 6) % 7
	y, m, d := local.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
}

// WeekWindow returns the half-open window [start, end) of the week containing t.
// The end is seven calendar days later, so DST weeks may be 167 or 169 hours long.
func WeekWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfWeek(t, loc)
	return start, start.AddDate(0, 0, DaysPerWeek)
}

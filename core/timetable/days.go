package timetable

import "time"

// DefaultDayIndex returns the index of today's day in `week`.
// On weekends, or when today is not part of the week, it returns -1 and false.
func DefaultDayIndex(week TimetableWeek, today time.Time) (int, bool) {
	switch today.Weekday() {
	case time.Saturday, time.Sunday:
		return -1, false
	}
	date := DateOf(today)
	for i, day := range week.Days {
		if day.Date.Equal(date) {
			return i, true
		}
	}
	return -1, false
}

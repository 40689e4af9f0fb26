package timetable

import (
	"fmt"
	"sort"
)

// slot groups one teacher's lessons happening at the "same point" of a day across classes.
// It is keyed by the exact time range when known, else by the period number.
type slot struct {
	timed          bool
	keyRange       TimeRange
	fallbackPeriod int

	lessons       []Lesson
	periodNumbers []int
	ranges        []TimeRange
}

func slotKey(cell LessonCell) string {
	if cell.TimeRange.Known() {
		return "T:" + cell.TimeRange.String()
	}
	return fmt.Sprintf("P:%d", cell.PeriodNumber)
}

// BuildTeacherTimetable synthesizes the week of `teacherFullName` out of every class week of the same week id.
// Day count and dates follow the first week. Returns false if weeks is empty.
func BuildTeacherTimetable(weeks []TimetableWeek, teacherFullName string) (TimetableWeek, bool) {
	if len(weeks) == 0 {
		return TimetableWeek{}, false
	}
	base := weeks[0]

	dayCount := len(base.Days)
	if dayCount > maxWeekDays {
		dayCount = maxWeekDays
	}

	days := make([]TimetableDay, 0, dayCount)
	for dayIdx := 0; dayIdx < dayCount; dayIdx++ {
		slots := make(map[string]*slot)
		for _, w := range weeks {
			if dayIdx >= len(w.Days) {
				continue
			}
			for _, c := range w.Days[dayIdx].LessonsByPeriod {
				cell, ok := c.(LessonCell)
				if !ok {
					continue
				}
				var matching []Lesson
				for _, l := range cell.Lessons {
					if l.TeacherFullName.Valid && l.TeacherFullName.String == teacherFullName {
						matching = append(matching, l)
					}
				}
				if len(matching) == 0 {
					continue
				}

				key := slotKey(cell)
				s, ok := slots[key]
				if !ok {
					s = &slot{timed: cell.TimeRange.Known()}
					if s.timed {
						s.keyRange = cell.TimeRange
					} else {
						s.fallbackPeriod = cell.PeriodNumber
					}
					slots[key] = s
				}
				s.lessons = append(s.lessons, matching...)
				s.periodNumbers = append(s.periodNumbers, cell.PeriodNumber)
				s.ranges = append(s.ranges, cell.TimeRange)
			}
		}

		ordered := make([]*slot, 0, len(slots))
		for _, s := range slots {
			ordered = append(ordered, s)
		}
		sort.Slice(ordered, func(i, j int) bool { return slotLess(ordered[i], ordered[j]) })

		cells := make([]PeriodCell, 0, len(ordered))
		for idx, s := range ordered {
			if len(s.lessons) == 0 {
				continue
			}
			timeRange := s.keyRange
			if !s.timed {
				timeRange = UnknownTimeRange
				if len(s.ranges) > 0 {
					timeRange = s.ranges[0]
				}
			}
			cells = append(cells, LessonCell{
				PeriodNumber: majorityPeriod(s.periodNumbers, idx+1),
				TimeRange:    timeRange,
				Lessons:      s.lessons,
			})
		}
		days = append(days, TimetableDay{Date: base.Days[dayIdx].Date, LessonsByPeriod: cells})
	}

	return TimetableWeek{
		ClassID:   SyntheticClassID,
		WeekStart: base.WeekStart,
		WeekEnd:   base.WeekEnd,
		Days:      days,
	}, true
}

// slotLess orders timed slots first (by start then end), then period-only slots by period number.
func slotLess(a, b *slot) bool {
	if a.timed != b.timed {
		return a.timed
	}
	if a.timed {
		if c := a.keyRange.Start.Compare(b.keyRange.Start); c != 0 {
			return c < 0
		}
		return a.keyRange.End.Before(b.keyRange.End)
	}
	return a.fallbackPeriod < b.fallbackPeriod
}

// majorityPeriod returns the most frequent number (ties go to the smallest) or `fallback` if there is none.
func majorityPeriod(numbers []int, fallback int) int {
	if len(numbers) == 0 {
		return fallback
	}
	counts := make(map[int]int, len(numbers))
	for _, n := range numbers {
		counts[n]++
	}
	best, bestCount := 0, 0
	for n, c := range counts {
		if c > bestCount || (c == bestCount && n < best) {
			best, bestCount = n, c
		}
	}
	return best
}

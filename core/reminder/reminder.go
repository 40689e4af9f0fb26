package reminder

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/ratiba/core/timetable"
)

// DefaultLead is how long before a lesson starts its reminder fires.
const DefaultLead = 5 * time.Minute

const defaultSubject = "Lesson"

// Reminder announces one upcoming lesson slot.
type Reminder struct {
	Start    time.Time
	FireAt   time.Time
	Subjects []string
	Rooms    []string
	Title    string
	Message  string
}

// StartEpoch identifies the lesson slot the reminder is for.
func (r Reminder) StartEpoch() int64 { return r.Start.Unix() }

// upcoming returns the reminders of every lesson slot starting strictly after now, in start order.
// Lesson times are read in now's location. Slots without a known time, or with only cancelled
// lessons, are skipped.
func upcoming(week timetable.TimetableWeek, now time.Time, lead time.Duration) []Reminder {
	byStart := make(map[int64]*Reminder)
	for _, day := range week.Days {
		for _, c := range day.LessonsByPeriod {
			cell, ok := c.(timetable.LessonCell)
			if !ok || !cell.TimeRange.Known() {
				continue
			}
			start := day.Date.At(cell.TimeRange.Start, now.Location())
			if !start.After(now) {
				continue
			}

			var subjects, rooms []string
			var active bool
			for _, l := range cell.Lessons {
				if l.IsCancelled {
					continue
				}
				active = true
				switch {
				case strings.TrimSpace(l.SubjectCode.String) != "":
					subjects = append(subjects, l.SubjectCode.String)
				case strings.TrimSpace(l.SubjectTitle.String) != "":
					subjects = append(subjects, l.SubjectTitle.String)
				}
				if strings.TrimSpace(l.Room.String) != "" {
					rooms = append(rooms, l.Room.String)
				}
			}
			if !active {
				continue
			}

			r, ok := byStart[start.Unix()]
			if !ok {
				r = &Reminder{Start: start, FireAt: start.Add(-lead)}
				byStart[start.Unix()] = r
			}
			r.Subjects = appendUnique(r.Subjects, subjects...)
			r.Rooms = appendUnique(r.Rooms, rooms...)
		}
	}

	reminders := make([]Reminder, 0, len(byStart))
	for _, r := range byStart {
		if len(r.Subjects) == 0 {
			r.Subjects = []string{defaultSubject}
		}
		r.Title = fmt.Sprintf("In %d min: %s", int(lead.Minutes()), strings.Join(r.Subjects, ", "))
		if len(r.Rooms) > 0 {
			r.Message = "Room: " + strings.Join(r.Rooms, ", ")
		}
		reminders = append(reminders, *r)
	}
	sort.Slice(reminders, func(i, j int) bool { return reminders[i].Start.Before(reminders[j].Start) })
	return reminders
}

func appendUnique(dst []string, values ...string) []string {
outer:
	for _, v := range values {
		for _, d := range dst {
			if d == v {
				continue outer
			}
		}
		dst = append(dst, v)
	}
	return dst
}

// NextReminder returns the reminder of the earliest lesson starting strictly after now.
func NextReminder(week timetable.TimetableWeek, now time.Time, lead time.Duration) (Reminder, bool) {
	all := upcoming(week, now, lead)
	if len(all) == 0 {
		return Reminder{}, false
	}
	return all[0], true
}

// TodayReminders returns the reminders of the lessons still ahead today.
func TodayReminders(week timetable.TimetableWeek, now time.Time, lead time.Duration) []Reminder {
	today := timetable.DateOf(now)
	var reminders []Reminder
	for _, r := range upcoming(week, now, lead) {
		if timetable.DateOf(r.Start) == today {
			reminders = append(reminders, r)
		}
	}
	return reminders
}

// NextSchoolCheck is 06:00 of the next weekday after now, but never sooner than 4 hours from now.
func NextSchoolCheck(now time.Time) time.Time {
	day := now
	for {
		day = day.AddDate(0, 0, 1)
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			break
		}
	}
	target := time.Date(day.Year(), day.Month(), day.Day(), 6, 0, 0, 0, now.Location())
	if earliest := now.Add(4 * time.Hour); target.Before(earliest) {
		return earliest
	}
	return target
}

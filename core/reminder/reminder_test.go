package reminder

import (
	"reflect"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core/timetable"
)

var ljubljana = mustLoad("Europe/Ljubljana")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CET", 3600)
	}
	return loc
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 10, day, hour, minute, 0, 0, ljubljana)
}

func cell(period, sh, sm int, lessons ...timetable.Lesson) timetable.LessonCell {
	return timetable.LessonCell{
		PeriodNumber: period,
		TimeRange:    timetable.TimeRange{Start: timetable.Clock{Hour: sh, Minute: sm}, End: timetable.Clock{Hour: sh + 1, Minute: sm}},
		Lessons:      lessons,
	}
}

func subject(code, room string) timetable.Lesson {
	l := timetable.Lesson{SubjectCode: null.StringFrom(code)}
	if room != "" {
		l.Room = null.StringFrom(room)
	}
	return l
}

// testWeek is Mon 14 - Tue 15 Oct 2024.
func testWeek() timetable.TimetableWeek {
	unknown := timetable.LessonCell{PeriodNumber: 1, TimeRange: timetable.UnknownTimeRange, Lessons: []timetable.Lesson{subject("X", "")}}
	return timetable.TimetableWeek{
		WeekStart: timetable.NewDate(2024, 10, 14),
		WeekEnd:   timetable.NewDate(2024, 10, 18),
		Days: []timetable.TimetableDay{
			{Date: timetable.NewDate(2024, 10, 14), LessonsByPeriod: []timetable.PeriodCell{
				unknown,
				cell(2, 8, 0, subject("MAT", "U12"), subject("MAT", "U13")),
				timetable.EmptyCell{},
				cell(4, 9, 50, timetable.Lesson{SubjectTitle: null.StringFrom("Šport"), Room: null.StringFrom("  ")}),
				cell(5, 10, 45, timetable.Lesson{SubjectCode: null.StringFrom("GUM"), IsCancelled: true}),
			}},
			{Date: timetable.NewDate(2024, 10, 15), LessonsByPeriod: []timetable.PeriodCell{
				cell(1, 7, 30, timetable.Lesson{Room: null.StringFrom("U1")}),
			}},
		},
	}
}

func TestNextReminder(t *testing.T) {
	week := testWeek()
	tests := []struct {
		name      string
		now       time.Time
		wantOK    bool
		wantStart time.Time
		wantTitle string
		wantMsg   string
	}{
		{name: "before school", now: at(14, 6, 0), wantOK: true, wantStart: at(14, 8, 0), wantTitle: "In 5 min: MAT", wantMsg: "Room: U12, U13"},
		{name: "lesson start is not after now", now: at(14, 8, 0), wantOK: true, wantStart: at(14, 9, 50), wantTitle: "In 5 min: Šport"},
		{name: "cancelled skipped", now: at(14, 10, 0), wantOK: true, wantStart: at(15, 7, 30), wantTitle: "In 5 min: Lesson", wantMsg: "Room: U1"},
		{name: "week over", now: at(15, 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextReminder(week, tt.now, DefaultLead)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !got.Start.Equal(tt.wantStart) || !got.FireAt.Equal(tt.wantStart.Add(-DefaultLead)) {
				t.Errorf("start/fire = %s/%s, want %s", got.Start, got.FireAt, tt.wantStart)
			}
			if got.Title != tt.wantTitle || got.Message != tt.wantMsg {
				t.Errorf("title/message = %q/%q, want %q/%q", got.Title, got.Message, tt.wantTitle, tt.wantMsg)
			}
		})
	}
}

func TestTodayReminders(t *testing.T) {
	got := TodayReminders(testWeek(), at(14, 7, 0), DefaultLead)
	var starts []time.Time
	for _, r := range got {
		starts = append(starts, r.Start)
	}
	want := []time.Time{at(14, 8, 0), at(14, 9, 50)}
	if !reflect.DeepEqual(starts, want) {
		t.Errorf("starts = %v, want %v", starts, want)
	}
}

func TestNextSchoolCheck(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{name: "monday afternoon", now: at(14, 15, 0), want: at(15, 6, 0)},
		{name: "friday", now: at(18, 14, 0), want: at(21, 6, 0)},
		{name: "saturday", now: at(19, 10, 0), want: at(21, 6, 0)},
		{name: "late night", now: at(14, 23, 30), want: at(15, 6, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextSchoolCheck(tt.now); !got.Equal(tt.want) {
				t.Errorf("NextSchoolCheck() = %s, want %s", got, tt.want)
			}
		})
	}
}

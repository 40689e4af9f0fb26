package timetable

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/tests"
)

var weekHeaders = []string{"14. 10.", "15. 10.", "16. 10.", "17. 10.", "18. 10."}

func emptyCells(n int) []testutil.Cell {
	return make([]testutil.Cell, n)
}

func samplePayload() string {
	mon := testutil.Cell{Blocks: []testutil.Block{{Code: "MAT", Title: "Matematika", TeacherRoom: "Novak, 12", TeacherFullName: "Ana Novak"}}}
	tue := testutil.Cell{Blocks: []testutil.Block{{Code: "SLO", Title: "Slovenščina", TeacherRoom: "Kos, 3", TeacherFullName: "Bojan Kos"}}}
	split := testutil.Cell{Blocks: []testutil.Block{
		{Code: "ANG", TeacherRoom: "Zupan, 7", TeacherFullName: "Cene Zupan", Groups: []string{"Skupina 1"}},
		{Code: "NEM", TeacherRoom: "Vidmar, 8", TeacherFullName: "Dana Vidmar", Groups: []string{"Skupina 2", " ", "Izbirni"}, Hidden: true},
	}}
	cancelled := testutil.Cell{Cancelled: true, Blocks: []testutil.Block{{Code: "ŠPO", TeacherRoom: "Horvat", TeacherFullName: "Eva Horvat"}}}
	noise := testutil.Cell{Blocks: []testutil.Block{{}}}
	lessonCancelled := testutil.Cell{Blocks: []testutil.Block{{Title: "Fizika", Cancelled: true}}}

	table := testutil.Table{
		Headers: weekHeaders,
		Rows: []testutil.Row{
			{Name: "1. ura", Time: "8:00 - 8:45", Cells: []testutil.Cell{mon, {}, split, {}, cancelled}},
			{Name: "2. ura", Time: "25:99 - 26:00", Cells: []testutil.Cell{{}, tue, {}, noise, {}}},
			{Name: "ura", Time: "9:40-10:25", Cells: []testutil.Cell{{}, {}, {}, {}, lessonCancelled}},
		},
	}
	return testutil.Payload("14. 10. 2024", "18. 10. 2024", table.HTML())
}

func TestParseTimetablePayload(t *testing.T) {
	week, err := ParseTimetablePayload(10, samplePayload())
	if err != nil {
		t.Fatalf("ParseTimetablePayload() unexpected error = %v", err)
	}

	if week.ClassID != 10 || week.WeekStart != NewDate(2024, 10, 14) || week.WeekEnd != NewDate(2024, 10, 18) {
		t.Fatalf("week = %d %s %s", week.ClassID, week.WeekStart, week.WeekEnd)
	}
	if len(week.Days) != 5 {
		t.Fatalf("len(days) = %d, want 5", len(week.Days))
	}
	for i, day := range week.Days {
		if want := NewDate(2024, 10, 14+i); day.Date != want {
			t.Errorf("days[%d].Date = %s, want %s", i, day.Date, want)
		}
		if len(day.LessonsByPeriod) != 3 {
			t.Errorf("len(days[%d].LessonsByPeriod) = %d, want 3", i, len(day.LessonsByPeriod))
		}
	}

	t.Run("lesson fields", func(t *testing.T) {
		cell, ok := week.Days[0].LessonsByPeriod[0].(LessonCell)
		if !ok {
			t.Fatalf("mon/1 = %T, want LessonCell", week.Days[0].LessonsByPeriod[0])
		}
		if cell.PeriodNumber != 1 || cell.TimeRange != (TimeRange{Clock{8, 0}, Clock{8, 45}}) {
			t.Errorf("mon/1 = %d %s", cell.PeriodNumber, cell.TimeRange)
		}
		want := Lesson{
			SubjectCode:     null.StringFrom("MAT"),
			SubjectTitle:    null.StringFrom("Matematika"),
			Teacher:         null.StringFrom("Novak"),
			Room:            null.StringFrom("12"),
			TeacherFullName: null.StringFrom("Ana Novak"),
		}
		if len(cell.Lessons) != 1 || cell.Lessons[0] != want {
			t.Errorf("mon/1 lessons = %+v, want %+v", cell.Lessons, want)
		}
	})

	t.Run("hidden blocks and groups", func(t *testing.T) {
		cell := week.Days[2].LessonsByPeriod[0].(LessonCell)
		if len(cell.Lessons) != 2 {
			t.Fatalf("wed/1 lessons = %d, want 2", len(cell.Lessons))
		}
		if got := cell.Lessons[0].GroupLabel; got != null.StringFrom("Skupina 1") {
			t.Errorf("group = %v", got)
		}
		if got := cell.Lessons[1].GroupLabel; got != null.StringFrom("Skupina 2 | Izbirni") {
			t.Errorf("hidden group = %v", got)
		}
		if got := cell.Lessons[1].TeacherFullName; got != null.StringFrom("Dana Vidmar") {
			t.Errorf("hidden teacher = %v", got)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cell := week.Days[4].LessonsByPeriod[0].(LessonCell)
		l := cell.Lessons[0]
		if !l.IsCancelled {
			t.Error("cell level cancellation not propagated")
		}
		if l.Teacher.String != "Horvat" || l.Room.Valid {
			t.Errorf("teacher, room = %v, %v, want Horvat, null (no comma)", l.Teacher, l.Room)
		}
		cell = week.Days[4].LessonsByPeriod[2].(LessonCell)
		if !cell.Lessons[0].IsCancelled || cell.Lessons[0].SubjectCode.Valid {
			t.Errorf("lesson = %+v", cell.Lessons[0])
		}
	})

	t.Run("unknown time range", func(t *testing.T) {
		cell := week.Days[1].LessonsByPeriod[1].(LessonCell)
		if cell.TimeRange.Known() || cell.TimeRange.Start != cell.TimeRange.End || cell.TimeRange.Start != Midnight {
			t.Errorf("time range = %+v, want unknown", cell.TimeRange)
		}
		if cell.PeriodNumber != 2 {
			t.Errorf("period = %d, want 2", cell.PeriodNumber)
		}
	})

	t.Run("noise and empty cells", func(t *testing.T) {
		if _, ok := week.Days[3].LessonsByPeriod[1].(EmptyCell); !ok {
			t.Errorf("thu/2 = %T, want EmptyCell", week.Days[3].LessonsByPeriod[1])
		}
		if _, ok := week.Days[0].LessonsByPeriod[2].(EmptyCell); !ok {
			t.Errorf("mon/3 = %T, want EmptyCell", week.Days[0].LessonsByPeriod[2])
		}
	})

	t.Run("fallback period number", func(t *testing.T) {
		cell := week.Days[4].LessonsByPeriod[2].(LessonCell)
		if cell.PeriodNumber != 3 || cell.TimeRange != (TimeRange{Clock{9, 40}, Clock{10, 25}}) {
			t.Errorf("fri/3 = %d %s", cell.PeriodNumber, cell.TimeRange)
		}
	})
}

func TestParseTimetablePayload_alignment(t *testing.T) {
	for _, n := range []int{0, 1, 4, 9} {
		rows := make([]testutil.Row, n)
		for i := range rows {
			rows[i] = testutil.Row{Name: "ura", Time: "8:00 - 8:45", Cells: emptyCells(5)}
			rows[i].Cells[i%5] = testutil.Cell{Blocks: []testutil.Block{{Code: "X"}}}
		}
		payload := testutil.Payload("14. 10. 2024", "18. 10. 2024", testutil.Table{Headers: weekHeaders, Rows: rows}.HTML())

		week, err := ParseTimetablePayload(1, payload)
		if err != nil {
			t.Fatalf("n=%d: unexpected error = %v", n, err)
		}
		if len(week.Days) != 5 {
			t.Fatalf("n=%d: len(days) = %d, want 5", n, len(week.Days))
		}
		for d, day := range week.Days {
			if len(day.LessonsByPeriod) != n {
				t.Fatalf("n=%d: len(days[%d]) = %d", n, d, len(day.LessonsByPeriod))
			}
			for p, cell := range day.LessonsByPeriod {
				_, isLesson := cell.(LessonCell)
				if want := p%5 == d; isLesson != want {
					t.Errorf("n=%d: days[%d][%d] lesson = %v, want %v", n, d, p, isLesson, want)
				}
			}
		}
	}
}

func TestParseTimetablePayload_edges(t *testing.T) {
	sixHeaders := append(append([]string{}, weekHeaders...), "19. 10.")

	tests := []struct {
		name      string
		payload   string
		wantErr   bool
		wantDays  int
		wantDates []Date
	}{
		{name: "too few fields", payload: "ok\u001F14. 10. 2024\u001F18. 10. 2024", wantErr: true},
		{name: "bad week start", payload: testutil.Payload("lol", "18. 10. 2024", ""), wantErr: true},
		{name: "week end before start", payload: testutil.Payload("18. 10. 2024", "14. 10. 2024", ""), wantErr: true},
		{name: "no table", payload: testutil.Payload("14. 10. 2024", "18. 10. 2024", "<p>Ni urnika</p>"), wantDays: 0},
		{
			name:     "more than 5 day columns",
			payload:  testutil.Payload("14. 10. 2024", "19. 10. 2024", testutil.Table{Headers: sixHeaders}.HTML()),
			wantDays: 5,
		},
		{
			name:     "year boundary",
			payload:  testutil.Payload("30. 12. 2024", "3. 1. 2025", testutil.Table{Headers: []string{"30. 12.", "31. 12.", "1. 1.", "2. 1.", "3. 1."}}.HTML()),
			wantDays: 5,
			wantDates: []Date{
				NewDate(2024, 12, 30), NewDate(2024, 12, 31), NewDate(2025, 1, 1), NewDate(2025, 1, 2), NewDate(2025, 1, 3),
			},
		},
		{
			name:      "unreadable header falls back to week start",
			payload:   testutil.Payload("14. 10. 2024", "18. 10. 2024", testutil.Table{Headers: []string{"??"}}.HTML()),
			wantDays:  1,
			wantDates: []Date{NewDate(2024, 10, 14)},
		},
		{
			name:    "impossible header date",
			payload: testutil.Payload("14. 10. 2024", "18. 10. 2024", testutil.Table{Headers: []string{"31. 2."}}.HTML()),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week, err := ParseTimetablePayload(1, tt.payload)
			if tt.wantErr {
				var pErr *core.ParseError
				if !errors.As(err, &pErr) {
					t.Fatalf("error = %v, want *core.ParseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error = %v", err)
			}
			if len(week.Days) != tt.wantDays {
				t.Fatalf("len(days) = %d, want %d", len(week.Days), tt.wantDays)
			}
			for i, want := range tt.wantDates {
				if week.Days[i].Date != want {
					t.Errorf("days[%d] = %s, want %s", i, week.Days[i].Date, want)
				}
			}
		})
	}
}

func TestInferYear(t *testing.T) {
	start, end := NewDate(2024, 12, 30), NewDate(2025, 1, 3)
	tests := []struct {
		day, month int
		want       int
	}{
		{30, 12, 2024},
		{31, 12, 2024},
		{1, 1, 2025},
		{3, 1, 2025},
	}
	for _, tt := range tests {
		if got := inferYear(start, end, tt.day, tt.month); got != tt.want {
			t.Errorf("inferYear(%d.%d.) = %d, want %d", tt.day, tt.month, got, tt.want)
		}
	}
}

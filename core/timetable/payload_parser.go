package timetable

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
)

const (
	unitSeparator = "\u001F"
	maxWeekDays   = 5

	tableSel         = "table.ednevnik-seznam_ur_teden"
	cancelledCellCls = "ednevnik-seznam_ur_teden-td-odpadla-ura"
	blockSel         = "div.ednevnik-seznam_ur_teden-blok-wrap" // collapsed (hidden) blocks included
	titleSel         = ".ednevnik-title span"
	subtitleSel      = ".ednevnik-subtitle"
	cancelledTagSel  = ".wl-tag-cancelled"
	periodNameSel    = ".naziv-ure"
	periodTimeSel    = ".potek-ure"
	headerDateSel    = ".date"
)

var timeRangeRegex = regexp.MustCompile(`(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})`)

// ParseTimetablePayload parses an ajax timetable response:
// unit-separator delimited fields where [1] is the week start, [2] the week end and [3] the lesson table HTML.
func ParseTimetablePayload(classID int, payload string) (TimetableWeek, error) {
	parts := strings.Split(payload, unitSeparator)
	if len(parts) < 4 {
		return TimetableWeek{}, core.NewParseError("timetable payload", errors.Errorf("expected at least 4 fields, got %d", len(parts)))
	}

	weekStart, err := ParseDate(payloadLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return TimetableWeek{}, core.NewParseError("week start", err)
	}
	weekEnd, err := ParseDate(payloadLayout, strings.TrimSpace(parts[2]))
	if err != nil {
		return TimetableWeek{}, core.NewParseError("week end", err)
	}
	if weekEnd.Before(weekStart) {
		return TimetableWeek{}, core.NewParseError("timetable payload", errors.Errorf("week end %s before week start %s", weekEnd, weekStart))
	}

	week := TimetableWeek{ClassID: classID, WeekStart: weekStart, WeekEnd: weekEnd, Days: []TimetableDay{}}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(parts[3]))
	if err != nil {
		return TimetableWeek{}, core.NewParseError("timetable table", err)
	}
	table := doc.Find(tableSel).First()
	if table.Length() == 0 {
		return week, nil // no schedule this week
	}

	dayDates, err := parseDayHeaders(table, weekStart, weekEnd)
	if err != nil {
		return TimetableWeek{}, err
	}

	rows := table.ChildrenFiltered("tbody").ChildrenFiltered("tr").AddSelection(table.ChildrenFiltered("tr"))
	grid := make([][]PeriodCell, 0, rows.Length())
	rows.Each(func(rowIdx int, row *goquery.Selection) {
		tds := row.ChildrenFiltered("td")
		if tds.Length() == 0 {
			return
		}
		grid = append(grid, parseRow(rowIdx, tds))
	})

	dayCount := len(dayDates)
	if dayCount > maxWeekDays {
		dayCount = maxWeekDays
	}
	for d := 0; d < dayCount; d++ {
		cells := make([]PeriodCell, 0, len(grid))
		for _, row := range grid {
			if d < len(row) {
				cells = append(cells, row[d])
			} else {
				cells = append(cells, EmptyCell{})
			}
		}
		week.Days = append(week.Days, TimetableDay{Date: dayDates[d], LessonsByPeriod: cells})
	}
	return week, nil
}

func parseDayHeaders(table *goquery.Selection, weekStart, weekEnd Date) ([]Date, error) {
	var (
		dates []Date
		err   error
	)
	dropFirst(table.Find("thead th")).EachWithBreak(func(_ int, th *goquery.Selection) bool {
		text := strings.TrimSuffix(normText(th.Find(headerDateSel).First().Text()), ".")
		var dm []string
		for _, p := range strings.Split(strings.TrimSpace(text), ". ") {
			if p = strings.TrimSpace(p); p != "" {
				dm = append(dm, p)
			}
		}

		day, month := weekStart.Day, int(weekStart.Month)
		year := weekStart.Year
		d, dErr := atoiAt(dm, 0)
		m, mErr := atoiAt(dm, 1)
		if dErr == nil {
			day = d
		}
		if mErr == nil {
			month = m
		}
		if dErr == nil && mErr == nil {
			year = inferYear(weekStart, weekEnd, d, m)
		}

		date := NewDate(year, time.Month(month), day)
		if date.Day != day || int(date.Month) != month {
			err = core.NewParseError("day header", errors.Errorf("invalid date %q", text))
			return false
		}
		dates = append(dates, date)
		return true
	})
	return dates, err
}

// inferYear picks the year of whichever of weekStart/weekEnd is closest to day.month (ties go to weekStart).
// Headers carry no year and a week may span new year.
func inferYear(weekStart, weekEnd Date, day, month int) int {
	dist := func(d Date) int {
		return abs(int(d.Month)-month)*31 + abs(d.Day-day)
	}
	if dist(weekEnd) < dist(weekStart) {
		return weekEnd.Year
	}
	return weekStart.Year
}

func parseRow(rowIdx int, tds *goquery.Selection) []PeriodCell {
	left := tds.First()

	periodNumber := rowIdx + 1
	name := normText(left.Find(periodNameSel).First().Text())
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	if n, err := strconv.Atoi(strings.TrimSpace(name)); err == nil {
		periodNumber = n
	}
	timeRange := parseTimeRange(normText(left.Find(periodTimeSel).First().Text()))

	cells := make([]PeriodCell, 0, maxWeekDays)
	for d := 1; d <= maxWeekDays; d++ {
		if d >= tds.Length() {
			cells = append(cells, EmptyCell{})
			continue
		}
		cell := tds.Eq(d)
		cancelledCell := cell.HasClass(cancelledCellCls)

		var lessons []Lesson
		cell.Find(blockSel).Each(func(_ int, block *goquery.Selection) {
			if l, ok := parseLesson(block, cancelledCell); ok {
				lessons = append(lessons, l)
			}
		})
		if len(lessons) == 0 {
			cells = append(cells, EmptyCell{})
			continue
		}
		cells = append(cells, LessonCell{PeriodNumber: periodNumber, TimeRange: timeRange, Lessons: lessons})
	}
	return cells
}

// parseTimeRange returns UnknownTimeRange when s holds no valid "H:mm - H:mm" range.
func parseTimeRange(s string) TimeRange {
	m := timeRangeRegex.FindStringSubmatch(s)
	if m == nil {
		return UnknownTimeRange
	}
	start, err := ParseClock(m[1])
	if err != nil {
		return UnknownTimeRange
	}
	end, err := ParseClock(m[2])
	if err != nil {
		return UnknownTimeRange
	}
	return TimeRange{Start: start, End: end}
}

func parseLesson(block *goquery.Selection, cancelledCell bool) (Lesson, bool) {
	var l Lesson

	title := block.Find(titleSel).First()
	l.SubjectCode = nonBlank(title.Text())
	l.SubjectTitle = nonBlank(title.AttrOr("title", ""))

	subtitles := block.Find(subtitleSel)
	if first := subtitles.First(); first.Length() > 0 {
		l.TeacherFullName = nonBlank(first.AttrOr("title", ""))
		teacher, room, found := strings.Cut(normText(first.Text()), ",")
		l.Teacher = nonBlank(teacher)
		if found {
			l.Room = nonBlank(room)
		}
	}
	var groups []string
	dropFirst(subtitles).Each(func(_ int, s *goquery.Selection) {
		if g := normText(s.Text()); g != "" {
			groups = append(groups, g)
		}
	})
	l.GroupLabel = nonBlank(strings.Join(groups, " | "))

	l.IsCancelled = cancelledCell || block.Find(cancelledTagSel).Length() > 0

	if !l.SubjectCode.Valid && !l.SubjectTitle.Valid && !l.Teacher.Valid && !l.Room.Valid && !l.GroupLabel.Valid {
		return Lesson{}, false
	}
	return l, true
}

func dropFirst(sel *goquery.Selection) *goquery.Selection {
	if sel.Length() == 0 {
		return sel
	}
	return sel.Slice(1, goquery.ToEnd)
}

func normText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nonBlank(s string) null.String {
	s = normText(s)
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

func atoiAt(parts []string, i int) (int, error) {
	if i >= len(parts) {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(parts[i])
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/trezcool/ratiba/apps/shared"
	"github.com/trezcool/ratiba/core/timetable"
)

// number of suggestions shown for an unknown teacher
const maxSuggestions = 5

func (cli *commandLine) school(ctx context.Context, key string) error {
	meta, err := cli.deps.Timetables.LoadSchoolMeta(ctx, key)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "School %s (id %d), %d classes\n", meta.SchoolKey, meta.SchoolID, len(meta.Classes))
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCLASS")
	for _, c := range meta.Classes {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Label)
	}
	return w.Flush()
}

func (cli *commandLine) timetable(ctx context.Context, in shared.ClassWeekInput) error {
	meta, err := cli.deps.Timetables.LoadSchoolMeta(ctx, in.SchoolKey)
	if err != nil {
		return err
	}
	week, err := cli.deps.Timetables.LoadTimetableWeek(ctx, meta.SchoolID, in.ClassID, in.WeekID)
	if err != nil {
		return err
	}
	return cli.printWeek(week)
}

func (cli *commandLine) teachers(ctx context.Context, in shared.WeekInput, query string) error {
	meta, err := cli.deps.Timetables.LoadSchoolMeta(ctx, in.SchoolKey)
	if err != nil {
		return err
	}
	teachers, err := cli.deps.Timetables.Teachers(ctx, meta, in.WeekID)
	if err != nil {
		return err
	}
	if query != "" {
		teachers = timetable.SuggestTeachers(query, teachers, len(teachers))
	}
	for _, t := range teachers {
		_, _ = fmt.Fprintln(cli.out, t)
	}
	return nil
}

func (cli *commandLine) teacher(ctx context.Context, in shared.TeacherWeekInput) error {
	meta, err := cli.deps.Timetables.LoadSchoolMeta(ctx, in.SchoolKey)
	if err != nil {
		return err
	}
	week, ok, err := cli.deps.Timetables.TeacherTimetable(ctx, meta, in.WeekID, in.Teacher)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no class timetable could be loaded for week %d", in.WeekID)
	}
	if len(week.Lessons()) == 0 {
		teachers, err := cli.deps.Timetables.Teachers(ctx, meta, in.WeekID)
		if err != nil {
			return err
		}
		if s := timetable.SuggestTeachers(in.Teacher, teachers, maxSuggestions); len(s) > 0 {
			_, _ = fmt.Fprintf(cli.out, "No lessons for %q. Did you mean: %s?\n", in.Teacher, strings.Join(s, ", "))
			return nil
		}
	}
	return cli.printWeek(week)
}

// browse shows a class week and lets the user step through weeks; bursts of steps load only the last week.
func (cli *commandLine) browse(ctx context.Context, in shared.ClassWeekInput) error {
	meta, err := cli.deps.Timetables.LoadSchoolMeta(ctx, in.SchoolKey)
	if err != nil {
		return err
	}

	out := &syncWriter{w: cli.out}
	show := func(weekID int) {
		week, err := cli.deps.Timetables.LoadTimetableWeek(ctx, meta.SchoolID, in.ClassID, weekID)
		if err != nil {
			_, _ = fmt.Fprintf(out, "week %d: %v\n", weekID, err)
			return
		}
		out.Lock()
		defer out.Unlock()
		_, _ = fmt.Fprintf(cli.out, "== week %d ==\n", weekID)
		_ = printWeek(cli.out, week)
	}
	show(in.WeekID)

	nav := timetable.NewWeekNavigator(in.WeekID, cli.deps.Conf.Timetable.Debounce, show)
	defer nav.Stop()

	scanner := bufio.NewScanner(cli.in)
	for scanner.Scan() {
		switch line := strings.TrimSpace(scanner.Text()); line {
		case "":
		case "q", "quit":
			return nil
		case "n", "next":
			nav.Step(1)
		case "p", "prev":
			nav.Step(-1)
		default:
			weekID, err := strconv.Atoi(line)
			if err != nil {
				_, _ = fmt.Fprintln(out, "commands: n (next week), p (previous week), <week 0-52>, q (quit)")
				continue
			}
			nav.Request(weekID)
		}
	}
	return scanner.Err()
}

func (cli *commandLine) printWeek(week timetable.TimetableWeek) error {
	return printWeek(cli.out, week)
}

func printWeek(out io.Writer, week timetable.TimetableWeek) error {
	_, _ = fmt.Fprintf(out, "Week %s - %s\n", week.WeekStart, week.WeekEnd)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, day := range week.Days {
		_, _ = fmt.Fprintf(w, "\n%s %s\n", day.Date.Weekday(), day.Date)
		for i, c := range day.LessonsByPeriod {
			cell, ok := c.(timetable.LessonCell)
			if !ok {
				_, _ = fmt.Fprintf(w, "%d.\t\t-\n", i+1)
				continue
			}
			for j, l := range cell.Lessons {
				period, times := "", ""
				if j == 0 {
					period, times = strconv.Itoa(cell.PeriodNumber)+".", cell.TimeRange.String()
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", period, times, formatLesson(l))
			}
		}
	}
	return w.Flush()
}

func formatLesson(l timetable.Lesson) string {
	var sb strings.Builder
	switch {
	case l.SubjectCode.Valid:
		sb.WriteString(l.SubjectCode.String)
	case l.SubjectTitle.Valid:
		sb.WriteString(l.SubjectTitle.String)
	default:
		sb.WriteString("?")
	}
	var details []string
	for _, s := range []string{l.Teacher.String, l.Room.String, l.GroupLabel.String, l.SourceClassLabel.String} {
		if s != "" {
			details = append(details, s)
		}
	}
	if len(details) > 0 {
		sb.WriteString(" (" + strings.Join(details, ", ") + ")")
	}
	if l.IsCancelled {
		sb.WriteString(" [cancelled]")
	}
	return sb.String()
}

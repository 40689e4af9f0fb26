package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/apps/shared"
	"github.com/trezcool/ratiba/core/auth"
	"github.com/trezcool/ratiba/core/reminder"
	"github.com/trezcool/ratiba/core/timetable"
)

func (cli *commandLine) login(ctx context.Context, in shared.LoginInput) error {
	sess, err := cli.deps.Auth.Login(ctx, in.Username, in.Password)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "Logged in as %s", sess.UserName.String)
	if sess.SchoolID.Valid {
		_, _ = fmt.Fprintf(cli.out, " (school %d)", sess.SchoolID.Int)
	}
	_, _ = fmt.Fprintln(cli.out)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	cli.deps.Auth.Logout(ctx)
	_, _ = fmt.Fprintln(cli.out, "Logged out.")
	return nil
}

func (cli *commandLine) children(ctx context.Context) error {
	children, err := cli.deps.Auth.Children(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "UUID\tNAME\tCLASS\tSCHOOL\tSUBSCRIPTION")
	for _, c := range children {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.UUID, c.DisplayName.String, c.ClassName.String, c.SchoolName.String, c.SubscriptionStatus.String)
	}
	return w.Flush()
}

// child shows the child's week, and optionally makes it the child reminders are for.
func (cli *commandLine) child(ctx context.Context, in shared.ChildWeekInput, selectChild bool) error {
	sess, err := cli.deps.Auth.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if !sess.SchoolID.Valid {
		return errors.New("the session carries no school id, log in again")
	}
	profile, ok, err := cli.deps.Auth.Child(ctx, in.UUID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("child %q not found", in.UUID)
	}

	if selectChild {
		if err = cli.deps.Settings.SelectChild(ctx, reminder.SelectedChild{
			UUID:      profile.UUID,
			StudentID: profile.StudentID,
			ClassID:   profile.ClassID,
		}); err != nil {
			return err
		}
		cli.deps.Timetables.ClearChildCache()
		_, _ = fmt.Fprintf(cli.out, "Selected %s.\n", profile.DisplayName.String)
	}

	var week timetable.TimetableWeek
	err = cli.deps.Auth.Do(ctx, func(ctx context.Context, token string) (err error) {
		week, err = cli.deps.Timetables.LoadChildTimetableWeek(ctx, token, sess.SchoolID.Int, profile.StudentID, in.WeekID, profile.ClassID.Int)
		return err
	})
	if err != nil {
		return err
	}
	return cli.printWeek(week)
}

func (cli *commandLine) grades(ctx context.Context, childUUID string, free bool) error {
	var (
		subjects []auth.SubjectGrades
		err      error
	)
	if free {
		subjects, err = cli.deps.Auth.FreeGrades(ctx, childUUID)
	} else {
		subjects, err = cli.deps.Auth.Grades(ctx, childUUID)
	}
	if err != nil {
		return err
	}
	if len(subjects) == 0 {
		_, _ = fmt.Fprintln(cli.out, "No grades.")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	for _, s := range subjects {
		_, _ = fmt.Fprintf(w, "%s\t", s.Name)
		if s.AverageGrade.Valid {
			_, _ = fmt.Fprintf(w, "avg %s", s.AverageGrade.String)
		}
		_, _ = fmt.Fprintln(w)
		for _, sem := range s.Semesters {
			for _, g := range sem.Grades {
				_, _ = fmt.Fprintf(w, "\t%d. semester\t%s\t%s\t%s\n", sem.ID, g.Value.String, g.Date.String, g.TypeName.String)
			}
		}
	}
	return w.Flush()
}

// remind toggles reminders; without a toggle it runs the planner until interrupted.
func (cli *commandLine) remind(ctx context.Context, on, off bool) error {
	if on || off {
		if err := cli.deps.Settings.SetRemindersEnabled(ctx, on); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cli.out, "Reminders enabled: %v\n", on)
		return nil
	}

	planner, err := cli.deps.NewPlanner(printNotifier{out: cli.out})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, "Reminding of lessons, press Ctrl+C to stop.")
	return planner.Run(ctx)
}

// printNotifier writes reminders to the terminal.
type printNotifier struct {
	out io.Writer
}

func (n printNotifier) Notify(_ context.Context, r reminder.Reminder) error {
	_, err := fmt.Fprintf(n.out, "\a%s  %s\n", r.Title, r.Message)
	return err
}

// syncWriter serializes writes coming from the navigator's goroutines.
type syncWriter struct {
	sync.Mutex
	w io.Writer
}

func (sw *syncWriter) Write(p []byte) (int, error) {
	sw.Lock()
	defer sw.Unlock()
	return sw.w.Write(p)
}

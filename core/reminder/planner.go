package reminder

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/auth"
	"github.com/trezcool/ratiba/core/timetable"
)

// intervals between planning rounds
const (
	retryDelay = 30 * time.Minute
	minDelay   = time.Minute
)

// ErrIdle is returned by Plan when there is nothing to plan: reminders are off, nobody is logged
// in, or no child is selected.
var ErrIdle = errors.New("reminders idle")

type (
	// Notifier delivers a reminder to the user.
	Notifier interface {
		Notify(ctx context.Context, r Reminder) error
	}

	// ChildWeekLoader is the part of timetable.Service the planner uses.
	ChildWeekLoader interface {
		LoadChildTimetableWeek(ctx context.Context, accessToken string, schoolID, studentID, weekID, classID int) (timetable.TimetableWeek, error)
		ClearChildCache()
	}

	PlannerOptions struct {
		Lead     time.Duration
		Location *time.Location
		Logger   core.Logger
	}

	// Planner reminds of the selected child's next lesson.
	Planner struct {
		auth     *auth.Service
		weeks    ChildWeekLoader
		settings *Settings
		notifier Notifier
		lead     time.Duration
		loc      *time.Location
		log      core.Logger
		now      func() time.Time
	}
)

func NewPlanner(authSvc *auth.Service, weeks ChildWeekLoader, settings *Settings, notifier Notifier, opts PlannerOptions) *Planner {
	if opts.Lead <= 0 {
		opts.Lead = DefaultLead
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = core.NewDiscardLogger()
	}
	return &Planner{
		auth:     authSvc,
		weeks:    weeks,
		settings: settings,
		notifier: notifier,
		lead:     opts.Lead,
		loc:      opts.Location,
		log:      opts.Logger,
		now:      time.Now,
	}
}

// Plan runs one planning round: it fires the next lesson's reminder when inside the lead window
// (once per lesson) and returns how long to wait before the next round.
func (p *Planner) Plan(ctx context.Context) (time.Duration, error) {
	enabled, err := p.settings.RemindersEnabled(ctx)
	if err != nil {
		return 0, err
	}
	if !enabled {
		return 0, ErrIdle
	}
	sess, err := p.auth.CurrentSession(ctx)
	if errors.Is(err, core.ErrNotLoggedIn) || (err == nil && !sess.SchoolID.Valid) {
		return 0, ErrIdle
	}
	if err != nil {
		return 0, err
	}
	child, ok, err := p.settings.SelectedChild(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrIdle
	}

	// always the current week
	var week timetable.TimetableWeek
	err = p.auth.Do(ctx, func(ctx context.Context, token string) (err error) {
		week, err = p.weeks.LoadChildTimetableWeek(ctx, token, sess.SchoolID.Int, child.StudentID, 0, child.ClassID.Int)
		return err
	})
	switch {
	case errors.Is(err, core.ErrSessionExpired), errors.Is(err, core.ErrNotLoggedIn):
		return 0, err
	case err != nil:
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		p.log.Warn("loading timetable for reminders failed", err)
		return retryDelay, nil
	}

	now := p.now().In(p.loc)
	next, ok := NextReminder(week, now, p.lead)
	if !ok {
		// the week is over; reload it once the next one has started
		p.weeks.ClearChildCache()
		return NextSchoolCheck(now).Sub(now), nil
	}

	if wait := next.FireAt.Sub(now); wait > 0 {
		return wait, nil
	}
	afterStart := next.Start.Add(time.Minute).Sub(now)
	if afterStart < minDelay {
		afterStart = minDelay
	}

	last, err := p.settings.LastReminderStart(ctx)
	if err != nil {
		return 0, err
	}
	if last.Valid && last.Int64 == next.StartEpoch() {
		return afterStart, nil
	}
	if err = p.settings.SetLastReminderStart(ctx, next.StartEpoch()); err != nil {
		return 0, err
	}
	if err = p.notifier.Notify(ctx, next); err != nil {
		p.log.Warn("delivering reminder failed", err)
	}
	return afterStart, nil
}

// Run plans rounds until ctx is done or there is nothing left to plan.
func (p *Planner) Run(ctx context.Context) error {
	for {
		wait, err := p.Plan(ctx)
		if errors.Is(err, ErrIdle) {
			p.log.Info("nothing to remind of, stopping")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		p.log.Debug("next reminder round in " + wait.Round(time.Second).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

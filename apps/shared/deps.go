// Package shared builds the dependencies common to the ratiba applications.
package shared

import (
	"context"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/auth"
	"github.com/trezcool/ratiba/core/reminder"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/services/easistent"
	emailsvc "github.com/trezcool/ratiba/services/email"
	metricsvc "github.com/trezcool/ratiba/services/metrics"
	"github.com/trezcool/ratiba/storage/kv"
)

type Deps struct {
	Conf       *core.Config
	Logger     core.Logger
	Store      core.Store
	Timetables *timetable.Service
	Auth       *auth.Service
	Settings   *reminder.Settings
	Metrics    *metricsvc.Prometheus
	Validate   *validator.Validate
	Translator ut.Translator
}

// NewDeps opens the session store and wires the services on top of it.
// The returned func releases the store.
func NewDeps(ctx context.Context, conf *core.Config, logger core.Logger) (*Deps, func() error, error) {
	store, closeStore, err := kv.Open(ctx, conf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening session store")
	}

	public, err := easistent.NewPublicClient(conf.Upstream)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	authClient, err := easistent.NewAuthClient(conf.Upstream)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	return Wire(conf, logger, store, public, authClient), closeStore, nil
}

// Wire builds the services over already opened collaborators.
func Wire(conf *core.Config, logger core.Logger, store core.Store, src timetable.Source, client auth.Client) *Deps {
	metrics := metricsvc.NewPrometheus()
	validate, translator := core.NewValidator()

	d := &Deps{
		Conf:   conf,
		Logger: logger,
		Store:  store,
		Timetables: timetable.NewService(src, timetable.Options{
			Parallelism:  conf.Timetable.Parallelism,
			FetchTimeout: conf.Timetable.FetchTimeout,
			Logger:       logger,
			Metrics:      metrics,
		}),
		Auth:       auth.NewService(client, store, logger),
		Settings:   reminder.NewSettings(store),
		Metrics:    metrics,
		Validate:   validate,
		Translator: translator,
	}

	// a new session must not see the previous one's child data
	d.Auth.OnLogout(func(context.Context) { d.Timetables.ClearChildCache() })
	d.Auth.OnLogout(func(ctx context.Context) {
		if err := d.Settings.ClearChild(ctx); err != nil {
			logger.Warn("clearing selected child on logout failed", err)
		}
	})
	return d
}

// Location is the zone lesson times are read in.
func (d *Deps) Location() *time.Location {
	loc, err := time.LoadLocation(d.Conf.Reminder.Zone)
	if err != nil {
		d.Logger.Warn("unknown reminder zone "+d.Conf.Reminder.Zone+", using local time", err)
		return time.Local
	}
	return loc
}

// NewPlanner returns a reminder planner. Reminders are emailed when reminder.emailTo is configured,
// otherwise they go to fallback.
func (d *Deps) NewPlanner(fallback reminder.Notifier) (*reminder.Planner, error) {
	notifier := fallback
	if d.Conf.Reminder.EmailTo != "" {
		var mailSvc core.EmailService
		if d.Conf.Debug {
			mailSvc = emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), d.Conf)
		} else {
			mailSvc = emailsvc.NewSendgridService(d.Conf)
		}
		n, err := emailsvc.NewReminderNotifier(mailSvc, d.Conf.Reminder.EmailTo)
		if err != nil {
			return nil, err
		}
		notifier = n
	}
	if notifier == nil {
		return nil, errors.New("no reminder notifier configured")
	}
	return reminder.NewPlanner(d.Auth, d.Timetables, d.Settings, notifier, reminder.PlannerOptions{
		Lead:     d.Conf.Reminder.LeadTime,
		Location: d.Location(),
		Logger:   d.Logger,
	}), nil
}

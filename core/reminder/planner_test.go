package reminder

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/auth"
	"github.com/trezcool/ratiba/core/timetable"
	inmemkv "github.com/trezcool/ratiba/storage/kv/inmem"
)

// sessionClient only serves session upkeep; refreshing always fails.
type sessionClient struct {
	auth.Client
}

func (sessionClient) Refresh(context.Context, string) (auth.TokenResponse, error) {
	return auth.TokenResponse{}, &core.StatusError{Code: http.StatusInternalServerError}
}

func (sessionClient) Logout(context.Context, string) error { return nil }

type fakeLoader struct {
	week    timetable.TimetableWeek
	err     error
	calls   int
	cleared int
	query   [5]interface{}
}

func (l *fakeLoader) LoadChildTimetableWeek(_ context.Context, token string, schoolID, studentID, weekID, classID int) (timetable.TimetableWeek, error) {
	l.calls++
	l.query = [5]interface{}{token, schoolID, studentID, weekID, classID}
	return l.week, l.err
}

func (l *fakeLoader) ClearChildCache() { l.cleared++ }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Reminder
}

func (n *recordingNotifier) Notify(_ context.Context, r Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, r)
	return nil
}

type plannerFixture struct {
	planner  *Planner
	loader   *fakeLoader
	notifier *recordingNotifier
	store    *inmemkv.Store
	settings *Settings
}

func newFixture(t *testing.T, now time.Time) *plannerFixture {
	t.Helper()
	ctx := context.Background()
	store := inmemkv.Open()
	_ = store.Set(ctx, "access_token", "tok")
	_ = store.Set(ctx, "refresh_token", "ref")
	_ = store.Set(ctx, "school_id", "1234")

	settings := NewSettings(store)
	_ = settings.SetRemindersEnabled(ctx, true)
	_ = settings.SelectChild(ctx, SelectedChild{UUID: "p$1.2024.1234.10.501", StudentID: 501, ClassID: null.IntFrom(10)})

	f := &plannerFixture{
		loader:   &fakeLoader{week: testWeek()},
		notifier: &recordingNotifier{},
		store:    store,
		settings: settings,
	}
	authSvc := auth.NewService(sessionClient{}, store, nil)
	f.planner = NewPlanner(authSvc, f.loader, settings, f.notifier, PlannerOptions{Location: ljubljana})
	f.planner.now = func() time.Time { return now }
	return f
}

func TestPlanner_Plan(t *testing.T) {
	ctx := context.Background()

	t.Run("waits for the lead window", func(t *testing.T) {
		f := newFixture(t, at(14, 7, 0))
		wait, err := f.planner.Plan(ctx)
		if err != nil {
			t.Fatalf("Plan() failed: %v", err)
		}
		if wait != 55*time.Minute {
			t.Errorf("wait = %s, want 55m", wait)
		}
		if len(f.notifier.sent) != 0 {
			t.Errorf("notified early: %+v", f.notifier.sent)
		}
		if f.loader.query != [5]interface{}{"tok", 1234, 501, 0, 10} {
			t.Errorf("query = %v", f.loader.query)
		}
	})

	t.Run("fires once inside the window", func(t *testing.T) {
		f := newFixture(t, at(14, 7, 57))
		wait, err := f.planner.Plan(ctx)
		if err != nil {
			t.Fatalf("Plan() failed: %v", err)
		}
		if wait != 4*time.Minute {
			t.Errorf("wait = %s, want 4m (one minute after the start)", wait)
		}
		if len(f.notifier.sent) != 1 || f.notifier.sent[0].Title != "In 5 min: MAT" {
			t.Fatalf("sent = %+v", f.notifier.sent)
		}
		last, _ := f.settings.LastReminderStart(ctx)
		if last.Int64 != at(14, 8, 0).Unix() {
			t.Errorf("last start = %v", last)
		}

		if _, err = f.planner.Plan(ctx); err != nil {
			t.Fatal(err)
		}
		if len(f.notifier.sent) != 1 {
			t.Errorf("reminder fired %d times", len(f.notifier.sent))
		}
	})

	t.Run("week over", func(t *testing.T) {
		f := newFixture(t, at(15, 15, 0))
		wait, err := f.planner.Plan(ctx)
		if err != nil {
			t.Fatalf("Plan() failed: %v", err)
		}
		if wait != 15*time.Hour {
			t.Errorf("wait = %s, want 15h (06:00 next day)", wait)
		}
		if f.loader.cleared != 1 {
			t.Errorf("child cache cleared %d times, want 1", f.loader.cleared)
		}
	})

	t.Run("load failure retries later", func(t *testing.T) {
		f := newFixture(t, at(14, 7, 0))
		f.loader.err = errors.New("connection refused")
		wait, err := f.planner.Plan(ctx)
		if err != nil || wait != retryDelay {
			t.Errorf("Plan() = %s, %v, want %s", wait, err, retryDelay)
		}
	})

	t.Run("unauthorized expires the session", func(t *testing.T) {
		f := newFixture(t, at(14, 7, 0))
		f.loader.err = &core.StatusError{Code: http.StatusUnauthorized}
		if _, err := f.planner.Plan(ctx); !errors.Is(err, core.ErrSessionExpired) {
			t.Errorf("Plan() error = %v, want ErrSessionExpired", err)
		}
		if _, err := f.store.Get(ctx, "access_token"); !errors.Is(err, core.ErrKeyNotFound) {
			t.Error("session not cleared")
		}
	})

	idle := []struct {
		name  string
		setup func(f *plannerFixture)
	}{
		{name: "disabled", setup: func(f *plannerFixture) { _ = f.settings.SetRemindersEnabled(ctx, false) }},
		{name: "no child", setup: func(f *plannerFixture) { _ = f.settings.ClearChild(ctx) }},
		{name: "logged out", setup: func(f *plannerFixture) { _ = f.store.Delete(ctx, "refresh_token") }},
		{name: "no school", setup: func(f *plannerFixture) { _ = f.store.Delete(ctx, "school_id") }},
	}
	for _, tt := range idle {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, at(14, 7, 0))
			tt.setup(f)
			if _, err := f.planner.Plan(ctx); !errors.Is(err, ErrIdle) {
				t.Errorf("Plan() error = %v, want ErrIdle", err)
			}
			if f.loader.calls != 0 {
				t.Error("timetable loaded while idle")
			}
		})
	}
}

func TestPlanner_Run_stops(t *testing.T) {
	f := newFixture(t, at(14, 7, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.planner.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop on cancel")
	}

	_ = f.settings.SetRemindersEnabled(context.Background(), false)
	if err := f.planner.Run(context.Background()); err != nil {
		t.Errorf("Run() while disabled = %v", err)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := NewSettings(inmemkv.Open())

	if on, _ := s.RemindersEnabled(ctx); on {
		t.Error("reminders enabled by default")
	}
	if _, ok, _ := s.SelectedChild(ctx); ok {
		t.Error("child selected by default")
	}

	_ = s.SelectChild(ctx, SelectedChild{UUID: "u", StudentID: 7})
	_ = s.SetLastReminderStart(ctx, 1700000000)
	child, ok, err := s.SelectedChild(ctx)
	if err != nil || !ok || child.StudentID != 7 || child.ClassID.Valid {
		t.Errorf("SelectedChild() = %+v, %v, %v", child, ok, err)
	}

	_ = s.SelectChild(ctx, SelectedChild{UUID: "v", StudentID: 8, ClassID: null.IntFrom(3)})
	if last, _ := s.LastReminderStart(ctx); last.Valid {
		t.Error("last reminder kept across child switch")
	}
	child, _, _ = s.SelectedChild(ctx)
	if child.UUID != "v" || child.ClassID.Int != 3 {
		t.Errorf("SelectedChild() = %+v", child)
	}

	_ = s.ClearChild(ctx)
	if _, ok, _ = s.SelectedChild(ctx); ok {
		t.Error("child still selected after ClearChild")
	}
}

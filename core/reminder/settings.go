package reminder

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
)

// persisted keys
const (
	keyEnabled      = "reminders_enabled"
	keyChildUUID    = "selected_child_uuid"
	keyChildStudent = "selected_child_student_id"
	keyChildClass   = "selected_child_class_id"
	keyLastStart    = "last_reminder_start_epoch"
)

// SelectedChild is the child reminders (and child timetables) are shown for.
type SelectedChild struct {
	UUID      string   `json:"uuid"`
	StudentID int      `json:"student_id"`
	ClassID   null.Int `json:"class_id"`
}

// Settings are the user preferences kept next to the session in a core.Store.
type Settings struct {
	store core.Store
}

func NewSettings(store core.Store) *Settings {
	return &Settings{store: store}
}

func (s *Settings) get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "read %s", key)
	}
	return v, true, nil
}

func (s *Settings) getInt(ctx context.Context, key string) (null.Int64, error) {
	v, ok, err := s.get(ctx, key)
	if err != nil || !ok {
		return null.Int64{}, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return null.Int64{}, nil
	}
	return null.Int64From(n), nil
}

func (s *Settings) RemindersEnabled(ctx context.Context) (bool, error) {
	v, _, err := s.get(ctx, keyEnabled)
	if err != nil {
		return false, err
	}
	enabled, _ := strconv.ParseBool(v)
	return enabled, nil
}

func (s *Settings) SetRemindersEnabled(ctx context.Context, enabled bool) error {
	return s.store.Set(ctx, keyEnabled, strconv.FormatBool(enabled))
}

// SelectedChild returns ok false when no child (or one without a student id) is selected.
func (s *Settings) SelectedChild(ctx context.Context) (SelectedChild, bool, error) {
	uuid, _, err := s.get(ctx, keyChildUUID)
	if err != nil {
		return SelectedChild{}, false, err
	}
	student, err := s.getInt(ctx, keyChildStudent)
	if err != nil || !student.Valid {
		return SelectedChild{}, false, err
	}
	class, err := s.getInt(ctx, keyChildClass)
	if err != nil {
		return SelectedChild{}, false, err
	}

	child := SelectedChild{UUID: uuid, StudentID: int(student.Int64)}
	if class.Valid {
		child.ClassID = null.IntFrom(int(class.Int64))
	}
	return child, true, nil
}

// SelectChild switches the selected child, which also forgets the last fired reminder.
func (s *Settings) SelectChild(ctx context.Context, child SelectedChild) error {
	if err := s.ClearChild(ctx); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyChildUUID, child.UUID); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyChildStudent, strconv.Itoa(child.StudentID)); err != nil {
		return err
	}
	if child.ClassID.Valid {
		return s.store.Set(ctx, keyChildClass, strconv.Itoa(child.ClassID.Int))
	}
	return nil
}

// LastReminderStart is the start (unix seconds) of the lesson last reminded of.
func (s *Settings) LastReminderStart(ctx context.Context) (null.Int64, error) {
	return s.getInt(ctx, keyLastStart)
}

func (s *Settings) SetLastReminderStart(ctx context.Context, epoch int64) error {
	return s.store.Set(ctx, keyLastStart, strconv.FormatInt(epoch, 10))
}

// ClearChild forgets the selected child and the last fired reminder.
func (s *Settings) ClearChild(ctx context.Context) error {
	return s.store.Delete(ctx, keyChildUUID, keyChildStudent, keyChildClass, keyLastStart)
}

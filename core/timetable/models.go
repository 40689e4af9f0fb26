package timetable

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

type (
	ClassInfo struct {
		ID    int    `json:"id"`
		Label string `json:"label"`
	}

	SchoolMeta struct {
		SchoolKey string      `json:"school_key"`
		SchoolID  int         `json:"school_id"`
		Classes   []ClassInfo `json:"classes"`
	}

	// TimetableWeek holds at most 5 days (Mon-Fri), ordered chronologically.
	TimetableWeek struct {
		ClassID   int            `json:"class_id"`
		WeekStart Date           `json:"week_start"`
		WeekEnd   Date           `json:"week_end"`
		Days      []TimetableDay `json:"days"`
	}

	// TimetableDay has one cell per period row of the source table, empty periods included,
	// so that indexes line up across days and classes.
	TimetableDay struct {
		Date            Date         `json:"date"`
		LessonsByPeriod []PeriodCell `json:"lessons_by_period"`
	}

	Lesson struct {
		SubjectCode      null.String `json:"subject_code"`
		SubjectTitle     null.String `json:"subject_title"`
		Teacher          null.String `json:"teacher"`
		Room             null.String `json:"room"`
		GroupLabel       null.String `json:"group_label"`
		IsCancelled      bool        `json:"is_cancelled"`
		TeacherFullName  null.String `json:"teacher_full_name"`
		SourceClassLabel null.String `json:"source_class_label"`
	}
)

// PeriodCell is either EmptyCell or LessonCell.
type PeriodCell interface {
	isPeriodCell()
}

type EmptyCell struct{}

type LessonCell struct {
	PeriodNumber int       `json:"period_number"`
	TimeRange    TimeRange `json:"time_range"`
	Lessons      []Lesson  `json:"lessons"`
}

func (EmptyCell) isPeriodCell()  {}
func (LessonCell) isPeriodCell() {}

const (
	kindEmpty   = "empty"
	kindLessons = "lessons"
)

func (EmptyCell) MarshalJSON() ([]byte, error) {
	return []byte(`{"kind":"` + kindEmpty + `"}`), nil
}

func (c LessonCell) MarshalJSON() ([]byte, error) {
	type alias LessonCell
	return json.Marshal(struct {
		Kind string `json:"kind"`
		alias
	}{Kind: kindLessons, alias: alias(c)})
}

func (d *TimetableDay) UnmarshalJSON(b []byte) error {
	var raw struct {
		Date            Date              `json:"date"`
		LessonsByPeriod []json.RawMessage `json:"lessons_by_period"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Date = raw.Date
	d.LessonsByPeriod = make([]PeriodCell, 0, len(raw.LessonsByPeriod))
	for _, rc := range raw.LessonsByPeriod {
		var head struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(rc, &head); err != nil {
			return err
		}
		switch head.Kind {
		case kindEmpty:
			d.LessonsByPeriod = append(d.LessonsByPeriod, EmptyCell{})
		case kindLessons:
			var cell LessonCell
			if err := json.Unmarshal(rc, &cell); err != nil {
				return err
			}
			d.LessonsByPeriod = append(d.LessonsByPeriod, cell)
		default:
			return errors.Errorf("unknown period cell kind %q", head.Kind)
		}
	}
	return nil
}

// Lessons returns every lesson of the week, in day then period order.
func (w TimetableWeek) Lessons() []Lesson {
	var lessons []Lesson
	for _, day := range w.Days {
		for _, cell := range day.LessonsByPeriod {
			if lc, ok := cell.(LessonCell); ok {
				lessons = append(lessons, lc.Lessons...)
			}
		}
	}
	return lessons
}

// WithSourceClassLabel returns a copy of w where every lesson without a source class label gets `label`.
// w itself is left untouched since it may be shared through a cache.
func (w TimetableWeek) WithSourceClassLabel(label string) TimetableWeek {
	days := make([]TimetableDay, len(w.Days))
	for i, day := range w.Days {
		cells := make([]PeriodCell, len(day.LessonsByPeriod))
		for j, cell := range day.LessonsByPeriod {
			lc, ok := cell.(LessonCell)
			if !ok {
				cells[j] = cell
				continue
			}
			lessons := make([]Lesson, len(lc.Lessons))
			for k, l := range lc.Lessons {
				if !l.SourceClassLabel.Valid {
					l.SourceClassLabel = null.StringFrom(label)
				}
				lessons[k] = l
			}
			lc.Lessons = lessons
			cells[j] = lc
		}
		days[i] = TimetableDay{Date: day.Date, LessonsByPeriod: cells}
	}
	w.Days = days
	return w
}

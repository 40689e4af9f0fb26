package shared

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

type (
	// WeekInput selects a week of a school's public timetables.
	WeekInput struct {
		SchoolKey string `json:"school_key" validate:"required,schoolkey"`
		WeekID    int    `json:"week" validate:"min=0,max=52"`
	}

	ClassWeekInput struct {
		WeekInput
		ClassID int `json:"class" validate:"required,min=1"`
	}

	TeacherWeekInput struct {
		WeekInput
		Teacher string `json:"teacher" validate:"required"`
	}

	LoginInput struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	ChildWeekInput struct {
		UUID   string `json:"uuid" validate:"required"`
		WeekID int    `json:"week" validate:"min=0,max=52"`
	}
)

// Validate cleans `input` (a pointer to one of the inputs above) and checks it,
// returning a *core.ValidationError with translated field errors.
func Validate(validate *validator.Validate, translator ut.Translator, input interface{}) error {
	switch in := input.(type) {
	case *WeekInput:
		in.clean()
	case *ClassWeekInput:
		in.WeekInput.clean()
	case *TeacherWeekInput:
		in.WeekInput.clean()
		in.Teacher = strings.TrimSpace(in.Teacher)
	case *LoginInput:
		in.Username = strings.TrimSpace(in.Username)
	case *ChildWeekInput:
		in.UUID = strings.TrimSpace(in.UUID)
	}
	if err := validate.Struct(input); err != nil {
		return core.TranslateValidationErrors(err, translator)
	}
	return nil
}

func (in *WeekInput) clean() {
	in.SchoolKey = strings.TrimSpace(in.SchoolKey)
}

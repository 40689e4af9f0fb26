package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/ratiba/apps/shared"
	"github.com/trezcool/ratiba/core"
)

// intParams reads the named path params as numbers; unreadable ones are reported per field.
func intParams(ctx echo.Context, names ...string) ([]int, error) {
	vals := make([]int, len(names))
	var flds []core.FieldError
	for i, name := range names {
		v, err := strconv.Atoi(ctx.Param(name))
		if err != nil {
			flds = append(flds, core.FieldError{Field: name, Error: name + " must be a number"})
			continue
		}
		vals[i] = v
	}
	if len(flds) > 0 {
		return nil, core.NewValidationError(nil, flds...)
	}
	return vals, nil
}

func bindWeek(ctx echo.Context, deps *shared.Deps) (shared.WeekInput, error) {
	vals, err := intParams(ctx, "week")
	if err != nil {
		return shared.WeekInput{}, err
	}
	in := shared.WeekInput{SchoolKey: ctx.Param("key"), WeekID: vals[0]}
	if err = shared.Validate(deps.Validate, deps.Translator, &in); err != nil {
		return shared.WeekInput{}, err
	}
	return in, nil
}

func bindClassWeek(ctx echo.Context, deps *shared.Deps) (shared.ClassWeekInput, error) {
	vals, err := intParams(ctx, "class", "week")
	if err != nil {
		return shared.ClassWeekInput{}, err
	}
	in := shared.ClassWeekInput{
		WeekInput: shared.WeekInput{SchoolKey: ctx.Param("key"), WeekID: vals[1]},
		ClassID:   vals[0],
	}
	if err = shared.Validate(deps.Validate, deps.Translator, &in); err != nil {
		return shared.ClassWeekInput{}, err
	}
	return in, nil
}

func bindChildWeek(ctx echo.Context, deps *shared.Deps) (shared.ChildWeekInput, error) {
	vals, err := intParams(ctx, "week")
	if err != nil {
		return shared.ChildWeekInput{}, err
	}
	in := shared.ChildWeekInput{UUID: ctx.Param("uuid"), WeekID: vals[0]}
	if err = shared.Validate(deps.Validate, deps.Translator, &in); err != nil {
		return shared.ChildWeekInput{}, err
	}
	return in, nil
}

// boolQuery reads flags such as `?free=1` or `?free=true`.
func boolQuery(ctx echo.Context, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(ctx.QueryParam(name)))
	return err == nil && v
}

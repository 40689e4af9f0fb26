package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/apps/shared"
	"github.com/trezcool/ratiba/core/timetable"
)

// number of suggestions returned for a teacher without lessons
const maxSuggestions = 5

type timetableApi struct {
	deps *shared.Deps
	svc  *timetable.Service
}

type teacherWeekResponse struct {
	Week        *timetable.TimetableWeek `json:"week"`
	Suggestions []string                 `json:"suggestions,omitempty"`
}

func registerTimetableAPI(g *echo.Group, deps *shared.Deps) {
	api := timetableApi{deps: deps, svc: deps.Timetables}

	sg := g.Group("/schools/:key")
	sg.GET("", api.school)
	sg.GET("/classes/:class/weeks/:week", api.classWeek)
	sg.GET("/weeks/:week/teachers", api.teachers)
	sg.GET("/weeks/:week/teachers/:name", api.teacherWeek)
}

// Handlers

func (api *timetableApi) school(ctx echo.Context) error {
	in := shared.WeekInput{SchoolKey: ctx.Param("key")}
	if err := shared.Validate(api.deps.Validate, api.deps.Translator, &in); err != nil {
		return err
	}
	meta, err := api.svc.LoadSchoolMeta(ctx.Request().Context(), in.SchoolKey)
	if err != nil {
		return errors.Wrap(err, "loading school")
	}
	return ctx.JSON(http.StatusOK, meta)
}

func (api *timetableApi) classWeek(ctx echo.Context) error {
	in, err := bindClassWeek(ctx, api.deps)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	meta, err := api.svc.LoadSchoolMeta(rctx, in.SchoolKey)
	if err != nil {
		return errors.Wrap(err, "loading school")
	}
	week, err := api.svc.LoadTimetableWeek(rctx, meta.SchoolID, in.ClassID, in.WeekID)
	if err != nil {
		return errors.Wrap(err, "loading class week")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *timetableApi) teachers(ctx echo.Context) error {
	in, err := bindWeek(ctx, api.deps)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	meta, err := api.svc.LoadSchoolMeta(rctx, in.SchoolKey)
	if err != nil {
		return errors.Wrap(err, "loading school")
	}
	teachers, err := api.svc.Teachers(rctx, meta, in.WeekID)
	if err != nil {
		return errors.Wrap(err, "collecting teachers")
	}
	if q := ctx.QueryParam("q"); q != "" {
		teachers = timetable.SuggestTeachers(q, teachers, len(teachers))
		if teachers == nil {
			teachers = []string{}
		}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

// teacherWeek answers with the teacher's week; a week without lessons comes with name suggestions.
func (api *timetableApi) teacherWeek(ctx echo.Context) error {
	week, err := bindWeek(ctx, api.deps)
	if err != nil {
		return err
	}
	in := shared.TeacherWeekInput{WeekInput: week, Teacher: ctx.Param("name")}
	if err = shared.Validate(api.deps.Validate, api.deps.Translator, &in); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	meta, err := api.svc.LoadSchoolMeta(rctx, in.SchoolKey)
	if err != nil {
		return errors.Wrap(err, "loading school")
	}
	tw, ok, err := api.svc.TeacherTimetable(rctx, meta, in.WeekID, in.Teacher)
	if err != nil {
		return errors.Wrap(err, "building teacher week")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no class timetable could be loaded for this week")
	}

	resp := teacherWeekResponse{Week: &tw}
	if len(tw.Lessons()) == 0 {
		teachers, err := api.svc.Teachers(rctx, meta, in.WeekID)
		if err != nil {
			return errors.Wrap(err, "collecting teachers")
		}
		resp.Suggestions = timetable.SuggestTeachers(in.Teacher, teachers, maxSuggestions)
	}
	return ctx.JSON(http.StatusOK, resp)
}

package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/apps/shared"
	"github.com/trezcool/ratiba/core/auth"
	"github.com/trezcool/ratiba/core/timetable"
)

// sessionApi serves the one upstream session held by this server's store.
type sessionApi struct {
	deps *shared.Deps
	svc  *auth.Service
}

func registerSessionAPI(g *echo.Group, deps *shared.Deps) {
	api := sessionApi{deps: deps, svc: deps.Auth}

	g.POST("/session", api.login)
	g.GET("/session", api.session)
	g.DELETE("/session", api.logout)

	cg := g.Group("/children")
	cg.GET("", api.children)
	cg.GET("/:uuid/grades", api.grades)
	cg.GET("/:uuid/weeks/:week", api.childWeek)
}

// Handlers

func (api *sessionApi) login(ctx echo.Context) error {
	var data shared.LoginInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginInput")
	}
	if err := shared.Validate(api.deps.Validate, api.deps.Translator, &data); err != nil {
		return err
	}

	sess, err := api.svc.Login(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) session(ctx echo.Context) error {
	sess, err := api.svc.CurrentSession(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) logout(ctx echo.Context) error {
	api.svc.Logout(ctx.Request().Context())
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) children(ctx echo.Context) error {
	children, err := api.svc.Children(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing children")
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *sessionApi) grades(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	childUUID := ctx.Param("uuid")

	var (
		grades []auth.SubjectGrades
		err    error
	)
	if boolQuery(ctx, "free") {
		grades, err = api.svc.FreeGrades(rctx, childUUID)
	} else {
		grades, err = api.svc.Grades(rctx, childUUID)
	}
	if err != nil {
		return errors.Wrap(err, "loading grades")
	}
	if grades == nil {
		grades = []auth.SubjectGrades{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *sessionApi) childWeek(ctx echo.Context) error {
	in, err := bindChildWeek(ctx, api.deps)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	sess, err := api.svc.CurrentSession(rctx)
	if err != nil {
		return err
	}
	if !sess.SchoolID.Valid {
		return errNoSchoolInAuth
	}
	profile, ok, err := api.svc.Child(rctx, in.UUID)
	if err != nil {
		return errors.Wrap(err, "looking up child")
	}
	if !ok {
		return errChildNotFound
	}

	var week timetable.TimetableWeek
	err = api.svc.Do(rctx, func(ctx context.Context, token string) (err error) {
		week, err = api.deps.Timetables.LoadChildTimetableWeek(ctx, token, sess.SchoolID.Int, profile.StudentID, in.WeekID, profile.ClassID.Int)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "loading child week")
	}
	return ctx.JSON(http.StatusOK, week)
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/apps/shared"
	"github.com/trezcool/ratiba/core"
)

var (
	errChildNotFound  = echo.NewHTTPError(http.StatusNotFound, "child not found")
	errNoSchoolInAuth = echo.NewHTTPError(http.StatusUnauthorized, "the session carries no school id, log in again")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(deps *shared.Deps, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.RangeError:
			code = http.StatusBadRequest
			message = origErr.Error()
		case *core.AuthError:
			code = http.StatusUnauthorized
			message = origErr.Error()
		case *core.StatusError:
			if origErr.Code == http.StatusNotFound {
				code = http.StatusNotFound
				message = "not found upstream"
				break
			}
			code = http.StatusBadGateway
			message = origErr.Error()
		case *core.NetworkError, *core.ParseError, *core.EmptyResponseError:
			code = http.StatusBadGateway
			message = origErr.Error()
		default:
			if origErr == core.ErrNotLoggedIn || origErr == core.ErrSessionExpired {
				code = http.StatusUnauthorized
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			if sess, sErr := deps.Auth.CurrentSession(ctx.Request().Context()); sErr == nil {
				deps.Logger.Error(msg, errors.Wrap(err, msg), sess)
			} else {
				deps.Logger.Error(msg, errors.Wrap(err, msg))
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

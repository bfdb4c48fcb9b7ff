package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/academic"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/result"
	"github.com/trezcool/followup/core/student"
	"github.com/trezcool/followup/core/subject"
)

var (
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
	errFileRequired = "file is required"
)

// notFoundErrs are the domain errors answered with a 404.
var notFoundErrs = []error{
	academic.ErrNotFound,
	mentor.ErrNotFound,
	student.ErrNotFound,
	subject.ErrNotFound,
	attendance.ErrCallNotFound,
	result.ErrUploadNotFound,
	result.ErrCallNotFound,
	result.ErrJobNotFound,
}

// conflictErrs are the domain errors answered with a 409.
var conflictErrs = []error{
	attendance.ErrWeekLocked,
	result.ErrJobFinished,
}

func isOneOf(err error, targets []error) bool {
	for _, t := range targets {
		if err == t {
			return true
		}
	}
	return false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
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
		case *core.ImportError:
			code = http.StatusBadRequest
			message = origErr.Error()
		default:
			switch {
			case isOneOf(cause, notFoundErrs):
				code = http.StatusNotFound
				message = cause.Error()
			case isOneOf(cause, conflictErrs):
				code = http.StatusConflict
				message = cause.Error()
			case cause == result.ErrBulkNotConfirmed:
				code = http.StatusBadRequest
				message = cause.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), contextActor(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
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

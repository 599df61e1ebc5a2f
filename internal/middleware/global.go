package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/validated-handler/internal/errs"
	"github.com/deppfellow/validated-handler/internal/server"
	"github.com/deppfellow/validated-handler/internal/validation"
)

// GlobalMiddlewares groups "global" middleware and the global error handler.
type GlobalMiddlewares struct {
	server *server.Server
}

// NewGlobalMiddlewares constructs the middleware bundle.
func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		server: s,
	}
}

// CORS returns Echo's CORS middleware configured by the server config.
func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: global.server.Config.Server.CORSAllowedOrigins,
	})
}

// RequestLogger returns Echo's request logger middleware producing one
// "API" log line per request, with severity based on status.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			statusCode := statusFromError(v.Status, v.Error)

			logger := GetLogger(c)

			slow := global.isSlow(v.Latency)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400 || slow:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			if slow {
				e = e.Bool("slow", true)
			}

			if requestID := GetRequestID(c); requestID != "" {
				e = e.Str("request_id", requestID)
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

// isSlow reports whether latency exceeds the configured threshold. A zero
// threshold disables the check.
func (global *GlobalMiddlewares) isSlow(latency time.Duration) bool {
	obs := global.server.Config.Observability
	if obs == nil || obs.Logging.SlowRequestThreshold <= 0 {
		return false
	}
	return latency > obs.Logging.SlowRequestThreshold
}

// statusFromError derives the final status when the handler returned an error.
//
// The global error handler writes the response after the logger runs, so
// the recorded status is still 200 at that point.
// Reference: https://github.com/labstack/echo/issues/2310#issuecomment-1288196898
func statusFromError(status int, err error) int {
	if err == nil {
		return status
	}

	var httpErr *errs.HTTPError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.As(err, &echoErr):
		return echoErr.Code
	default:
		if _, ok := validation.AsError(err); ok {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// Recover returns Echo's panic recovery middleware.
func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}

// Secure returns Echo's secure headers middleware.
func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// GlobalErrorHandler is the generic error path for the entire HTTP server.
//
// Every error a handler returns ends up here:
//   - *errs.HTTPError is written as-is
//   - *echo.HTTPError is converted (route 404s get a friendlier message)
//   - *validation.Error returned by endpoint code becomes a 400 with field errors
//   - anything else is a sanitized 500
//
// The validating dispatcher answers schema failures itself with the
// {"status","message"} envelope and never forwards them here; a
// *validation.Error only arrives when an endpoint returns one after
// validation passed.
//
// The original error is always logged with the request-scoped logger.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	originalErr := err

	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			if echoErr.Code == http.StatusNotFound {
				err = errs.NewNotFoundError("Route not found", false, nil)
			}
		} else if verr, ok := validation.AsError(err); ok {
			err = badRequestFromValidation(verr)
		} else {
			err = errs.NewInternalServerError()
		}
	}

	var echoErr *echo.HTTPError
	var status int
	var code string
	var message string
	var fieldErrors []errs.FieldError
	var action *errs.Action
	override := false

	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Status
		code = httpErr.Code
		message = httpErr.Message
		fieldErrors = httpErr.Errors
		action = httpErr.Action
		override = httpErr.Override

	case errors.As(err, &echoErr):
		status = echoErr.Code
		code = errs.MakeUpperCaseWithUnderscores(http.StatusText(status))

		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(echoErr.Code)
		}

	default:
		status = http.StatusInternalServerError
		code = errs.MakeUpperCaseWithUnderscores(http.StatusText(http.StatusInternalServerError))
		message = http.StatusText(http.StatusInternalServerError)
	}

	logger := *GetLogger(c)

	logger.Error().Stack().
		Err(originalErr).
		Int("status", status).
		Str("error_code", code).
		Msg(message)

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}

		_ = c.JSON(status, errs.HTTPError{
			Code:     code,
			Message:  message,
			Status:   status,
			Override: override,
			Errors:   fieldErrors,
			Action:   action,
		})
	}
}

func badRequestFromValidation(verr *validation.Error) *errs.HTTPError {
	fieldErrors := make([]errs.FieldError, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: issue.Path,
			Error: issue.Message,
		})
	}
	return errs.NewBadRequestError("Validation failed", true, nil, fieldErrors, nil)
}

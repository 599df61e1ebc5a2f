package handler

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/validated-handler/internal/middleware"
)

// ResultFunc is an endpoint that returns a value to be written as the response.
type ResultFunc[B, Q, P, R any] func(c echo.Context, req *Request[B, Q, P]) (R, error)

// ResponseHandler writes a successful endpoint result.
type ResponseHandler interface {
	// Handle writes the HTTP response for the given result.
	Handle(c echo.Context, result any) error

	// GetOperation names the handler kind in logs.
	GetOperation() string

	// AddAttributes attaches New Relic attributes for the result.
	AddAttributes(txn *newrelic.Transaction, result any)
}

// JSONResponseHandler writes the result as JSON with a fixed status.
type JSONResponseHandler struct {
	status int
}

func (h JSONResponseHandler) Handle(c echo.Context, result any) error {
	return c.JSON(h.status, result)
}

func (h JSONResponseHandler) GetOperation() string {
	return "handler"
}

func (h JSONResponseHandler) AddAttributes(txn *newrelic.Transaction, result any) {
	// http.status_code is set by EnhanceTracing.
}

// NoContentResponseHandler writes an empty response with a fixed status.
type NoContentResponseHandler struct {
	status int
}

func (h NoContentResponseHandler) Handle(c echo.Context, result any) error {
	return c.NoContent(h.status)
}

func (h NoContentResponseHandler) GetOperation() string {
	return "handler_no_content"
}

func (h NoContentResponseHandler) AddAttributes(txn *newrelic.Transaction, result any) {
	txn.AddAttribute("response.empty", true)
}

// handleResult runs an endpoint after validation and writes its result.
//
// Endpoint errors are noticed in New Relic and returned as-is; the global
// error handler owns logging and rendering them.
func handleResult(c echo.Context, run func() (any, error), responseHandler ResponseHandler) error {
	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", c.Path())
	}

	logger := middleware.GetLogger(c).With().
		Str("operation", responseHandler.GetOperation()).
		Str("route", c.Path()).
		Logger()

	start := time.Now()
	result, err := run()
	duration := time.Since(start)

	if err != nil {
		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("handler.status", "error")
			txn.AddAttribute("handler.duration_ms", duration.Milliseconds())
		}
		return err
	}

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("handler.duration_ms", duration.Milliseconds())
		responseHandler.AddAttributes(txn, result)
	}

	logger.Info().
		Dur("handler_duration", duration).
		Msg("request completed successfully")

	return responseHandler.Handle(c, result)
}

// HandleJSON validates the request, runs fn and writes its result as JSON.
//
// Usage:
//
//	api.POST("/users/:id/greetings", handler.HandleJSON(createGreetingSchemas, h.CreateGreeting, http.StatusCreated))
func HandleJSON[B, Q, P, R any](schemas Schemas[B, Q, P], fn ResultFunc[B, Q, P, R], status int) echo.HandlerFunc {
	return Validated(schemas, func(c echo.Context, req *Request[B, Q, P]) error {
		return handleResult(c, func() (any, error) {
			return fn(c, req)
		}, JSONResponseHandler{status: status})
	})
}

// HandleNoContent validates the request, runs fn and answers with an empty
// body (typically 204).
func HandleNoContent[B, Q, P any](schemas Schemas[B, Q, P], fn HandlerFunc[B, Q, P], status int) echo.HandlerFunc {
	return Validated(schemas, func(c echo.Context, req *Request[B, Q, P]) error {
		return handleResult(c, func() (any, error) {
			return nil, fn(c, req)
		}, NoContentResponseHandler{status: status})
	})
}

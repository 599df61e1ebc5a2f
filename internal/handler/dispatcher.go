package handler

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/validated-handler/internal/errs"
	"github.com/deppfellow/validated-handler/internal/middleware"
	"github.com/deppfellow/validated-handler/internal/validation"
)

// Echo context keys of the parsed request sections.
const (
	BodyKey   = "validated.body"
	QueryKey  = "validated.query"
	ParamsKey = "validated.params"
)

// Request sections, in evaluation order.
const (
	sectionBody   = "body"
	sectionQuery  = "query"
	sectionParams = "params"
)

// None is the type argument of a section that has no schema.
type None = struct{}

// Schemas is the per-route schema set. A nil field means the section is
// neither validated nor populated. A typed nil *validation.StructSchema is
// not absent: it validates with validation.Default().
type Schemas[B, Q, P any] struct {
	Body   validation.Schema[B]
	Query  validation.Schema[Q]
	Params validation.Schema[P]
}

// Request carries the parsed sections into the endpoint.
//
// A field is non-nil only when its schema was supplied and passed.
type Request[B, Q, P any] struct {
	Body   *B
	Query  *Q
	Params *P
}

// HandlerFunc is an endpoint that runs after every supplied schema passed.
type HandlerFunc[B, Q, P any] func(c echo.Context, req *Request[B, Q, P]) error

// Validated wraps fn with body, query and params validation.
//
// Sections are parsed in the order body, query, params and the first
// failure stops the chain. A *validation.Error is answered with
// 400 {"status":"error","message":"..."} and fn is not called. Any other
// error, including the one returned by fn, is returned unchanged to
// Echo's HTTPErrorHandler.
func Validated[B, Q, P any](schemas Schemas[B, Q, P], fn HandlerFunc[B, Q, P]) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req, section, err := parseRequest(c, schemas)
		duration := time.Since(start)

		if err != nil {
			verr, ok := validation.AsError(err)
			if !ok {
				return err
			}

			middleware.GetLogger(c).Warn().
				Str("section", section).
				Strs("issues", verr.Messages()).
				Dur("validation_duration", duration).
				Msg("request validation failed")

			if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
				txn.AddAttribute("validation.status", "failed")
				txn.AddAttribute("validation.section", section)
				txn.AddAttribute("validation.duration_ms", duration.Milliseconds())
			}

			return c.JSON(http.StatusBadRequest, errs.NewErrorEnvelope(verr.Message()))
		}

		middleware.GetLogger(c).Debug().
			Dur("validation_duration", duration).
			Msg("request validation successful")

		if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
			txn.AddAttribute("validation.status", "success")
			txn.AddAttribute("validation.duration_ms", duration.Milliseconds())
		}

		return fn(c, req)
	}
}

// parseRequest runs the supplied schemas and reports which section failed.
func parseRequest[B, Q, P any](c echo.Context, schemas Schemas[B, Q, P]) (*Request[B, Q, P], string, error) {
	req := &Request[B, Q, P]{}
	var err error

	if req.Body, err = parseSection(c, schemas.Body, BodyKey, requestBody); err != nil {
		return nil, sectionBody, err
	}

	if req.Query, err = parseSection(c, schemas.Query, QueryKey, queryParams); err != nil {
		return nil, sectionQuery, err
	}

	if req.Params, err = parseSection(c, schemas.Params, ParamsKey, pathParams); err != nil {
		return nil, sectionParams, err
	}

	return req, "", nil
}

// parseSection stores the parsed value under key before returning it.
func parseSection[T any](
	c echo.Context,
	schema validation.Schema[T],
	key string,
	source func(c echo.Context) (any, error),
) (*T, error) {
	if schema == nil {
		return nil, nil
	}

	input, err := source(c)
	if err != nil {
		return nil, err
	}

	value, err := schema.Parse(input)
	if err != nil {
		return nil, err
	}

	c.Set(key, &value)
	return &value, nil
}

// requestBody reads the raw body and puts it back so the endpoint can
// read it again.
func requestBody(c echo.Context) (any, error) {
	r := c.Request()
	if r.Body == nil || r.Body == http.NoBody {
		return []byte(nil), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()

	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func queryParams(c echo.Context) (any, error) {
	return c.QueryParams(), nil
}

func pathParams(c echo.Context) (any, error) {
	names := c.ParamNames()
	values := c.ParamValues()

	params := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(values) {
			params[name] = values[i]
		}
	}
	return params, nil
}

// ValidatedBody returns the parsed body stored by Validated.
func ValidatedBody[B any](c echo.Context) (*B, bool) {
	v, ok := c.Get(BodyKey).(*B)
	return v, ok
}

// ValidatedQuery returns the parsed query stored by Validated.
func ValidatedQuery[Q any](c echo.Context) (*Q, bool) {
	v, ok := c.Get(QueryKey).(*Q)
	return v, ok
}

// ValidatedParams returns the parsed path params stored by Validated.
func ValidatedParams[P any](c echo.Context) (*P, bool) {
	v, ok := c.Get(ParamsKey).(*P)
	return v, ok
}

package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/validated-handler/internal/config"
	"github.com/deppfellow/validated-handler/internal/errs"
	"github.com/deppfellow/validated-handler/internal/handler"
	"github.com/deppfellow/validated-handler/internal/middleware"
	"github.com/deppfellow/validated-handler/internal/router"
	"github.com/deppfellow/validated-handler/internal/server"
)

func newRouter(t *testing.T) *echo.Echo {
	t.Helper()

	log := zerolog.Nop()
	s := server.New(&config.Config{
		Primary: config.Primary{Env: "test"},
		Server: config.ServerConfig{
			Port:               "0",
			CORSAllowedOrigins: []string{"*"},
		},
		Observability: config.DefaultObservabilityConfig(),
	}, &log, nil)

	return router.NewRouter(s, handler.NewHandlers(s))
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Status(t *testing.T) {
	t.Parallel()

	rec := serve(newRouter(t), http.MethodGet, "/status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestRouter_CreateGreeting(t *testing.T) {
	t.Parallel()

	e := newRouter(t)

	rec := serve(e, http.MethodPost, "/api/v1/users/12/greetings?lang=fr", `{"name":"Zoé"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"12","greeting":"Bonjour, Zoé !","language":"fr"}`, rec.Body.String())

	rec = serve(e, http.MethodPost, "/api/v1/users/12/greetings", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"name: Required"}`, rec.Body.String())
}

func TestRouter_DeleteGreetings(t *testing.T) {
	t.Parallel()

	rec := serve(newRouter(t), http.MethodDelete, "/api/v1/users/12/greetings", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	t.Parallel()

	rec := serve(newRouter(t), http.MethodGet, "/api/v1/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body errs.HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Route not found", body.Message)
	assert.Equal(t, "NOT_FOUND", body.Code)
}

func TestRouter_ValidationFailureSkipsErrorHandler(t *testing.T) {
	t.Parallel()

	e := newRouter(t)

	var forwarded []error
	next := e.HTTPErrorHandler
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		forwarded = append(forwarded, err)
		next(err, c)
	}

	rec := serve(e, http.MethodPost, "/api/v1/users/abc/greetings", `{"name":"Ann"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"id: Must be a numeric string"}`, rec.Body.String())
	assert.Empty(t, forwarded)

	rec = serve(e, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, forwarded, 1)
}

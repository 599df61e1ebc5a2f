package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/validated-handler/internal/config"
	"github.com/deppfellow/validated-handler/internal/errs"
	"github.com/deppfellow/validated-handler/internal/middleware"
	"github.com/deppfellow/validated-handler/internal/server"
	"github.com/deppfellow/validated-handler/internal/validation"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	log := zerolog.Nop()
	return server.New(&config.Config{
		Primary: config.Primary{Env: "test"},
		Server: config.ServerConfig{
			Port:               "0",
			CORSAllowedOrigins: []string{"*"},
			RateLimit:          config.RateLimitConfig{Rate: 1, Burst: 1},
		},
		Observability: config.DefaultObservabilityConfig(),
	}, &log, nil)
}

func TestGlobalErrorHandler(t *testing.T) {
	t.Parallel()

	global := middleware.NewGlobalMiddlewares(newTestServer(t))

	tests := map[string]struct {
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
		wantFields []errs.FieldError
	}{
		"unrelated error is sanitized": {
			err:        errors.New("db exploded"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
			wantMsg:    "Internal Server Error",
		},
		"http error passes through": {
			err:        errs.NewTooManyRequestsError("slow down"),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "TOO_MANY_REQUESTS",
			wantMsg:    "slow down",
		},
		"echo not found": {
			err:        echo.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMsg:    "Route not found",
		},
		"echo method not allowed": {
			err:        echo.ErrMethodNotAllowed,
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   "METHOD_NOT_ALLOWED",
			wantMsg:    "Method Not Allowed",
		},
		"validation error from endpoint code": {
			err:        validation.NewError(validation.Issue{Path: "name", Message: "Required"}),
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
			wantMsg:    "Validation failed",
			wantFields: []errs.FieldError{{Field: "name", Error: "Required"}},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			global.GlobalErrorHandler(tt.err, c)

			require.Equal(t, tt.wantStatus, rec.Code)

			var body errs.HTTPError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Message)
			assert.Equal(t, tt.wantFields, body.Errors)
		})
	}
}

func TestGlobalErrorHandler_CommittedResponse(t *testing.T) {
	t.Parallel()

	global := middleware.NewGlobalMiddlewares(newTestServer(t))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, c.String(http.StatusAccepted, "done"))

	global.GlobalErrorHandler(errors.New("late failure"), c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(middleware.RequestID())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, middleware.GetRequestID(c))
	})

	t.Run("generated", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(middleware.RequestIDHeader)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get(middleware.RequestIDHeader))
		assert.Equal(t, "abc-123", rec.Body.String())
	})
}

func TestContextEnhancer(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	enhancer := middleware.NewContextEnhancer(s)

	e := echo.New()
	e.Use(middleware.RequestID(), enhancer.EnhanceContext())
	e.GET("/", func(c echo.Context) error {
		assert.Same(t, middleware.GetLogger(c), middleware.LoggerFromContext(c.Request().Context()))
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetLogger_Fallback(t *testing.T) {
	t.Parallel()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	require.NotNil(t, middleware.GetLogger(c))
	assert.Equal(t, zerolog.Disabled, middleware.GetLogger(c).GetLevel())
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	mws := middleware.NewMiddlewares(s)

	e := echo.New()
	e.HTTPErrorHandler = mws.Global.GlobalErrorHandler
	e.Use(mws.RateLimit.Limit())
	e.GET("/", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	e.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.Config.Server.RateLimit.Rate = 0

	e := echo.New()
	e.Use(middleware.NewRateLimitMiddleware(s).Limit())
	e.GET("/", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	for range 5 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := zerolog.New(&buf)

	obs := config.DefaultObservabilityConfig()
	obs.Logging.SlowRequestThreshold = time.Millisecond

	s := server.New(&config.Config{Observability: obs}, &log, nil)
	mws := middleware.NewMiddlewares(s)

	e := echo.New()
	e.HTTPErrorHandler = mws.Global.GlobalErrorHandler
	e.Use(middleware.RequestID(), mws.ContextEnhancer.EnhanceContext(), mws.Global.RequestLogger())
	e.GET("/slow", func(c echo.Context) error {
		time.Sleep(5 * time.Millisecond)
		return c.NoContent(http.StatusOK)
	})
	e.GET("/invalid", func(c echo.Context) error {
		return validation.NewError(validation.Issue{Path: "q", Message: "Required"})
	})

	t.Run("slow request", func(t *testing.T) {
		buf.Reset()
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))

		entry := lastEntry(t, &buf)
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, true, entry["slow"])
		assert.EqualValues(t, http.StatusOK, entry["status"])
	})

	t.Run("validation error status", func(t *testing.T) {
		buf.Reset()
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/invalid", nil))

		var api map[string]any
		for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
			var entry map[string]any
			require.NoError(t, json.Unmarshal(line, &entry))
			if entry["message"] == "API" {
				api = entry
			}
		}
		require.NotNil(t, api)
		assert.EqualValues(t, http.StatusBadRequest, api["status"])
		assert.Equal(t, "warn", api["level"])
	})
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestEnhanceTracing_WithoutNewRelic(t *testing.T) {
	t.Parallel()

	tm := middleware.NewTracingMiddleware(newTestServer(t), nil)
	errBoom := errors.New("boom")

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	h := tm.NewRelicMiddleware()(tm.EnhanceTracing()(func(c echo.Context) error { return errBoom }))

	assert.Same(t, errBoom, h(c))
}

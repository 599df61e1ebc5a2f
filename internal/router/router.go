// Package router builds the Echo instance.
//
// It installs the middleware chain and the global error handler, then
// maps the system and v1 API routes to their handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/validated-handler/internal/handler"
	"github.com/deppfellow/validated-handler/internal/middleware"
	"github.com/deppfellow/validated-handler/internal/server"
)

// NewRouter returns the fully wired Echo instance.
//
// Middleware order matters:
//   - rate limiting rejects early, before any other work
//   - RequestID runs before anything that logs or traces
//   - the New Relic transaction exists before EnhanceTracing/EnhanceContext read it
//   - RequestLogger wraps the handler so it sees the final error
//   - Recover is innermost so panics become errors for the logger and error handler
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middlewares.RateLimit.Limit(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	registerSystemRoutes(router, h)

	v1 := router.Group("/api/v1")
	registerV1Routes(v1, h)

	return router
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/validated-handler/internal/middleware"
	"github.com/deppfellow/validated-handler/internal/server"
)

// newRelicConnectTimeout bounds how long the health check waits for the agent.
const newRelicConnectTimeout = 2 * time.Second

// HealthHandler serves the liveness endpoint used by load balancers and monitors.
type HealthHandler struct {
	Handler
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// CheckHealth reports service status, environment, uptime and the New Relic
// agent connection.
//
// The agent is optional: a disconnected agent is reported in checks but
// does not make the service unhealthy.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	checks := map[string]interface{}{}
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"uptime":      time.Since(h.server.StartedAt).Round(time.Second).String(),
		"checks":      checks,
	}

	app := h.server.LoggerService.GetApplication()
	if app == nil {
		checks["new_relic"] = map[string]interface{}{
			"status": "disabled",
		}
	} else {
		nrStart := time.Now()

		if err := app.WaitForConnection(newRelicConnectTimeout); err != nil {
			checks["new_relic"] = map[string]interface{}{
				"status":        "unhealthy",
				"response_time": time.Since(nrStart).String(),
				"error":         err.Error(),
			}

			logger.Warn().
				Err(err).
				Dur("response_time", time.Since(nrStart)).
				Msg("new relic health check failed")
		} else {
			checks["new_relic"] = map[string]interface{}{
				"status":        "healthy",
				"response_time": time.Since(nrStart).String(),
			}
		}
	}

	logger.Debug().
		Dur("total_duration", time.Since(start)).
		Msg("health check passed")

	if err := c.JSON(http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")

		if app != nil {
			app.RecordCustomEvent("HealthCheckError", map[string]interface{}{
				"check_type":    "response",
				"operation":     "health_check",
				"error_type":    "json_response_error",
				"error_message": err.Error(),
			})
		}

		return fmt.Errorf("failed to write JSON response: %w", err)
	}

	return nil
}

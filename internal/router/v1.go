package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/validated-handler/internal/handler"
)

// registerV1Routes registers the versioned API.
func registerV1Routes(api *echo.Group, h *handler.Handlers) {
	users := api.Group("/users/:id")

	users.POST("/greetings", handler.HandleJSON(
		handler.CreateGreetingSchemas,
		h.Greeting.CreateGreeting,
		http.StatusCreated,
	))

	users.DELETE("/greetings", handler.HandleNoContent(
		handler.DeleteGreetingsSchemas,
		h.Greeting.DeleteGreetings,
		http.StatusNoContent,
	))
}

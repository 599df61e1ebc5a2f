package handler

import (
	"github.com/deppfellow/validated-handler/internal/server"
)

// Handlers groups every endpoint group so the router receives one value.
type Handlers struct {
	Health   *HealthHandler
	Greeting *GreetingHandler
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(s),
		Greeting: NewGreetingHandler(s),
	}
}

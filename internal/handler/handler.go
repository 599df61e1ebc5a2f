// Package handler is the HTTP layer of the service.
//
// Validated wraps an endpoint with body, query and params schema
// validation; HandleJSON and HandleNoContent add response writing on top.
// The concrete endpoints (health, greetings) live alongside.
package handler

import (
	"github.com/deppfellow/validated-handler/internal/server"
)

// Handler holds the dependencies shared by every endpoint group.
type Handler struct {
	server *server.Server
}

// NewHandler constructs a base Handler.
func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

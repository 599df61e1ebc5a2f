package handler

import (
	"fmt"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/validated-handler/internal/middleware"
	"github.com/deppfellow/validated-handler/internal/server"
	"github.com/deppfellow/validated-handler/internal/validation"
)

const defaultLanguage = "en"

var greetingFormats = map[string]string{
	"en": "Hello, %s!",
	"es": "¡Hola, %s!",
	"fr": "Bonjour, %s !",
}

// CreateGreetingBody is the JSON body of POST /users/:id/greetings.
type CreateGreetingBody struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
}

// GreetingQuery selects the greeting language.
type GreetingQuery struct {
	Lang string `json:"lang" validate:"omitempty,oneof=en es fr"`
}

// UserParams identifies the user in the route path.
type UserParams struct {
	ID string `json:"id" validate:"required,numeric"`
}

// GreetingResponse is returned by CreateGreeting.
type GreetingResponse struct {
	ID       string `json:"id"`
	Greeting string `json:"greeting"`
	Language string `json:"language"`
}

// Schemas of the greeting routes.
var (
	CreateGreetingSchemas = Schemas[CreateGreetingBody, GreetingQuery, UserParams]{
		Body:   validation.Struct[CreateGreetingBody](nil),
		Query:  validation.Struct[GreetingQuery](nil),
		Params: validation.Struct[UserParams](nil),
	}

	DeleteGreetingsSchemas = Schemas[None, None, UserParams]{
		Params: validation.Struct[UserParams](nil),
	}
)

// GreetingHandler builds greetings for a user and keeps the ones it issued
// in memory until they are deleted.
type GreetingHandler struct {
	Handler

	mu        sync.Mutex
	greetings map[string][]string
}

// NewGreetingHandler constructs a GreetingHandler.
func NewGreetingHandler(s *server.Server) *GreetingHandler {
	return &GreetingHandler{
		Handler:   NewHandler(s),
		greetings: make(map[string][]string),
	}
}

// CreateGreeting greets Body.Name in the requested language (English by default).
func (h *GreetingHandler) CreateGreeting(
	c echo.Context,
	req *Request[CreateGreetingBody, GreetingQuery, UserParams],
) (*GreetingResponse, error) {
	lang := req.Query.Lang
	if lang == "" {
		lang = defaultLanguage
	}

	greeting := fmt.Sprintf(greetingFormats[lang], req.Body.Name)

	h.mu.Lock()
	h.greetings[req.Params.ID] = append(h.greetings[req.Params.ID], greeting)
	count := len(h.greetings[req.Params.ID])
	h.mu.Unlock()

	middleware.GetLogger(c).Debug().
		Str("user_id", req.Params.ID).
		Str("language", lang).
		Int("greeting_count", count).
		Msg("greeting created")

	return &GreetingResponse{
		ID:       req.Params.ID,
		Greeting: greeting,
		Language: lang,
	}, nil
}

// DeleteGreetings forgets every greeting issued for the user.
func (h *GreetingHandler) DeleteGreetings(
	c echo.Context,
	req *Request[None, None, UserParams],
) error {
	h.mu.Lock()
	removed := len(h.greetings[req.Params.ID])
	delete(h.greetings, req.Params.ID)
	h.mu.Unlock()

	middleware.GetLogger(c).Debug().
		Str("user_id", req.Params.ID).
		Int("removed", removed).
		Msg("greetings deleted")

	return nil
}

// Count returns how many greetings are held for the user.
func (h *GreetingHandler) Count(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.greetings[userID])
}

package validation

import (
	"errors"
	"strings"
)

// MessageSeparator joins individual issue messages into one string.
const MessageSeparator = ", "

// Issue is a single problem found while parsing an input.
//
// Path is the dotted wire name of the offending field (e.g. "address.city"),
// or empty when the problem concerns the input as a whole.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// String renders the issue as "path: message".
func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Error is the recognized validation error kind.
//
// Issues keep the order in which the validator reported them.
type Error struct {
	Issues []Issue
}

// NewError builds an *Error from the given issues.
func NewError(issues ...Issue) *Error {
	return &Error{Issues: issues}
}

// Error makes *Error satisfy the built-in `error` interface.
func (e *Error) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	return "validation failed: " + e.Message()
}

// Messages returns every issue rendered as "path: message", in order.
func (e *Error) Messages() []string {
	messages := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		messages = append(messages, issue.String())
	}
	return messages
}

// Message returns Messages joined with MessageSeparator.
func (e *Error) Message() string {
	return strings.Join(e.Messages(), MessageSeparator)
}

// AsError reports whether err is (or wraps) a validation *Error.
//
// Classification is by type only; the error text is never inspected.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// CustomValidationError represents a single validation issue for a specific field.
// This is used for validation errors that cannot be expressed via validator tags.
type CustomValidationError struct {
	Field   string
	Message string
}

// CustomValidationErrors is a slice of custom validation errors that satisfies error.
type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	return "Validation failed"
}

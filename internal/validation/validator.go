package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultTagName is the struct tag used for field names when none is configured.
const DefaultTagName = "json"

// Validatable is implemented by payload types that carry rules which cannot be
// expressed with validator tags.
//
// Validate runs after tag validation succeeded. Returning CustomValidationErrors
// or validator.ValidationErrors rejects the input; any other error is treated
// as an unrelated failure.
type Validatable interface {
	Validate() error
}

// Validator wraps a go-playground validator instance configured for request payloads.
type Validator struct {
	validate *validator.Validate
	tagName  string
}

// Option configures a Validator.
type Option func(*Validator)

// WithTagName makes field names (in issue paths and when decoding maps) come
// from the given struct tag instead of `json`.
func WithTagName(tag string) Option {
	return func(v *Validator) {
		if tag != "" {
			v.tagName = tag
		}
	}
}

// New constructs a Validator.
//
// Field names reported in issues follow the configured tag, so a field
// tagged json:"name" shows up as "name".
func New(opts ...Option) *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tagName:  DefaultTagName,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get(v.tagName), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})

	// Comma-separated UUIDs, e.g. ?ids=a,b,c
	_ = v.validate.RegisterValidation("uuidList", func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		if raw == "" {
			return true
		}
		for _, part := range strings.Split(raw, ",") {
			if !IsValidUUID(strings.TrimSpace(part)) {
				return false
			}
		}
		return true
	})

	return v
}

var (
	defaultValidator     *Validator
	defaultValidatorOnce sync.Once
)

// Default returns the shared Validator that uses `json` tags.
func Default() *Validator {
	defaultValidatorOnce.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

// TagName returns the struct tag this Validator reads field names from.
func (v *Validator) TagName() string {
	return v.tagName
}

// Engine exposes the underlying validator so callers can register extra rules.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Struct validates s against its struct tags and then, if s implements
// Validatable, against its own rules.
//
// Rejections come back as *Error. Anything else (e.g. a nil or non-struct
// value, or an unexpected error from Validate) is returned unchanged.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		if issues, ok := toIssues(err); ok {
			return NewError(issues...)
		}
		return err
	}

	if sv, ok := s.(Validatable); ok {
		if err := sv.Validate(); err != nil {
			if issues, ok := toIssues(err); ok {
				return NewError(issues...)
			}
			return err
		}
	}

	return nil
}

// toIssues converts the two rejection types into issues.
func toIssues(err error) ([]Issue, bool) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		issues := make([]Issue, 0, len(validationErrors))
		for _, fe := range validationErrors {
			issues = append(issues, Issue{
				Path:    fieldPath(fe),
				Message: tagMessage(fe),
			})
		}
		return issues, true
	}

	var customErrors CustomValidationErrors
	if errors.As(err, &customErrors) {
		issues := make([]Issue, 0, len(customErrors))
		for _, ce := range customErrors {
			issues = append(issues, Issue{
				Path:    ce.Field,
				Message: ce.Message,
			})
		}
		return issues, true
	}

	return nil, false
}

// fieldPath strips the root struct name from the namespace:
// "CreateUser.address.city" -> "address.city".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// tagMessage converts a failed validator tag into a user-friendly message.
func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless", "required_with", "required_without":
		return "Required"

	case "min":
		// min tag means:
		// - for strings: minimum length
		// - for slices/maps: minimum item count
		// - for numbers: minimum value
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("Must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())

	case "max":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("Must not exceed %s characters", fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("Must not contain more than %s items", fe.Param())
		}
		return fmt.Sprintf("Must not exceed %s", fe.Param())

	case "len":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be exactly %s characters", fe.Param())
		}
		return fmt.Sprintf("Must have length %s", fe.Param())

	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "lt":
		return fmt.Sprintf("Must be less than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())

	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())

	case "numeric", "number":
		return "Must be a numeric string"

	case "email":
		return "Must be a valid email address"

	case "url", "http_url":
		return "Must be a valid URL"

	case "e164":
		return "Must be a valid phone number with country code"

	case "uuid", "uuid4":
		return "Must be a valid UUID"

	case "uuidList":
		return "Must be a comma-separated list of valid UUIDs"

	case "dive":
		return "Some items are invalid"
	}

	if fe.Param() != "" {
		return fmt.Sprintf("Failed %s=%s validation", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("Failed %s validation", fe.Tag())
}

// IsValidUUID reports whether s parses as a UUID. Besides the canonical
// hyphenated form, the braced, urn:uuid: and 32-digit forms are accepted.
func IsValidUUID(s string) bool {
	return uuid.Validate(s) == nil
}

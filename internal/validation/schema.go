package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Schema parses an untyped input into a T.
//
// A rejected input must be reported as *Error. Any other error is an
// unrelated failure.
type Schema[T any] interface {
	Parse(input any) (T, error)
}

// SchemaFunc adapts a plain function into a Schema.
type SchemaFunc[T any] func(input any) (T, error)

// Parse calls f(input).
func (f SchemaFunc[T]) Parse(input any) (T, error) {
	return f(input)
}

// StructSchema decodes inputs into the struct type T and validates the result.
//
// Supported inputs:
//   - []byte / json.RawMessage: JSON document (empty means zero value)
//   - url.Values / map[string][]string: query-style values
//   - map[string]string / map[string]any: flat key/value maps (e.g. path params)
//   - nil: zero value
//
// Maps are decoded weakly typed, so "42" fills an int field.
type StructSchema[T any] struct {
	validator *Validator
}

// Struct returns a StructSchema for T. A nil validator means Default().
func Struct[T any](v *Validator) *StructSchema[T] {
	if v == nil {
		v = Default()
	}
	return &StructSchema[T]{validator: v}
}

// engine returns the configured validator. A nil or zero-value schema
// falls back to Default().
func (s *StructSchema[T]) engine() *Validator {
	if s == nil || s.validator == nil {
		return Default()
	}
	return s.validator
}

// Parse decodes input into a T and validates it.
func (s *StructSchema[T]) Parse(input any) (T, error) {
	var out T

	if err := s.decode(input, &out); err != nil {
		return out, err
	}

	if err := s.engine().Struct(&out); err != nil {
		return out, err
	}

	return out, nil
}

func (s *StructSchema[T]) decode(input any, out *T) error {
	switch in := input.(type) {
	case nil:
		return nil

	case []byte:
		return decodeJSON(in, out)

	case json.RawMessage:
		return decodeJSON(in, out)

	case url.Values:
		return s.decodeMap(flattenValues(in), out)

	case map[string][]string:
		return s.decodeMap(flattenValues(in), out)

	case map[string]string:
		m := make(map[string]any, len(in))
		for k, v := range in {
			m[k] = v
		}
		return s.decodeMap(m, out)

	case map[string]any:
		return s.decodeMap(in, out)
	}

	return s.decodeMap(input, out)
}

// decodeJSON unmarshals raw into out, reporting bad documents as issues.
func decodeJSON(raw []byte, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	err := json.Unmarshal(raw, out)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return NewError(Issue{
			Path:    typeErr.Field,
			Message: fmt.Sprintf("Expected %s, received %s", typeName(typeErr.Type), typeErr.Value),
		})
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return NewError(Issue{Message: "Malformed JSON"})
	}

	return err
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	}
	return t.String()
}

// flattenValues turns single-valued keys into plain strings so they decode
// into scalar fields; multi-valued keys stay slices.
func flattenValues(values map[string][]string) map[string]any {
	m := make(map[string]any, len(values))
	for k, v := range values {
		switch len(v) {
		case 0:
			continue
		case 1:
			m[k] = v[0]
		default:
			m[k] = v
		}
	}
	return m
}

func (s *StructSchema[T]) decodeMap(input any, out *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          s.engine().TagName(),
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return NewError(s.decodeIssues(err)...)
	}

	return nil
}

// decodeIssues turns mapstructure's aggregated error into one issue per
// field, in the order the decoder reported them.
func (s *StructSchema[T]) decodeIssues(err error) []Issue {
	var issues []Issue
	s.collectDecodeIssues(err, &issues)

	if len(issues) == 0 {
		issues = append(issues, Issue{Message: "Invalid input"})
	}
	return issues
}

func (s *StructSchema[T]) collectDecodeIssues(err error, issues *[]Issue) {
	var decodeErr *mapstructure.DecodeError

	switch e := err.(type) {
	case *mapstructure.DecodeError:
		// Nested structs report their own fields; keep the innermost name.
		if errors.As(e.Unwrap(), &decodeErr) {
			s.collectDecodeIssues(e.Unwrap(), issues)
			return
		}
		*issues = append(*issues, Issue{
			Path:    e.Name(),
			Message: s.decodeMessage(e),
		})
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			s.collectDecodeIssues(inner, issues)
		}
	case interface{ Unwrap() error }:
		s.collectDecodeIssues(e.Unwrap(), issues)
	}
}

// decodeMessage describes a field whose value does not fit its Go type.
func (s *StructSchema[T]) decodeMessage(err *mapstructure.DecodeError) string {
	if t := fieldType(reflect.TypeOf((*T)(nil)).Elem(), err.Name(), s.engine().TagName()); t != nil {
		return fmt.Sprintf("Expected %s", typeName(t))
	}
	return "Invalid value"
}

// fieldType resolves a decoder path such as "filter.ids[2]" to the Go type
// stored there. It returns nil when the path does not match a field.
func fieldType(t reflect.Type, path, tagName string) reflect.Type {
	for _, segment := range strings.Split(path, ".") {
		name, indexed := segment, false
		if i := strings.IndexByte(segment, '['); i >= 0 {
			name, indexed = segment[:i], true
		}

		t = derefType(t)
		if t.Kind() != reflect.Struct {
			return nil
		}

		field, ok := structFieldByKey(t, name, tagName)
		if !ok {
			return nil
		}
		t = field.Type

		if indexed {
			t = derefType(t)
			switch t.Kind() {
			case reflect.Slice, reflect.Array, reflect.Map:
				t = t.Elem()
			default:
				return nil
			}
		}
	}
	return derefType(t)
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// structFieldByKey finds the field decoded from key, matching the tag name
// first and the Go name case-insensitively like mapstructure does.
func structFieldByKey(t reflect.Type, key, tagName string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := strings.Split(field.Tag.Get(tagName), ",")[0]
		if name == "" {
			name = field.Name
		}
		if strings.EqualFold(name, key) {
			return field, true
		}
	}
	return reflect.StructField{}, false
}

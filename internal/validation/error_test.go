package validation_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/validated-handler/internal/validation"
)

func TestError_Message(t *testing.T) {
	t.Parallel()

	err := validation.NewError(
		validation.Issue{Path: "name", Message: "Required"},
		validation.Issue{Message: "Malformed JSON"},
		validation.Issue{Path: "address.city", Message: "Must be at least 2 characters"},
	)

	assert.Equal(t, []string{"name: Required", "Malformed JSON", "address.city: Must be at least 2 characters"}, err.Messages())
	assert.Equal(t, "name: Required, Malformed JSON, address.city: Must be at least 2 characters", err.Message())
	assert.Equal(t, "validation failed: "+err.Message(), err.Error())
	assert.Equal(t, "validation failed", validation.NewError().Error())
}

func TestAsError(t *testing.T) {
	t.Parallel()

	verr := validation.NewError(validation.Issue{Path: "id", Message: "Required"})

	got, ok := validation.AsError(fmt.Errorf("parsing params: %w", verr))
	require.True(t, ok)
	assert.Same(t, verr, got)

	// Same text, different kind.
	_, ok = validation.AsError(errors.New(verr.Error()))
	assert.False(t, ok)

	_, ok = validation.AsError(nil)
	assert.False(t, ok)
}

func TestIsValidUUID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		want  bool
	}{
		"canonical":     {input: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", want: true},
		"upper case":    {input: "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", want: true},
		"urn prefix":    {input: "urn:uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8", want: true},
		"braced":        {input: "{6ba7b810-9dad-11d1-80b4-00c04fd430c8}", want: true},
		"truncated":     {input: "6ba7b810", want: false},
		"bad hex digit": {input: "6ba7b810-9dad-11d1-80b4-00c04fd430cz", want: false},
		"empty":         {input: "", want: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, validation.IsValidUUID(tt.input))
		})
	}
}

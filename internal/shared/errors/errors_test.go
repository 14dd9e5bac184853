package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns message only", func(t *testing.T) {
		err := Internal("operation failed", errors.New("dial tcp: refused"))
		assert.Equal(t, "operation failed", err.Error())
	})

	t.Run("Unwrap exposes kind and cause", func(t *testing.T) {
		cause := errors.New("timeout")
		err := Upstream("identity provider failed", cause)

		assert.True(t, errors.Is(err, ErrUpstream))
		assert.True(t, errors.Is(err, cause))
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	t.Run("WithCause keeps the sentinel untouched", func(t *testing.T) {
		base := NotFound("team not found")
		cause := errors.New("record not found")
		wrapped := base.WithCause(cause)

		assert.Nil(t, base.Err)
		assert.True(t, errors.Is(wrapped, cause))
		assert.True(t, errors.Is(wrapped, ErrNotFound))
		assert.True(t, errors.Is(wrapped, base))
		assert.False(t, errors.Is(wrapped, NotFound("project not found")))
	})
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
		kind   error
	}{
		{"validation", Validation("bad id"), "VALIDATION_ERROR", http.StatusBadRequest, ErrValidation},
		{"not found", NotFound(""), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"unauthorized", Unauthorized(""), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden(""), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"duplicate", Duplicate("member exists"), "DUPLICATE", http.StatusBadRequest, ErrDuplicate},
		{"upstream", Upstream("push failed", nil), "UPSTREAM_ERROR", http.StatusInternalServerError, ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.True(t, errors.Is(tt.err, tt.kind))
		})
	}
}

func TestDefaultMessages(t *testing.T) {
	assert.Equal(t, "authentication required", Unauthorized("").Message)
	assert.Equal(t, "access denied", Forbidden("").Message)
	assert.Equal(t, "not found", NotFound("").Message)
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"app error", Forbidden("nope"), http.StatusForbidden},
		{"wrapped app error", fmt.Errorf("remove member: %w", NotFound("member not found")), http.StatusNotFound},
		{"bare kind", fmt.Errorf("%w: name too short", ErrValidation), http.StatusBadRequest},
		{"duplicate kind", ErrDuplicate, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetStatusCode(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	t.Run("client errors surface their message", func(t *testing.T) {
		err := fmt.Errorf("invite: %w", Duplicate("member already exists"))
		assert.Equal(t, "member already exists", PublicMessage(err))
	})

	t.Run("internal errors are masked", func(t *testing.T) {
		err := Internal("insert team", errors.New("pq: connection reset"))
		assert.Equal(t, "internal server error", PublicMessage(err))
	})

	t.Run("upstream errors are masked", func(t *testing.T) {
		err := Upstream("clerk 503", errors.New("service unavailable"))
		assert.Equal(t, "upstream service unavailable", PublicMessage(err))
	})

	t.Run("plain errors fall back to text", func(t *testing.T) {
		err := fmt.Errorf("%w: invalid team id", ErrValidation)
		assert.Equal(t, "validation failed: invalid team id", PublicMessage(err))
	})
}

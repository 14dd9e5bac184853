package identity

import (
	"errors"
	"fmt"

	apperrors "github.com/crewboard/server/internal/shared/errors"
)

var (
	ErrIdentityNotFound = fmt.Errorf("%w: identity not found", apperrors.ErrNotFound)
	ErrInvalidToken     = fmt.Errorf("%w: invalid session token", apperrors.ErrUnauthorized)
	ErrNoVerifierKey    = errors.New("identity: no public key or jwt secret configured")
)

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("identity provider %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Unwrap classifies provider failures as upstream errors.
func (e *StatusError) Unwrap() error {
	return apperrors.ErrUpstream
}

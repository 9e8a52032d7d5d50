package verifier

import (
	"context"
	"errors"

	"fled-backend/internal/auth/domain"
)

// ErrInvalidToken is returned for any token that cannot be trusted
var ErrInvalidToken = errors.New("invalid token")

// Verifier validates a bearer token against the identity provider
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*domain.Identity, error)
}

package usecase

import (
	"context"

	authdomain "fled-backend/internal/auth/domain"
)

// AuthUsecase defines the interface for authentication business logic
type AuthUsecase interface {
	// ValidateToken verifies a bearer token and fills in the stored role
	ValidateToken(ctx context.Context, token string) (*authdomain.Identity, error)

	// Authorized reports whether identity satisfies the configured role
	Authorized(identity *authdomain.Identity) bool

	// RegisterFCMToken adds a device token to the principal's token collection
	RegisterFCMToken(ctx context.Context, uid, token, device string) error

	// UnregisterFCMToken removes a device token everywhere it is stored
	UnregisterFCMToken(ctx context.Context, uid, token string) error

	// TokenCount returns how many delivery tokens the principal holds
	TokenCount(ctx context.Context, uid string) (int, error)
}

// TokenRemover purges a token from every storage location
type TokenRemover interface {
	RemoveToken(ctx context.Context, token string)
}

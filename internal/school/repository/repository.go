package repository

import (
	"context"

	"fled-backend/internal/school/domain"
)

// Lookups return (nil, nil) when the document does not exist.

// StudentRepository reads student documents
type StudentRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Student, error)
	FindBySection(ctx context.Context, sectionID string) ([]*domain.Student, error)
}

// ParentRepository defines parent (guardian) document operations
type ParentRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Parent, error)

	// FindByIDs fetches many parents in one round trip; missing ids are skipped
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Parent, error)

	FindByPhone(ctx context.Context, phone string) ([]*domain.Parent, error)
	FindAll(ctx context.Context) ([]*domain.Parent, error)

	// MergeCanonical creates or merge-updates parents/{parent.ID}. Multi-valued
	// fields are added with set-union semantics, never overwritten.
	MergeCanonical(ctx context.Context, parent *domain.Parent) error

	Delete(ctx context.Context, id string) error

	// ClearLegacyToken removes the fcmToken field from every parent holding token
	ClearLegacyToken(ctx context.Context, token string) (int, error)
}

// UserRepository defines principal document operations
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// AddToken appends a token record to users/{uid}.fcmTokens (set-union)
	AddToken(ctx context.Context, uid string, record domain.TokenRecord) error

	// RemoveToken drops token from users/{uid}.fcmTokens; false when absent
	RemoveToken(ctx context.Context, uid, token string) (bool, error)

	// ClearLegacyToken removes the fcmToken field from every user holding token
	ClearLegacyToken(ctx context.Context, token string) (int, error)
}

// DeviceRepository operates on every devices subcollection at once
type DeviceRepository interface {
	DeleteByToken(ctx context.Context, token string) (int, error)
}

// DocumentRepository reads raw event documents (messages, attendance, ...)
type DocumentRepository interface {
	FindDocument(ctx context.Context, collection, id string) (*domain.Document, error)
}

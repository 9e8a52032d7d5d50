package repository

import (
	"context"

	"fled-backend/internal/notification/domain"
)

// DispatchLogRepository defines the interface for dispatch audit rows
type DispatchLogRepository interface {
	// Create stores one dispatch outcome
	Create(ctx context.Context, entry *domain.DispatchLog) error

	// FindRecent returns the newest rows first, optionally filtered by event type
	FindRecent(ctx context.Context, eventType string, limit, offset int) ([]*domain.DispatchLog, int64, error)
}

package usecase

import (
	"context"
	"errors"

	"fled-backend/internal/notification/domain"
	schooldomain "fled-backend/internal/school/domain"
)

var (
	// ErrInvalidCollection is returned for collections that cannot be notified on demand
	ErrInvalidCollection = errors.New("invalid collection")

	// ErrDocumentNotFound is returned when the requested document does not exist
	ErrDocumentNotFound = errors.New("document not found")
)

// NotificationUsecase defines the interface for notification business logic
type NotificationUsecase interface {
	// NotifyTaskCreated notifies every parent of the task's section
	NotifyTaskCreated(ctx context.Context, taskID string, task *schooldomain.Task) (domain.DispatchResult, error)

	// NotifyMessageCreated notifies the addressed parent, or the whole section
	NotifyMessageCreated(ctx context.Context, messageID string, msg *schooldomain.Message) (domain.DispatchResult, error)

	// NotifyDocument notifies the parents of the students named by a
	// messages/attendance document
	NotifyDocument(ctx context.Context, collection, docID string) (*NotifyResult, error)

	// RemoveToken purges a device token from every storage location
	RemoveToken(ctx context.Context, token string)

	// ListDispatches returns audit rows, newest first
	ListDispatches(ctx context.Context, eventType string, limit, offset int) ([]*domain.DispatchLog, int64, error)
}

// NotifyResult is the outcome of NotifyDocument. Message is set when there
// was nobody to send to.
type NotifyResult struct {
	Sent                 int    `json:"sent"`
	Failed               int    `json:"failed"`
	TotalTokens          int    `json:"totalTokens"`
	InvalidTokensRemoved int    `json:"invalidTokensRemoved"`
	Message              string `json:"message,omitempty"`
}

package domain

import "time"

// Event types carried in the payload metadata
const (
	EventTypeTask    = "task"
	EventTypeMessage = "message"
)

// Payload is the provider-agnostic notification content. It is derived per
// event and never persisted.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// ErrorCode classifies a per-token delivery failure
type ErrorCode string

const (
	ErrorCodeNone         ErrorCode = ""
	ErrorCodeUnregistered ErrorCode = "unregistered"
	ErrorCodeInvalidToken ErrorCode = "invalid_token"
	ErrorCodeOther        ErrorCode = "other"
)

// Stale reports whether the token should be purged from storage.
func (c ErrorCode) Stale() bool {
	return c == ErrorCodeUnregistered || c == ErrorCodeInvalidToken
}

// SendResult is the provider outcome for one token of a batch
type SendResult struct {
	Token   string
	Success bool
	Code    ErrorCode
	Err     error
}

// DispatchResult aggregates every batch of one dispatch
type DispatchResult struct {
	Sent          int      `json:"sent"`
	Failed        int      `json:"failed"`
	InvalidTokens []string `json:"invalid_tokens,omitempty"`
}

// DispatchLog is the audit row written after each dispatch. Title and body
// are deliberately absent.
type DispatchLog struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	EventType      string    `json:"event_type" gorm:"index;not null"`
	EventID        string    `json:"event_id" gorm:"index"`
	SectionID      string    `json:"section_id,omitempty" gorm:"index"`
	TotalTokens    int       `json:"total_tokens"`
	Sent           int       `json:"sent"`
	Failed         int       `json:"failed"`
	InvalidRemoved int       `json:"invalid_removed"`
	CreatedAt      time.Time `json:"created_at"`
}

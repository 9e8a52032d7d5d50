package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"fled-backend/internal/notification/domain"

	"github.com/google/uuid"
)

// DefaultMemoryLogSize is the row cap used by local mode
const DefaultMemoryLogSize = 1000

// memoryDispatchLogRepository keeps the newest maxRows audit rows in process memory
type memoryDispatchLogRepository struct {
	mu      sync.RWMutex
	logs    []domain.DispatchLog
	maxRows int
}

// NewMemoryDispatchLogRepository creates an in-memory DispatchLogRepository.
// Once maxRows rows are held the oldest is dropped; maxRows <= 0 uses
// DefaultMemoryLogSize.
func NewMemoryDispatchLogRepository(maxRows int) DispatchLogRepository {
	if maxRows <= 0 {
		maxRows = DefaultMemoryLogSize
	}
	return &memoryDispatchLogRepository{maxRows: maxRows}
}

func (r *memoryDispatchLogRepository) Create(_ context.Context, entry *domain.DispatchLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *entry)
	if over := len(r.logs) - r.maxRows; over > 0 {
		r.logs = append(r.logs[:0:0], r.logs[over:]...)
	}
	return nil
}

func (r *memoryDispatchLogRepository) FindRecent(_ context.Context, eventType string, limit, offset int) ([]*domain.DispatchLog, int64, error) {
	r.mu.RLock()
	matched := make([]domain.DispatchLog, 0, len(r.logs))
	for _, l := range r.logs {
		if eventType == "" || l.EventType == eventType {
			matched = append(matched, l)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*domain.DispatchLog{}, total, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]*domain.DispatchLog, 0, end-offset)
	for i := offset; i < end; i++ {
		l := matched[i]
		out = append(out, &l)
	}
	return out, total, nil
}

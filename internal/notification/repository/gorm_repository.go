package repository

import (
	"context"
	"time"

	"fled-backend/internal/notification/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormDispatchLogRepository implements DispatchLogRepository using GORM
type gormDispatchLogRepository struct {
	db *gorm.DB
}

// NewGormDispatchLogRepository creates a new GORM-based DispatchLogRepository
func NewGormDispatchLogRepository(db *gorm.DB) (DispatchLogRepository, error) {
	if err := db.AutoMigrate(&domain.DispatchLog{}); err != nil {
		return nil, err
	}
	return &gormDispatchLogRepository{db: db}, nil
}

func (r *gormDispatchLogRepository) Create(ctx context.Context, entry *domain.DispatchLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *gormDispatchLogRepository) FindRecent(ctx context.Context, eventType string, limit, offset int) ([]*domain.DispatchLog, int64, error) {
	var logs []*domain.DispatchLog
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.DispatchLog{})
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

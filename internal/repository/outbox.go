package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
)

type OutboxRepository interface {
	// Append stages an event inside the caller's transaction so it commits
	// or rolls back together with the state change that caused it.
	Append(ctx context.Context, tx *gorm.DB, e *model.OutboxEvent) error
	PendingBatch(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []string) error
}

type outboxRepoImpl struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepoImpl{db: db}
}

func (r *outboxRepoImpl) Append(ctx context.Context, tx *gorm.DB, e *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(e).Error
}

func (r *outboxRepoImpl) PendingBatch(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	var events []*model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *outboxRepoImpl) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id IN ?", ids).
		Update("published_at", time.Now()).Error
}

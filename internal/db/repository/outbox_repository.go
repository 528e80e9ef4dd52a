package repository

import (
	"context"
	"time"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"gorm.io/gorm"
)

type OutboxRepository interface {
	Enqueue(ctx context.Context, entry *models.OutboxEntry) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.OutboxEntry, error)
	MarkDelivered(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, attempts int, nextAttempt time.Time, lastError string) error
	MarkDead(ctx context.Context, id uint, lastError string) error
}

type outboxRepository struct {
	*Repository
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{Repository: NewRepository(db)}
}

func (r *outboxRepository) Enqueue(ctx context.Context, entry *models.OutboxEntry) error {
	if entry.Status == "" {
		entry.Status = models.OutboxPending
	}
	if entry.NextAttempt.IsZero() {
		entry.NextAttempt = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *outboxRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.OutboxEntry, error) {
	var entries []*models.OutboxEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt <= ?", models.OutboxPending, now).
		Order("next_attempt").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *outboxRepository) MarkDelivered(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxEntry{}).
		Where("id = ?", id).
		Update("status", models.OutboxDelivered).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uint, attempts int, nextAttempt time.Time, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":     attempts,
			"next_attempt": nextAttempt,
			"last_error":   lastError,
		}).Error
}

func (r *outboxRepository) MarkDead(ctx context.Context, id uint, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.OutboxDead,
			"last_error": lastError,
		}).Error
}

package repository

import (
	"context"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"gorm.io/gorm"
)

// VerificationLogRepository is append-only: entries are never updated or
// deleted.
type VerificationLogRepository interface {
	Append(ctx context.Context, entry *models.VerificationLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.VerificationLog, error)
	ListByHash(ctx context.Context, hash string, limit int) ([]*models.VerificationLog, error)
}

type verificationLogRepository struct {
	*Repository
}

func NewVerificationLogRepository(db *gorm.DB) VerificationLogRepository {
	return &verificationLogRepository{Repository: NewRepository(db)}
}

func (r *verificationLogRepository) Append(ctx context.Context, entry *models.VerificationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *verificationLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.VerificationLog, error) {
	var entries []*models.VerificationLog
	err := r.db.WithContext(ctx).
		Order("verified_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *verificationLogRepository) ListByHash(ctx context.Context, hash string, limit int) ([]*models.VerificationLog, error) {
	var entries []*models.VerificationLog
	err := r.db.WithContext(ctx).
		Where("hash_examined = ?", hash).
		Order("verified_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

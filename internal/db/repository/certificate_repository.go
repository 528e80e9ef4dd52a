package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"gorm.io/gorm"
)

var (
	ErrCertificateNotFound  = errors.New("certificate not found")
	ErrDuplicateCertificate = errors.New("certificate hash or id already registered")
)

// CertificateRepository stores the certificate index records.
type CertificateRepository interface {
	Create(ctx context.Context, record *models.Certificate) error
	GetByCertificateID(ctx context.Context, certificateID string) (*models.Certificate, error)
	GetByContentHash(ctx context.Context, contentHash string) (*models.Certificate, error)
	MarkRevoked(ctx context.Context, certificateID, reason string) error
	ListByInstitution(ctx context.Context, wallet string, limit int) ([]*models.Certificate, error)
	Count(ctx context.Context) (int64, error)
}

type certificateRepository struct {
	*Repository
}

func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepository{Repository: NewRepository(db)}
}

func (r *certificateRepository) Create(ctx context.Context, record *models.Certificate) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil && isDuplicateKeyError(err) {
		return ErrDuplicateCertificate
	}
	return err
}

func (r *certificateRepository) GetByCertificateID(ctx context.Context, certificateID string) (*models.Certificate, error) {
	var record models.Certificate
	err := r.db.WithContext(ctx).Where("certificate_id = ?", certificateID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *certificateRepository) GetByContentHash(ctx context.Context, contentHash string) (*models.Certificate, error) {
	var record models.Certificate
	err := r.db.WithContext(ctx).Where("content_hash = ?", contentHash).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *certificateRepository) MarkRevoked(ctx context.Context, certificateID, reason string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Where("certificate_id = ? AND revoked = ?", certificateID, false).
		Updates(map[string]interface{}{
			"revoked":           true,
			"revocation_reason": reason,
			"revoked_at":        &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCertificateNotFound
	}
	return nil
}

func (r *certificateRepository) ListByInstitution(ctx context.Context, wallet string, limit int) ([]*models.Certificate, error) {
	var records []*models.Certificate
	err := r.db.WithContext(ctx).
		Where("institution_wallet = ?", wallet).
		Order("issued_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *certificateRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Certificate{}).Count(&count).Error
	return count, err
}

package repository

import (
	"context"
	"errors"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"gorm.io/gorm"
)

var (
	ErrInstitutionNotFound  = errors.New("institution not found")
	ErrDuplicateInstitution = errors.New("institution wallet already registered")
)

type InstitutionRepository interface {
	Create(ctx context.Context, inst *models.Institution) error
	GetByWallet(ctx context.Context, wallet string) (*models.Institution, error)
	List(ctx context.Context) ([]*models.Institution, error)
	SetAuthorized(ctx context.Context, wallet string, authorized bool) error
}

type institutionRepository struct {
	*Repository
}

func NewInstitutionRepository(db *gorm.DB) InstitutionRepository {
	return &institutionRepository{Repository: NewRepository(db)}
}

func (r *institutionRepository) Create(ctx context.Context, inst *models.Institution) error {
	err := r.db.WithContext(ctx).Create(inst).Error
	if err != nil && isDuplicateKeyError(err) {
		return ErrDuplicateInstitution
	}
	return err
}

func (r *institutionRepository) GetByWallet(ctx context.Context, wallet string) (*models.Institution, error) {
	var inst models.Institution
	err := r.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInstitutionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *institutionRepository) List(ctx context.Context) ([]*models.Institution, error) {
	var insts []*models.Institution
	err := r.db.WithContext(ctx).Order("name").Find(&insts).Error
	return insts, err
}

func (r *institutionRepository) SetAuthorized(ctx context.Context, wallet string, authorized bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Institution{}).
		Where("wallet_address = ?", wallet).
		Update("authorized", authorized)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInstitutionNotFound
	}
	return nil
}

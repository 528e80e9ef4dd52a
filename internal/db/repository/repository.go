package repository

import (
	"strings"

	"gorm.io/gorm"
)

// Repository is the shared base embedded by the concrete repositories.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *gorm.DB {
	return r.db
}

// isDuplicateKeyError reports whether err is a unique-constraint violation.
// PostgreSQL unique_violation error code: 23505.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// VerificationLog is an append-only trail of verification attempts. A row is
// written for every attempt regardless of outcome.
type VerificationLog struct {
	gorm.Model
	HashExamined    string `gorm:"index;not null"`
	VerifierAddress string `gorm:"index"`
	Result          bool   `gorm:"not null"`
	Details         string `gorm:"type:json"`
	VerifiedAt      time.Time
}

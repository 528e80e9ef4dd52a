package models

import (
	"time"

	"gorm.io/gorm"
)

// Certificate is the index record for a certificate registered on chain.
// Rows are created only after the issue transaction confirms, mutated only by
// revocation, and never deleted.
type Certificate struct {
	gorm.Model
	CertificateID     string `gorm:"uniqueIndex;not null"`
	StudentName       string `gorm:"not null"`
	RollNumber        string `gorm:"index"`
	Course            string `gorm:"not null"`
	ContentHash       string `gorm:"uniqueIndex;not null"` // 64 lowercase hex chars, unprefixed
	InstitutionWallet string `gorm:"index;not null"`
	TxHash            string `gorm:"not null"`
	IssuedAt          time.Time
	Revoked           bool `gorm:"not null;default:false"`
	RevocationReason  string
	RevokedAt         *time.Time
}

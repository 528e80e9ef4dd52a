package models

import "gorm.io/gorm"

// Institution is an issuing body identified by its wallet address. Only
// authorized institutions can issue certificates, and the authorized flag
// feeds the verification security score.
type Institution struct {
	gorm.Model
	Name          string `gorm:"not null"`
	WalletAddress string `gorm:"uniqueIndex;not null"`
	Authorized    bool   `gorm:"not null;default:true"`
	APIKeyHash    string `gorm:"not null"` // bcrypt hash of the issued API key
}

package models

import (
	"time"

	"gorm.io/gorm"
)

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "PENDING"
	OutboxDelivered OutboxStatus = "DELIVERED"
	OutboxDead      OutboxStatus = "DEAD"
)

// Outbox entry kinds.
const (
	OutboxKindCertificate     = "certificate_record"
	OutboxKindVerificationLog = "verification_log"
)

// OutboxEntry queues a failed database write for bounded retry. A certificate
// already confirmed on chain must eventually get its index row even if the
// first insert fails.
type OutboxEntry struct {
	gorm.Model
	Kind        string       `gorm:"index;not null"`
	Payload     string       `gorm:"type:json;not null"`
	Attempts    int          `gorm:"not null;default:0"`
	NextAttempt time.Time    `gorm:"index"`
	Status      OutboxStatus `gorm:"index;not null;default:'PENDING'"`
	LastError   string
}

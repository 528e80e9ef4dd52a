package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/config"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/repository"
)

const outboxBatchSize = 20

// OutboxService drains queued database writes that failed inline: certificate
// index rows whose chain write already confirmed, and verification log
// entries. Attempts are bounded; exhausted entries are parked as DEAD.
type OutboxService struct {
	outboxRepo repository.OutboxRepository
	certRepo   repository.CertificateRepository
	logRepo    repository.VerificationLogRepository
	cfg        config.OutboxConfig
	logger     *zap.Logger
}

func NewOutboxService(
	outboxRepo repository.OutboxRepository,
	certRepo repository.CertificateRepository,
	logRepo repository.VerificationLogRepository,
	cfg config.OutboxConfig,
	logger *zap.Logger,
) *OutboxService {
	return &OutboxService{
		outboxRepo: outboxRepo,
		certRepo:   certRepo,
		logRepo:    logRepo,
		cfg:        cfg,
		logger:     logger.With(zap.String("service", "outbox")),
	}
}

// Start runs the drain loop until ctx is canceled.
func (s *OutboxService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.DrainOnce(ctx)
			}
		}
	}()
}

// DrainOnce processes one batch of due entries.
func (s *OutboxService) DrainOnce(ctx context.Context) {
	entries, err := s.outboxRepo.ListDue(ctx, time.Now(), outboxBatchSize)
	if err != nil {
		s.logger.Error("failed to list due outbox entries", zap.Error(err))
		return
	}

	for _, entry := range entries {
		if err := s.deliver(ctx, entry); err != nil {
			s.recordFailure(ctx, entry, err)
			continue
		}
		if err := s.outboxRepo.MarkDelivered(ctx, entry.ID); err != nil {
			s.logger.Error("failed to mark outbox entry delivered",
				zap.Uint("entry_id", entry.ID), zap.Error(err))
		}
	}
}

func (s *OutboxService) deliver(ctx context.Context, entry *models.OutboxEntry) error {
	switch entry.Kind {
	case models.OutboxKindCertificate:
		var record models.Certificate
		if err := json.Unmarshal([]byte(entry.Payload), &record); err != nil {
			return err
		}
		err := s.certRepo.Create(ctx, &record)
		if errors.Is(err, repository.ErrDuplicateCertificate) {
			// Someone already delivered it; done.
			return nil
		}
		return err
	case models.OutboxKindVerificationLog:
		var logEntry models.VerificationLog
		if err := json.Unmarshal([]byte(entry.Payload), &logEntry); err != nil {
			return err
		}
		return s.logRepo.Append(ctx, &logEntry)
	default:
		return errors.New("unknown outbox kind: " + entry.Kind)
	}
}

func (s *OutboxService) recordFailure(ctx context.Context, entry *models.OutboxEntry, cause error) {
	attempts := entry.Attempts + 1
	if attempts >= s.cfg.MaxAttempts {
		s.logger.Error("outbox entry exhausted its attempts",
			zap.Uint("entry_id", entry.ID),
			zap.String("kind", entry.Kind),
			zap.Error(cause))
		if err := s.outboxRepo.MarkDead(ctx, entry.ID, cause.Error()); err != nil {
			s.logger.Error("failed to mark outbox entry dead", zap.Error(err))
		}
		return
	}

	next := time.Now().Add(s.backoffDelay(attempts))
	if err := s.outboxRepo.MarkFailed(ctx, entry.ID, attempts, next, cause.Error()); err != nil {
		s.logger.Error("failed to reschedule outbox entry", zap.Error(err))
	}
}

// backoffDelay doubles the initial interval per attempt.
func (s *OutboxService) backoffDelay(attempts int) time.Duration {
	delay := s.cfg.InitialInterval
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	const maxDelay = 10 * time.Minute
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/config"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/repository"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/qr"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/verify"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/pkg/metrics"
)

// ErrStoreUnavailable: the certificate store could not answer the lookup.
// This is an infrastructure failure, not a verdict; a document must never be
// reported as unregistered because the database was down.
var ErrStoreUnavailable = errors.New("certificate store unavailable")

// QRExtractor pulls the embedded QR payload out of an uploaded PDF.
type QRExtractor interface {
	Extract(data []byte) (*qr.Payload, error)
}

// ChainOracle is the boolean on-chain validity check.
type ChainOracle interface {
	VerifyCertificate(ctx context.Context, certificateID string) (bool, error)
}

type VerificationService struct {
	certRepo   repository.CertificateRepository
	logRepo    repository.VerificationLogRepository
	instRepo   repository.InstitutionRepository
	outboxRepo repository.OutboxRepository
	pipeline   Fingerprinter
	qrExtract  QRExtractor
	oracle     ChainOracle
	weights    config.ScoringConfig
	logger     *zap.Logger
	metrics    *metrics.MetricsCollector
}

func NewVerificationService(
	certRepo repository.CertificateRepository,
	logRepo repository.VerificationLogRepository,
	instRepo repository.InstitutionRepository,
	outboxRepo repository.OutboxRepository,
	pipeline Fingerprinter,
	qrExtract QRExtractor,
	oracle ChainOracle,
	weights config.ScoringConfig,
	logger *zap.Logger,
	collector *metrics.MetricsCollector,
) *VerificationService {
	return &VerificationService{
		certRepo:   certRepo,
		logRepo:    logRepo,
		instRepo:   instRepo,
		outboxRepo: outboxRepo,
		pipeline:   pipeline,
		qrExtract:  qrExtract,
		oracle:     oracle,
		weights:    weights,
		logger:     logger.With(zap.String("service", "verification")),
		metrics:    collector,
	}
}

// Verify recomputes the document's hashes, cross-checks store and chain, and
// reconciles everything into a verdict. A verification log entry is written
// for every attempt, successful or not.
func (s *VerificationService) Verify(ctx context.Context, pdfData []byte, verifierAddress string) (*verify.Verdict, error) {
	start := time.Now()

	var ocrHash string
	fp, err := s.pipeline.Fingerprint(ctx, pdfData)
	if err != nil {
		// A missing OCR hash is survivable as long as the QR payload is
		// readable.
		s.logger.Warn("fingerprinting failed during verification", zap.Error(err))
	} else {
		ocrHash = fp.Hash
	}

	var qrHash string
	if payload, err := s.qrExtract.Extract(pdfData); err != nil {
		s.logger.Debug("no QR payload extracted", zap.Error(err))
	} else {
		qrHash = payload.Hash
	}

	evidence, err := verify.Classify(ocrHash, qrHash)
	if err != nil {
		s.appendLog(ctx, "", verifierAddress, false, map[string]interface{}{"error": "no hash evidence"})
		s.metrics.IncrementCounter("verifications_failed", map[string]string{"reason": "no_evidence"})
		return nil, err
	}

	record, matchPath, err := s.lookupRecord(ctx, evidence)
	if err != nil {
		s.logger.Error("certificate store lookup failed", zap.Error(err))
		s.metrics.IncrementCounter("verifications_failed", map[string]string{"reason": "store_unavailable"})
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	signals := verify.Signals{
		Evidence:  evidence,
		Record:    record,
		MatchPath: matchPath,
	}

	if record != nil {
		valid, err := s.oracle.VerifyCertificate(ctx, record.CertificateID)
		if err != nil {
			s.logger.Warn("chain verification failed",
				zap.String("certificate_id", record.CertificateID), zap.Error(err))
		} else {
			signals.ChainChecked = true
			signals.ChainValid = valid
		}

		signals.InstitutionAuthorized = s.institutionAuthorized(ctx, record.InstitutionWallet)
		signals.MetadataPlausible = verify.PlausibleMetadata(record)
	}

	verdict := verify.Reconcile(signals, s.weights)

	s.appendLog(ctx, examinedHash(evidence), verifierAddress, verdict.Valid, verdict)

	s.metrics.IncrementCounter("verifications_total", map[string]string{"valid": boolLabel(verdict.Valid)})
	s.metrics.ObserveLatency("verification", time.Since(start))

	s.logger.Info("Verification completed",
		zap.String("evidence", string(evidence.Kind)),
		zap.String("match_path", string(verdict.MatchPath)),
		zap.Bool("valid", verdict.Valid),
		zap.Int("score", verdict.Score),
		zap.String("reason", verdict.Reason))

	return verdict, nil
}

// ListRecent returns the newest verification log entries.
func (s *VerificationService) ListRecent(ctx context.Context, limit int) ([]*models.VerificationLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.logRepo.ListRecent(ctx, limit)
}

// lookupRecord searches by OCR hash first, then by QR hash. The path is the
// fallback one whenever the hit came from the QR hash alone. Only a definite
// not-found moves on to the next candidate; any other repository error is an
// infrastructure failure and must not be mistaken for "no record".
func (s *VerificationService) lookupRecord(ctx context.Context, evidence verify.Evidence) (*verify.Record, verify.MatchPath, error) {
	for _, candidate := range evidence.Candidates() {
		record, err := s.certRepo.GetByContentHash(ctx, candidate)
		if errors.Is(err, repository.ErrCertificateNotFound) {
			continue
		}
		if err != nil {
			return nil, verify.MatchNone, err
		}
		path := verify.MatchDirect
		if candidate != evidence.OCRHash {
			path = verify.MatchQRFallback
		}
		return &verify.Record{
			CertificateID:     record.CertificateID,
			ContentHash:       record.ContentHash,
			StudentName:       record.StudentName,
			RollNumber:        record.RollNumber,
			Course:            record.Course,
			InstitutionWallet: record.InstitutionWallet,
			Revoked:           record.Revoked,
		}, path, nil
	}
	return nil, verify.MatchNone, nil
}

func (s *VerificationService) institutionAuthorized(ctx context.Context, wallet string) bool {
	inst, err := s.instRepo.GetByWallet(ctx, wallet)
	if err != nil {
		return false
	}
	return inst.Authorized
}

// appendLog writes the append-only trail entry, falling back to the outbox
// when the insert fails.
func (s *VerificationService) appendLog(ctx context.Context, hash, verifier string, result bool, details interface{}) {
	blob, err := json.Marshal(details)
	if err != nil {
		blob = []byte("{}")
	}
	entry := &models.VerificationLog{
		HashExamined:    hash,
		VerifierAddress: verifier,
		Result:          result,
		Details:         string(blob),
		VerifiedAt:      time.Now(),
	}
	if err := s.logRepo.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append verification log, queueing outbox entry", zap.Error(err))
		payload, merr := json.Marshal(entry)
		if merr != nil {
			return
		}
		if qerr := s.outboxRepo.Enqueue(ctx, &models.OutboxEntry{
			Kind:    models.OutboxKindVerificationLog,
			Payload: string(payload),
		}); qerr != nil {
			s.logger.Error("failed to enqueue verification log", zap.Error(qerr))
		}
	}
}

func examinedHash(evidence verify.Evidence) string {
	if evidence.OCRHash != "" {
		return evidence.OCRHash
	}
	return evidence.QRHash
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

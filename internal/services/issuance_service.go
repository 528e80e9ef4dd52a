package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/chain"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/repository"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/fingerprint"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/qr"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/pkg/metrics"
)

var (
	ErrInstitutionNotAuthorized = errors.New("institution is not authorized to issue certificates")
	ErrDuplicateDocument        = errors.New("a certificate with this content hash is already registered")

	// ErrPartialRegistration: the chain write confirmed but the index row
	// could not be stored. The certificate is registered on chain and the
	// row is queued for retry; the caller must not treat this as a plain
	// failure.
	ErrPartialRegistration = errors.New("certificate registered on chain but index record is pending")
)

// Fingerprinter derives the content hash of an uploaded document.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, data []byte) (*fingerprint.Fingerprint, error)
}

// RegistryWriter is the write side of the certificate registry contract.
type RegistryWriter interface {
	IssueCertificate(ctx context.Context, name, course, contentHash string, recipient common.Address) (*chain.CertificateIssuedEvent, *types.Receipt, error)
	RevokeCertificate(ctx context.Context, certificateID string) (*types.Receipt, error)
}

// IssueRequest carries the metadata supplied with the uploaded PDF.
type IssueRequest struct {
	StudentName       string
	RollNumber        string
	Course            string
	InstitutionWallet string
}

// IssueResult is returned on success (and, with PartialOnly set, on partial
// registration).
type IssueResult struct {
	Record      *models.Certificate
	Fingerprint *fingerprint.Fingerprint
	StampedPDF  []byte
	TxHash      string
}

type IssuanceService struct {
	certRepo   repository.CertificateRepository
	instRepo   repository.InstitutionRepository
	outboxRepo repository.OutboxRepository
	registry   RegistryWriter
	pipeline   Fingerprinter
	logger     *zap.Logger
	metrics    *metrics.MetricsCollector
}

func NewIssuanceService(
	certRepo repository.CertificateRepository,
	instRepo repository.InstitutionRepository,
	outboxRepo repository.OutboxRepository,
	registry RegistryWriter,
	pipeline Fingerprinter,
	logger *zap.Logger,
	collector *metrics.MetricsCollector,
) *IssuanceService {
	return &IssuanceService{
		certRepo:   certRepo,
		instRepo:   instRepo,
		outboxRepo: outboxRepo,
		registry:   registry,
		pipeline:   pipeline,
		logger:     logger.With(zap.String("service", "issuance")),
		metrics:    collector,
	}
}

// Issue fingerprints the uploaded PDF, registers the hash on chain, stores
// the index record, and returns the stamped certificate PDF carrying the QR
// payload.
func (s *IssuanceService) Issue(ctx context.Context, req IssueRequest, pdfData []byte) (*IssueResult, error) {
	start := time.Now()

	institution, err := s.instRepo.GetByWallet(ctx, req.InstitutionWallet)
	if err != nil {
		return nil, ErrInstitutionNotAuthorized
	}
	if !institution.Authorized {
		return nil, ErrInstitutionNotAuthorized
	}

	fp, err := s.pipeline.Fingerprint(ctx, pdfData)
	if err != nil {
		return nil, err
	}

	if _, err := s.certRepo.GetByContentHash(ctx, fp.Hash); err == nil {
		return nil, ErrDuplicateDocument
	} else if !errors.Is(err, repository.ErrCertificateNotFound) {
		return nil, err
	}

	event, receipt, err := s.registry.IssueCertificate(ctx, req.StudentName, req.Course, fp.Hash, common.HexToAddress(req.InstitutionWallet))
	if err != nil {
		s.metrics.IncrementCounter("issuance_chain_failures", nil)
		return nil, fmt.Errorf("chain registration failed: %w", err)
	}

	certificateID := common.Hash(event.CertificateID).Hex()
	issuedAt := time.Now()

	record := &models.Certificate{
		CertificateID:     certificateID,
		StudentName:       req.StudentName,
		RollNumber:        req.RollNumber,
		Course:            req.Course,
		ContentHash:       fp.Hash,
		InstitutionWallet: req.InstitutionWallet,
		TxHash:            receipt.TxHash.Hex(),
		IssuedAt:          issuedAt,
	}

	stamped, err := s.buildStampedPDF(req, fp.Hash, certificateID, institution.Name, issuedAt)
	if err != nil {
		s.logger.Warn("failed to build stamped pdf, returning record without it", zap.Error(err))
	}

	result := &IssueResult{
		Record:      record,
		Fingerprint: fp,
		StampedPDF:  stamped,
		TxHash:      receipt.TxHash.Hex(),
	}

	if err := s.createWithRetry(ctx, record); err != nil {
		s.logger.Error("index insert failed after chain confirmation, queueing outbox entry",
			zap.String("certificate_id", certificateID),
			zap.String("tx_hash", record.TxHash),
			zap.Error(err))
		s.enqueueCertificate(ctx, record)
		s.metrics.IncrementCounter("issuance_partial", nil)
		return result, ErrPartialRegistration
	}

	s.metrics.IncrementCounter("certificates_issued", nil)
	s.metrics.ObserveLatency("certificate_issue", time.Since(start))
	s.metrics.ObserveSize("issued_pdf_size", float64(len(stamped)))

	s.logger.Info("Certificate issued",
		zap.String("certificate_id", certificateID),
		zap.String("content_hash", fp.Hash),
		zap.String("method", string(fp.Method)),
		zap.String("tx_hash", record.TxHash))

	return result, nil
}

// Revoke flags the certificate on chain and in the index. Only the issuing
// institution may revoke.
func (s *IssuanceService) Revoke(ctx context.Context, certificateID, institutionWallet, reason string) error {
	record, err := s.certRepo.GetByCertificateID(ctx, certificateID)
	if err != nil {
		return err
	}
	if record.InstitutionWallet != institutionWallet {
		return ErrInstitutionNotAuthorized
	}
	if record.Revoked {
		return nil
	}

	if _, err := s.registry.RevokeCertificate(ctx, certificateID); err != nil {
		s.metrics.IncrementCounter("revocation_chain_failures", nil)
		return fmt.Errorf("chain revocation failed: %w", err)
	}

	if err := s.certRepo.MarkRevoked(ctx, certificateID, reason); err != nil {
		return err
	}

	s.metrics.IncrementCounter("certificates_revoked", nil)
	s.logger.Info("Certificate revoked",
		zap.String("certificate_id", certificateID),
		zap.String("reason", reason))
	return nil
}

func (s *IssuanceService) buildStampedPDF(req IssueRequest, contentHash, certificateID, institutionName string, issuedAt time.Time) ([]byte, error) {
	payload := &qr.Payload{
		Hash:          contentHash,
		CertificateID: certificateID,
		Issuer:        req.InstitutionWallet,
	}
	png, err := qr.EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	return qr.BuildCertificatePDF(&qr.CertificateDocument{
		StudentName:   req.StudentName,
		RollNumber:    req.RollNumber,
		Course:        req.Course,
		Institution:   institutionName,
		CertificateID: certificateID,
		IssuedAt:      issuedAt,
	}, png)
}

// createWithRetry retries the index insert a fixed number of times with
// exponential backoff. Duplicate-key conflicts are permanent and not retried.
func (s *IssuanceService) createWithRetry(ctx context.Context, record *models.Certificate) error {
	operation := func() error {
		err := s.certRepo.Create(ctx, record)
		if errors.Is(err, repository.ErrDuplicateCertificate) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(operation, policy)
}

func (s *IssuanceService) enqueueCertificate(ctx context.Context, record *models.Certificate) {
	payload, err := json.Marshal(record)
	if err != nil {
		s.logger.Error("failed to marshal outbox payload", zap.Error(err))
		return
	}
	entry := &models.OutboxEntry{
		Kind:    models.OutboxKindCertificate,
		Payload: string(payload),
	}
	if err := s.outboxRepo.Enqueue(ctx, entry); err != nil {
		s.logger.Error("failed to enqueue outbox entry; record is lost until re-issue",
			zap.String("certificate_id", record.CertificateID),
			zap.Error(err))
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/config"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/fingerprint"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/qr"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/verify"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/pkg/metrics"
)

var (
	knownHash   = strings.Repeat("ab", 32)
	unknownHash = strings.Repeat("cd", 32)
)

type verificationFixture struct {
	svc        *VerificationService
	certRepo   *fakeCertRepo
	logRepo    *fakeLogRepo
	instRepo   *fakeInstRepo
	outboxRepo *fakeOutboxRepo
	pipeline   *fakeFingerprinter
	qrExtract  *fakeQRExtractor
	oracle     *fakeOracle
}

func newVerificationFixture() *verificationFixture {
	f := &verificationFixture{
		certRepo:   newFakeCertRepo(),
		logRepo:    &fakeLogRepo{},
		instRepo:   newFakeInstRepo(),
		outboxRepo: &fakeOutboxRepo{},
		pipeline:   &fakeFingerprinter{},
		qrExtract:  &fakeQRExtractor{err: qr.ErrNoQRCode},
		oracle:     &fakeOracle{valid: make(map[string]bool)},
	}

	weights := config.ScoringConfig{
		DatabaseMatch: 30, ChainMatch: 30, NoTamper: 20,
		InstitutionSignal: 10, MetadataPlausible: 10, QRFallbackPenalty: 5,
	}

	f.svc = NewVerificationService(
		f.certRepo, f.logRepo, f.instRepo, f.outboxRepo,
		f.pipeline, f.qrExtract, f.oracle, weights,
		zap.NewNop(), metrics.NewMetricsCollector(),
	)
	return f
}

func (f *verificationFixture) storeRecord(hash string, revoked bool) *models.Certificate {
	record := &models.Certificate{
		CertificateID:     "CERT-1",
		StudentName:       "Jane Doe",
		Course:            "Distributed Systems",
		ContentHash:       hash,
		InstitutionWallet: testWallet,
		Revoked:           revoked,
	}
	f.certRepo.add(record)
	f.instRepo.byWallet[testWallet] = &models.Institution{
		Name: "Example Institute", WalletAddress: testWallet, Authorized: true,
	}
	return record
}

func (f *verificationFixture) setOCRHash(hash string) {
	f.pipeline.fp = &fingerprint.Fingerprint{Hash: hash, Method: fingerprint.MethodTextExtraction, Confidence: 1}
}

func (f *verificationFixture) setQRHash(hash string) {
	f.qrExtract.err = nil
	f.qrExtract.payload = &qr.Payload{Hash: hash}
}

func TestVerifyFullAgreement(t *testing.T) {
	f := newVerificationFixture()
	f.storeRecord(knownHash, false)
	f.setOCRHash(knownHash)
	f.setQRHash(knownHash)
	f.oracle.valid["CERT-1"] = true

	verdict, err := f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	require.NoError(t, err)

	assert.True(t, verdict.Valid)
	assert.Equal(t, verify.ReasonValid, verdict.Reason)
	assert.Equal(t, verify.EvidenceBothAgree, verdict.Evidence.Kind)
	assert.Equal(t, 100, verdict.Score)
	assert.False(t, verdict.Tampered)
}

func TestVerifyNotFound(t *testing.T) {
	f := newVerificationFixture()
	f.setOCRHash(unknownHash)

	verdict, err := f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	require.NoError(t, err)

	assert.False(t, verdict.Valid)
	assert.Equal(t, verify.ReasonNotFound, verdict.Reason)
	assert.Equal(t, verify.EvidenceOCROnly, verdict.Evidence.Kind)
}

func TestVerifyStoreOutageIsNotNotFound(t *testing.T) {
	// A registered document must not be reported as unregistered just
	// because the index could not answer the lookup.
	f := newVerificationFixture()
	f.storeRecord(knownHash, false)
	f.setOCRHash(knownHash)
	f.oracle.valid["CERT-1"] = true
	f.certRepo.getErr = errors.New("connection refused")

	verdict, err := f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Nil(t, verdict)

	// No log entry claiming the document is unknown.
	assert.Empty(t, f.logRepo.entries)
}

func TestVerifyRevoked(t *testing.T) {
	f := newVerificationFixture()
	f.storeRecord(knownHash, true)
	f.setOCRHash(knownHash)
	f.setQRHash(knownHash)
	f.oracle.valid["CERT-1"] = true

	verdict, err := f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	require.NoError(t, err)

	assert.False(t, verdict.Valid)
	assert.Equal(t, verify.ReasonRevoked, verdict.Reason)
}

func TestVerifyQRFallbackPath(t *testing.T) {
	// OCR of a stamped reprint differs from the original, but the QR payload
	// still carries the registered hash.
	f := newVerificationFixture()
	f.storeRecord(knownHash, false)
	f.setOCRHash(unknownHash)
	f.setQRHash(knownHash)
	f.oracle.valid["CERT-1"] = true

	verdict, err := f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	require.NoError(t, err)

	assert.True(t, verdict.Valid)
	assert.Equal(t, verify.MatchQRFallback, verdict.MatchPath)
	assert.False(t, verdict.Tampered, "database match is authoritative over the hash mismatch")
	assert.Less(t, verdict.Score, 100)
}

func TestVerifyFingerprintFailureStillUsesQR(t *testing.T) {
	f := newVerificationFixture()
	f.storeRecord(knownHash, false)
	f.pipeline.err = fingerprint.ErrInsufficientText
	f.setQRHash(knownHash)
	f.oracle.valid["CERT-1"] = true

	verdict, err := f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	require.NoError(t, err)

	assert.True(t, verdict.Valid)
	assert.Equal(t, verify.EvidenceQROnly, verdict.Evidence.Kind)
}

func TestVerifyNoEvidence(t *testing.T) {
	f := newVerificationFixture()
	f.pipeline.err = fingerprint.ErrInsufficientText

	_, err := f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	assert.ErrorIs(t, err, verify.ErrNoEvidence)

	// The failed attempt is still logged.
	require.Len(t, f.logRepo.entries, 1)
	assert.False(t, f.logRepo.entries[0].Result)
}

func TestVerifyChainLookupFailureIsNotChainMatch(t *testing.T) {
	f := newVerificationFixture()
	f.storeRecord(knownHash, false)
	f.setOCRHash(knownHash)
	f.oracle.err = errors.New("rpc unavailable")

	verdict, err := f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	require.NoError(t, err)

	assert.False(t, verdict.Valid)
	assert.False(t, verdict.ChainMatch)
	assert.Equal(t, verify.ReasonChainMismatch, verdict.Reason)
}

func TestVerifyAlwaysAppendsLog(t *testing.T) {
	f := newVerificationFixture()
	f.storeRecord(knownHash, false)
	f.setOCRHash(knownHash)
	f.oracle.valid["CERT-1"] = true

	_, err := f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	require.NoError(t, err)
	_, err = f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	require.NoError(t, err)

	assert.Len(t, f.logRepo.entries, 2)
	assert.Equal(t, knownHash, f.logRepo.entries[0].HashExamined)
	assert.Equal(t, "0xverifier", f.logRepo.entries[0].VerifierAddress)
}

func TestVerifyLogFailureFallsBackToOutbox(t *testing.T) {
	f := newVerificationFixture()
	f.storeRecord(knownHash, false)
	f.setOCRHash(knownHash)
	f.oracle.valid["CERT-1"] = true
	f.logRepo.appendErr = errors.New("connection refused")

	_, err := f.svc.Verify(context.Background(), []byte("%PDF"), "0xverifier")
	require.NoError(t, err)

	require.Len(t, f.outboxRepo.entries, 1)
	assert.Equal(t, models.OutboxKindVerificationLog, f.outboxRepo.entries[0].Kind)
}

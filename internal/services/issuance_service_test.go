package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/fingerprint"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/pkg/metrics"
)

const (
	testWallet = "0x00000000000000000000000000000000000000cc"
	testHash   = "abababababababababababababababababababababababababababababababab"
)

func issuedIDHash() common.Hash {
	return common.HexToHash("0x" + strings.Repeat("42", 32))
}

func newIssuanceFixture() (*IssuanceService, *fakeCertRepo, *fakeInstRepo, *fakeOutboxRepo, *fakeRegistry) {
	certRepo := newFakeCertRepo()
	instRepo := newFakeInstRepo()
	outboxRepo := &fakeOutboxRepo{}
	registry := &fakeRegistry{issuedID: issuedIDHash()}

	instRepo.byWallet[testWallet] = &models.Institution{
		Name: "Example Institute", WalletAddress: testWallet, Authorized: true,
	}

	pipeline := &fakeFingerprinter{fp: &fingerprint.Fingerprint{
		Hash:       testHash,
		Method:     fingerprint.MethodTextExtraction,
		Confidence: 1.0,
	}}

	svc := NewIssuanceService(certRepo, instRepo, outboxRepo, registry, pipeline,
		zap.NewNop(), metrics.NewMetricsCollector())
	return svc, certRepo, instRepo, outboxRepo, registry
}

func validIssueRequest() IssueRequest {
	return IssueRequest{
		StudentName:       "Jane Doe",
		RollNumber:        "R-42",
		Course:            "Distributed Systems",
		InstitutionWallet: testWallet,
	}
}

func TestIssueSuccess(t *testing.T) {
	svc, certRepo, _, _, _ := newIssuanceFixture()

	result, err := svc.Issue(context.Background(), validIssueRequest(), []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, issuedIDHash().Hex(), result.Record.CertificateID)
	assert.Equal(t, testHash, result.Record.ContentHash)
	assert.Len(t, certRepo.created, 1)
	assert.True(t, strings.HasPrefix(string(result.StampedPDF), "%PDF"))
	assert.NotEmpty(t, result.TxHash)
}

func TestIssueUnauthorizedInstitution(t *testing.T) {
	svc, _, instRepo, _, _ := newIssuanceFixture()
	instRepo.byWallet[testWallet].Authorized = false

	_, err := svc.Issue(context.Background(), validIssueRequest(), []byte("%PDF"))
	assert.ErrorIs(t, err, ErrInstitutionNotAuthorized)
}

func TestIssueUnknownInstitution(t *testing.T) {
	svc, _, _, _, _ := newIssuanceFixture()

	req := validIssueRequest()
	req.InstitutionWallet = "0x00000000000000000000000000000000000000dd"
	_, err := svc.Issue(context.Background(), req, []byte("%PDF"))
	assert.ErrorIs(t, err, ErrInstitutionNotAuthorized)
}

func TestIssueDuplicateHash(t *testing.T) {
	svc, certRepo, _, _, registry := newIssuanceFixture()
	certRepo.add(&models.Certificate{CertificateID: "CERT-0", ContentHash: testHash})

	_, err := svc.Issue(context.Background(), validIssueRequest(), []byte("%PDF"))
	assert.ErrorIs(t, err, ErrDuplicateDocument)
	assert.Empty(t, registry.revokedIDs, "no chain interaction on duplicate")
}

func TestIssueChainFailureSurfaced(t *testing.T) {
	svc, certRepo, _, outboxRepo, registry := newIssuanceFixture()
	registry.issueErr = errors.New("insufficient funds for gas")

	_, err := svc.Issue(context.Background(), validIssueRequest(), []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain registration failed")
	assert.Empty(t, certRepo.created, "no index row without chain confirmation")
	assert.Empty(t, outboxRepo.entries)
}

func TestIssuePartialRegistration(t *testing.T) {
	svc, certRepo, _, outboxRepo, _ := newIssuanceFixture()
	certRepo.createErr = errors.New("connection refused")

	result, err := svc.Issue(context.Background(), validIssueRequest(), []byte("%PDF"))

	assert.ErrorIs(t, err, ErrPartialRegistration)
	// The caller still learns what was registered on chain.
	require.NotNil(t, result)
	assert.Equal(t, issuedIDHash().Hex(), result.Record.CertificateID)

	require.Len(t, outboxRepo.entries, 1)
	assert.Equal(t, models.OutboxKindCertificate, outboxRepo.entries[0].Kind)
}

func TestRevoke(t *testing.T) {
	svc, certRepo, _, _, registry := newIssuanceFixture()
	certRepo.add(&models.Certificate{
		CertificateID:     "CERT-1",
		ContentHash:       testHash,
		InstitutionWallet: testWallet,
	})

	err := svc.Revoke(context.Background(), "CERT-1", testWallet, "issued in error")
	require.NoError(t, err)

	assert.True(t, certRepo.byID["CERT-1"].Revoked)
	assert.Equal(t, []string{"CERT-1"}, registry.revokedIDs)
}

func TestRevokeWrongInstitution(t *testing.T) {
	svc, certRepo, _, _, _ := newIssuanceFixture()
	certRepo.add(&models.Certificate{
		CertificateID:     "CERT-1",
		ContentHash:       testHash,
		InstitutionWallet: "0x00000000000000000000000000000000000000ee",
	})

	err := svc.Revoke(context.Background(), "CERT-1", testWallet, "nope")
	assert.ErrorIs(t, err, ErrInstitutionNotAuthorized)
}

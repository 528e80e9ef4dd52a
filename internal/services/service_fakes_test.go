package services

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/chain"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/repository"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/fingerprint"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/qr"
)

// In-memory repository fakes shared by the issuance and verification tests.

type fakeCertRepo struct {
	byHash    map[string]*models.Certificate
	byID      map[string]*models.Certificate
	createErr error
	getErr    error
	created   []*models.Certificate
}

func newFakeCertRepo() *fakeCertRepo {
	return &fakeCertRepo{
		byHash: make(map[string]*models.Certificate),
		byID:   make(map[string]*models.Certificate),
	}
}

func (f *fakeCertRepo) add(record *models.Certificate) {
	f.byHash[record.ContentHash] = record
	f.byID[record.CertificateID] = record
}

func (f *fakeCertRepo) Create(ctx context.Context, record *models.Certificate) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byHash[record.ContentHash]; exists {
		return repository.ErrDuplicateCertificate
	}
	f.add(record)
	f.created = append(f.created, record)
	return nil
}

func (f *fakeCertRepo) GetByCertificateID(ctx context.Context, id string) (*models.Certificate, error) {
	if record, ok := f.byID[id]; ok {
		return record, nil
	}
	return nil, repository.ErrCertificateNotFound
}

func (f *fakeCertRepo) GetByContentHash(ctx context.Context, hash string) (*models.Certificate, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if record, ok := f.byHash[hash]; ok {
		return record, nil
	}
	return nil, repository.ErrCertificateNotFound
}

func (f *fakeCertRepo) MarkRevoked(ctx context.Context, id, reason string) error {
	record, ok := f.byID[id]
	if !ok {
		return repository.ErrCertificateNotFound
	}
	now := time.Now()
	record.Revoked = true
	record.RevocationReason = reason
	record.RevokedAt = &now
	return nil
}

func (f *fakeCertRepo) ListByInstitution(ctx context.Context, wallet string, limit int) ([]*models.Certificate, error) {
	var out []*models.Certificate
	for _, r := range f.byID {
		if r.InstitutionWallet == wallet {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeCertRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.byID)), nil
}

type fakeLogRepo struct {
	entries   []*models.VerificationLog
	appendErr error
}

func (f *fakeLogRepo) Append(ctx context.Context, entry *models.VerificationLog) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogRepo) ListRecent(ctx context.Context, limit int) ([]*models.VerificationLog, error) {
	if len(f.entries) > limit {
		return f.entries[len(f.entries)-limit:], nil
	}
	return f.entries, nil
}

func (f *fakeLogRepo) ListByHash(ctx context.Context, hash string, limit int) ([]*models.VerificationLog, error) {
	var out []*models.VerificationLog
	for _, e := range f.entries {
		if e.HashExamined == hash {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeInstRepo struct {
	byWallet map[string]*models.Institution
}

func newFakeInstRepo() *fakeInstRepo {
	return &fakeInstRepo{byWallet: make(map[string]*models.Institution)}
}

func (f *fakeInstRepo) Create(ctx context.Context, inst *models.Institution) error {
	if _, exists := f.byWallet[inst.WalletAddress]; exists {
		return repository.ErrDuplicateInstitution
	}
	f.byWallet[inst.WalletAddress] = inst
	return nil
}

func (f *fakeInstRepo) GetByWallet(ctx context.Context, wallet string) (*models.Institution, error) {
	if inst, ok := f.byWallet[wallet]; ok {
		return inst, nil
	}
	return nil, repository.ErrInstitutionNotFound
}

func (f *fakeInstRepo) List(ctx context.Context) ([]*models.Institution, error) {
	var out []*models.Institution
	for _, inst := range f.byWallet {
		out = append(out, inst)
	}
	return out, nil
}

func (f *fakeInstRepo) SetAuthorized(ctx context.Context, wallet string, authorized bool) error {
	inst, ok := f.byWallet[wallet]
	if !ok {
		return repository.ErrInstitutionNotFound
	}
	inst.Authorized = authorized
	return nil
}

type fakeOutboxRepo struct {
	entries []*models.OutboxEntry
	nextID  uint
}

func (f *fakeOutboxRepo) Enqueue(ctx context.Context, entry *models.OutboxEntry) error {
	f.nextID++
	entry.ID = f.nextID
	if entry.Status == "" {
		entry.Status = models.OutboxPending
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeOutboxRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.OutboxEntry, error) {
	var due []*models.OutboxEntry
	for _, e := range f.entries {
		if e.Status == models.OutboxPending && !e.NextAttempt.After(now) {
			due = append(due, e)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeOutboxRepo) find(id uint) *models.OutboxEntry {
	for _, e := range f.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (f *fakeOutboxRepo) MarkDelivered(ctx context.Context, id uint) error {
	if e := f.find(id); e != nil {
		e.Status = models.OutboxDelivered
	}
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id uint, attempts int, nextAttempt time.Time, lastError string) error {
	if e := f.find(id); e != nil {
		e.Attempts = attempts
		e.NextAttempt = nextAttempt
		e.LastError = lastError
	}
	return nil
}

func (f *fakeOutboxRepo) MarkDead(ctx context.Context, id uint, lastError string) error {
	if e := f.find(id); e != nil {
		e.Status = models.OutboxDead
		e.LastError = lastError
	}
	return nil
}

// Domain fakes.

type fakeFingerprinter struct {
	fp  *fingerprint.Fingerprint
	err error
}

func (f *fakeFingerprinter) Fingerprint(ctx context.Context, data []byte) (*fingerprint.Fingerprint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fp, nil
}

type fakeQRExtractor struct {
	payload *qr.Payload
	err     error
}

func (f *fakeQRExtractor) Extract(data []byte) (*qr.Payload, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

type fakeRegistry struct {
	issueErr   error
	revokeErr  error
	issuedID   common.Hash
	revokedIDs []string
}

func (f *fakeRegistry) IssueCertificate(ctx context.Context, name, course, contentHash string, recipient common.Address) (*chain.CertificateIssuedEvent, *types.Receipt, error) {
	if f.issueErr != nil {
		return nil, nil, f.issueErr
	}
	receipt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: common.HexToHash("0x" + strings.Repeat("77", 32)),
	}
	return &chain.CertificateIssuedEvent{
		CertificateID: [32]byte(f.issuedID),
		Institution:   recipient,
		ContentHash:   contentHash,
	}, receipt, nil
}

func (f *fakeRegistry) RevokeCertificate(ctx context.Context, certificateID string) (*types.Receipt, error) {
	if f.revokeErr != nil {
		return nil, f.revokeErr
	}
	f.revokedIDs = append(f.revokedIDs, certificateID)
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

type fakeOracle struct {
	valid map[string]bool
	err   error
}

func (f *fakeOracle) VerifyCertificate(ctx context.Context, certificateID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.valid[certificateID], nil
}

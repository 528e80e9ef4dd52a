package verify

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/config"
)

// MatchPath says how the stored record was found.
type MatchPath string

const (
	MatchNone       MatchPath = "none"
	MatchDirect     MatchPath = "ocr-hash"   // found under the OCR-derived hash
	MatchQRFallback MatchPath = "qr-fallback" // found only under the QR-derived hash
)

// Record is the stored certificate view the reconciler needs.
type Record struct {
	CertificateID     string
	ContentHash       string
	StudentName       string
	RollNumber        string
	Course            string
	InstitutionWallet string
	Revoked           bool
}

var rollNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9/_-]*$`)

// PlausibleMetadata reports whether a stored record looks like a genuine
// issuance: non-blank student and course, a well-formed issuer wallet, and a
// roll number in the usual registrar shape when one is present. Records can
// arrive through the outbox replay path, so the shape is not guaranteed by
// the issue handler alone.
func PlausibleMetadata(r *Record) bool {
	if r == nil {
		return false
	}
	if strings.TrimSpace(r.StudentName) == "" || strings.TrimSpace(r.Course) == "" {
		return false
	}
	if !common.IsHexAddress(r.InstitutionWallet) {
		return false
	}
	if r.RollNumber != "" && !rollNumberPattern.MatchString(r.RollNumber) {
		return false
	}
	return true
}

// Signals gathers the independent inputs to reconciliation.
type Signals struct {
	Evidence  Evidence
	Record    *Record   // nil when no stored record matched either hash
	MatchPath MatchPath

	ChainChecked bool // false when the chain lookup itself failed
	ChainValid   bool

	InstitutionAuthorized bool
	MetadataPlausible     bool
}

// Verdict reasons, also persisted into the verification log.
const (
	ReasonValid         = "certificate verified"
	ReasonNotFound      = "not found in records"
	ReasonRevoked       = "revoked"
	ReasonChainMismatch = "not confirmed on chain"
	ReasonHashMismatch  = "content hash mismatch"
)

// Verdict is the reconciled outcome of one verification attempt.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`

	Evidence  Evidence  `json:"evidence"`
	MatchPath MatchPath `json:"match_path"`
	Tampered  bool      `json:"tampered"`

	DatabaseMatch bool    `json:"database_match"`
	ChainMatch    bool    `json:"chain_match"`
	Record        *Record `json:"record,omitempty"`
}

// Reconcile combines the signals under the configured score weights.
//
// Rules, in order:
//   - tampered only when both hashes are present, disagree, and neither
//     matched a stored record: a database match by either variant is
//     authoritative over a raw OCR/QR mismatch;
//   - validity requires database match AND chain match AND not revoked AND
//     (hashes agree OR the match came via the QR fallback path);
//   - the score is additive over the independent checks, capped at 100,
//     minus a small penalty when only the fallback path authenticated.
func Reconcile(s Signals, weights config.ScoringConfig) *Verdict {
	dbMatch := s.Record != nil
	chainMatch := s.ChainChecked && s.ChainValid
	revoked := dbMatch && s.Record.Revoked
	tampered := s.Evidence.HashesDisagree() && !dbMatch

	hashesConsistent := !s.Evidence.HashesDisagree()
	valid := dbMatch && chainMatch && !revoked &&
		(hashesConsistent || s.MatchPath == MatchQRFallback)

	v := &Verdict{
		Valid:         valid,
		Reason:        reason(dbMatch, chainMatch, revoked, hashesConsistent, s.MatchPath),
		Evidence:      s.Evidence,
		MatchPath:     s.MatchPath,
		Tampered:      tampered,
		DatabaseMatch: dbMatch,
		ChainMatch:    chainMatch,
		Record:        s.Record,
	}

	score := 0
	if dbMatch {
		score += weights.DatabaseMatch
	}
	if chainMatch {
		score += weights.ChainMatch
	}
	if !tampered {
		score += weights.NoTamper
	}
	if s.InstitutionAuthorized {
		score += weights.InstitutionSignal
	}
	if s.MetadataPlausible {
		score += weights.MetadataPlausible
	}
	if s.MatchPath == MatchQRFallback {
		score -= weights.QRFallbackPenalty
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	v.Score = score

	return v
}

func reason(dbMatch, chainMatch, revoked, hashesConsistent bool, path MatchPath) string {
	switch {
	case !dbMatch:
		return ReasonNotFound
	case revoked:
		return ReasonRevoked
	case !chainMatch:
		return ReasonChainMismatch
	case !hashesConsistent && path != MatchQRFallback:
		return ReasonHashMismatch
	default:
		return ReasonValid
	}
}

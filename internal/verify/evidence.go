// Package verify reconciles the independent verification signals (the
// OCR-derived hash, the QR-derived hash, the stored certificate record, and
// the on-chain validity flag) into a single verdict with a security score.
package verify

import "errors"

var ErrNoEvidence = errors.New("no usable hash evidence in document")

// EvidenceKind tags which hash sources were present and whether they agree.
type EvidenceKind string

const (
	EvidenceOCROnly      EvidenceKind = "ocr-only"
	EvidenceQROnly       EvidenceKind = "qr-only"
	EvidenceBothAgree    EvidenceKind = "both-agree"
	EvidenceBothDisagree EvidenceKind = "both-disagree"
)

// Evidence is the tagged union of hash sources extracted from an uploaded
// document. Hashes are normalized (64 lowercase hex, unprefixed); an empty
// string means the source was absent.
type Evidence struct {
	Kind    EvidenceKind `json:"kind"`
	OCRHash string       `json:"ocr_hash,omitempty"`
	QRHash  string       `json:"qr_hash,omitempty"`
}

// Classify builds the evidence union from whichever hashes were extracted.
func Classify(ocrHash, qrHash string) (Evidence, error) {
	switch {
	case ocrHash == "" && qrHash == "":
		return Evidence{}, ErrNoEvidence
	case qrHash == "":
		return Evidence{Kind: EvidenceOCROnly, OCRHash: ocrHash}, nil
	case ocrHash == "":
		return Evidence{Kind: EvidenceQROnly, QRHash: qrHash}, nil
	case ocrHash == qrHash:
		return Evidence{Kind: EvidenceBothAgree, OCRHash: ocrHash, QRHash: qrHash}, nil
	default:
		return Evidence{Kind: EvidenceBothDisagree, OCRHash: ocrHash, QRHash: qrHash}, nil
	}
}

// HashesDisagree reports whether both sources were present and differ.
func (e Evidence) HashesDisagree() bool {
	return e.Kind == EvidenceBothDisagree
}

// Candidates returns the hashes to try against the store, OCR hash first
// (the QR hash is the fallback lookup path).
func (e Evidence) Candidates() []string {
	var out []string
	if e.OCRHash != "" {
		out = append(out, e.OCRHash)
	}
	if e.QRHash != "" && e.QRHash != e.OCRHash {
		out = append(out, e.QRHash)
	}
	return out
}

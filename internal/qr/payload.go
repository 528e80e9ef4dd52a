// Package qr embeds the content hash into issued certificates as a QR code
// and extracts it back out at verification time.
package qr

import (
	"encoding/json"
	"errors"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/hashutil"
)

var ErrNoQRCode = errors.New("no qr code found in document")

// Payload is the JSON document carried by the embedded QR code. Only Hash is
// required; the rest is convenience metadata for offline inspection.
type Payload struct {
	Hash          string `json:"hash"`
	CertificateID string `json:"certificate_id,omitempty"`
	Issuer        string `json:"issuer,omitempty"`
}

// ParsePayload decodes a scanned QR text. Structured JSON is preferred; a
// bare 64-hex string (optionally 0x-prefixed) is accepted as the hash itself.
func ParsePayload(raw string) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err == nil && p.Hash != "" {
		normalized, err := hashutil.Normalize(p.Hash)
		if err != nil {
			return nil, err
		}
		p.Hash = normalized
		return &p, nil
	}

	normalized, err := hashutil.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return &Payload{Hash: normalized}, nil
}

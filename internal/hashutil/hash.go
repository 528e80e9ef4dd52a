// Package hashutil holds the content-hash helpers shared by issuance and
// verification: SHA-256 fingerprints are stored as 64-character lowercase hex
// without a 0x prefix, and prefixed only at the chain boundary.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const HashLength = 64

var ErrMalformedHash = errors.New("malformed content hash: want 64 hex characters")

// Sum returns the lowercase hex SHA-256 digest of data.
func Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// Normalize lowercases the hash and strips an optional 0x prefix, validating
// the result. All database lookups go through this first.
func Normalize(hash string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(hash))
	h = strings.TrimPrefix(h, "0x")
	if !IsContentHash(h) {
		return "", ErrMalformedHash
	}
	return h, nil
}

// IsContentHash reports whether s is exactly 64 lowercase hex characters.
func IsContentHash(s string) bool {
	if len(s) != HashLength {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Add0xPrefix prefixes the hash for on-chain use. Idempotent: an already
// prefixed hash is returned unchanged.
func Add0xPrefix(hash string) string {
	if strings.HasPrefix(hash, "0x") || strings.HasPrefix(hash, "0X") {
		return hash
	}
	return "0x" + hash
}

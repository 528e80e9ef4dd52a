// Package ocr wraps local optical character recognition behind a small
// interface so the fingerprint pipeline can be tested without a tesseract
// installation.
package ocr

import (
	"context"
	"errors"
	"unicode"
)

var ErrNoText = errors.New("ocr produced no text")

// Result is one page worth of recognized text. Confidence is in [0,1];
// tesseract does not report a usable aggregate score through this binding, so
// it is estimated from the character quality of the output.
type Result struct {
	Text       string
	Confidence float64
}

// Engine recognizes text in a rasterized page image (PNG bytes).
type Engine interface {
	Recognize(ctx context.Context, png []byte) (*Result, error)
}

// EstimateConfidence scores OCR output by the share of characters that look
// like real prose (letters, digits, common punctuation, whitespace). Scanned
// noise decodes into symbol soup and scores low.
func EstimateConfidence(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	var clean, total int
	for _, r := range text {
		total++
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			clean++
		case unicode.IsSpace(r):
			clean++
		case r == '.' || r == ',' || r == ':' || r == '-' || r == '\'':
			clean++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(clean) / float64(total)
}

package fingerprint

import (
	"strings"
	"unicode"
)

// NormalizeText canonicalizes extracted text before hashing: case fold, strip
// everything but letters/digits/spaces, collapse whitespace, drop the
// configured boilerplate stop words. The same document must normalize to the
// same string whether it came from the text layer, local OCR, or the vision
// model.
func NormalizeText(text string, stopWords []string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		default:
			sb.WriteRune(' ')
		}
	}

	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		stop[strings.ToLower(w)] = struct{}{}
	}

	fields := strings.Fields(sb.String())
	kept := fields[:0]
	for _, f := range fields {
		if _, skip := stop[f]; skip {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

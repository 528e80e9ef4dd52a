package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateConfidence(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  float64
		max  float64
	}{
		{name: "empty", text: "", min: 0, max: 0},
		{name: "clean_prose", text: "This certificate is awarded to Jane Doe.", min: 0.95, max: 1.0},
		{name: "symbol_soup", text: "@#$%^&*()_+=[]{}|<>~`@#$%", min: 0, max: 0.2},
		{name: "mixed", text: "Jane Doe ###@@@ Course", min: 0.5, max: 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateConfidence(tt.text)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

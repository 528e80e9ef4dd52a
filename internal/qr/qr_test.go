package qr

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHash = strings.Repeat("ab", 32)

func TestParsePayload(t *testing.T) {
	jsonPayload, _ := json.Marshal(Payload{Hash: testHash, CertificateID: "CERT-1", Issuer: "0xabc"})

	tests := []struct {
		name    string
		raw     string
		want    *Payload
		wantErr bool
	}{
		{
			name: "structured_json",
			raw:  string(jsonPayload),
			want: &Payload{Hash: testHash, CertificateID: "CERT-1", Issuer: "0xabc"},
		},
		{
			name: "bare_hash",
			raw:  testHash,
			want: &Payload{Hash: testHash},
		},
		{
			name: "prefixed_bare_hash",
			raw:  "0x" + testHash,
			want: &Payload{Hash: testHash},
		},
		{
			name:    "garbage",
			raw:     "not a hash and not json",
			wantErr: true,
		},
		{
			name:    "json_without_hash",
			raw:     `{"certificate_id":"CERT-1"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePayload(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := &Payload{Hash: testHash, CertificateID: "CERT-42", Issuer: "0xf00"}

	png, err := EncodePayload(payload)
	require.NoError(t, err)
	require.NotEmpty(t, png)

	decoded, err := DecodeImage(png)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestDecodeImageNoCode(t *testing.T) {
	// A QR-less PNG: reuse the encoder's output format by encoding then
	// cropping is fragile; a plain white image is enough here.
	_, err := DecodeImage([]byte("not an image"))
	assert.Error(t, err)
}

func TestBuildCertificatePDF(t *testing.T) {
	png, err := EncodePayload(&Payload{Hash: testHash})
	require.NoError(t, err)

	pdfBytes, err := BuildCertificatePDF(&CertificateDocument{
		StudentName:   "Jane Doe",
		RollNumber:    "R-42",
		Course:        "Distributed Systems",
		Institution:   "Example Institute",
		CertificateID: "CERT-42",
		IssuedAt:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}, png)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(pdfBytes), "%PDF"))
}

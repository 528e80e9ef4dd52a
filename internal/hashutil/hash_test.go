package hashutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	got := Sum([]byte("hello"))
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)
	assert.Equal(t, got, Sum([]byte("hello")), "hashing must be deterministic")
}

func TestNormalize(t *testing.T) {
	valid := strings.Repeat("ab12", 16)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare_hash", in: valid, want: valid},
		{name: "prefixed", in: "0x" + valid, want: valid},
		{name: "uppercase", in: strings.ToUpper(valid), want: valid},
		{name: "surrounding_space", in: "  " + valid + "\n", want: valid},
		{name: "too_short", in: valid[:60], wantErr: true},
		{name: "non_hex", in: strings.Repeat("zz12", 16), wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedHash)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdd0xPrefixIdempotent(t *testing.T) {
	h := strings.Repeat("0f", 32)

	once := Add0xPrefix(h)
	twice := Add0xPrefix(once)

	assert.Equal(t, "0x"+h, once)
	assert.Equal(t, once, twice)
}

func TestIsContentHash(t *testing.T) {
	assert.True(t, IsContentHash(strings.Repeat("a1", 32)))
	assert.False(t, IsContentHash(strings.Repeat("A1", 32)), "uppercase is not canonical")
	assert.False(t, IsContentHash("abc123"))
}

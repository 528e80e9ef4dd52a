package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKeyRoundTrip(t *testing.T) {
	key, hash, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.Len(t, key, apiKeyBytes*2)
	assert.NotEqual(t, key, hash)

	ok, err := VerifyAPIKey(hash, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyAPIKey(hash, "wrong-key")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestGenerateAPIKeyIsUnique(t *testing.T) {
	first, _, err := GenerateAPIKey()
	require.NoError(t, err)
	second, _, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

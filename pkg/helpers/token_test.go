package helpers

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerator_NewDigestRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	g := &TokenGenerator{Bytes: TokenBytes, Now: func() time.Time { return now }}

	pair, err := g.New(2 * time.Hour)
	require.NoError(t, err)

	raw, err := hex.DecodeString(pair.Plain)
	require.NoError(t, err)
	assert.Len(t, raw, TokenBytes)
	assert.Equal(t, DigestToken(pair.Plain), pair.Digest)
	assert.Equal(t, g.Digest(pair.Plain), pair.Digest)
	assert.NotEqual(t, pair.Plain, pair.Digest)
	assert.Len(t, pair.Digest, 64)
	assert.Equal(t, now.Add(2*time.Hour), pair.ExpiresAt)
}

func TestTokenGenerator_EnforcesMinimumEntropy(t *testing.T) {
	g := &TokenGenerator{Bytes: 4}
	pair, err := g.New(time.Minute)
	require.NoError(t, err)
	assert.Len(t, pair.Plain, TokenBytes*2)
}

func TestTokenGenerator_Unique(t *testing.T) {
	g := NewTokenGenerator()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		p, err := g.New(time.Minute)
		require.NoError(t, err)
		assert.False(t, seen[p.Plain])
		seen[p.Plain] = true
	}
}

func TestDigestToken_Deterministic(t *testing.T) {
	assert.Equal(t, DigestToken("abc"), DigestToken("abc"))
	assert.NotEqual(t, DigestToken("abc"), DigestToken("abd"))
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", DigestToken("abc"))
}

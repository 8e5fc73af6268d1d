package helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TokenBytes is the entropy of activation and reset secrets (128 bits).
const TokenBytes = 16

// TokenPair is a freshly minted single-use secret.
// Plain goes to the email channel once; only Digest and ExpiresAt are persisted.
type TokenPair struct {
	Plain     string
	Digest    string
	ExpiresAt time.Time
}

// TokenGenerator mints time-bounded secrets.
type TokenGenerator struct {
	Bytes int
	Now   func() time.Time
}

func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{Bytes: TokenBytes, Now: time.Now}
}

// New returns a random hex secret, its digest and an expiry ttl from now.
func (g *TokenGenerator) New(ttl time.Duration) (TokenPair, error) {
	n := g.Bytes
	if n < TokenBytes {
		n = TokenBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return TokenPair{}, err
	}
	plain := hex.EncodeToString(b)
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return TokenPair{
		Plain:     plain,
		Digest:    DigestToken(plain),
		ExpiresAt: now().Add(ttl),
	}, nil
}

// Digest implements the lookup digest used by the account store.
func (g *TokenGenerator) Digest(plain string) string { return DigestToken(plain) }

// DigestToken is the deterministic, unsalted SHA-256 hex digest of a token.
func DigestToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

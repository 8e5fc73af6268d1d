package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_SignParse(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, "accounts")

	tok, err := m.Sign("acc-1", time.Now().Add(m.TTL))
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "accounts", claims.Issuer)
}

func TestJWTManager_RejectsExpiredAndForeign(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, "accounts")

	expired, err := m.Sign("acc-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = m.Parse(expired)
	assert.Error(t, err)

	other := NewJWTManager("other-secret", time.Hour, "accounts")
	foreign, err := other.Sign("acc-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = m.Parse(foreign)
	assert.Error(t, err)
}

package entity

import (
	"strings"
	"time"
)

// PendingToken is a single-use secret awaiting redemption.
// Only the digest of the plaintext is kept; digest and expiry live and die together.
type PendingToken struct {
	Digest    string
	ExpiresAt time.Time
}

// Expired reports whether the token window has passed at now.
func (p *PendingToken) Expired(now time.Time) bool {
	return p == nil || !now.Before(p.ExpiresAt)
}

// Account is the aggregate root of the account lifecycle.
// PasswordDigest holds a bcrypt hash, never the plaintext.
type Account struct {
	ID             string
	Username       string
	Email          string
	PasswordDigest string
	Role           Role
	Phone          string
	IsActivated    bool

	Activation *PendingToken
	Reset      *PendingToken

	// EmailRetryCount bounds activation resends inside the window opened at
	// ResendWindowStartedAt.
	EmailRetryCount       int
	ResendWindowStartedAt *time.Time
	ResetAttemptCount     int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeIdentity lower-cases and trims an email or username.
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (a *Account) SetActivationToken(digest string, expiresAt time.Time) {
	a.Activation = &PendingToken{Digest: digest, ExpiresAt: expiresAt}
}

func (a *Account) ClearActivationToken() { a.Activation = nil }

// HasPendingActivation reports whether an unexpired activation token is outstanding.
func (a *Account) HasPendingActivation(now time.Time) bool {
	return a.Activation != nil && !a.Activation.Expired(now)
}

func (a *Account) SetResetToken(digest string, expiresAt time.Time) {
	a.Reset = &PendingToken{Digest: digest, ExpiresAt: expiresAt}
}

func (a *Account) ClearResetToken() { a.Reset = nil }

// HasPendingReset reports whether an unexpired reset token is outstanding.
func (a *Account) HasPendingReset(now time.Time) bool {
	return a.Reset != nil && !a.Reset.Expired(now)
}

// Activate flips the account to active and consumes the activation token.
// It returns false if the account was already active.
func (a *Account) Activate() bool {
	if a.IsActivated {
		return false
	}
	a.IsActivated = true
	a.ClearActivationToken()
	return true
}

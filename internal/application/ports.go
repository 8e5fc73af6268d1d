package application

import (
	"time"

	"github.com/oksasatya/go-account-service/pkg/helpers"
)

// PasswordHasher is the credential hasher (salted, slow).
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// TokenIssuer mints activation/reset secrets and digests presented ones.
type TokenIssuer interface {
	New(ttl time.Duration) (helpers.TokenPair, error)
	Digest(plain string) string
}

// TokenSigner issues bearer tokens at login.
type TokenSigner interface {
	Sign(subjectID string, expiry time.Time) (string, error)
}

// Policy holds the lifecycle windows and ceilings.
type Policy struct {
	ActivationTTL        time.Duration
	ResetTTL             time.Duration
	MaxActivationResends int
	ResendWindow         time.Duration
	MaxResetRequests     int
	SessionTTL           time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		ActivationTTL:        2 * time.Hour,
		ResetTTL:             2 * time.Hour,
		MaxActivationResends: 3,
		ResendWindow:         24 * time.Hour,
		MaxResetRequests:     1,
		SessionTTL:           24 * time.Hour,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.ActivationTTL <= 0 {
		p.ActivationTTL = d.ActivationTTL
	}
	if p.ResetTTL <= 0 {
		p.ResetTTL = d.ResetTTL
	}
	if p.MaxActivationResends <= 0 {
		p.MaxActivationResends = d.MaxActivationResends
	}
	if p.ResendWindow <= 0 {
		p.ResendWindow = d.ResendWindow
	}
	if p.MaxResetRequests <= 0 {
		p.MaxResetRequests = d.MaxResetRequests
	}
	if p.SessionTTL <= 0 {
		p.SessionTTL = d.SessionTTL
	}
	return p
}

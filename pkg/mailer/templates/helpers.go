package templates

import (
	"net/url"
	"strings"
	"time"

	"github.com/oksasatya/go-account-service/config"
)

// ExpiryLayout is how ExpiresAtText renders in emails.
const ExpiryLayout = "02 January 2006, 15:04 MST"

// Option pattern
type Option func(*EmailData)

func WithActivationURL(u string) Option { return func(d *EmailData) { d.ActivationURL = u } }
func WithResetURL(u string) Option      { return func(d *EmailData) { d.ResetURL = u } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		if t.IsZero() {
			return
		}
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format(ExpiryLayout)
	}
}

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		UserName:       name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,
		AppName:        cfg.AppName,
		SupportEmail:   cfg.SupportEmail,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewActivationData(cfg *config.Config, name, email, token string, opts ...Option) map[string]any {
	opts = append([]Option{WithActivationURL(ActivationLink(cfg.VerifyEmailURL, token))}, opts...)
	return ToMap(NewBaseEmailData(cfg, AccountActivation, name, email, opts...))
}

func NewPasswordResetData(cfg *config.Config, name, email, token string, opts ...Option) map[string]any {
	opts = append([]Option{WithResetURL(ResetLink(cfg.ResetPasswordURL, token))}, opts...)
	return ToMap(NewBaseEmailData(cfg, PasswordReset, name, email, opts...))
}

// ActivationLink appends the token as the last path segment: <base>/<token>.
func ActivationLink(base, token string) string {
	u, err := url.JoinPath(base, token)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + url.PathEscape(token)
	}
	return u
}

// ResetLink carries the token in the query string of the reset page.
func ResetLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

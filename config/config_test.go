package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_URL", "https://api.example.com/")
	cfg := Load()

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 2*time.Hour, cfg.ActivationTokenTTL)
	assert.Equal(t, 3, cfg.MaxActivationResends)
	assert.Equal(t, 24*time.Hour, cfg.ActivationResendWindow)
	assert.Equal(t, 1, cfg.MaxResetRequests)
	assert.Equal(t, 3, cfg.EmailRetryMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.EmailRetryBaseDelay)
	assert.Equal(t, "https://api.example.com/api/v1/users/activate", cfg.VerifyEmailURL)
	assert.Empty(t, cfg.ESAddrs())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("RESET_TOKEN_TTL", "30m")
	t.Setenv("MAX_ACTIVATION_RESENDS", "not-a-number")
	t.Setenv("MAIL_DRIVER", "smtp")
	t.Setenv("MAIL_SEND_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg := Load()
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, 30*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, 3, cfg.MaxActivationResends)
	assert.Equal(t, "log", cfg.EffectiveMailDriver())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
}

package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-account-service/config"
)

func testConfig() *config.Config {
	return &config.Config{
		AppName:          "Accounts",
		SupportEmail:     "support@example.com",
		VerifyEmailURL:   "https://api.example.com/api/v1/users/activate",
		ResetPasswordURL: "https://app.example.com/reset-password",
	}
}

func TestRender_AccountActivation(t *testing.T) {
	exp := time.Date(2030, 1, 2, 15, 4, 0, 0, time.UTC)
	data := NewActivationData(testConfig(), "jane", "jane@example.com", "abc123", WithExpiresAt(exp))

	subject, text, html, err := Render(AccountActivation, data)
	require.NoError(t, err)

	assert.Equal(t, "Activate your Accounts account", subject)
	assert.Contains(t, text, "Hi jane,")
	assert.Contains(t, text, "https://api.example.com/api/v1/users/activate/abc123")
	assert.Contains(t, text, "02 January 2030, 15:04 UTC")
	assert.Contains(t, text, "support@example.com")
	assert.Contains(t, html, `href="https://api.example.com/api/v1/users/activate/abc123"`)
}

func TestRender_PasswordReset(t *testing.T) {
	data := NewPasswordResetData(testConfig(), "", "jane@example.com", "tok")

	subject, text, html, err := Render(PasswordReset, data)
	require.NoError(t, err)

	assert.Equal(t, "Reset your Accounts password", subject)
	assert.Contains(t, text, "Hi there,")
	assert.Contains(t, text, "https://app.example.com/reset-password?token=tok")
	assert.NotContains(t, text, "expires on")
	assert.Contains(t, html, "Reset password")
}

func TestRender_UnknownTemplate(t *testing.T) {
	assert.False(t, Known("welcome"))
	_, _, _, err := Render("welcome", map[string]any{})
	assert.Error(t, err)
}

func TestLinks(t *testing.T) {
	assert.Equal(t, "http://x/activate/t1", ActivationLink("http://x/activate/", "t1"))
	assert.Equal(t, "http://x/reset?lang=en&token=t2", ResetLink("http://x/reset?lang=en", "t2"))
}

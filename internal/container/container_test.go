package container

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-account-service/config"
	"github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/infrastructure/memory"
)

func memoryConfig() *config.Config {
	cfg := config.Load()
	cfg.StoreDriver = "memory"
	cfg.MailDriver = "log"
	cfg.RedisAddr = ""
	cfg.ElasticsearchAddrs = ""
	cfg.BcryptCost = 4
	return cfg
}

func TestBuild_MemoryStoreDeliversActivationEmail(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetOutput(io.Discard)
	c, err := Build(context.Background(), memoryConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	assert.IsType(t, &memory.AccountStore{}, c.Accounts)
	assert.Nil(t, c.Redis)
	assert.Nil(t, c.Directory)

	msg, err := c.Service.Register(context.Background(), application.RegisterInput{
		Username: "Alice", Email: "Alice@Example.com", Password: "password1", Role: entity.RoleEmployee,
	})
	require.NoError(t, err)
	assert.Equal(t, application.MsgRegistered, msg)

	require.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Message == "email delivery skipped (log driver)" && e.Data["to"] == "alice@example.com" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBuild_UnknownDrivers(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := memoryConfig()
	cfg.StoreDriver = "cassandra"
	c, err := Build(context.Background(), cfg, logger)
	require.Error(t, err)
	assert.NoError(t, c.Close(context.Background()))

	cfg = memoryConfig()
	cfg.MailDriver = "pigeon"
	c, err = Build(context.Background(), cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pigeon")
	assert.NoError(t, c.Close(context.Background()))
}

func TestBuild_MailgunRequiresCredentials(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := memoryConfig()
	cfg.MailDriver = "mailgun"
	cfg.MailgunDomain = ""

	_, err := Build(context.Background(), cfg, logger)
	assert.ErrorContains(t, err, "MAILGUN_DOMAIN")
}

func TestSMTPConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom = "mail.local", 2525, "noreply@x.io"
	got := SMTPConfig(cfg)
	assert.Equal(t, "mail.local", got.Host)
	assert.Equal(t, 2525, got.Port)
	assert.Equal(t, "noreply@x.io", got.From)
}

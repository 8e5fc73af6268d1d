package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/config"
	"github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/internal/application/notify"
	repo "github.com/oksasatya/go-account-service/internal/domain/repository"
	"github.com/oksasatya/go-account-service/internal/events"
	"github.com/oksasatya/go-account-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-account-service/internal/infrastructure/mongodb"
	"github.com/oksasatya/go-account-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-account-service/internal/infrastructure/search"
	"github.com/oksasatya/go-account-service/internal/metrics"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/mailer"
)

// Container holds the components shared by the router and the process
// lifecycle. It is built once in main and passed down explicitly.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Accounts  repo.AccountRepository
	Bus       *events.Bus
	Mailer    mailer.Sender
	Notifier  *notify.RetryManager
	Directory *search.AccountDirectory
	Service   *application.AccountService
	JWT       *helpers.JWTManager
	Redis     *redis.Client

	closers []func(context.Context) error
}

// Build wires every component from cfg. Call Close on shutdown even when Build
// fails half way; it releases whatever was opened.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	store, err := c.openStore(ctx)
	if err != nil {
		return c, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	c.Accounts = store

	if cfg.RedisAddr != "" {
		c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		c.onClose(func(context.Context) error { return c.Redis.Close() })
	}

	c.Bus = events.NewBus(logger, events.WithFailureHook(metrics.RecordHandlerFailure))
	c.onClose(c.Bus.Close)

	sender, err := c.openMailer()
	if err != nil {
		return c, fmt.Errorf("open %s mailer: %w", cfg.EffectiveMailDriver(), err)
	}
	c.Mailer = sender
	c.Notifier = notify.NewRetryManager(sender, cfg, cfg.EmailRetryMaxAttempts, cfg.EmailRetryBaseDelay, logger)
	c.Notifier.Subscribe(c.Bus)

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			return c, fmt.Errorf("elasticsearch: %w", err)
		}
		c.Directory = search.NewAccountDirectory(es, cfg.ESAccountsIndex, logger)
		notify.NewAccountIndexer(c.Directory).Subscribe(c.Bus)
	}

	c.JWT = helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.AppName)
	c.Service = application.NewAccountService(
		store,
		helpers.NewBcryptHasher(cfg.BcryptCost),
		helpers.NewTokenGenerator(),
		c.JWT,
		c.Bus,
		application.Policy{
			ActivationTTL:        cfg.ActivationTokenTTL,
			ResetTTL:             cfg.ResetTokenTTL,
			MaxActivationResends: cfg.MaxActivationResends,
			ResendWindow:         cfg.ActivationResendWindow,
			MaxResetRequests:     cfg.MaxResetRequests,
			SessionTTL:           cfg.JWTExpiresIn,
		},
		logger,
	)
	return c, nil
}

func (c *Container) openStore(ctx context.Context) (repo.AccountRepository, error) {
	cfg := c.Config
	switch cfg.StoreDriver {
	case "postgres", "":
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN(), postgres.PoolOptions{
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
		})
		if err != nil {
			return nil, err
		}
		c.onClose(func(context.Context) error { pool.Close(); return nil })
		if err := postgres.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, c.Logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewAccountRepository(pool), nil
	case "mongo", "mongodb":
		client, err := mongodb.NewClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		c.onClose(client.Disconnect)
		r := mongodb.NewAccountRepository(client.Database(cfg.MongoDatabase))
		if err := r.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return r, nil
	case "memory":
		c.Logger.Warn("using in-memory account store; data is lost on restart")
		return memory.NewAccountStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (c *Container) openMailer() (mailer.Sender, error) {
	cfg := c.Config
	switch cfg.EffectiveMailDriver() {
	case "log", "":
		return mailer.NewTemplateSender(mailer.NewLogTransport(c.Logger, uuid.NewString)), nil
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			return nil, errors.New("MAILGUN_DOMAIN and MAILGUN_API_KEY are required")
		}
		return mailer.NewTemplateSender(mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)), nil
	case "smtp":
		return mailer.NewTemplateSender(mailer.NewSMTP(SMTPConfig(cfg))), nil
	case "queue":
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return nil, err
		}
		c.onClose(func(context.Context) error { pub.Close(); return nil })
		return mailer.NewQueue(pub), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.MailDriver)
	}
}

// SMTPConfig maps the SMTP_* settings onto the mailer transport config.
func SMTPConfig(cfg *config.Config) mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Insecure: cfg.SMTPInsecure,
	}
}

func (c *Container) onClose(fn func(context.Context) error) {
	c.closers = append(c.closers, fn)
}

// Close releases components in reverse construction order. The event bus
// drains in-flight dispatches first, bounded by ctx.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

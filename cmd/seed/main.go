package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/config"
	"github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/internal/application/notify"
	"github.com/oksasatya/go-account-service/internal/container"
	"github.com/oksasatya/go-account-service/internal/domain/entity"
	repo "github.com/oksasatya/go-account-service/internal/domain/repository"
	"github.com/oksasatya/go-account-service/internal/events"
	"github.com/oksasatya/go-account-service/pkg/helpers"
)

type seedInput struct {
	Username string
	Email    string
	Password string
	Role     entity.Role
}

// seed inserts an activated demo account straight into the configured store
// and indexes it when the directory is enabled.
func main() {
	email := flag.String("email", "demo@example.com", "account email")
	username := flag.String("username", "demouser", "account username")
	password := flag.String("password", "password123", "account password")
	role := flag.String("role", string(entity.RoleEmployee), "employee or employer")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	cfg.MailDriver = "log" // seeding never sends email
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	r, err := entity.ParseRole(*role)
	if err != nil {
		logger.WithError(err).Fatal("invalid role")
	}

	in := seedInput{Username: *username, Email: *email, Password: *password, Role: r}
	if err := run(context.Background(), cfg, logger, in); err != nil {
		logger.WithError(err).Fatal("seed failed")
	}
}

// run owns the container so it is closed before main exits, on failure too.
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, in seedInput) error {
	c, err := container.Build(ctx, cfg, logger)
	defer func() {
		if cerr := c.Close(ctx); cerr != nil {
			logger.WithError(cerr).Warn("close container")
		}
	}()
	if err != nil {
		return err
	}

	var dir notify.DirectoryWriter
	if c.Directory.Enabled() {
		dir = c.Directory
	}
	acc, created, err := seedAccount(ctx, c.Accounts, helpers.NewBcryptHasher(cfg.BcryptCost), dir, in)
	if err != nil {
		return err
	}
	if !created {
		logger.WithField("email", in.Email).Info("account already seeded")
		return nil
	}
	logger.WithFields(logrus.Fields{"id": acc.ID, "email": acc.Email, "role": acc.Role, "indexed": dir != nil}).Info("seeded activated account")
	return nil
}

// seedAccount reports created=false when the email or username is taken.
// dir may be nil.
func seedAccount(ctx context.Context, accounts repo.AccountRepository, hasher application.PasswordHasher, dir notify.DirectoryWriter, in seedInput) (*entity.Account, bool, error) {
	digest, err := hasher.Hash(in.Password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	acc := &entity.Account{
		Username:       in.Username,
		Email:          in.Email,
		PasswordDigest: digest,
		Role:           in.Role,
		IsActivated:    true,
	}
	switch err := accounts.Insert(ctx, acc); {
	case errors.Is(err, repo.ErrDuplicate):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("insert account: %w", err)
	}

	if dir != nil {
		activatedAt := acc.CreatedAt
		if activatedAt.IsZero() {
			activatedAt = time.Now().UTC()
		}
		err := notify.NewAccountIndexer(dir).OnAccountActivated(ctx, events.AccountActivatedEvent{
			UserID:      acc.ID,
			Email:       acc.Email,
			Username:    acc.Username,
			Role:        string(acc.Role),
			ActivatedAt: activatedAt,
		})
		if err != nil {
			return acc, true, fmt.Errorf("index account %s: %w", acc.ID, err)
		}
	}
	return acc, true, nil
}

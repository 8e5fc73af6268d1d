package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned by lookups that match no account.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned by Insert when the username or email unique index rejects the write.
	ErrDuplicate = errors.New("account with this email or username already exists")
)

// AccountRepository is the durable account store.
// Implementations enforce uniqueness of username and email on write regardless of
// any existence check done by callers, and normalize both keys before lookup.
type AccountRepository interface {
	FindByEmailOrUsername(ctx context.Context, email, username string) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByActivationDigest(ctx context.Context, digest string) (*entity.Account, error)
	FindByResetDigest(ctx context.Context, digest string) (*entity.Account, error)
	// Insert assigns ID, CreatedAt and UpdatedAt on success.
	Insert(ctx context.Context, a *entity.Account) error
	// Save persists the full mutated document and refreshes UpdatedAt.
	Save(ctx context.Context, a *entity.Account) error
}

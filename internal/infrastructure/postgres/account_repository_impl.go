package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
)

// uniqueViolation is the SQLSTATE raised by a unique index.
const uniqueViolation = "23505"

const accountColumns = `
	id, username, email, password_hash, role, phone, is_activated,
	activation_token_digest, activation_expires_at,
	reset_token_digest, reset_expires_at,
	email_retry_count, resend_window_started_at, reset_attempt_count,
	created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*entity.Account, error) {
	return r.findOne(ctx, `WHERE lower(email) = $1 OR lower(username) = $2 LIMIT 1`,
		entity.NormalizeIdentity(email), entity.NormalizeIdentity(username))
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.findOne(ctx, `WHERE lower(email) = $1`, entity.NormalizeIdentity(email))
}

func (r *AccountRepository) FindByActivationDigest(ctx context.Context, digest string) (*entity.Account, error) {
	return r.findOne(ctx, `WHERE activation_token_digest = $1`, digest)
}

func (r *AccountRepository) FindByResetDigest(ctx context.Context, digest string) (*entity.Account, error) {
	return r.findOne(ctx, `WHERE reset_token_digest = $1`, digest)
}

func (r *AccountRepository) Insert(ctx context.Context, a *entity.Account) error {
	a.Email = entity.NormalizeIdentity(a.Email)
	a.Username = entity.NormalizeIdentity(a.Username)
	actDigest, actExp := tokenColumns(a.Activation)
	rstDigest, rstExp := tokenColumns(a.Reset)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (
			username, email, password_hash, role, phone, is_activated,
			activation_token_digest, activation_expires_at,
			reset_token_digest, reset_expires_at,
			email_retry_count, resend_window_started_at, reset_attempt_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`, a.Username, a.Email, a.PasswordDigest, string(a.Role), a.Phone, a.IsActivated,
		actDigest, actExp, rstDigest, rstExp,
		a.EmailRetryCount, a.ResendWindowStartedAt, a.ResetAttemptCount)

	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *AccountRepository) Save(ctx context.Context, a *entity.Account) error {
	a.Email = entity.NormalizeIdentity(a.Email)
	a.Username = entity.NormalizeIdentity(a.Username)
	a.UpdatedAt = time.Now().UTC()
	actDigest, actExp := tokenColumns(a.Activation)
	rstDigest, rstExp := tokenColumns(a.Reset)

	res, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET username = $1, email = $2, password_hash = $3, role = $4, phone = $5, is_activated = $6,
			activation_token_digest = $7, activation_expires_at = $8,
			reset_token_digest = $9, reset_expires_at = $10,
			email_retry_count = $11, resend_window_started_at = $12, reset_attempt_count = $13,
			updated_at = $14
		WHERE id = $15
	`, a.Username, a.Email, a.PasswordDigest, string(a.Role), a.Phone, a.IsActivated,
		actDigest, actExp, rstDigest, rstExp,
		a.EmailRetryCount, a.ResendWindowStartedAt, a.ResetAttemptCount,
		a.UpdatedAt, a.ID)
	if err != nil {
		return mapWriteError(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) findOne(ctx context.Context, where string, args ...any) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts `+where, args...)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	var (
		a                  entity.Account
		role               string
		actDigest, rDigest *string
		actExp, rExp       *time.Time
	)
	if err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordDigest, &role, &a.Phone, &a.IsActivated,
		&actDigest, &actExp,
		&rDigest, &rExp,
		&a.EmailRetryCount, &a.ResendWindowStartedAt, &a.ResetAttemptCount,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Role = entity.Role(role)
	a.Activation = pendingToken(actDigest, actExp)
	a.Reset = pendingToken(rDigest, rExp)
	return &a, nil
}

// tokenColumns splits a token into its nullable digest/expiry pair.
func tokenColumns(p *entity.PendingToken) (*string, *time.Time) {
	if p == nil {
		return nil, nil
	}
	d, e := p.Digest, p.ExpiresAt
	return &d, &e
}

func pendingToken(digest *string, exp *time.Time) *entity.PendingToken {
	if digest == nil || exp == nil {
		return nil
	}
	return &entity.PendingToken{Digest: *digest, ExpiresAt: *exp}
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/internal/domain/apperr"
	"github.com/oksasatya/go-account-service/internal/domain/entity"
	repo "github.com/oksasatya/go-account-service/internal/domain/repository"
	"github.com/oksasatya/go-account-service/internal/events"
	"github.com/oksasatya/go-account-service/pkg/helpers"
)

const (
	MsgRegistered        = "Registration successful! Please check your email to confirm your account."
	MsgActivated         = "Account activation successful. Please login to continue"
	MsgResendAccepted    = "If your email address is registered, you will receive a link to activate account"
	MsgResetRequested    = "If your email address is registered, you will receive instructions to reset your password"
	MsgPasswordReset     = "Password reset successful. Return to login screen"
	msgAccountExists     = "User with this email or username already exists"
	msgInvalidActivation = "Invalid or already used activation link"
	msgAlreadyActive     = "Your account is already activated"
	msgActivationExpired = "This account activation email has expired. Please request a new one"
	msgMaxResends        = "You have reached maximum email attempts for the day. Continue after 24 hours"
	msgActivationPending = "An activation link was already sent. Please check your email"
	msgInvalidLogin      = "Invalid email or password"
	msgPendingEmail      = "Email verification pending"
	msgResetOutstanding  = "You have already requested to reset the password"
	msgInvalidReset      = "Invalid or already used password reset link"
	msgResetExpired      = "Password reset email has expired. Please request password reset again"
	msgInvalidRole       = "role must be one of: employee, employer"
	msgPasswordTooLong   = "password must be at most 72 bytes long"
)

// AccountService is the account lifecycle engine: registration, activation,
// resend, login and password reset. Callers pass structurally valid input.
type AccountService struct {
	Repo   repo.AccountRepository
	Hasher PasswordHasher
	Tokens TokenIssuer
	Signer TokenSigner
	Events events.Publisher
	Policy Policy
	Logger logrus.FieldLogger
	Now    func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAccountService(r repo.AccountRepository, hasher PasswordHasher, tokens TokenIssuer, signer TokenSigner, pub events.Publisher, policy Policy, logger logrus.FieldLogger) *AccountService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AccountService{
		Repo:   r,
		Hasher: hasher,
		Tokens: tokens,
		Signer: signer,
		Events: pub,
		Policy: policy.withDefaults(),
		Logger: logger,
		Now:    time.Now,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     entity.Role
	Phone    string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *entity.Account
}

func (s *AccountService) now() time.Time { return s.Now().UTC() }

// Register creates an inactive account with a pending activation token.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (string, error) {
	if !in.Role.Valid() {
		return "", apperr.Validation(msgInvalidRole)
	}
	username := entity.NormalizeIdentity(in.Username)
	email := entity.NormalizeIdentity(in.Email)

	// Early, friendly conflict. The store's unique index is authoritative.
	if _, err := s.Repo.FindByEmailOrUsername(ctx, email, username); err == nil {
		return "", apperr.Conflict(msgAccountExists)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return "", apperr.Internal(err)
	}

	digest, err := s.hash(in.Password)
	if err != nil {
		return "", err
	}
	pair, err := s.Tokens.New(s.Policy.ActivationTTL)
	if err != nil {
		return "", apperr.Internal(err)
	}

	a := &entity.Account{
		Username:       username,
		Email:          email,
		PasswordDigest: digest,
		Role:           in.Role,
		Phone:          in.Phone,
	}
	a.SetActivationToken(pair.Digest, pair.ExpiresAt)
	if err := s.Repo.Insert(ctx, a); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return "", apperr.Conflict(msgAccountExists)
		}
		return "", apperr.Internal(err)
	}

	s.Logger.WithFields(logrus.Fields{"user_id": a.ID, "role": a.Role}).Info("account registered")
	s.publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:       a.ID,
		Email:        a.Email,
		Username:     a.Username,
		Token:        pair.Plain,
		ExpiresAt:    pair.ExpiresAt,
		RegisteredAt: s.now(),
	})
	return MsgRegistered, nil
}

// Activate redeems an activation token. Activation is one-way; a consumed token
// no longer matches any account.
func (s *AccountService) Activate(ctx context.Context, rawToken string) (string, error) {
	a, err := s.Repo.FindByActivationDigest(ctx, s.Tokens.Digest(rawToken))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", apperr.NotFound(msgInvalidActivation)
		}
		return "", apperr.Internal(err)
	}
	if a.IsActivated {
		return "", apperr.Conflict(msgAlreadyActive)
	}
	now := s.now()
	if a.Activation.Expired(now) {
		return "", apperr.Expired(msgActivationExpired)
	}

	a.Activate()
	if err := s.Repo.Save(ctx, a); err != nil {
		return "", apperr.Internal(err)
	}

	s.Logger.WithField("user_id", a.ID).Info("account activated")
	s.publish(ctx, events.AccountActivated, events.AccountActivatedEvent{
		UserID:      a.ID,
		Email:       a.Email,
		Username:    a.Username,
		Role:        string(a.Role),
		ActivatedAt: now,
	})
	return MsgActivated, nil
}

// ResendActivation issues a fresh activation token. Unknown emails get the same
// answer as known ones.
func (s *AccountService) ResendActivation(ctx context.Context, email string) (string, error) {
	a, err := s.Repo.FindByEmail(ctx, entity.NormalizeIdentity(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return MsgResendAccepted, nil
		}
		return "", apperr.Internal(err)
	}
	if a.IsActivated {
		return "", apperr.Conflict(msgAlreadyActive)
	}

	now := s.now()
	if a.ResendWindowStartedAt != nil && !now.Before(a.ResendWindowStartedAt.Add(s.Policy.ResendWindow)) {
		a.EmailRetryCount = 0
		a.ResendWindowStartedAt = nil
	}
	if a.EmailRetryCount >= s.Policy.MaxActivationResends {
		return "", apperr.RateLimited(msgMaxResends)
	}
	if a.HasPendingActivation(now) {
		return "", apperr.RateLimited(msgActivationPending)
	}

	pair, err := s.Tokens.New(s.Policy.ActivationTTL)
	if err != nil {
		return "", apperr.Internal(err)
	}
	a.SetActivationToken(pair.Digest, pair.ExpiresAt)
	a.EmailRetryCount++
	if a.ResendWindowStartedAt == nil {
		a.ResendWindowStartedAt = &now
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return "", apperr.Internal(err)
	}

	s.Logger.WithFields(logrus.Fields{"user_id": a.ID, "resends": a.EmailRetryCount}).Info("activation token reissued")
	s.publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:       a.ID,
		Email:        a.Email,
		Username:     a.Username,
		Token:        pair.Plain,
		ExpiresAt:    pair.ExpiresAt,
		RegisteredAt: now,
	})
	return MsgResendAccepted, nil
}

// Login verifies credentials and issues a bearer token. Unknown email and wrong
// password fail identically.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	a, err := s.Repo.FindByEmail(ctx, entity.NormalizeIdentity(email))
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.Internal(err)
		}
		// keep response time in line with a real bcrypt comparison
		s.Hasher.Verify(password, s.dummy())
		return nil, apperr.Unauthorized(msgInvalidLogin)
	}
	if !s.Hasher.Verify(password, a.PasswordDigest) {
		return nil, apperr.Unauthorized(msgInvalidLogin)
	}
	if !a.IsActivated {
		return nil, apperr.Forbidden(msgPendingEmail)
	}

	exp := s.now().Add(s.Policy.SessionTTL)
	token, err := s.Signer.Sign(a.ID, exp)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.Logger.WithField("user_id", a.ID).Debug("login succeeded")
	return &LoginResult{Token: token, ExpiresAt: exp, Account: a}, nil
}

// RequestPasswordReset issues a reset token. Only one request may be outstanding;
// an expired, unconsumed request frees the slot.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	a, err := s.Repo.FindByEmail(ctx, entity.NormalizeIdentity(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return MsgResetRequested, nil
		}
		return "", apperr.Internal(err)
	}

	now := s.now()
	if !a.HasPendingReset(now) {
		a.ResetAttemptCount = 0
	}
	if a.ResetAttemptCount >= s.Policy.MaxResetRequests {
		return "", apperr.RateLimited(msgResetOutstanding)
	}

	pair, err := s.Tokens.New(s.Policy.ResetTTL)
	if err != nil {
		return "", apperr.Internal(err)
	}
	a.ResetAttemptCount++
	a.SetResetToken(pair.Digest, pair.ExpiresAt)
	if err := s.Repo.Save(ctx, a); err != nil {
		return "", apperr.Internal(err)
	}

	s.Logger.WithField("user_id", a.ID).Info("password reset requested")
	s.publish(ctx, events.PasswordResetRequested, events.PasswordResetRequestedEvent{
		Email:     a.Email,
		Username:  a.Username,
		Token:     pair.Plain,
		ExpiresAt: pair.ExpiresAt,
	})
	return MsgResetRequested, nil
}

// ResetPassword redeems a reset token. newPassword is assumed to equal its
// confirmation.
func (s *AccountService) ResetPassword(ctx context.Context, rawToken, newPassword string) (string, error) {
	a, err := s.Repo.FindByResetDigest(ctx, s.Tokens.Digest(rawToken))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", apperr.NotFound(msgInvalidReset)
		}
		return "", apperr.Internal(err)
	}
	if a.Reset.Expired(s.now()) {
		return "", apperr.Expired(msgResetExpired)
	}

	digest, err := s.hash(newPassword)
	if err != nil {
		return "", err
	}
	a.PasswordDigest = digest
	a.ResetAttemptCount = 0
	a.ClearResetToken()
	if err := s.Repo.Save(ctx, a); err != nil {
		return "", apperr.Internal(err)
	}

	s.Logger.WithField("user_id", a.ID).Info("password reset completed")
	return MsgPasswordReset, nil
}

// publish hands the event to the bus. A scheduling failure is logged, not returned:
// the state change is already durable.
func (s *AccountService) publish(ctx context.Context, name string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, name, payload); err != nil {
		s.Logger.WithError(err).WithField("event", name).Error("failed to publish event")
	}
}

// hash reports an over-long password as a validation error rather than internal.
func (s *AccountService) hash(plain string) (string, error) {
	digest, err := s.Hasher.Hash(plain)
	switch {
	case errors.Is(err, helpers.ErrPasswordTooLong):
		return "", apperr.Validation(msgPasswordTooLong)
	case err != nil:
		return "", apperr.Internal(err)
	}
	return digest, nil
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.Hasher.Hash("not-a-real-password")
	})
	return s.dummyDigest
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
)

// AccountStore keeps accounts in process memory. Used for development and tests;
// it enforces the same username/email uniqueness as the durable stores.
type AccountStore struct {
	mu    sync.RWMutex
	byID  map[string]*entity.Account
	NewID func() string
	Now   func() time.Time
}

var _ repository.AccountRepository = (*AccountStore)(nil)

func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:  make(map[string]*entity.Account),
		NewID: uuid.NewString,
		Now:   time.Now,
	}
}

func (s *AccountStore) FindByEmailOrUsername(ctx context.Context, email, username string) (*entity.Account, error) {
	email, username = entity.NormalizeIdentity(email), entity.NormalizeIdentity(username)
	return s.find(func(a *entity.Account) bool {
		return a.Email == email || a.Username == username
	})
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	email = entity.NormalizeIdentity(email)
	return s.find(func(a *entity.Account) bool { return a.Email == email })
}

func (s *AccountStore) FindByActivationDigest(ctx context.Context, digest string) (*entity.Account, error) {
	return s.find(func(a *entity.Account) bool {
		return a.Activation != nil && a.Activation.Digest == digest
	})
}

func (s *AccountStore) FindByResetDigest(ctx context.Context, digest string) (*entity.Account, error) {
	return s.find(func(a *entity.Account) bool {
		return a.Reset != nil && a.Reset.Digest == digest
	})
}

func (s *AccountStore) Insert(ctx context.Context, a *entity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.Email = entity.NormalizeIdentity(a.Email)
	a.Username = entity.NormalizeIdentity(a.Username)
	if s.conflicts(a, "") {
		return repository.ErrDuplicate
	}
	now := s.Now().UTC()
	a.ID = s.NewID()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.byID[a.ID] = clone(a)
	return nil
}

func (s *AccountStore) Save(ctx context.Context, a *entity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[a.ID]; !ok {
		return repository.ErrNotFound
	}
	a.Email = entity.NormalizeIdentity(a.Email)
	a.Username = entity.NormalizeIdentity(a.Username)
	if s.conflicts(a, a.ID) {
		return repository.ErrDuplicate
	}
	a.UpdatedAt = s.Now().UTC()
	s.byID[a.ID] = clone(a)
	return nil
}

// Len returns the number of stored accounts.
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *AccountStore) find(match func(*entity.Account) bool) (*entity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.byID {
		if match(a) {
			return clone(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

// caller holds s.mu
func (s *AccountStore) conflicts(a *entity.Account, selfID string) bool {
	for id, other := range s.byID {
		if id == selfID {
			continue
		}
		if other.Email == a.Email || other.Username == a.Username {
			return true
		}
	}
	return false
}

func clone(a *entity.Account) *entity.Account {
	c := *a
	if a.Activation != nil {
		t := *a.Activation
		c.Activation = &t
	}
	if a.Reset != nil {
		t := *a.Reset
		c.Reset = &t
	}
	if a.ResendWindowStartedAt != nil {
		t := *a.ResendWindowStartedAt
		c.ResendWindowStartedAt = &t
	}
	return &c
}

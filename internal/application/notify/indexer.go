package notify

import (
	"context"

	"github.com/oksasatya/go-account-service/internal/events"
	"github.com/oksasatya/go-account-service/internal/infrastructure/search"
)

// DirectoryWriter stores the searchable projection of an account.
type DirectoryWriter interface {
	Put(ctx context.Context, doc search.AccountDoc) error
}

// AccountIndexer keeps the account directory in step with activations.
type AccountIndexer struct {
	Directory DirectoryWriter
}

func NewAccountIndexer(d DirectoryWriter) *AccountIndexer {
	return &AccountIndexer{Directory: d}
}

func (x *AccountIndexer) Subscribe(s events.Subscriber) {
	events.On(s, events.AccountActivated, x.OnAccountActivated)
}

// OnAccountActivated returns the index error so the bus logs and counts it.
func (x *AccountIndexer) OnAccountActivated(ctx context.Context, evt events.AccountActivatedEvent) error {
	return x.Directory.Put(ctx, search.AccountDoc{
		ID:          evt.UserID,
		Username:    evt.Username,
		Email:       evt.Email,
		Role:        evt.Role,
		ActivatedAt: evt.ActivatedAt,
	})
}

package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-account-service/internal/events"
	"github.com/oksasatya/go-account-service/internal/infrastructure/search"
)

type fakeDirectory struct {
	docs []search.AccountDoc
	err  error
}

func (f *fakeDirectory) Put(ctx context.Context, doc search.AccountDoc) error {
	f.docs = append(f.docs, doc)
	return f.err
}

func TestAccountIndexer_ProjectsActivatedAccount(t *testing.T) {
	dir := &fakeDirectory{}
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	err := NewAccountIndexer(dir).OnAccountActivated(context.Background(), events.AccountActivatedEvent{
		UserID: "u1", Email: "a@b.co", Username: "ann", Role: "employee", ActivatedAt: at,
	})
	require.NoError(t, err)
	require.Len(t, dir.docs, 1)
	assert.Equal(t, search.AccountDoc{ID: "u1", Username: "ann", Email: "a@b.co", Role: "employee", ActivatedAt: at}, dir.docs[0])
}

func TestAccountIndexer_PropagatesIndexError(t *testing.T) {
	boom := errors.New("es down")
	err := NewAccountIndexer(&fakeDirectory{err: boom}).OnAccountActivated(context.Background(), events.AccountActivatedEvent{UserID: "u1"})
	assert.ErrorIs(t, err, boom)
}

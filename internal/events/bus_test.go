package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func waitClosed(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Close(ctx))
}

func TestBus_HandlersRunInSubscriptionOrder(t *testing.T) {
	b := NewBus(quietLogger())

	var mu sync.Mutex
	var calls []string
	record := func(name string) Handler {
		return func(ctx context.Context, payload any) error {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name+":"+payload.(string))
			return nil
		}
	}
	b.Subscribe("evt", record("first"))
	b.Subscribe("evt", record("second"))

	require.NoError(t, b.Publish(context.Background(), "evt", "a"))
	require.NoError(t, b.Publish(context.Background(), "evt", "b"))
	waitClosed(t, b)

	assert.Len(t, calls, 4)
	idx := map[string]int{}
	for i, c := range calls {
		idx[c] = i
	}
	assert.Less(t, idx["first:a"], idx["second:a"])
	assert.Less(t, idx["first:b"], idx["second:b"])
}

func TestBus_FailingHandlerDoesNotStopOthers(t *testing.T) {
	var failures atomic.Int32
	b := NewBus(quietLogger(), WithFailureHook(func(event string) {
		assert.Equal(t, "evt", event)
		failures.Add(1)
	}))

	var ran atomic.Int32
	b.Subscribe("evt", func(ctx context.Context, payload any) error { return errors.New("boom") })
	b.Subscribe("evt", func(ctx context.Context, payload any) error { panic("kaboom") })
	b.Subscribe("evt", func(ctx context.Context, payload any) error {
		ran.Add(1)
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "evt", nil))
	waitClosed(t, b)

	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, int32(2), failures.Load())
}

func TestBus_PublishDoesNotWaitForHandlers(t *testing.T) {
	b := NewBus(quietLogger())
	release := make(chan struct{})
	started := make(chan struct{})
	b.Subscribe("slow", func(ctx context.Context, payload any) error {
		close(started)
		<-release
		return nil
	})

	returned := make(chan error, 1)
	go func() { returned <- b.Publish(context.Background(), "slow", nil) }()

	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on handler")
	}
	<-started
	close(release)
	waitClosed(t, b)
}

func TestBus_DetachesFromPublisherCancellation(t *testing.T) {
	b := NewBus(quietLogger())
	gotErr := make(chan error, 1)
	b.Subscribe("evt", func(ctx context.Context, payload any) error {
		gotErr <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Publish(ctx, "evt", nil))
	cancel()
	waitClosed(t, b)

	assert.NoError(t, <-gotErr)
}

func TestBus_NoSubscribersIsNotAnError(t *testing.T) {
	b := NewBus(quietLogger())
	assert.NoError(t, b.Publish(context.Background(), "nobody", 1))
	waitClosed(t, b)
}

func TestBus_ClosedRejectsPublish(t *testing.T) {
	b := NewBus(quietLogger())
	waitClosed(t, b)
	assert.ErrorIs(t, b.Publish(context.Background(), "evt", nil), ErrBusClosed)
}

func TestBus_SaturatedRejectsPublish(t *testing.T) {
	b := NewBus(quietLogger(), WithMaxInFlight(1))
	release := make(chan struct{})
	b.Subscribe("evt", func(ctx context.Context, payload any) error {
		<-release
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "evt", nil))
	assert.ErrorIs(t, b.Publish(context.Background(), "evt", nil), ErrBusSaturated)

	close(release)
	waitClosed(t, b)
}

// Publishers log the returned error themselves; the bus only warns.
func TestBus_SaturationLogsWarningOnly(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	b := NewBus(logger, WithMaxInFlight(1))
	release := make(chan struct{})
	b.Subscribe("evt", func(ctx context.Context, payload any) error {
		<-release
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "evt", nil))
	hook.Reset()
	require.ErrorIs(t, b.Publish(context.Background(), "evt", nil), ErrBusSaturated)

	entries := hook.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, "event bus saturated", entries[0].Message)

	close(release)
	waitClosed(t, b)
}

func TestOn_TypedPayload(t *testing.T) {
	var failures atomic.Int32
	b := NewBus(quietLogger(), WithFailureHook(func(string) { failures.Add(1) }))

	got := make(chan UserRegisteredEvent, 1)
	On(b, UserRegistered, func(ctx context.Context, evt UserRegisteredEvent) error {
		got <- evt
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), UserRegistered, UserRegisteredEvent{Email: "a@b.co"}))
	require.NoError(t, b.Publish(context.Background(), UserRegistered, "wrong type"))
	waitClosed(t, b)

	assert.Equal(t, "a@b.co", (<-got).Email)
	assert.Equal(t, int32(1), failures.Load())
}

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrBusClosed    = errors.New("event bus closed")
	ErrBusSaturated = errors.New("event bus saturated")
)

// DefaultMaxInFlight bounds the number of dispatches running at once.
const DefaultMaxInFlight = 1024

// Handler consumes one event payload. A returned error or panic is logged by the bus.
type Handler func(ctx context.Context, payload any) error

// Publisher schedules an event for asynchronous delivery.
// A nil error means scheduling succeeded, not that any handler did.
type Publisher interface {
	Publish(ctx context.Context, name string, payload any) error
}

type Subscriber interface {
	Subscribe(name string, h Handler)
}

// Bus is an in-process, best-effort publish/subscribe dispatcher.
// Each Publish spawns one dispatch that runs the handlers registered at publish
// time in subscription order. Nothing is persisted.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool

	wg     sync.WaitGroup
	slots  chan struct{}
	logger logrus.FieldLogger
	onFail func(event string)
}

type Option func(*Bus)

// WithMaxInFlight sets how many dispatches may run concurrently before Publish
// reports ErrBusSaturated.
func WithMaxInFlight(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.slots = make(chan struct{}, n)
		}
	}
}

// WithFailureHook registers a callback invoked after a handler fails.
func WithFailureHook(fn func(event string)) Option {
	return func(b *Bus) { b.onFail = fn }
}

func NewBus(logger logrus.FieldLogger, opts ...Option) *Bus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	b := &Bus{
		handlers: make(map[string][]Handler),
		slots:    make(chan struct{}, DefaultMaxInFlight),
		logger:   logger.WithField("component", "event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(name string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish never waits for handlers. The dispatch runs on its own goroutine with a
// context detached from ctx's cancellation so request teardown does not abort it.
func (b *Bus) Publish(ctx context.Context, name string, payload any) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		b.logger.WithField("event", name).Warn("publish on closed bus")
		return ErrBusClosed
	}
	select {
	case b.slots <- struct{}{}:
	default:
		b.mu.RUnlock()
		b.logger.WithField("event", name).Warn("event bus saturated")
		return ErrBusSaturated
	}
	hs := append([]Handler(nil), b.handlers[name]...)
	b.wg.Add(1)
	b.mu.RUnlock()

	b.logger.WithFields(logrus.Fields{"event": name, "handlers": len(hs)}).Debug("publishing event")
	go b.dispatch(context.WithoutCancel(ctx), name, payload, hs)
	return nil
}

func (b *Bus) dispatch(ctx context.Context, name string, payload any, hs []Handler) {
	defer func() {
		<-b.slots
		b.wg.Done()
	}()
	for i, h := range hs {
		if err := b.invoke(ctx, name, payload, h); err != nil {
			b.logger.WithError(err).WithFields(logrus.Fields{"event": name, "handler": i}).Error("event handler failed")
			if b.onFail != nil {
				b.onFail(name)
			}
		}
	}
}

func (b *Bus) invoke(ctx context.Context, name string, payload any, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for %s panicked: %v", name, r)
		}
	}()
	return h(ctx, payload)
}

// Close rejects further publishes and waits for running dispatches until ctx is done.
// Retry timers scheduled by handlers are not tracked and may be dropped.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// On subscribes a typed handler; payloads of any other type are reported as handler errors.
func On[T any](s Subscriber, name string, fn func(ctx context.Context, evt T) error) {
	s.Subscribe(name, func(ctx context.Context, payload any) error {
		evt, ok := payload.(T)
		if !ok {
			return fmt.Errorf("event %s: unexpected payload %T", name, payload)
		}
		return fn(ctx, evt)
	})
}

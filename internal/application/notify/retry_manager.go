package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/config"
	"github.com/oksasatya/go-account-service/internal/events"
	"github.com/oksasatya/go-account-service/internal/metrics"
	"github.com/oksasatya/go-account-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
)

// Notification is one logical email send.
type Notification struct {
	Template string
	To       string
	Vars     map[string]any
}

// RetryState is the bookkeeping kept for a recipient between attempts.
type RetryState struct {
	Attempts int
	NextFire time.Time
}

// RetryManager delivers lifecycle emails and retries transient failures with a
// linear backoff of attempt x BaseDelay. Timers are fire-and-forget; nothing
// survives a restart.
type RetryManager struct {
	Sender      mailer.Sender
	Config      *config.Config
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      logrus.FieldLogger

	// After schedules f once d has elapsed. Defaults to time.AfterFunc.
	After func(d time.Duration, f func())
	Now   func() time.Time

	mu    sync.Mutex
	state map[string]RetryState
}

func NewRetryManager(sender mailer.Sender, cfg *config.Config, maxAttempts int, baseDelay time.Duration, logger logrus.FieldLogger) *RetryManager {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RetryManager{
		Sender:      sender,
		Config:      cfg,
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Logger:      logger.WithField("component", "notification_retry"),
		After:       func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		Now:         time.Now,
		state:       make(map[string]RetryState),
	}
}

// Subscribe wires the manager to the lifecycle events that need an email.
func (m *RetryManager) Subscribe(s events.Subscriber) {
	events.On(s, events.UserRegistered, m.OnUserRegistered)
	events.On(s, events.PasswordResetRequested, m.OnPasswordResetRequested)
}

func (m *RetryManager) OnUserRegistered(ctx context.Context, evt events.UserRegisteredEvent) error {
	vars := mailtpl.NewActivationData(m.Config, evt.Username, evt.Email, evt.Token, mailtpl.WithExpiresAt(evt.ExpiresAt))
	m.Deliver(ctx, Notification{Template: mailtpl.AccountActivation, To: evt.Email, Vars: vars})
	return nil
}

func (m *RetryManager) OnPasswordResetRequested(ctx context.Context, evt events.PasswordResetRequestedEvent) error {
	vars := mailtpl.NewPasswordResetData(m.Config, evt.Username, evt.Email, evt.Token, mailtpl.WithExpiresAt(evt.ExpiresAt))
	m.Deliver(ctx, Notification{Template: mailtpl.PasswordReset, To: evt.Email, Vars: vars})
	return nil
}

// Deliver makes the first attempt on the calling goroutine and schedules any retries.
func (m *RetryManager) Deliver(ctx context.Context, n Notification) {
	m.attempt(ctx, n, 1)
}

func (m *RetryManager) attempt(ctx context.Context, n Notification, attempt int) {
	log := m.Logger.WithFields(logrus.Fields{"template": n.Template, "to": n.To, "attempt": attempt})

	id, err := m.Sender.Send(ctx, n.Template, n.To, n.Vars)
	if err == nil {
		m.clear(n.To)
		metrics.RecordNotificationSent(n.Template)
		log.WithField("message_id", id).Info("notification sent")
		return
	}

	if mailer.IsPermanent(err) {
		m.clear(n.To)
		metrics.RecordNotificationFailed(n.Template, "permanent")
		log.WithError(err).Error("notification permanently failed")
		return
	}
	if attempt >= m.MaxAttempts {
		m.clear(n.To)
		metrics.RecordNotificationFailed(n.Template, "exhausted")
		log.WithError(err).Error("notification permanently failed after retries")
		return
	}

	delay := m.BaseDelay * time.Duration(attempt)
	m.track(n.To, RetryState{Attempts: attempt, NextFire: m.Now().Add(delay)})
	metrics.RecordNotificationRetry(n.Template)
	log.WithError(err).WithField("retry_in", delay.String()).Warn("notification failed, retrying")

	m.After(delay, func() { m.attempt(ctx, n, attempt+1) })
}

// Pending returns the retry state for an address, if a retry is scheduled.
func (m *RetryManager) Pending(to string) (RetryState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[to]
	return st, ok
}

func (m *RetryManager) Inflight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state)
}

func (m *RetryManager) track(to string, st RetryState) {
	m.mu.Lock()
	m.state[to] = st
	n := len(m.state)
	m.mu.Unlock()
	metrics.SetRetryInflight(n)
}

func (m *RetryManager) clear(to string) {
	m.mu.Lock()
	delete(m.state, to)
	n := len(m.state)
	m.mu.Unlock()
	metrics.SetRetryInflight(n)
}

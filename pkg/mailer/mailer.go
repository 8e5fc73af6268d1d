package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
)

// Sender delivers a named template to a recipient and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, template, to string, vars map[string]any) (string, error)
}

// Message is a rendered email ready for relay.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport relays an already rendered message.
type Transport interface {
	Deliver(ctx context.Context, msg Message) (string, error)
}

// PermanentError marks a failure that will not succeed on retry
// (bad recipient, rejected credentials, unknown template).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// TemplateSender renders embedded templates and hands the result to a Transport.
type TemplateSender struct {
	Transport Transport
}

func NewTemplateSender(t Transport) *TemplateSender {
	return &TemplateSender{Transport: t}
}

func (s *TemplateSender) Send(ctx context.Context, template, to string, vars map[string]any) (string, error) {
	if !mailtpl.Known(template) {
		return "", Permanent(fmt.Errorf("unknown template %q", template))
	}
	subject, text, html, err := mailtpl.Render(template, vars)
	if err != nil {
		return "", Permanent(err)
	}
	return s.Transport.Deliver(ctx, Message{To: to, Subject: subject, Text: text, HTML: html})
}

// LogTransport writes a line per message instead of sending it. Bodies carry
// secrets and are never logged.
type LogTransport struct {
	Logger logrus.FieldLogger
	next   func() string
}

func NewLogTransport(logger logrus.FieldLogger, nextID func() string) *LogTransport {
	return &LogTransport{Logger: logger, next: nextID}
}

func (t *LogTransport) Deliver(ctx context.Context, msg Message) (string, error) {
	id := "log"
	if t.next != nil {
		id = t.next()
	}
	t.Logger.WithFields(logrus.Fields{
		"to":         msg.To,
		"subject":    msg.Subject,
		"message_id": id,
	}).Info("email delivery skipped (log driver)")
	return id, nil
}

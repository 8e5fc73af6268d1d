package mailer

import (
	"context"
	"errors"
	"net/http"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun wraps Mailgun client configuration.
type Mailgun struct {
	Domain  string
	APIKey  string
	Sender  string
	Timeout time.Duration
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Domain: domain, APIKey: apiKey, Sender: sender, Timeout: 10 * time.Second}
}

// Deliver sends a message via Mailgun. HTML is optional.
func (m *Mailgun) Deliver(ctx context.Context, msg Message) (string, error) {
	client := mg.NewMailgun(m.Domain, m.APIKey)
	message := client.NewMessage(m.Sender, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}
	c, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	_, id, err := client.Send(c, message)
	if err != nil {
		return "", classifyMailgun(err)
	}
	return id, nil
}

// 4xx responses other than 429 will keep failing; everything else is worth a retry.
func classifyMailgun(err error) error {
	var ure *mg.UnexpectedResponseError
	if errors.As(err, &ure) {
		if ure.Actual >= 400 && ure.Actual < 500 && ure.Actual != http.StatusTooManyRequests {
			return Permanent(err)
		}
	}
	return err
}

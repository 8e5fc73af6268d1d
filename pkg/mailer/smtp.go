package mailer

import (
	"context"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Insecure bool
	Timeout  time.Duration
}

type SMTP struct {
	cfg SMTPConfig
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTP{cfg: cfg}
}

func (s *SMTP) Deliver(ctx context.Context, msg Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return "", Permanent(err)
	}
	if err := m.To(msg.To); err != nil {
		return "", Permanent(err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	tlsPolicy := mail.TLSMandatory
	if s.cfg.Insecure {
		tlsPolicy = mail.TLSOpportunistic
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy),
	}
	if s.cfg.Username != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(s.cfg.Username), mail.WithPassword(s.cfg.Password))
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return "", Permanent(err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return "", classifySMTP(err)
	}
	return m.GetMessageID(), nil
}

func classifySMTP(err error) error {
	msg := err.Error()
	for _, marker := range []string{"535", "5.7.8", "550", "553", "authentication failed"} {
		if strings.Contains(msg, marker) {
			return Permanent(err)
		}
	}
	return err
}

package mailer

import (
	"context"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPTransport delivers over implicit TLS with PLAIN authentication.
type SMTPTransport struct {
	Timeout time.Duration
}

func (t SMTPTransport) client(cfg SMTPConfig) (*mail.Client, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(timeout),
	)
}

func (t SMTPTransport) Test(ctx context.Context, cfg SMTPConfig) error {
	c, err := t.client(cfg)
	if err != nil {
		return err
	}
	if err := c.DialWithContext(ctx); err != nil {
		return err
	}
	return c.Close()
}

func (t SMTPTransport) Send(ctx context.Context, cfg SMTPConfig, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return err
	}
	if err := m.To(msg.To); err != nil {
		return err
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	c, err := t.client(cfg)
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, m)
}

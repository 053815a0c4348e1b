// Package mailer sends email through an SMTP server whose settings are
// read from the environment on every call.
package mailer

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
)

// Environment variables holding the SMTP settings.
const (
	EnvHost     = "SMTP_HOST"
	EnvPort     = "SMTP_PORT"
	EnvUsername = "SMTP_USERNAME"
	EnvPassword = "SMTP_PASSWORD"
)

// SMTPConfig is one resolved set of SMTP settings.  Username doubles as
// the sender address.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Request is the body accepted by the email endpoint.  With Test set the
// other fields are ignored and only the connection is checked.
type Request struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
	Test    bool   `json:"test,omitempty"`
}

// Message is what a Transport delivers.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport talks to the SMTP server.
type Transport interface {
	// Test opens and closes an authenticated session.
	Test(ctx context.Context, cfg SMTPConfig) error
	Send(ctx context.Context, cfg SMTPConfig, msg Message) error
}

// Dispatcher validates requests and hands them to its Transport.  Each
// request is a single synchronous attempt.
type Dispatcher struct {
	Transport Transport
	Getenv    func(string) string
}

func New(t Transport) *Dispatcher {
	return &Dispatcher{Transport: t, Getenv: os.Getenv}
}

const errIncomplete = "SMTP configuration is incomplete. Please check your email settings."

// Config reads the SMTP settings.  Any missing value yields a
// ConfigurationError naming it.
func (d *Dispatcher) Config() (SMTPConfig, error) {
	getenv := d.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	vals := map[string]string{}
	var missing []string
	for _, k := range []string{EnvHost, EnvPort, EnvUsername, EnvPassword} {
		v := strings.TrimSpace(getenv(k))
		if v == "" {
			missing = append(missing, k)
		}
		vals[k] = v
	}
	if len(missing) > 0 {
		return SMTPConfig{}, &apperr.ConfigurationError{Missing: missing, Msg: errIncomplete}
	}
	port, err := strconv.Atoi(vals[EnvPort])
	if err != nil || port <= 0 || port > 65535 {
		return SMTPConfig{}, &apperr.ConfigurationError{Msg: "SMTP_PORT must be a port number"}
	}
	return SMTPConfig{Host: vals[EnvHost], Port: port, Username: vals[EnvUsername], Password: vals[EnvPassword]}, nil
}

// Test checks that an authenticated TLS session can be opened.
func (d *Dispatcher) Test(ctx context.Context) error {
	cfg, err := d.Config()
	if err != nil {
		log.Printf("mailer: %v", err)
		return err
	}
	log.Printf("mailer: testing SMTP connection to %s:%d", cfg.Host, cfg.Port)
	if err := d.Transport.Test(ctx, cfg); err != nil {
		log.Printf("mailer: connection test failed: %v", err)
		return apperr.Delivery("SMTP connection", err)
	}
	return nil
}

// Send delivers req from the configured username.  The plain-text part
// falls back to the HTML when Text is empty.
func (d *Dispatcher) Send(ctx context.Context, req Request) error {
	cfg, err := d.Config()
	if err != nil {
		log.Printf("mailer: %v", err)
		return err
	}
	to, subject := strings.TrimSpace(req.To), strings.TrimSpace(req.Subject)
	if to == "" || subject == "" || strings.TrimSpace(req.HTML) == "" {
		return apperr.Validation("", "Missing required fields: to, subject, and html are required")
	}
	if err := mail.NewMsg().To(to); err != nil {
		return apperr.Validation("to", "must be a valid email address")
	}
	msg := Message{From: cfg.Username, To: to, Subject: subject, Text: req.Text, HTML: req.HTML}
	if strings.TrimSpace(msg.Text) == "" {
		msg.Text = req.HTML
	}
	log.Printf("mailer: sending email to %s, subject %q", to, subject)
	if err := d.Transport.Send(ctx, cfg, msg); err != nil {
		log.Printf("mailer: send to %s failed: %v", to, err)
		return apperr.Delivery("send email", err)
	}
	return nil
}

// Response is the JSON body of the email endpoint.
type Response struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handle runs req and returns the HTTP status and body to send back.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (int, Response) {
	var (
		err error
		ok  string
	)
	if req.Test {
		err, ok = d.Test(ctx), "SMTP connection successful!"
	} else {
		err, ok = d.Send(ctx, req), "Email sent successfully!"
	}
	if err == nil {
		return http.StatusOK, Response{Success: true, Message: ok}
	}
	var (
		cfgErr *apperr.ConfigurationError
		delErr *apperr.DeliveryError
	)
	msg := apperr.Message(err)
	switch {
	case errors.As(err, &cfgErr):
		msg = cfgErr.Msg
	case errors.As(err, &delErr):
		msg = delErr.Error()
	}
	return apperr.Status(err), Response{Error: msg}
}

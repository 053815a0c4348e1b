package mailer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
)

type fakeTransport struct {
	tests int
	sent  []Message
	err   error
}

func (f *fakeTransport) Test(context.Context, SMTPConfig) error {
	f.tests++
	return f.err
}

func (f *fakeTransport) Send(_ context.Context, _ SMTPConfig, m Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func env(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

func fullEnv() map[string]string {
	return map[string]string{
		EnvHost: "smtp.example.com", EnvPort: "465",
		EnvUsername: "noreply@example.com", EnvPassword: "pw",
	}
}

func newDispatcher(kv map[string]string) (*Dispatcher, *fakeTransport) {
	ft := &fakeTransport{}
	return &Dispatcher{Transport: ft, Getenv: env(kv)}, ft
}

func TestMissingHostFailsBeforeDialing(t *testing.T) {
	kv := fullEnv()
	delete(kv, EnvHost)
	d, ft := newDispatcher(kv)

	for _, req := range []Request{{Test: true}, {To: "a@b.co", Subject: "s", HTML: "<p>x</p>"}} {
		status, resp := d.Handle(context.Background(), req)
		if status != http.StatusInternalServerError || resp.Success {
			t.Errorf("status = %d resp = %+v", status, resp)
		}
		if !strings.Contains(resp.Error, "SMTP configuration is incomplete") {
			t.Errorf("error = %q", resp.Error)
		}
	}
	if ft.tests != 0 || len(ft.sent) != 0 {
		t.Errorf("transport used without configuration")
	}

	_, err := d.Config()
	var ce *apperr.ConfigurationError
	if !errors.As(err, &ce) || len(ce.Missing) != 1 || ce.Missing[0] != EnvHost {
		t.Errorf("Config error = %v", err)
	}
}

func TestBadPort(t *testing.T) {
	kv := fullEnv()
	kv[EnvPort] = "smtp"
	d, _ := newDispatcher(kv)
	var ce *apperr.ConfigurationError
	if _, err := d.Config(); !errors.As(err, &ce) {
		t.Errorf("err = %v", err)
	}
}

func TestSendValidation(t *testing.T) {
	d, ft := newDispatcher(fullEnv())
	for _, req := range []Request{
		{Subject: "s", HTML: "h"},
		{To: "a@b.co", HTML: "h"},
		{To: "a@b.co", Subject: "s"},
		{To: "not an address", Subject: "s", HTML: "h"},
	} {
		status, resp := d.Handle(context.Background(), req)
		if status != http.StatusBadRequest || resp.Error == "" {
			t.Errorf("%+v: status %d resp %+v", req, status, resp)
		}
	}
	if len(ft.sent) != 0 {
		t.Error("invalid request sent")
	}
}

func TestSendSuccessUsesHTMLFallback(t *testing.T) {
	d, ft := newDispatcher(fullEnv())
	status, resp := d.Handle(context.Background(), Request{To: "jane@x.com", Subject: "Ready", HTML: "<b>done</b>"})
	if status != http.StatusOK || !resp.Success || resp.Message != "Email sent successfully!" {
		t.Fatalf("status %d resp %+v", status, resp)
	}
	m := ft.sent[0]
	if m.From != "noreply@example.com" || m.To != "jane@x.com" || m.Text != "<b>done</b>" {
		t.Errorf("message = %+v", m)
	}
}

func TestConnectionTest(t *testing.T) {
	d, ft := newDispatcher(fullEnv())
	status, resp := d.Handle(context.Background(), Request{Test: true})
	if status != http.StatusOK || resp.Message != "SMTP connection successful!" || ft.tests != 1 {
		t.Fatalf("status %d resp %+v", status, resp)
	}

	ft.err = errors.New("dial tcp: connection refused")
	status, resp = d.Handle(context.Background(), Request{Test: true})
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d", status)
	}
	if resp.Error != "SMTP connection failed: dial tcp: connection refused" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestDeliveryErrorWrapsTransport(t *testing.T) {
	d, ft := newDispatcher(fullEnv())
	ft.err = errors.New("550 mailbox unavailable")
	err := d.Send(context.Background(), Request{To: "a@b.co", Subject: "s", HTML: "h"})
	var de *apperr.DeliveryError
	if !errors.As(err, &de) || !errors.Is(err, ft.err) {
		t.Errorf("err = %v", err)
	}
}

package handler

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/mailer"
	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/repository"
	"github.com/iliyamo/docreplace-portal/internal/session"
)

type memApps struct {
	mu   sync.Mutex
	rows map[string]*model.Application
}

func newMemApps() *memApps { return &memApps{rows: map[string]*model.Application{}} }

func (m *memApps) Create(_ context.Context, a *model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memApps) GetByID(_ context.Context, id string) (*model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrApplicationNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memApps) FindByTrackingIDOrPhone(_ context.Context, q string) (*model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TrackingID == q || r.Phone == q {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrApplicationNotFound
}

func (m *memApps) List(_ context.Context) ([]model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Application
	for _, r := range m.rows {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memApps) ListByEmail(ctx context.Context, email string) ([]model.Application, error) {
	all, _ := m.List(ctx)
	var out []model.Application
	for _, a := range all {
		if a.Email == email {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memApps) set(id string, fn func(*model.Application)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrApplicationNotFound
	}
	fn(r)
	return nil
}

func (m *memApps) UpdateStatus(_ context.Context, id string, s model.Status) error {
	return m.set(id, func(a *model.Application) { a.Status = s })
}

func (m *memApps) SetDocumentURL(_ context.Context, id, url string) error {
	return m.set(id, func(a *model.Application) { a.DocumentURL = &url })
}

func (m *memApps) SetPaymentConfirmed(_ context.Context, id string, ok bool) error {
	return m.set(id, func(a *model.Application) { a.PaymentConfirmed = ok })
}

func (m *memApps) SetNotes(_ context.Context, id string, notes *string) error {
	return m.set(id, func(a *model.Application) { a.Notes = notes })
}

type memMessages struct {
	mu   sync.Mutex
	rows []model.Message
}

func (m *memMessages) Create(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memMessages) ListConversation(_ context.Context, a, b uint64) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Message
	for _, r := range m.rows {
		if r.Involves(a, b) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memMessages) MarkRead(_ context.Context, receiver, sender uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rows {
		r := &m.rows[i]
		if r.ReceiverID == receiver && r.SenderID == sender && !r.IsRead {
			r.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memMessages) UnreadSenders(_ context.Context, receiver uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uint64
	for _, r := range m.rows {
		if r.ReceiverID == receiver && !r.IsRead {
			out = append(out, r.SenderID)
		}
	}
	return out, nil
}

// roleSet grants admin to the listed users.
type roleSet map[uint64]bool

func (r roleSet) HasRole(_ context.Context, uid uint64, role model.Role) (bool, error) {
	return role == model.RoleAdmin && r[uid], nil
}

func (r roleSet) FirstWithRole(_ context.Context, role model.Role) (uint64, error) {
	var best uint64
	for uid, ok := range r {
		if ok && role == model.RoleAdmin && (best == 0 || uid < best) {
			best = uid
		}
	}
	if best == 0 {
		return 0, repository.ErrUserNotFound
	}
	return best, nil
}

type failingViews struct{}

func (failingViews) Insert(context.Context, *model.PageView) error {
	return errors.New("db down")
}

func (failingViews) CountSince(context.Context, time.Time) (int64, error) { return 0, nil }

type recordingTransport struct {
	tests int
	sent  []mailer.Message
}

func (r *recordingTransport) Test(context.Context, mailer.SMTPConfig) error {
	r.tests++
	return nil
}

func (r *recordingTransport) Send(_ context.Context, _ mailer.SMTPConfig, m mailer.Message) error {
	r.sent = append(r.sent, m)
	return nil
}

// newCtx builds an Echo context for a JSON request, optionally signed in
// as uid.
func newCtx(method, target, body string, uid uint64) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != 0 {
		session.Into(c, session.Session{UserID: uid, Email: "u@example.com", Role: model.RoleCustomer})
	}
	return c, rec
}

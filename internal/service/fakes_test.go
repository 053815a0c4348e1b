package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/queue"
	"github.com/iliyamo/docreplace-portal/internal/repository"
)

type fakeApplications struct {
	mu   sync.Mutex
	rows map[string]*model.Application
	// collide makes the next n Create calls report a duplicate tracking ID.
	collide int
}

func newFakeApplications() *fakeApplications {
	return &fakeApplications{rows: make(map[string]*model.Application)}
}

func (f *fakeApplications) Create(_ context.Context, a *model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collide > 0 {
		f.collide--
		return repository.ErrDuplicate
	}
	for _, r := range f.rows {
		if r.TrackingID == a.TrackingID {
			return repository.ErrDuplicate
		}
	}
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeApplications) GetByID(_ context.Context, id string) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrApplicationNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeApplications) FindByTrackingIDOrPhone(_ context.Context, q string) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *model.Application
	for _, r := range f.rows {
		if r.TrackingID == q {
			cp := *r
			return &cp, nil
		}
		if r.Phone == q && (best == nil || r.CreatedAt.After(best.CreatedAt)) {
			best = r
		}
	}
	if best == nil {
		return nil, repository.ErrApplicationNotFound
	}
	cp := *best
	return &cp, nil
}

func (f *fakeApplications) List(ctx context.Context) ([]model.Application, error) {
	return f.filter(func(*model.Application) bool { return true }), nil
}

func (f *fakeApplications) ListByEmail(_ context.Context, email string) ([]model.Application, error) {
	return f.filter(func(a *model.Application) bool { return a.Email == email }), nil
}

func (f *fakeApplications) filter(keep func(*model.Application) bool) []model.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Application, 0)
	for _, r := range f.rows {
		if keep(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeApplications) mutate(id string, fn func(*model.Application)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return repository.ErrApplicationNotFound
	}
	fn(r)
	return nil
}

func (f *fakeApplications) UpdateStatus(_ context.Context, id string, st model.Status) error {
	return f.mutate(id, func(a *model.Application) { a.Status = st })
}

func (f *fakeApplications) SetDocumentURL(_ context.Context, id, url string) error {
	return f.mutate(id, func(a *model.Application) { a.DocumentURL = &url })
}

func (f *fakeApplications) SetPaymentConfirmed(_ context.Context, id string, ok bool) error {
	return f.mutate(id, func(a *model.Application) { a.PaymentConfirmed = ok })
}

func (f *fakeApplications) SetNotes(_ context.Context, id string, notes *string) error {
	return f.mutate(id, func(a *model.Application) { a.Notes = notes })
}

type fakeFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeFiles) Upload(_ context.Context, key string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = buf.Bytes()
	return "http://files.test/application-documents/" + key, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []queue.ApplicationEvent
}

func (f *fakeEvents) PublishApplicationEvent(_ context.Context, ev queue.ApplicationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Kind
	}
	return out
}

type fakeMessages struct {
	mu   sync.Mutex
	rows []model.Message
}

func (f *fakeMessages) Create(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMessages) ListConversation(_ context.Context, a, b uint64) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Message, 0)
	for _, m := range f.rows {
		if m.Involves(a, b) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return strings.Compare(out[i].ID, out[j].ID) < 0
	})
	return out, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, receiver, sender uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.rows {
		m := &f.rows[i]
		if m.ReceiverID == receiver && m.SenderID == sender && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeMessages) UnreadSenders(_ context.Context, receiver uint64) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, 0)
	for _, m := range f.rows {
		if m.ReceiverID == receiver && !m.IsRead {
			out = append(out, m.SenderID)
		}
	}
	return out, nil
}

type fakeStaff struct{ id uint64 }

func (f fakeStaff) FirstWithRole(context.Context, model.Role) (uint64, error) {
	if f.id == 0 {
		return 0, repository.ErrUserNotFound
	}
	return f.id, nil
}

type fakeProfiles struct {
	mu   sync.Mutex
	rows map[uint64]*model.Profile
	// raceOnCreate simulates another request creating the row first.
	raceOnCreate bool
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID uint64) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Create(_ context.Context, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = make(map[uint64]*model.Profile)
	}
	if f.raceOnCreate {
		f.raceOnCreate = false
		f.rows[p.UserID] = &model.Profile{ID: "winner", UserID: p.UserID}
		return repository.ErrDuplicate
	}
	if _, ok := f.rows[p.UserID]; ok {
		return repository.ErrDuplicate
	}
	cp := *p
	f.rows[p.UserID] = &cp
	return nil
}

func (f *fakeProfiles) Update(_ context.Context, userID uint64, name, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.FullName, p.Phone = name, phone
	return nil
}

func (f *fakeProfiles) ListCustomers(context.Context) ([]model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Profile, 0, len(f.rows))
	for _, p := range f.rows {
		out = append(out, *p)
	}
	return out, nil
}

type fakeSettings struct {
	row *model.SiteSettings
}

func (f *fakeSettings) Get(context.Context) (*model.SiteSettings, error) {
	if f.row == nil {
		return nil, repository.ErrSettingsNotFound
	}
	cp := *f.row
	return &cp, nil
}

func (f *fakeSettings) Upsert(_ context.Context, s *model.SiteSettings) error {
	cp := *s
	f.row = &cp
	return nil
}

type fakePageViews struct {
	rows []model.PageView
	err  error
}

func (f *fakePageViews) Insert(_ context.Context, v *model.PageView) error {
	if f.err != nil {
		return f.err
	}
	v.ID = uint64(len(f.rows) + 1)
	f.rows = append(f.rows, *v)
	return nil
}

func (f *fakePageViews) CountSince(_ context.Context, since time.Time) (int64, error) {
	var n int64
	for _, v := range f.rows {
		if since.IsZero() || !v.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// clock returns a Now func that advances one second per call.
func clock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

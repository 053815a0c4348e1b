package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/realtime"
)

func sampleApps() []model.Application {
	return []model.Application{
		{TrackingID: "DR-AAAA1111", FullName: "Jane Doe", Email: "jane@x.com", Phone: "0711111111", Status: model.StatusReceived},
		{TrackingID: "DR-BBBB2222", FullName: "John Smith", Email: "john@y.org", Phone: "0722222222", Status: model.StatusCompleted},
		{TrackingID: "DR-CCCC3333", FullName: "Mary Jane", Email: "mary@x.com", Phone: "0733333333", Status: model.StatusProcessingAtInstitution},
		{TrackingID: "DR-DDDD4444", FullName: "Ann Lee", Email: "ann@z.net", Phone: "0744444444", Status: model.StatusUnderVerification},
		{TrackingID: "DR-EEEE5555", FullName: "Bob Ray", Email: "bob@z.net", Phone: "0755555555", Status: model.StatusReady},
	}
}

func trackingIDs(apps []model.Application) []string {
	out := make([]string, len(apps))
	for i, a := range apps {
		out[i] = a.TrackingID
	}
	return out
}

func TestFilter(t *testing.T) {
	apps := sampleApps()
	cases := []struct {
		term, status string
		want         []string
	}{
		{"", "", []string{"DR-AAAA1111", "DR-BBBB2222", "DR-CCCC3333", "DR-DDDD4444", "DR-EEEE5555"}},
		{"JANE", StatusAll, []string{"DR-AAAA1111", "DR-CCCC3333"}},
		{"dr-bbbb", "", []string{"DR-BBBB2222"}},
		{"@Z.NET", "", []string{"DR-DDDD4444", "DR-EEEE5555"}},
		{"07222", "", []string{"DR-BBBB2222"}},
		{"jane", "received", []string{"DR-AAAA1111"}},
		{"", "completed", []string{"DR-BBBB2222"}},
		{"nobody", "", []string{}},
	}
	for _, c := range cases {
		got := trackingIDs(Filter(apps, c.term, c.status))
		if len(got) != len(c.want) {
			t.Errorf("Filter(%q,%q) = %v, want %v", c.term, c.status, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("Filter(%q,%q) = %v, want %v", c.term, c.status, got, c.want)
				break
			}
		}
	}
}

func TestFilterCommutesWithStatus(t *testing.T) {
	apps := sampleApps()
	for _, st := range append([]model.Status{}, model.Statuses...) {
		a := trackingIDs(Filter(Filter(apps, "x.com", ""), "", string(st)))
		b := trackingIDs(Filter(Filter(apps, "", string(st)), "x.com", ""))
		c := trackingIDs(Filter(apps, "x.com", string(st)))
		if len(a) != len(b) || len(a) != len(c) {
			t.Fatalf("status %s: %v / %v / %v", st, a, b, c)
		}
		for i := range a {
			if a[i] != b[i] || a[i] != c[i] {
				t.Fatalf("status %s: %v / %v / %v", st, a, b, c)
			}
		}
	}
}

func TestCountApplications(t *testing.T) {
	s := CountApplications(sampleApps())
	if s.Total != 5 || s.Pending != 2 || s.Processing != 1 || s.Completed != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("EAT", 3*3600)
	// 22:30 UTC is already the next day at +03:00.
	got := StartOfDay(time.Date(2026, 5, 1, 22, 30, 0, 0, time.UTC), loc)
	want := time.Date(2026, 5, 2, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", got, want)
	}
}

type stubSources struct {
	mu     sync.Mutex
	apps   []model.Application
	views  []time.Time
	unread map[uint64]int
}

func (s *stubSources) List(context.Context) ([]model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Application(nil), s.apps...), nil
}

func (s *stubSources) CountSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, v := range s.views {
		if since.IsZero() || !v.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *stubSources) UnreadCounts(context.Context, uint64) (map[uint64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint64]int, len(s.unread))
	for k, v := range s.unread {
		out[k] = v
	}
	return out, nil
}

func (s *stubSources) Get(context.Context) (*model.SiteSettings, error) {
	return &model.SiteSettings{ID: model.SettingsID}, nil
}

func (s *stubSources) Customers(context.Context) ([]model.Profile, error) {
	return []model.Profile{{ID: "p1", UserID: 10}}, nil
}

func newController(src *stubSources, bus realtime.Bus, now time.Time) *Controller {
	return &Controller{
		Apps: src, Views: src, Messages: src, Settings: src, Customers: src,
		Bus: bus, Location: time.UTC, Now: func() time.Time { return now },
	}
}

func TestSnapshot(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	src := &stubSources{
		apps:   sampleApps(),
		views:  []time.Time{now.Add(-48 * time.Hour), now.Add(-time.Hour), now.Add(-time.Minute)},
		unread: map[uint64]int{10: 3},
	}
	snap, err := newController(src, nil, now).Snapshot(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Stats.PageViewsTotal != 3 || snap.Stats.PageViewsToday != 2 {
		t.Errorf("views = %d/%d", snap.Stats.PageViewsTotal, snap.Stats.PageViewsToday)
	}
	if len(snap.Applications) != 5 || snap.Unread[10] != 3 || len(snap.Customers) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRunRefetchesOnEvents(t *testing.T) {
	src := &stubSources{unread: map[uint64]int{}}
	bus := realtime.NewMemoryBus(16)
	d := newController(src, bus, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan Update, 8)
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, 1, func(u Update) { updates <- u }) }()

	// Wait until Run has subscribed.
	deadline := time.Now().Add(time.Second)
	for bus.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Run never subscribed")
		}
		time.Sleep(time.Millisecond)
	}

	src.mu.Lock()
	src.apps = sampleApps()[:1]
	src.mu.Unlock()
	bus.Publish(ctx, realtime.TopicApplications, src.apps[0])
	if u := next(t, updates); u.Kind != UpdateApplications || len(u.Applications) != 1 || u.Stats.Total != 1 {
		t.Errorf("applications update = %+v", u)
	}

	bus.Publish(ctx, realtime.TopicMessages, model.Message{SenderID: 10, ReceiverID: 99})
	src.mu.Lock()
	src.unread[10] = 1
	src.mu.Unlock()
	bus.Publish(ctx, realtime.TopicMessages, model.Message{SenderID: 10, ReceiverID: 1})
	if u := next(t, updates); u.Kind != UpdateUnread || u.Unread[10] != 1 {
		t.Errorf("unread update = %+v", u)
	}

	src.mu.Lock()
	src.views = append(src.views, time.Now())
	src.mu.Unlock()
	bus.Publish(ctx, realtime.TopicPageViews, model.PageView{PagePath: "/"})
	if u := next(t, updates); u.Kind != UpdateStats || u.Stats.PageViewsTotal != 1 {
		t.Errorf("stats update = %+v", u)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func next(t *testing.T, ch <-chan Update) Update {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(time.Second):
		t.Fatal("no update")
		return Update{}
	}
}

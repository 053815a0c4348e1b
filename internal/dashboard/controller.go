package dashboard

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/realtime"
)

type ApplicationLister interface {
	List(ctx context.Context) ([]model.Application, error)
}

type ViewCounter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type UnreadCounter interface {
	UnreadCounts(ctx context.Context, receiver uint64) (map[uint64]int, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (*model.SiteSettings, error)
}

type CustomerLister interface {
	Customers(ctx context.Context) ([]model.Profile, error)
}

// Snapshot is everything the admin page shows on load.
type Snapshot struct {
	Applications []model.Application `json:"applications"`
	Stats        Stats               `json:"stats"`
	Unread       map[uint64]int      `json:"unread"`
	Settings     *model.SiteSettings `json:"settings"`
	Customers    []model.Profile     `json:"customers"`
}

// Update kinds sent by Run.
const (
	UpdateApplications = "applications"
	UpdateStats        = "stats"
	UpdateUnread       = "unread"
)

// Update carries the refetched part of the snapshot.  Only the fields
// belonging to Kind are set.
type Update struct {
	Kind         string              `json:"kind"`
	Applications []model.Application `json:"applications,omitempty"`
	Stats        *Stats              `json:"stats,omitempty"`
	Unread       map[uint64]int      `json:"unread,omitempty"`
}

// Controller serves the admin dashboard of one process.  It keeps no
// state between calls: every read is a fresh fetch.
type Controller struct {
	Apps      ApplicationLister
	Views     ViewCounter
	Messages  UnreadCounter
	Settings  SettingsReader
	Customers CustomerLister
	Bus       realtime.Bus

	Location *time.Location
	Now      func() time.Time
}

func (d *Controller) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Stats computes application and page-view counters.  "Today" starts at
// local midnight of d.Location.
func (d *Controller) Stats(ctx context.Context, apps []model.Application) (Stats, error) {
	s := CountApplications(apps)
	var err error
	if s.PageViewsTotal, err = d.Views.CountSince(ctx, time.Time{}); err != nil {
		return s, err
	}
	if s.PageViewsToday, err = d.Views.CountSince(ctx, StartOfDay(d.now(), d.Location).UTC()); err != nil {
		return s, err
	}
	return s, nil
}

// Snapshot fetches the full dashboard for admin.
func (d *Controller) Snapshot(ctx context.Context, admin uint64) (*Snapshot, error) {
	apps, err := d.Apps.List(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := d.Stats(ctx, apps)
	if err != nil {
		return nil, err
	}
	unread, err := d.Messages.UnreadCounts(ctx, admin)
	if err != nil {
		return nil, err
	}
	settings, err := d.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := d.Customers.Customers(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Applications: apps, Stats: stats, Unread: unread, Settings: settings, Customers: customers}, nil
}

// Run follows new applications, new page views and new messages to admin
// and calls notify with the refetched part after each one.  It returns
// when ctx is done.  A failed refetch is logged and skipped.
func (d *Controller) Run(ctx context.Context, admin uint64, notify func(Update)) error {
	if d.Bus == nil {
		return errors.New("dashboard: realtime bus not configured")
	}
	events, err := d.Bus.Subscribe(ctx, realtime.TopicApplications, realtime.TopicPageViews, realtime.TopicMessages)
	if err != nil {
		return err
	}
	for ev := range events {
		var (
			up  Update
			err error
		)
		switch ev.Topic {
		case realtime.TopicApplications:
			up, err = d.refetchApplications(ctx)
		case realtime.TopicPageViews:
			up, err = d.refetchStats(ctx)
		case realtime.TopicMessages:
			var m model.Message
			if ev.Decode(&m) != nil || m.ReceiverID != admin {
				continue
			}
			up.Kind = UpdateUnread
			up.Unread, err = d.Messages.UnreadCounts(ctx, admin)
		default:
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("dashboard: refetch after %s failed: %v", ev.Topic, err)
			}
			continue
		}
		notify(up)
	}
	return ctx.Err()
}

func (d *Controller) refetchApplications(ctx context.Context) (Update, error) {
	apps, err := d.Apps.List(ctx)
	if err != nil {
		return Update{}, err
	}
	stats, err := d.Stats(ctx, apps)
	if err != nil {
		return Update{}, err
	}
	return Update{Kind: UpdateApplications, Applications: apps, Stats: &stats}, nil
}

func (d *Controller) refetchStats(ctx context.Context) (Update, error) {
	apps, err := d.Apps.List(ctx)
	if err != nil {
		return Update{}, err
	}
	stats, err := d.Stats(ctx, apps)
	if err != nil {
		return Update{}, err
	}
	return Update{Kind: UpdateStats, Stats: &stats}, nil
}

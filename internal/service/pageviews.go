package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/realtime"
)

// PageViewStore is implemented by repository.PageViewRepo.
type PageViewStore interface {
	Insert(ctx context.Context, v *model.PageView) error
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// PageViewService records navigation for the dashboard counters.
type PageViewService struct {
	Store PageViewStore
	Bus   realtime.Bus
	Now   func() time.Time
}

func NewPageViewService(store PageViewStore, bus realtime.Bus) *PageViewService {
	return &PageViewService{Store: store, Bus: bus, Now: func() time.Time { return time.Now().UTC() }}
}

// Track records a view of path.  Tracking is non-critical: failures are
// logged and never reach the visitor.
func (s *PageViewService) Track(ctx context.Context, path string, userID *uint64) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	if len(path) > 512 {
		path = path[:512]
	}
	v := &model.PageView{PagePath: path, UserID: userID, CreatedAt: s.Now()}
	if err := s.Store.Insert(ctx, v); err != nil {
		log.Printf("pageviews: record %q failed: %v", path, err)
		return
	}
	if s.Bus != nil {
		if err := s.Bus.Publish(ctx, realtime.TopicPageViews, v); err != nil {
			log.Printf("pageviews: realtime publish failed: %v", err)
		}
	}
}

// CountSince counts views since the given instant (zero = all time).
func (s *PageViewService) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return s.Store.CountSince(ctx, since)
}

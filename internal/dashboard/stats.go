package dashboard

import (
	"time"

	"github.com/iliyamo/docreplace-portal/internal/model"
)

// Stats are the dashboard counters.
type Stats struct {
	Total          int   `json:"total"`
	Pending        int   `json:"pending"`
	Processing     int   `json:"processing"`
	Completed      int   `json:"completed"`
	PageViewsTotal int64 `json:"page_views_total"`
	PageViewsToday int64 `json:"page_views_today"`
}

// CountApplications fills the application counters.  Pending covers
// received and under_verification; ready is only part of Total.
func CountApplications(apps []model.Application) Stats {
	s := Stats{Total: len(apps)}
	for _, a := range apps {
		switch a.Status {
		case model.StatusReceived, model.StatusUnderVerification:
			s.Pending++
		case model.StatusProcessingAtInstitution:
			s.Processing++
		case model.StatusCompleted:
			s.Completed++
		}
	}
	return s
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

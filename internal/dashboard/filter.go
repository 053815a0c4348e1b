// Package dashboard assembles the admin overview: counters, the filtered
// application table, unread messages and live updates.
package dashboard

import (
	"strings"

	"github.com/iliyamo/docreplace-portal/internal/model"
)

// StatusAll disables status filtering.
const StatusAll = "all"

// Matches reports whether a passes the search term and status filter.
// The term matches tracking ID, name and email case-insensitively and the
// phone number as a plain substring; an empty term matches everything.
func Matches(a model.Application, term, status string) bool {
	if status != "" && status != StatusAll && string(a.Status) != status {
		return false
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	lt := strings.ToLower(term)
	return strings.Contains(strings.ToLower(a.TrackingID), lt) ||
		strings.Contains(strings.ToLower(a.FullName), lt) ||
		strings.Contains(strings.ToLower(a.Email), lt) ||
		strings.Contains(a.Phone, term)
}

// Filter returns the applications matching term and status, keeping their
// order.  It never modifies apps.
func Filter(apps []model.Application, term, status string) []model.Application {
	out := make([]model.Application, 0, len(apps))
	for _, a := range apps {
		if Matches(a, term, status) {
			out = append(out, a)
		}
	}
	return out
}

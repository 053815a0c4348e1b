package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/session"
)

// currentUserID returns the signed-in user's id as a string, or "anon".
// It feeds the rate limiter's per-user keys.
func currentUserID(c echo.Context) string {
	if s, ok := session.From(c); ok {
		return s.Subject()
	}
	return "anon"
}

// Package session manages sign-up, sign-in, refresh and sign-out and
// carries the resulting identity through a request explicitly: middleware
// stores a Session in the Echo context and handlers read it back with From.
package session

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/model"
)

const contextKey = "session"

// Session is the signed-in identity of a request.  Role reflects the
// access token; admin-only routes re-check it against the role store.
type Session struct {
	UserID uint64     `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

// Subject is the user id as carried in tokens and realtime payloads.
func (s Session) Subject() string { return strconv.FormatUint(s.UserID, 10) }

func (s Session) IsAdmin() bool { return s.Role == model.RoleAdmin }

// Into stores s on c.
func Into(c echo.Context, s Session) { c.Set(contextKey, s) }

// From returns the session stored on c by the auth middleware.
func From(c echo.Context) (Session, bool) {
	s, ok := c.Get(contextKey).(Session)
	return s, ok && s.UserID != 0
}

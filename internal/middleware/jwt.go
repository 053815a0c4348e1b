package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/session"
)

// Authenticator turns a raw bearer token into a session.  Implemented by
// session.Manager.
type Authenticator interface {
	Authenticate(raw string) (session.Session, error)
}

// unauthorized is the body sent when a protected route has no session.
// The client sends the user to the sign-in page.
var unauthorized = echo.Map{"error": "unauthorized", "redirect": "/auth"}

func bearer(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return raw, raw != ""
}

// JWTAuth requires a valid bearer access token and stores the resulting
// session.Session on the context for handlers (session.From).
func JWTAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, unauthorized)
			}
			s, err := auth.Authenticate(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, unauthorized)
			}
			session.Into(c, s)
			return next(c)
		}
	}
}

// OptionalJWT attaches a session when a valid bearer token is present and
// lets anonymous requests through untouched.
func OptionalJWT(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if s, err := auth.Authenticate(raw); err == nil {
					session.Into(c, s)
				}
			}
			return next(c)
		}
	}
}

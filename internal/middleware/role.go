package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/session"
)

// forbidden is deliberately generic so the admin area is not revealed.
var forbidden = echo.Map{"error": "forbidden", "redirect": "/"}

// RequireAdmin lets a request through only when the signed-in user holds
// the admin grant.  The token's role claim is not trusted: membership is
// asked of roles on every request.  When roles is a session.CachedRoles the
// answer may be up to its TTL old, so a revoked grant lingers that long.
// It must run after JWTAuth.
func RequireAdmin(roles session.RoleChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := session.From(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, unauthorized)
			}
			isAdmin, err := roles.HasRole(c.Request().Context(), s.UserID, model.RoleAdmin)
			if err != nil {
				c.Logger().Errorf("role check for %d: %v", s.UserID, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role check failed"})
			}
			if !isAdmin {
				return c.JSON(http.StatusForbidden, forbidden)
			}
			s.Role = model.RoleAdmin
			session.Into(c, s)
			return next(c)
		}
	}
}

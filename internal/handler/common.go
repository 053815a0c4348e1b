package handler // handler defines http handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
	"github.com/iliyamo/docreplace-portal/internal/session"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// currentSession returns the caller's session.  The auth middleware runs
// first, so a missing session here is a routing mistake; answer 401 anyway.
func currentSession(c echo.Context) (session.Session, error) {
	s, ok := session.From(c)
	if !ok {
		return s, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return s, nil
}

// writeError maps err to its HTTP status and writes {"error": msg}.
// Server-side failures are logged and their detail withheld.
func writeError(c echo.Context, err error) error {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": apperr.Message(err)})
}

func userIDParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(name, "must be a user id")
	}
	return id, nil
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/mailer"
)

// EmailHandler exposes the mail dispatcher over HTTP.  It is mounted on
// the admin API and served on its own by cmd/mailfn.
type EmailHandler struct {
	Mailer *mailer.Dispatcher
}

// Send handles {to, subject, html, text?} or {test: true}.
func (h *EmailHandler) Send(c echo.Context) error {
	var req mailer.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, mailer.Response{Error: "invalid body"})
	}
	status, resp := h.Mailer.Handle(c.Request().Context(), req)
	return c.JSON(status, resp)
}

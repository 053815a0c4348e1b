package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/service"
	"github.com/iliyamo/docreplace-portal/internal/session"
)

// PublicHandler serves the pages that need no account: the request form,
// tracking, settings for the footer and page-view tracking.
type PublicHandler struct {
	Apps     *service.ApplicationService
	Views    *service.PageViewService
	Settings *service.SettingsService
}

func NewPublicHandler(apps *service.ApplicationService, views *service.PageViewService, settings *service.SettingsService) *PublicHandler {
	return &PublicHandler{Apps: apps, Views: views, Settings: settings}
}

// Submit handles POST /v1/applications.
func (h *PublicHandler) Submit(c echo.Context) error {
	var in service.SubmitInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Apps.Submit(ctx, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// Track handles GET /v1/tracking?id=<tracking id or phone>.
func (h *PublicHandler) Track(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Apps.FindByTrackingIDOrPhone(ctx, c.QueryParam("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"application": a, "status_label": a.Status.Label()})
}

// GetSettings handles GET /v1/settings.
func (h *PublicHandler) GetSettings(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Settings.Get(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// TrackPageView handles POST /v1/page-views.  It always answers 202:
// tracking problems are logged by the service and never reach visitors.
func (h *PublicHandler) TrackPageView(c echo.Context) error {
	var body struct {
		Path string `json:"page_path"`
	}
	_ = c.Bind(&body)
	var uid *uint64
	if s, ok := session.From(c); ok {
		id := s.UserID
		uid = &id
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	h.Views.Track(ctx, body.Path, uid)
	return c.NoContent(http.StatusAccepted)
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
	"github.com/iliyamo/docreplace-portal/internal/dashboard"
	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/service"
)

// Purger drops cached public responses after an admin change.
type Purger interface {
	Purge(ctx context.Context) error
}

// AdminHandler serves the staff dashboard.  Every route runs behind
// JWTAuth and RequireAdmin.
type AdminHandler struct {
	Apps      *service.ApplicationService
	Profiles  *service.ProfileService
	Settings  *service.SettingsService
	Dashboard *dashboard.Controller
	Cache     Purger
	// MaxUploadBytes caps document uploads; zero means no cap.
	MaxUploadBytes int64
}

func NewAdminHandler(apps *service.ApplicationService, profiles *service.ProfileService, settings *service.SettingsService, dash *dashboard.Controller, cache Purger, maxUpload int64) *AdminHandler {
	return &AdminHandler{Apps: apps, Profiles: profiles, Settings: settings, Dashboard: dash, Cache: cache, MaxUploadBytes: maxUpload}
}

// Overview handles GET /v1/admin/dashboard.
func (h *AdminHandler) Overview(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	snap, err := h.Dashboard.Snapshot(ctx, s.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// Applications handles GET /v1/admin/applications?q=&status=.  The filter
// is applied to the full list; there is no pagination.
func (h *AdminHandler) Applications(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	apps, err := h.Apps.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dashboard.Filter(apps, c.QueryParam("q"), c.QueryParam("status")))
}

// UpdateStatus handles PATCH /v1/admin/applications/:id/status.  Any known
// status is accepted unless ?strict=true asks for forward-only moves.
func (h *AdminHandler) UpdateStatus(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	var body struct {
		Status model.Status `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	strict, _ := strconv.ParseBool(c.QueryParam("strict"))
	ctx, cancel := reqCtx(c)
	defer cancel()

	update := h.Apps.UpdateStatus
	if strict {
		update = h.Apps.UpdateStatusStrict
	}
	a, err := update(ctx, s.UserID, c.Param("id"), body.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// ConfirmPayment handles PATCH /v1/admin/applications/:id/payment.
func (h *AdminHandler) ConfirmPayment(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	var body struct {
		Confirmed *bool `json:"payment_confirmed"`
	}
	if err := c.Bind(&body); err != nil || body.Confirmed == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_confirmed is required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Apps.ConfirmPayment(ctx, s.UserID, c.Param("id"), *body.Confirmed)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// SetNotes handles PATCH /v1/admin/applications/:id/notes.
func (h *AdminHandler) SetNotes(c echo.Context) error {
	var body struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Apps.SetNotes(ctx, c.Param("id"), body.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// UploadDocument handles POST /v1/admin/applications/:id/document with a
// multipart "file" field.
func (h *AdminHandler) UploadDocument(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	if h.MaxUploadBytes > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.MaxUploadBytes)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, apperr.Validation("file", "is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer f.Close()

	// Uploads may be large; allow more time than a plain query.
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Minute)
	defer cancel()

	a, err := h.Apps.AttachDocument(ctx, s.UserID, c.Param("id"), fh.Filename, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Customers handles GET /v1/admin/customers: chat contacts for staff.
func (h *AdminHandler) Customers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Profiles.Customers(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// SaveSettings handles PUT /v1/admin/settings and purges the cached
// public copy.
func (h *AdminHandler) SaveSettings(c echo.Context) error {
	var in service.SettingsInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Settings.Save(ctx, in)
	if err != nil {
		return writeError(c, err)
	}
	if h.Cache != nil {
		if err := h.Cache.Purge(ctx); err != nil {
			c.Logger().Warnf("settings: cache purge failed: %v", err)
		}
	}
	return c.JSON(http.StatusOK, st)
}

// Events handles GET /v1/admin/events: a "snapshot" event, then one event
// per dashboard update (refetch-and-notify) until the client disconnects.
func (h *AdminHandler) Events(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	snapCtx, cancel := reqCtx(c)
	snap, err := h.Dashboard.Snapshot(snapCtx, s.UserID)
	cancel()
	if err != nil {
		return writeError(c, err)
	}

	updates := make(chan dashboard.Update, 8)
	go func() {
		err := h.Dashboard.Run(ctx, s.UserID, func(u dashboard.Update) {
			select {
			case updates <- u:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			c.Logger().Errorf("dashboard stream for %d: %v", s.UserID, err)
		}
	}()

	stream := openSSE(c)
	if err := stream.send("snapshot", snap); err != nil {
		return nil
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-updates:
			if err := stream.send(u.Kind, u); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := stream.ping(); err != nil {
				return nil
			}
		}
	}
}

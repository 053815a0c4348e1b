package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/service"
	"github.com/iliyamo/docreplace-portal/internal/session"
)

// ProfileHandler serves the signed-in customer's own pages.
type ProfileHandler struct {
	Profiles *service.ProfileService
	Apps     *service.ApplicationService
	Sessions *session.Manager
}

func NewProfileHandler(profiles *service.ProfileService, apps *service.ApplicationService, sessions *session.Manager) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Apps: apps, Sessions: sessions}
}

// Get handles GET /v1/profile and creates the profile on first visit.
func (h *ProfileHandler) Get(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Profiles.GetOrCreate(ctx, s.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Update handles PUT /v1/profile.
func (h *ProfileHandler) Update(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	var in service.ProfileInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Profiles.Update(ctx, s.UserID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ChangePassword handles POST /v1/profile/password.
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	var body struct {
		Password string `json:"password"`
		Confirm  string `json:"confirm_password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Sessions.ChangePassword(ctx, s.UserID, body.Password, body.Confirm); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Applications handles GET /v1/profile/applications: everything submitted
// with the account's email address.
func (h *ProfileHandler) Applications(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	apps, err := h.Apps.ListByEmail(ctx, s.Email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, apps)
}

// Documents handles GET /v1/profile/documents: completed applications
// with a downloadable document.
func (h *ProfileHandler) Documents(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	docs, err := h.Apps.CompletedDocuments(ctx, s.Email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}

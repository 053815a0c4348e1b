package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/service"
	"github.com/iliyamo/docreplace-portal/internal/session"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Sessions *session.Manager
	Roles    session.RoleChecker
	Profiles *service.ProfileService
}

func NewAuthHandler(m *session.Manager, roles session.RoleChecker, profiles *service.ProfileService) *AuthHandler {
	return &AuthHandler{Sessions: m, Roles: roles, Profiles: profiles}
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Register: create a customer identity and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Sessions.SignUp(ctx, req.Email, req.Password)
	if errors.Is(err, session.ErrEmailTaken) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Sessions.SignIn(ctx, req.Email, req.Password)
	if errors.Is(err, session.ErrInvalidCredentials) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Refresh: rotate the refresh token and issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if errors.Is(err, session.ErrInvalidRefresh) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Logout revokes the refresh token in the body or, when only a bearer
// token is supplied, every refresh token of that user.  Runs behind
// OptionalJWT.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	var uid uint64
	if s, ok := session.From(c); ok {
		uid = s.UserID
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Sessions.SignOut(ctx, uid, req.RefreshToken)
	if errors.Is(err, session.ErrInvalidRefresh) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the current session, its profile (created on first visit)
// and whether the caller currently holds the admin grant.
func (h *AuthHandler) Me(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	isAdmin, err := h.Roles.HasRole(ctx, s.UserID, model.RoleAdmin)
	if err != nil {
		return writeError(c, err)
	}
	if isAdmin {
		s.Role = model.RoleAdmin
	} else {
		s.Role = model.RoleCustomer
	}
	profile, err := h.Profiles.GetOrCreate(ctx, s.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": s, "profile": profile, "is_admin": isAdmin})
}

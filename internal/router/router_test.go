package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/handler"
	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/session"
)

type tokenAuth map[string]session.Session

func (t tokenAuth) Authenticate(raw string) (session.Session, error) {
	if s, ok := t[raw]; ok {
		return s, nil
	}
	return session.Session{}, errors.New("bad token")
}

type admins map[uint64]bool

func (a admins) HasRole(_ context.Context, uid uint64, role model.Role) (bool, error) {
	return role == model.RoleAdmin && a[uid], nil
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNotFoundEnvelope(t *testing.T) {
	e := echo.New()
	Register(e, Deps{})
	rec := serve(e, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"error":"not found"`) {
		t.Errorf("got %d %s", rec.Code, rec.Body)
	}
}

func TestAdminGroupIsGated(t *testing.T) {
	e := echo.New()
	Register(e, Deps{
		Admin: &handler.AdminHandler{},
		Authenticator: tokenAuth{
			"cust":  {UserID: 2, Role: model.RoleCustomer},
			"staff": {UserID: 1, Role: model.RoleCustomer},
		},
		Roles: admins{1: true},
	})

	if rec := serve(e, http.MethodGet, "/v1/admin/customers", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous = %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/v1/admin/customers", "cust"); rec.Code != http.StatusForbidden {
		t.Errorf("customer = %d", rec.Code)
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/config"
	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/session"
)

type stubAuth map[string]session.Session

func (s stubAuth) Authenticate(raw string) (session.Session, error) {
	if v, ok := s[raw]; ok {
		return v, nil
	}
	return session.Session{}, errors.New("bad token")
}

type stubRoles map[uint64]bool

func (s stubRoles) HasRole(_ context.Context, uid uint64, role model.Role) (bool, error) {
	return role == model.RoleAdmin && s[uid], nil
}

var (
	testAuth = stubAuth{
		"cust":  {UserID: 2, Role: model.RoleCustomer},
		"admin": {UserID: 1, Role: model.RoleCustomer}, // stale claim; the grant decides
	}
	testRoles = stubRoles{1: true}
)

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func adminEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(testAuth), RequireAdmin(testRoles))
	g.GET("", func(c echo.Context) error {
		s, _ := session.From(c)
		return c.String(http.StatusOK, string(s.Role))
	})
	return e
}

func TestRequireAdminGate(t *testing.T) {
	e := adminEcho()
	cases := []struct {
		token    string
		code     int
		contains string
	}{
		{"", http.StatusUnauthorized, `"redirect":"/auth"`},
		{"garbage", http.StatusUnauthorized, `"redirect":"/auth"`},
		{"cust", http.StatusForbidden, `"redirect":"/"`},
		{"admin", http.StatusOK, "admin"},
	}
	for _, c := range cases {
		rec := serve(e, http.MethodGet, "/admin", c.token)
		if rec.Code != c.code {
			t.Errorf("token %q: code = %d, want %d", c.token, rec.Code, c.code)
		}
		if !strings.Contains(rec.Body.String(), c.contains) {
			t.Errorf("token %q: body = %s", c.token, rec.Body.String())
		}
	}
}

func TestForbiddenBodyIsGeneric(t *testing.T) {
	rec := serve(adminEcho(), http.MethodGet, "/admin", "cust")
	if strings.Contains(strings.ToLower(rec.Body.String()), "admin") {
		t.Errorf("forbidden body mentions the admin area: %s", rec.Body.String())
	}
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/p", func(c echo.Context) error {
		s, ok := session.From(c)
		if !ok {
			return c.String(http.StatusOK, "anon")
		}
		return c.String(http.StatusOK, s.Subject())
	}, OptionalJWT(testAuth))

	for token, want := range map[string]string{"": "anon", "bogus": "anon", "cust": "2"} {
		if got := serve(e, http.MethodGet, "/p", token).Body.String(); got != want {
			t.Errorf("token %q: got %q, want %q", token, got, want)
		}
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/applications", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/applications")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.9:route:POST /v1/applications" {
		t.Errorf("ip_route key = %q", got)
	}
	cfg.KeyStrategy = "user"
	if got := buildRateKey(cfg, c); got != "rl:user:anon" {
		t.Errorf("anon user key = %q", got)
	}
	session.Into(c, session.Session{UserID: 5})
	if got := buildRateKey(cfg, c); got != "rl:user:5" {
		t.Errorf("user key = %q", got)
	}
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	e := echo.New()
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil)
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		rc.Middleware(), NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil))

	rec := serve(e, http.MethodGet, "/x", "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Errorf("code=%d x-cache=%q", rec.Code, rec.Header().Get("X-Cache"))
	}
	if err := rc.Purge(context.Background()); err != nil {
		t.Errorf("Purge without redis: %v", err)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Errorf("decode = %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0}); ok {
		t.Error("short payload accepted")
	}
}

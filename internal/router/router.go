// Package router registers the portal's HTTP routes on an Echo instance.
package router

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/handler"
	"github.com/iliyamo/docreplace-portal/internal/middleware"
	"github.com/iliyamo/docreplace-portal/internal/session"
)

// Deps is everything the routes need.  Nil handlers leave their group
// unregistered.
type Deps struct {
	Auth     *handler.AuthHandler
	Public   *handler.PublicHandler
	Profile  *handler.ProfileHandler
	Messages *handler.MessageHandler
	Admin    *handler.AdminHandler
	Email    *handler.EmailHandler

	Authenticator middleware.Authenticator
	Roles         session.RoleChecker
	Health        echo.HandlerFunc

	// RateLimit guards the anonymous write and lookup endpoints.
	RateLimit echo.MiddlewareFunc
	// Cache fronts GET /v1/settings.
	Cache *middleware.ResponseCache

	// FilesDir is served at /files; empty disables the mount.
	FilesDir string
}

// ErrorHandler renders every error as {"error": msg}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		default:
			msg = http.StatusText(code)
		}
		if code == http.StatusNotFound {
			msg = "not found"
		}
	} else {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"error": msg})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

// Register wires every route group described by d.
func Register(e *echo.Echo, d Deps) {
	e.HTTPErrorHandler = ErrorHandler

	rl := d.RateLimit
	if rl == nil {
		rl = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	if d.Health != nil {
		e.GET("/healthz", d.Health)
	}
	if d.FilesDir != "" {
		e.Static("/files", d.FilesDir)
	}
	if d.Public != nil {
		registerPublic(e, d, rl)
	}
	if d.Auth != nil {
		registerAuth(e, d, rl)
	}
	if d.Profile != nil {
		registerProfile(e, d)
	}
	if d.Messages != nil {
		registerMessages(e, d)
	}
	if d.Admin != nil {
		registerAdmin(e, d)
	}
}

func registerPublic(e *echo.Echo, d Deps, rl echo.MiddlewareFunc) {
	p := d.Public
	g := e.Group("/v1")
	g.POST("/applications", p.Submit, rl)
	g.GET("/tracking", p.Track, rl)
	g.GET("/settings", p.GetSettings, d.Cache.Middleware())
	g.POST("/page-views", p.TrackPageView, middleware.OptionalJWT(d.Authenticator))
}

func registerAuth(e *echo.Echo, d Deps, rl echo.MiddlewareFunc) {
	a := d.Auth
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, rl)
	g.POST("/login", a.Login, rl)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(d.Authenticator))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(d.Authenticator))
}

func registerProfile(e *echo.Echo, d Deps) {
	p := d.Profile
	g := e.Group("/v1/profile", middleware.JWTAuth(d.Authenticator))
	g.GET("", p.Get)
	g.PUT("", p.Update)
	g.POST("/password", p.ChangePassword)
	g.GET("/applications", p.Applications)
	g.GET("/documents", p.Documents)
}

func registerMessages(e *echo.Echo, d Deps) {
	m := d.Messages
	g := e.Group("/v1/messages", middleware.JWTAuth(d.Authenticator))
	g.GET("/support", m.SupportContact)
	g.GET("/unread", m.Unread)
	g.GET("/stream", m.Stream)
	g.GET("/:peer", m.Conversation)
	g.POST("/:peer", m.Send)
	g.POST("/:peer/read", m.MarkRead)
}

func registerAdmin(e *echo.Echo, d Deps) {
	a := d.Admin
	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.Authenticator),
		middleware.RequireAdmin(d.Roles),
	)
	g.GET("/dashboard", a.Overview)
	g.GET("/events", a.Events)
	g.GET("/applications", a.Applications)
	g.PATCH("/applications/:id/status", a.UpdateStatus)
	g.PATCH("/applications/:id/payment", a.ConfirmPayment)
	g.PATCH("/applications/:id/notes", a.SetNotes)
	g.POST("/applications/:id/document", a.UploadDocument)
	g.GET("/customers", a.Customers)
	g.PUT("/settings", a.SaveSettings)
	if d.Email != nil {
		g.POST("/email", d.Email.Send)
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
	"github.com/iliyamo/docreplace-portal/internal/config"
	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/repository"
	"github.com/iliyamo/docreplace-portal/internal/utils"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

// UserStore is implemented by repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string, role model.Role) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// TokenStore is implemented by repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// RoleChecker answers "does user hold role".  Implemented by
// repository.RoleRepo and by CachedRoles.
type RoleChecker interface {
	HasRole(ctx context.Context, userID uint64, role model.Role) (bool, error)
}

type EventKind string

const (
	SignedUp  EventKind = "signed_up"
	SignedIn  EventKind = "signed_in"
	Refreshed EventKind = "refreshed"
	SignedOut EventKind = "signed_out"
)

// Event describes one session transition.
type Event struct {
	Kind    EventKind
	Session Session
}

// Result is what a successful sign-up, sign-in or refresh hands back.
type Result struct {
	Session Session            `json:"user"`
	Access  utils.AccessToken  `json:"access"`
	Refresh utils.RefreshToken `json:"refresh"`
}

// Manager issues and revokes sessions.  Role membership is recomputed
// from the role store on every transition and listeners are told about it.
type Manager struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Roles  RoleChecker

	mu        sync.RWMutex
	listeners []func(Event)
}

func NewManager(cfg config.Config, users UserStore, tokens TokenStore, roles RoleChecker) *Manager {
	return &Manager{Cfg: cfg, Users: users, Tokens: tokens, Roles: roles}
}

// OnChange registers fn to be called synchronously after every session
// transition.
func (m *Manager) OnChange(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(ev Event) {
	m.mu.RLock()
	ls := append(([]func(Event))(nil), m.listeners...)
	m.mu.RUnlock()
	for _, fn := range ls {
		fn(ev)
	}
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// SignUp creates an identity holding the default role, its empty profile
// and a token pair.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*Result, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apperr.Validation("email", "must be a valid email address")
	}
	if len(password) < utils.MinPasswordLen {
		return nil, apperr.Validation("password", fmt.Sprintf("must be at least %d characters", utils.MinPasswordLen))
	}
	hash, err := utils.HashPassword(password, m.Cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	uid, err := m.Users.Create(ctx, email, hash, model.DefaultRole)
	if errors.Is(err, repository.ErrEmailExists) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return m.issue(ctx, SignedUp, model.User{ID: uid, Email: email, IsActive: true})
}

// SignIn verifies credentials and issues a token pair.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Result, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("", "email/password required")
	}
	u, err := m.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return m.issue(ctx, SignedIn, u)
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// is issued.
func (m *Manager) Refresh(ctx context.Context, raw string) (*Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.Validation("refresh_token", "is required")
	}
	hash := utils.HashRefreshRaw(raw)
	uid, err := m.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrTokenInvalid) {
		return nil, ErrInvalidRefresh
	}
	if err != nil {
		return nil, err
	}
	if err := m.Tokens.RevokeByHash(ctx, hash); err != nil {
		return nil, err
	}
	u, err := m.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !u.IsActive) {
		return nil, ErrInvalidRefresh
	}
	if err != nil {
		return nil, err
	}
	return m.issue(ctx, Refreshed, u)
}

// SignOut revokes the given refresh token, or every token of userID when
// refresh is empty.
func (m *Manager) SignOut(ctx context.Context, userID uint64, refresh string) error {
	refresh = strings.TrimSpace(refresh)
	switch {
	case refresh != "":
		hash := utils.HashRefreshRaw(refresh)
		uid, err := m.Tokens.ValidateRefresh(ctx, hash)
		if errors.Is(err, repository.ErrTokenInvalid) {
			return ErrInvalidRefresh
		}
		if err != nil {
			return err
		}
		if err := m.Tokens.RevokeByHash(ctx, hash); err != nil {
			return err
		}
		userID = uid
	case userID != 0:
		if err := m.Tokens.RevokeAllForUser(ctx, userID); err != nil {
			return err
		}
	default:
		return apperr.Validation("", "provide Authorization header or refresh_token")
	}
	m.notify(Event{Kind: SignedOut, Session: Session{UserID: userID, Role: model.DefaultRole}})
	return nil
}

// ChangePassword replaces userID's password after checking the
// confirmation matches.  Other sessions stay valid.
func (m *Manager) ChangePassword(ctx context.Context, userID uint64, password, confirm string) error {
	if len(password) < utils.MinPasswordLen {
		return apperr.Validation("password", fmt.Sprintf("must be at least %d characters", utils.MinPasswordLen))
	}
	if password != confirm {
		return apperr.Validation("confirm_password", "passwords do not match")
	}
	hash, err := utils.HashPassword(password, m.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := m.Users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound("user")
		}
		return err
	}
	return nil
}

// Authenticate turns a bearer access token into a Session.
func (m *Manager) Authenticate(raw string) (Session, error) {
	claims, err := utils.ParseAccessToken(m.Cfg.JWTSecret, raw)
	if err != nil {
		return Session{}, err
	}
	uid, _ := claims.UserID()
	role := model.Role(claims.Role)
	if !role.Valid() {
		role = model.DefaultRole
	}
	return Session{UserID: uid, Email: claims.Email, Role: role}, nil
}

// RoleOf recomputes the role of userID: holding an admin grant makes the
// identity an admin, anything else is a customer.
func (m *Manager) RoleOf(ctx context.Context, userID uint64) (model.Role, error) {
	ok, err := m.Roles.HasRole(ctx, userID, model.RoleAdmin)
	if err != nil {
		return "", err
	}
	if ok {
		return model.RoleAdmin, nil
	}
	return model.RoleCustomer, nil
}

func (m *Manager) issue(ctx context.Context, kind EventKind, u model.User) (*Result, error) {
	role, err := m.RoleOf(ctx, u.ID)
	if err != nil {
		// A failed role lookup must not grant anything.
		log.Printf("session: role lookup for %d failed: %v", u.ID, err)
		role = model.RoleCustomer
	}
	s := Session{UserID: u.ID, Email: u.Email, Role: role}
	access, err := utils.NewAccessToken(m.Cfg.JWTSecret, u.ID, u.Email, string(role), m.Cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(m.Cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := m.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	m.notify(Event{Kind: kind, Session: s})
	return &Result{Session: s, Access: access, Refresh: refresh}, nil
}

package session

import (
	"context"
	"errors"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/repository"
)

// RoleGranter adds role grants.  Implemented by repository.RoleRepo.
type RoleGranter interface {
	Grant(ctx context.Context, userID uint64, role model.Role) error
}

// PromoteAdmin grants the admin role to the account registered under
// email and returns its id.  The account must already exist; promoting an
// existing admin is a no-op.
func PromoteAdmin(ctx context.Context, users UserStore, roles RoleGranter, email string) (uint64, error) {
	u, err := users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return 0, apperr.NotFound("user")
	}
	if err != nil {
		return 0, err
	}
	if err := roles.Grant(ctx, u.ID, model.RoleAdmin); err != nil {
		return 0, err
	}
	return u.ID, nil
}

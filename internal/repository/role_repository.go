package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/docreplace-portal/internal/model"
)

// RoleRepo answers role-membership questions over `user_roles`.
type RoleRepo struct {
	db *sql.DB
}

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{db: db} }

// HasRole reports whether userID holds role.
func (r *RoleRepo) HasRole(ctx context.Context, userID uint64, role model.Role) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM user_roles WHERE user_id = ? AND role = ? LIMIT 1", userID, role).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Grant adds role to userID.  Granting an existing role is a no-op.
func (r *RoleRepo) Grant(ctx context.Context, userID uint64, role model.Role) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_id, role) VALUES (?,?)", userID, role)
	return err
}

// FirstWithRole returns the oldest grantee of role, used to route customer
// chats to a staff member.  ErrUserNotFound when nobody holds it.
func (r *RoleRepo) FirstWithRole(ctx context.Context, role model.Role) (uint64, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id FROM user_roles WHERE role = ? ORDER BY created_at ASC, user_id ASC LIMIT 1", role).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return id, err
}

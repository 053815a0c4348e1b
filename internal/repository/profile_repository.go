package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/docreplace-portal/internal/model"
)

// ProfileRepo persists per-user display data.
type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileColumns = "p.id, p.user_id, p.full_name, p.phone, p.created_at, p.updated_at"

func scanProfile(s rowScanner) (*model.Profile, error) {
	var p model.Profile
	if err := s.Scan(&p.ID, &p.UserID, &p.FullName, &p.Phone, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUserID returns the profile of userID or ErrProfileNotFound.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles p WHERE p.user_id = ?", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// Create inserts p.  A concurrent insert for the same user yields
// ErrDuplicate.
func (r *ProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO profiles (id, user_id, full_name, phone, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		p.ID, p.UserID, p.FullName, p.Phone, p.CreatedAt, p.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// Update replaces the name and phone of userID's profile.
func (r *ProfileRepo) Update(ctx context.Context, userID uint64, fullName, phone string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE profiles SET full_name = ?, phone = ?, updated_at = ? WHERE user_id = ?",
		fullName, phone, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// ListCustomers returns the profiles of users without an admin grant,
// newest first.
func (r *ProfileRepo) ListCustomers(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+profileColumns+` FROM profiles p
		LEFT JOIN user_roles ur ON ur.user_id = p.user_id AND ur.role = ?
		WHERE ur.user_id IS NULL ORDER BY p.created_at DESC`, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

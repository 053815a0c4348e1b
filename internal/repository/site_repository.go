package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/docreplace-portal/internal/model"
)

// SettingsRepo reads and writes the singleton site_settings row.
type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Get returns the "default" row or ErrSettingsNotFound.
func (r *SettingsRepo) Get(ctx context.Context) (*model.SiteSettings, error) {
	var s model.SiteSettings
	err := r.db.QueryRowContext(ctx,
		"SELECT id, contact_email, website_url, location, footer_text, updated_at FROM site_settings WHERE id = ?",
		model.SettingsID).Scan(&s.ID, &s.ContactEmail, &s.WebsiteURL, &s.Location, &s.FooterText, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert writes s into the singleton row, creating it if needed.
func (r *SettingsRepo) Upsert(ctx context.Context, s *model.SiteSettings) error {
	s.ID = model.SettingsID
	s.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO site_settings (id, contact_email, website_url, location, footer_text, updated_at)
		VALUES (?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE contact_email = VALUES(contact_email), website_url = VALUES(website_url),
		location = VALUES(location), footer_text = VALUES(footer_text), updated_at = VALUES(updated_at)`,
		s.ID, s.ContactEmail, s.WebsiteURL, s.Location, s.FooterText, s.UpdatedAt)
	return err
}

// PageViewRepo appends and counts page views.
type PageViewRepo struct {
	db *sql.DB
}

func NewPageViewRepo(db *sql.DB) *PageViewRepo { return &PageViewRepo{db: db} }

// Insert appends v and fills its ID.
func (r *PageViewRepo) Insert(ctx context.Context, v *model.PageView) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO page_views (page_path, user_id, created_at) VALUES (?,?,?)",
		v.PagePath, v.UserID, v.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// CountSince counts views created at or after since.  A zero since counts
// every view.
func (r *PageViewRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	var err error
	if since.IsZero() {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM page_views").Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM page_views WHERE created_at >= ?", since.UTC()).Scan(&n)
	}
	return n, err
}

// Package repository contains data access logic separated from HTTP handlers.
// This file holds the applications table: inserts from public submissions,
// tracking lookups and the admin mutations (status, document, payment,
// notes).  Applications are never deleted.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/docreplace-portal/internal/model"
)

const applicationColumns = `id, tracking_id, full_name, institution_name, document_type,
	year_of_study, index_number, id_number, phone, email, notes, status,
	document_url, payment_confirmed, created_at, updated_at`

// ApplicationRepo encapsulates all queries against `applications`.
type ApplicationRepo struct {
	db *sql.DB
}

func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(s rowScanner) (*model.Application, error) {
	var (
		a     model.Application
		notes sql.NullString
		url   sql.NullString
	)
	if err := s.Scan(&a.ID, &a.TrackingID, &a.FullName, &a.InstitutionName, &a.DocumentType,
		&a.YearOfStudy, &a.IndexNumber, &a.IDNumber, &a.Phone, &a.Email, &notes, &a.Status,
		&url, &a.PaymentConfirmed, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if notes.Valid {
		a.Notes = &notes.String
	}
	if url.Valid {
		a.DocumentURL = &url.String
	}
	return &a, nil
}

// Create inserts a new application.  The caller supplies ID, TrackingID
// and timestamps.  A collision on tracking_id yields ErrDuplicate so the
// caller can draw a new identifier.
func (r *ApplicationRepo) Create(ctx context.Context, a *model.Application) error {
	const q = `INSERT INTO applications (id, tracking_id, full_name, institution_name, document_type,
		year_of_study, index_number, id_number, phone, email, notes, status, payment_confirmed,
		created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.TrackingID, a.FullName, a.InstitutionName, a.DocumentType,
		a.YearOfStudy, a.IndexNumber, a.IDNumber, a.Phone, a.Email, a.Notes, a.Status, a.PaymentConfirmed,
		a.CreatedAt, a.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID fetches an application by its internal id.
func (r *ApplicationRepo) GetByID(ctx context.Context, id string) (*model.Application, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+applicationColumns+" FROM applications WHERE id = ?", id)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	return a, err
}

// FindByTrackingIDOrPhone matches q by equality against tracking_id or
// phone.  When several applications share a phone number the newest wins.
func (r *ApplicationRepo) FindByTrackingIDOrPhone(ctx context.Context, q string) (*model.Application, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+applicationColumns+
		" FROM applications WHERE tracking_id = ? OR phone = ? ORDER BY (tracking_id = ?) DESC, created_at DESC LIMIT 1",
		q, q, q)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	return a, err
}

// List returns every application, newest first.
func (r *ApplicationRepo) List(ctx context.Context) ([]model.Application, error) {
	return r.list(ctx, "SELECT "+applicationColumns+" FROM applications ORDER BY created_at DESC")
}

// ListByEmail returns the applications submitted with email, newest first.
func (r *ApplicationRepo) ListByEmail(ctx context.Context, email string) ([]model.Application, error) {
	return r.list(ctx, "SELECT "+applicationColumns+" FROM applications WHERE email = ? ORDER BY created_at DESC", email)
}

func (r *ApplicationRepo) list(ctx context.Context, q string, args ...any) ([]model.Application, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateStatus overwrites status without looking at the current value.
func (r *ApplicationRepo) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	return r.update(ctx, "UPDATE applications SET status = ?, updated_at = ? WHERE id = ?", status, time.Now().UTC(), id)
}

// SetDocumentURL records where the completed document can be downloaded.
func (r *ApplicationRepo) SetDocumentURL(ctx context.Context, id, url string) error {
	return r.update(ctx, "UPDATE applications SET document_url = ?, updated_at = ? WHERE id = ?", url, time.Now().UTC(), id)
}

// SetPaymentConfirmed flips the payment flag.
func (r *ApplicationRepo) SetPaymentConfirmed(ctx context.Context, id string, confirmed bool) error {
	return r.update(ctx, "UPDATE applications SET payment_confirmed = ?, updated_at = ? WHERE id = ?", confirmed, time.Now().UTC(), id)
}

// SetNotes replaces the free-text notes.
func (r *ApplicationRepo) SetNotes(ctx context.Context, id string, notes *string) error {
	return r.update(ctx, "UPDATE applications SET notes = ?, updated_at = ? WHERE id = ?", notes, time.Now().UTC(), id)
}

// update runs an UPDATE by id and maps "no such row" to
// ErrApplicationNotFound.  RowsAffected cannot be used for that because
// MySQL reports 0 when the new value equals the old one, so existence is
// checked separately in that case.
func (r *ApplicationRepo) update(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	id := args[len(args)-1]
	var one int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM applications WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrApplicationNotFound
	}
	return err
}

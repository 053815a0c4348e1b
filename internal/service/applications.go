package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/queue"
	"github.com/iliyamo/docreplace-portal/internal/realtime"
	"github.com/iliyamo/docreplace-portal/internal/repository"
	"github.com/iliyamo/docreplace-portal/internal/storage"
)

// ApplicationStore is the persistence the lifecycle needs.  Implemented by
// repository.ApplicationRepo.
type ApplicationStore interface {
	Create(ctx context.Context, a *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	FindByTrackingIDOrPhone(ctx context.Context, q string) (*model.Application, error)
	List(ctx context.Context) ([]model.Application, error)
	ListByEmail(ctx context.Context, email string) ([]model.Application, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) error
	SetDocumentURL(ctx context.Context, id, url string) error
	SetPaymentConfirmed(ctx context.Context, id string, confirmed bool) error
	SetNotes(ctx context.Context, id string, notes *string) error
}

// EventPublisher receives lifecycle events for the durable audit log.
type EventPublisher interface {
	PublishApplicationEvent(ctx context.Context, ev queue.ApplicationEvent) error
}

// SubmitInput is what an applicant sends.  Phone and email are both
// required contact channels.
type SubmitInput struct {
	FullName        string `json:"full_name" validate:"required,max=190"`
	InstitutionName string `json:"institution_name" validate:"required,max=190"`
	DocumentType    string `json:"document_type" validate:"required"`
	YearOfStudy     string `json:"year_of_study" validate:"max=20"`
	IndexNumber     string `json:"index_number" validate:"max=60"`
	IDNumber        string `json:"id_number" validate:"max=60"`
	Phone           string `json:"phone" validate:"required,max=40"`
	Email           string `json:"email" validate:"required,email,max=190"`
	Notes           string `json:"notes" validate:"max=4000"`
}

func (in *SubmitInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.InstitutionName = strings.TrimSpace(in.InstitutionName)
	in.DocumentType = strings.TrimSpace(in.DocumentType)
	in.YearOfStudy = strings.TrimSpace(in.YearOfStudy)
	in.IndexNumber = strings.TrimSpace(in.IndexNumber)
	in.IDNumber = strings.TrimSpace(in.IDNumber)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Notes = strings.TrimSpace(in.Notes)
}

// trackingAttempts bounds how many identifiers Submit draws before giving
// up on unique-key collisions.
const trackingAttempts = 5

// ApplicationService owns the application lifecycle: submission, lookup,
// status changes and completed-document delivery.
type ApplicationService struct {
	Store  ApplicationStore
	Files  storage.Store
	Bus    realtime.Bus
	Events EventPublisher

	Now           func() time.Time
	NewTrackingID func() (string, error)
}

func NewApplicationService(store ApplicationStore, files storage.Store, bus realtime.Bus, events EventPublisher) *ApplicationService {
	return &ApplicationService{
		Store:         store,
		Files:         files,
		Bus:           bus,
		Events:        events,
		Now:           func() time.Time { return time.Now().UTC() },
		NewTrackingID: NewTrackingID,
	}
}

const trackingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewTrackingID returns "DR-" followed by eight characters drawn from an
// alphabet without look-alike glyphs (no 0/O, 1/I).
func NewTrackingID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return "DR-" + string(buf), nil
}

// Submit validates in and stores a new application in status "received".
func (s *ApplicationService) Submit(ctx context.Context, in SubmitInput) (*model.Application, error) {
	in.normalize()
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	if !model.DocumentType(in.DocumentType).Valid() {
		return nil, apperr.Validation("document_type", "is not a supported document type")
	}

	now := s.Now()
	a := &model.Application{
		ID:              uuid.NewString(),
		FullName:        in.FullName,
		InstitutionName: in.InstitutionName,
		DocumentType:    model.DocumentType(in.DocumentType),
		YearOfStudy:     in.YearOfStudy,
		IndexNumber:     in.IndexNumber,
		IDNumber:        in.IDNumber,
		Phone:           in.Phone,
		Email:           in.Email,
		Status:          model.StatusReceived,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.Notes != "" {
		notes := in.Notes
		a.Notes = &notes
	}

	var err error
	for attempt := 0; attempt < trackingAttempts; attempt++ {
		if a.TrackingID, err = s.NewTrackingID(); err != nil {
			return nil, fmt.Errorf("tracking id: %w", err)
		}
		err = s.Store.Create(ctx, a)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.notify(ctx, a)
	s.emit(ctx, queue.ApplicationEvent{Kind: queue.EventSubmitted}, a)
	return a, nil
}

// FindByTrackingIDOrPhone returns the single application whose tracking
// ID or phone equals query.
func (s *ApplicationService) FindByTrackingIDOrPhone(ctx context.Context, query string) (*model.Application, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("id", "tracking ID or phone number is required")
	}
	a, err := s.Store.FindByTrackingIDOrPhone(ctx, query)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return a, nil
}

// Get returns one application by internal id.
func (s *ApplicationService) Get(ctx context.Context, id string) (*model.Application, error) {
	a, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return a, nil
}

// List returns every application, newest first.  No pagination.
func (s *ApplicationService) List(ctx context.Context) ([]model.Application, error) {
	return s.Store.List(ctx)
}

// ListByEmail returns the applications an applicant submitted with email.
func (s *ApplicationService) ListByEmail(ctx context.Context, email string) ([]model.Application, error) {
	return s.Store.ListByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// CompletedDocuments returns the applications of email that are completed
// and have a downloadable document.
func (s *ApplicationService) CompletedDocuments(ctx context.Context, email string) ([]model.Application, error) {
	apps, err := s.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]model.Application, 0, len(apps))
	for _, a := range apps {
		if a.Status == model.StatusCompleted && a.DocumentURL != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

// UpdateStatus overwrites the status of id with any known status, in any
// direction.  Use UpdateStatusStrict for forward-only moves.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor uint64, id string, status model.Status) (*model.Application, error) {
	return s.updateStatus(ctx, actor, id, status, false)
}

// UpdateStatusStrict is UpdateStatus guarded by CanTransition.
func (s *ApplicationService) UpdateStatusStrict(ctx context.Context, actor uint64, id string, status model.Status) (*model.Application, error) {
	return s.updateStatus(ctx, actor, id, status, true)
}

// CanTransition reports whether moving from -> to keeps the progression
// moving forward.  Re-applying the current status is allowed.
func CanTransition(from, to model.Status) bool {
	f, t := from.Rank(), to.Rank()
	return f >= 0 && t >= 0 && t >= f
}

func (s *ApplicationService) updateStatus(ctx context.Context, actor uint64, id string, status model.Status, strict bool) (*model.Application, error) {
	if !status.Valid() {
		return nil, apperr.Validation("status", "is not a known status")
	}
	a, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if strict && !CanTransition(a.Status, status) {
		return nil, apperr.Validation("status", fmt.Sprintf("cannot move from %s to %s", a.Status, status))
	}
	if err := s.Store.UpdateStatus(ctx, id, status); err != nil {
		return nil, mapNotFound(err)
	}
	prev := a.Status
	a.Status = status
	a.UpdatedAt = s.Now()
	s.emit(ctx, queue.ApplicationEvent{Kind: queue.EventStatusChanged, PreviousState: string(prev), ActorID: actor}, a)
	return a, nil
}

// AttachDocument uploads the completed document for id and records its
// URL.  Only completed applications accept a document.  The object key is "<actor>/<id><ext>" and an existing object is
// replaced.  Upload and record are two independent steps: if recording
// fails the uploaded object stays orphaned and is logged.
func (s *ApplicationService) AttachDocument(ctx context.Context, actor uint64, id, filename string, r io.Reader) (*model.Application, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || ext == "." {
		return nil, apperr.Validation("file", "must have a file extension")
	}
	a, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if a.Status != model.StatusCompleted {
		return nil, apperr.Validation("status", "document can only be attached to a completed application")
	}
	key := fmt.Sprintf("%d/%s%s", actor, a.ID, ext)
	url, err := s.Files.Upload(ctx, key, r)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	if err := s.Store.SetDocumentURL(ctx, a.ID, url); err != nil {
		log.Printf("applications: document stored at %q but not recorded for %s: %v", key, a.ID, err)
		return nil, mapNotFound(err)
	}
	a.DocumentURL = &url
	a.UpdatedAt = s.Now()
	s.emit(ctx, queue.ApplicationEvent{Kind: queue.EventDocumentUploaded, DocumentURL: url, ActorID: actor}, a)
	return a, nil
}

// ConfirmPayment sets the payment flag of id.
func (s *ApplicationService) ConfirmPayment(ctx context.Context, actor uint64, id string, confirmed bool) (*model.Application, error) {
	a, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if err := s.Store.SetPaymentConfirmed(ctx, id, confirmed); err != nil {
		return nil, mapNotFound(err)
	}
	a.PaymentConfirmed = confirmed
	a.UpdatedAt = s.Now()
	if confirmed {
		s.emit(ctx, queue.ApplicationEvent{Kind: queue.EventPaymentConfirmed, ActorID: actor}, a)
	}
	return a, nil
}

// SetNotes replaces the staff notes of id; blank notes clear the field.
func (s *ApplicationService) SetNotes(ctx context.Context, id, notes string) (*model.Application, error) {
	a, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	var p *string
	if n := strings.TrimSpace(notes); n != "" {
		p = &n
	}
	if err := s.Store.SetNotes(ctx, id, p); err != nil {
		return nil, mapNotFound(err)
	}
	a.Notes = p
	a.UpdatedAt = s.Now()
	return a, nil
}

// notify pushes the new row to live dashboards.  Best-effort.
func (s *ApplicationService) notify(ctx context.Context, a *model.Application) {
	if s.Bus == nil {
		return
	}
	if err := s.Bus.Publish(ctx, realtime.TopicApplications, a); err != nil {
		log.Printf("applications: realtime publish failed for %s: %v", a.TrackingID, err)
	}
}

// emit fills ev from a and hands it to the audit publisher.  Best-effort.
func (s *ApplicationService) emit(ctx context.Context, ev queue.ApplicationEvent, a *model.Application) {
	if s.Events == nil {
		return
	}
	ev.ApplicationID = a.ID
	ev.TrackingID = a.TrackingID
	ev.Status = string(a.Status)
	ev.OccurredAt = s.Now().Format(time.RFC3339)
	if err := s.Events.PublishApplicationEvent(ctx, ev); err != nil {
		log.Printf("applications: audit event %s for %s not published: %v", ev.Kind, a.TrackingID, err)
	}
}

func mapNotFound(err error) error {
	switch {
	case errors.Is(err, repository.ErrApplicationNotFound):
		return apperr.NotFound("application")
	case errors.Is(err, repository.ErrProfileNotFound):
		return apperr.NotFound("profile")
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.NotFound("user")
	}
	return err
}

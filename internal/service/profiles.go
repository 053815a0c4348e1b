package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/repository"
)

// ProfileStore is implemented by repository.ProfileRepo.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.Profile, error)
	Create(ctx context.Context, p *model.Profile) error
	Update(ctx context.Context, userID uint64, fullName, phone string) error
	ListCustomers(ctx context.Context) ([]model.Profile, error)
}

type ProfileInput struct {
	FullName string `json:"full_name" validate:"required,max=190"`
	Phone    string `json:"phone" validate:"max=40"`
}

type ProfileService struct {
	Store ProfileStore
	Now   func() time.Time
}

func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

// GetOrCreate returns userID's profile, creating an empty one on first
// visit.  Two concurrent first visits end up reading the same row.
func (s *ProfileService) GetOrCreate(ctx context.Context, userID uint64) (*model.Profile, error) {
	p, err := s.Store.GetByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, err
	}
	now := s.Now()
	p = &model.Profile{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	switch err := s.Store.Create(ctx, p); {
	case err == nil:
		return p, nil
	case errors.Is(err, repository.ErrDuplicate):
		return s.Store.GetByUserID(ctx, userID)
	default:
		return nil, err
	}
}

// Update saves name and phone for userID.
func (s *ProfileService) Update(ctx context.Context, userID uint64, in ProfileInput) (*model.Profile, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.Store.Update(ctx, userID, in.FullName, in.Phone); err != nil {
		return nil, mapNotFound(err)
	}
	return s.Store.GetByUserID(ctx, userID)
}

// Customers lists every non-admin profile.
func (s *ProfileService) Customers(ctx context.Context) ([]model.Profile, error) {
	return s.Store.ListCustomers(ctx)
}

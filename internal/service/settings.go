package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/repository"
)

// SettingsStore is implemented by repository.SettingsRepo.
type SettingsStore interface {
	Get(ctx context.Context) (*model.SiteSettings, error)
	Upsert(ctx context.Context, s *model.SiteSettings) error
}

type SettingsInput struct {
	ContactEmail string `json:"contact_email" validate:"omitempty,email,max=190"`
	WebsiteURL   string `json:"website_url" validate:"omitempty,url,max=255"`
	Location     string `json:"location" validate:"max=190"`
	FooterText   string `json:"footer_text" validate:"max=2000"`
}

type SettingsService struct {
	Store SettingsStore
}

func NewSettingsService(store SettingsStore) *SettingsService { return &SettingsService{Store: store} }

// Get returns the site settings; a missing row reads as empty values.
func (s *SettingsService) Get(ctx context.Context) (*model.SiteSettings, error) {
	st, err := s.Store.Get(ctx)
	if errors.Is(err, repository.ErrSettingsNotFound) {
		return &model.SiteSettings{ID: model.SettingsID}, nil
	}
	return st, err
}

// Save validates in and upserts the singleton row.
func (s *SettingsService) Save(ctx context.Context, in SettingsInput) (*model.SiteSettings, error) {
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.WebsiteURL = strings.TrimSpace(in.WebsiteURL)
	in.Location = strings.TrimSpace(in.Location)
	in.FooterText = strings.TrimSpace(in.FooterText)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	st := &model.SiteSettings{
		ID:           model.SettingsID,
		ContactEmail: in.ContactEmail,
		WebsiteURL:   in.WebsiteURL,
		Location:     in.Location,
		FooterText:   in.FooterText,
	}
	if err := s.Store.Upsert(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

package model

import "time"

// SettingsID is the fixed primary key of the singleton site_settings row.
const SettingsID = "default"

// SiteSettings holds the public contact details shown on every page.
type SiteSettings struct {
	ID           string    `json:"id"`
	ContactEmail string    `json:"contact_email"`
	WebsiteURL   string    `json:"website_url"`
	Location     string    `json:"location"`
	FooterText   string    `json:"footer_text"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PageView is an append-only navigation record.  UserID is nil for
// anonymous visitors.
type PageView struct {
	ID        uint64    `json:"id"`
	PagePath  string    `json:"page_path"`
	UserID    *uint64   `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

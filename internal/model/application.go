package model

import "time"

// Status is the processing stage of an application.  The stages form an
// ordered progression; see Statuses.
type Status string

const (
	StatusReceived                Status = "received"
	StatusUnderVerification       Status = "under_verification"
	StatusProcessingAtInstitution Status = "processing_at_institution"
	StatusReady                   Status = "ready"
	StatusCompleted               Status = "completed"
)

// Statuses lists every status in display order.
var Statuses = []Status{
	StatusReceived,
	StatusUnderVerification,
	StatusProcessingAtInstitution,
	StatusReady,
	StatusCompleted,
}

var statusLabels = map[Status]string{
	StatusReceived:                "Received",
	StatusUnderVerification:       "Under Verification",
	StatusProcessingAtInstitution: "Processing at Institution",
	StatusReady:                   "Ready",
	StatusCompleted:               "Completed/Delivered",
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable label of s.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Rank returns the zero-based position of s in the progression, or -1.
func (s Status) Rank() int {
	for i, v := range Statuses {
		if v == s {
			return i
		}
	}
	return -1
}

// DocumentType identifies the kind of document being replaced.
type DocumentType string

// DocumentTypes maps each accepted document type to its label.
var DocumentTypes = map[DocumentType]string{
	"university_certificate":   "University Certificate",
	"high_school_certificate":  "High School Certificate (KCSE/KCPE)",
	"academic_transcript":      "Academic Transcript",
	"graduation_letter":        "Graduation Letter",
	"student_id":               "Student ID Replacement",
	"recommendation_letter":    "Recommendation Letter",
	"admission_letter":         "Admission Letter",
	"fee_statement":            "Fee Statement",
	"internship_letter":        "Internship/Attachment Letter",
	"professional_certificate": "Professional Certificate",
}

// Valid reports whether t is an accepted document type.
func (t DocumentType) Valid() bool {
	_, ok := DocumentTypes[t]
	return ok
}

// Application mirrors a row of the `applications` table.  TrackingID is
// the public identifier handed to the applicant; ID is internal.
// DocumentURL stays nil until a completed document has been uploaded.
type Application struct {
	ID               string       `json:"id"`
	TrackingID       string       `json:"tracking_id"`
	FullName         string       `json:"full_name"`
	InstitutionName  string       `json:"institution_name"`
	DocumentType     DocumentType `json:"document_type"`
	YearOfStudy      string       `json:"year_of_study,omitempty"`
	IndexNumber      string       `json:"index_number,omitempty"`
	IDNumber         string       `json:"id_number,omitempty"`
	Phone            string       `json:"phone"`
	Email            string       `json:"email"`
	Notes            *string      `json:"notes"`
	Status           Status       `json:"status"`
	DocumentURL      *string      `json:"document_url"`
	PaymentConfirmed bool         `json:"payment_confirmed"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

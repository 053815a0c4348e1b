// Package queue defines message payloads exchanged over the message broker.
package queue

// ApplicationEventsQueue is the durable queue receiving lifecycle events.
const ApplicationEventsQueue = "applications.events"

// Kinds of ApplicationEvent.
const (
	EventSubmitted        = "submitted"
	EventStatusChanged    = "status_changed"
	EventDocumentUploaded = "document_uploaded"
	EventPaymentConfirmed = "payment_confirmed"
)

// ApplicationEvent is published whenever an application is created or
// changed.  It carries enough context for the audit log without a lookup.
type ApplicationEvent struct {
	Kind          string `json:"kind"`
	ApplicationID string `json:"application_id"`
	TrackingID    string `json:"tracking_id"`
	Status        string `json:"status"`
	PreviousState string `json:"previous_status,omitempty"`
	DocumentURL   string `json:"document_url,omitempty"`
	ActorID       uint64 `json:"actor_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

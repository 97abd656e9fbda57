package events

import (
	"time"

	"github.com/caosaude/solicitacoes/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventTimelineNoteAdded   EventType = "timeline_note_added"
	EventAttachmentAdded     EventType = "attachment_added"
	EventAttachmentDeleted   EventType = "attachment_deleted"
	EventQueueRecomputed     EventType = "queue_recomputed"
)

// TicketEventTypes lists the events that change the ticket collection.
var TicketEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketDeleted,
	EventTimelineNoteAdded,
	EventAttachmentAdded,
	EventAttachmentDeleted,
	EventQueueRecomputed,
}

// Actor identifies who triggered an event. Scheduled work has no profile.
type Actor struct {
	ProfileID *string     `json:"profile_id,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject       string                `json:"subject"`
	RequestingOrg string                `json:"requesting_org"`
	Priority      domain.TicketPriority `json:"priority"`
}

// TicketDeletedPayload describes the ticket as it was before removal.
type TicketDeletedPayload struct {
	Subject       string              `json:"subject"`
	RequestingOrg string              `json:"requesting_org"`
	Status        domain.TicketStatus `json:"status"`
	QueuePosition *int                `json:"queue_position,omitempty"`
}

// TicketUpdatedPayload lists the fields that changed.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// AttachmentPayload describes an attachment change.
type AttachmentPayload struct {
	AttachmentID string `json:"attachment_id"`
	Name         string `json:"name"`
}

// QueueRecomputedPayload summarizes a recompute run.
type QueueRecomputedPayload struct {
	Trigger string `json:"trigger"`
	Scanned int    `json:"scanned"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
}

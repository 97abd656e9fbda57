package dto

import (
	"time"

	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/ticketview"
)

// CreateTicketRequest payload. SubmittedAt accepts a date (2006-01-02) or an
// RFC 3339 timestamp.
type CreateTicketRequest struct {
	RequestingOrg           string                `json:"requesting_org"`
	RequestType             string                `json:"request_type"`
	Subject                 string                `json:"subject"`
	Description             string                `json:"description"`
	Forwarding              *string               `json:"forwarding"`
	OfficialNumberPrimary   string                `json:"official_number_primary"`
	OfficialNumberSecondary *string               `json:"official_number_secondary"`
	Priority                domain.TicketPriority `json:"priority"`
	SubmittedAt             string                `json:"submitted_at"`
}

// UpdateTicketRequest is a partial update; omitted fields are unchanged.
type UpdateTicketRequest struct {
	RequestingOrg           *string                `json:"requesting_org"`
	RequestType             *string                `json:"request_type"`
	Subject                 *string                `json:"subject"`
	Description             *string                `json:"description"`
	Forwarding              *string                `json:"forwarding"`
	OfficialNumberPrimary   *string                `json:"official_number_primary"`
	OfficialNumberSecondary *string                `json:"official_number_secondary"`
	Priority                *domain.TicketPriority `json:"priority"`
	Status                  *domain.TicketStatus   `json:"status"`
	SubmittedAt             *string                `json:"submitted_at"`
	ExpectedUpdatedAt       *time.Time             `json:"expected_updated_at"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status            domain.TicketStatus `json:"status"`
	ExpectedUpdatedAt *time.Time          `json:"expected_updated_at"`
}

// AddNoteRequest payload.
type AddNoteRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TicketResponse is the list and detail representation of a ticket.
type TicketResponse struct {
	ID                      string                `json:"id"`
	RequestingOrg           string                `json:"requesting_org"`
	RequestType             string                `json:"request_type"`
	Subject                 string                `json:"subject"`
	Description             string                `json:"description"`
	Forwarding              *string               `json:"forwarding"`
	OfficialNumberPrimary   string                `json:"official_number_primary"`
	OfficialNumberSecondary *string               `json:"official_number_secondary"`
	Priority                domain.TicketPriority `json:"priority"`
	PriorityLabel           string                `json:"priority_label"`
	Status                  domain.TicketStatus   `json:"status"`
	StatusLabel             string                `json:"status_label"`
	QueuePosition           *int                  `json:"queue_position"`
	DaysInQueue             *int                  `json:"days_in_queue,omitempty"`
	QueueBand               ticketview.Band       `json:"queue_band,omitempty"`
	SubmittedAt             time.Time             `json:"submitted_at"`
	CreatedAt               time.Time             `json:"created_at"`
	UpdatedAt               time.Time             `json:"updated_at"`
	CreatedBy               *string               `json:"created_by"`
}

// TimelineEventResponse is one timeline entry.
type TimelineEventResponse struct {
	ID          string              `json:"id"`
	TicketID    string              `json:"ticket_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	CreatedBy   *string             `json:"created_by"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
	URL        string    `json:"url"`
}

// Option is a value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// VocabularyResponse lists the controlled vocabularies used by ticket forms.
type VocabularyResponse struct {
	RequestTypes []string `json:"request_types"`
	Subjects     []string `json:"subjects"`
	Statuses     []Option `json:"statuses"`
	Priorities   []Option `json:"priorities"`
}

// NewTicketResponse maps a ticket, computing the queue indicator at now.
func NewTicketResponse(t *domain.Ticket, now time.Time) TicketResponse {
	resp := TicketResponse{
		ID:                      t.ID,
		RequestingOrg:           t.RequestingOrg,
		RequestType:             t.RequestType,
		Subject:                 t.Subject,
		Description:             t.Description,
		Forwarding:              t.Forwarding,
		OfficialNumberPrimary:   t.OfficialNumberPrimary,
		OfficialNumberSecondary: t.OfficialNumberSecondary,
		Priority:                t.Priority,
		PriorityLabel:           t.Priority.Label(),
		Status:                  t.Status,
		StatusLabel:             t.Status.Label(),
		QueuePosition:           t.QueuePosition,
		SubmittedAt:             t.SubmittedAt,
		CreatedAt:               t.CreatedAt,
		UpdatedAt:               t.UpdatedAt,
		CreatedBy:               t.CreatedBy,
	}
	if days, ok := ticketview.DaysInQueue(t, now); ok {
		resp.DaysInQueue = &days
		resp.QueueBand = ticketview.BandFor(days)
	}
	return resp
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket, now time.Time) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i], now))
	}
	return out
}

// NewTimelineResponses maps timeline entries.
func NewTimelineResponses(entries []domain.TimelineEvent) []TimelineEventResponse {
	out := make([]TimelineEventResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewTimelineEventResponse(&e))
	}
	return out
}

// NewTimelineEventResponse maps a single timeline entry.
func NewTimelineEventResponse(e *domain.TimelineEvent) TimelineEventResponse {
	return TimelineEventResponse{
		ID:          e.ID,
		TicketID:    e.TicketID,
		Title:       e.Title,
		Description: e.Description,
		Status:      e.Status,
		CreatedAt:   e.CreatedAt,
		CreatedBy:   e.CreatedBy,
	}
}

// NewAttachmentResponse maps attachment metadata; URL is the download route.
func NewAttachmentResponse(a *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:         a.ID,
		TicketID:   a.TicketID,
		Name:       a.Name,
		MimeType:   a.MimeType,
		SizeBytes:  a.SizeBytes,
		UploadedAt: a.UploadedAt,
		URL:        "/api/v1/tickets/" + a.TicketID + "/attachments/" + a.ID,
	}
}

// NewVocabularyResponse builds the form vocabularies. Urgent is readable on
// legacy rows but not offered for selection.
func NewVocabularyResponse() VocabularyResponse {
	resp := VocabularyResponse{
		RequestTypes: domain.RequestTypes,
		Subjects:     domain.Subjects,
	}
	for _, s := range domain.TicketStatuses {
		resp.Statuses = append(resp.Statuses, Option{Value: string(s), Label: s.Label()})
	}
	for _, p := range domain.TicketPriorities {
		if p.Assignable() {
			resp.Priorities = append(resp.Priorities, Option{Value: string(p), Label: p.Label()})
		}
	}
	return resp
}

package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending          TicketStatus = "pending"
	TicketStatusInReview         TicketStatus = "in_review"
	TicketStatusInProgress       TicketStatus = "in_progress"
	TicketStatusAwaitingResponse TicketStatus = "awaiting_response"
	TicketStatusCompleted        TicketStatus = "completed"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusInReview,
	TicketStatusInProgress,
	TicketStatusAwaitingResponse,
	TicketStatusCompleted,
}

var statusLabels = map[TicketStatus]string{
	TicketStatusPending:          "Pendente",
	TicketStatusInReview:         "Em Análise",
	TicketStatusInProgress:       "Em Andamento",
	TicketStatusAwaitingResponse: "Aguardando Resposta",
	TicketStatusCompleted:        "Concluído",
}

// Valid reports whether the status belongs to the enumeration.
func (s TicketStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the display label, falling back to the raw value.
func (s TicketStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// TicketPriority enumerates urgency levels. Urgent is kept readable for
// legacy rows but is not accepted on new input.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists every known priority, including legacy urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

var priorityLabels = map[TicketPriority]string{
	TicketPriorityLow:    "Baixa",
	TicketPriorityMedium: "Média",
	TicketPriorityHigh:   "Alta",
	TicketPriorityUrgent: "Urgente",
}

// Valid reports whether the priority belongs to the enumeration.
func (p TicketPriority) Valid() bool {
	_, ok := priorityLabels[p]
	return ok
}

// Assignable reports whether the priority may be set on new or edited tickets.
func (p TicketPriority) Assignable() bool {
	return p == TicketPriorityLow || p == TicketPriorityMedium || p == TicketPriorityHigh
}

// Label returns the display label, falling back to the raw value.
func (p TicketPriority) Label() string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return string(p)
}

// Ticket is a tracked demand ("solicitação").
type Ticket struct {
	ID                      string
	RequestingOrg           string
	RequestType             string
	Subject                 string
	Description             string
	Forwarding              *string
	OfficialNumberPrimary   string
	OfficialNumberSecondary *string
	Priority                TicketPriority
	Status                  TicketStatus
	QueuePosition           *int
	SubmittedAt             time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
	CreatedBy               *string
}

// IsPending reports whether the ticket holds a queue position.
func (t *Ticket) IsPending() bool {
	return t.Status == TicketStatusPending
}

// SubmissionTime returns the submission date, falling back to creation time.
func (t *Ticket) SubmissionTime() time.Time {
	if t.SubmittedAt.IsZero() {
		return t.CreatedAt
	}
	return t.SubmittedAt
}

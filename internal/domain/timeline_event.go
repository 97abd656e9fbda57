package domain

import "time"

// TimelineEvent is an append-only audit entry attached to a ticket.
type TimelineEvent struct {
	ID          string
	TicketID    string
	Title       string
	Description string
	Status      TicketStatus
	CreatedAt   time.Time
	CreatedBy   *string
}

// Timeline titles written by the service.
const (
	TimelineTitleCreated       = "Solicitação Criada"
	TimelineTitleStatusChanged = "Status Atualizado"
	TimelineTitleNote          = "Observação"
)

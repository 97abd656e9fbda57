package repository

import (
	"context"

	"github.com/caosaude/solicitacoes/internal/domain"
)

// TimelineRepository stores append-only timeline events.
type TimelineRepository interface {
	Create(ctx context.Context, event *domain.TimelineEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEvent, error)
}

type timelineRepository struct {
	db DBTX
}

// NewTimelineRepository builds repository.
func NewTimelineRepository(db DBTX) TimelineRepository {
	return &timelineRepository{db: db}
}

func (r *timelineRepository) Create(ctx context.Context, event *domain.TimelineEvent) error {
	const query = `
        INSERT INTO timeline_events (ticket_id, title, description, status, created_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		event.TicketID,
		event.Title,
		event.Description,
		event.Status,
		event.CreatedBy,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *timelineRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEvent, error) {
	const query = `
        SELECT id, ticket_id, title, description, status, created_at, created_by
        FROM timeline_events WHERE ticket_id=$1 ORDER BY created_at ASC, id`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEvent
	for rows.Next() {
		var event domain.TimelineEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.Title,
			&event.Description,
			&event.Status,
			&event.CreatedAt,
			&event.CreatedBy,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

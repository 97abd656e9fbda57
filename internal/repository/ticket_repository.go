package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/caosaude/solicitacoes/internal/domain"
)

// TicketFilter narrows ticket listings at the store.
type TicketFilter struct {
	CreatedBy *string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update overwrites the editable fields. When expectedUpdatedAt is set the
	// write only applies if the stored updated_at still matches; otherwise
	// ErrStaleTicket is returned.
	Update(ctx context.Context, ticket *domain.Ticket, expectedUpdatedAt *time.Time) error
	SetQueuePosition(ctx context.Context, id string, position *int) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

// ErrStaleTicket reports a failed compare-and-swap on updated_at.
var ErrStaleTicket = errors.New("ticket was modified concurrently")

const ticketColumns = `id, requesting_org, request_type, subject, description, forwarding,
               official_number_primary, official_number_secondary, priority, status, queue_position,
               submitted_at, created_at, updated_at, created_by`

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (requesting_org, request_type, subject, description, forwarding,
            official_number_primary, official_number_secondary, priority, status, queue_position,
            submitted_at, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.RequestingOrg,
		ticket.RequestType,
		ticket.Subject,
		ticket.Description,
		ticket.Forwarding,
		ticket.OfficialNumberPrimary,
		ticket.OfficialNumberSecondary,
		ticket.Priority,
		ticket.Status,
		ticket.QueuePosition,
		ticket.SubmittedAt,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket, expectedUpdatedAt *time.Time) error {
	query := `
        UPDATE tickets SET requesting_org=$1, request_type=$2, subject=$3, description=$4, forwarding=$5,
            official_number_primary=$6, official_number_secondary=$7, priority=$8, status=$9,
            submitted_at=$10, updated_at=NOW()
        WHERE id=$11`
	args := []any{
		ticket.RequestingOrg,
		ticket.RequestType,
		ticket.Subject,
		ticket.Description,
		ticket.Forwarding,
		ticket.OfficialNumberPrimary,
		ticket.OfficialNumberSecondary,
		ticket.Priority,
		ticket.Status,
		ticket.SubmittedAt,
		ticket.ID,
	}
	if expectedUpdatedAt != nil {
		args = append(args, *expectedUpdatedAt)
		query += fmt.Sprintf(" AND updated_at=$%d", len(args))
	}
	query += " RETURNING updated_at"

	err := r.db.QueryRow(ctx, query, args...).Scan(&ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) && expectedUpdatedAt != nil {
		return ErrStaleTicket
	}
	return err
}

// SetQueuePosition writes derived data only and leaves updated_at untouched.
func (r *ticketRepository) SetQueuePosition(ctx context.Context, id string, position *int) error {
	const query = `UPDATE tickets SET queue_position=$1 WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, position, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.RequestingOrg,
		&ticket.RequestType,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Forwarding,
		&ticket.OfficialNumberPrimary,
		&ticket.OfficialNumberSecondary,
		&ticket.Priority,
		&ticket.Status,
		&ticket.QueuePosition,
		&ticket.SubmittedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CreatedBy,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/caosaude/solicitacoes/internal/api/dto"
	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/service"
	"github.com/caosaude/solicitacoes/internal/ticketview"
)

// TicketService is the ticket workflow surface used by the handler.
type TicketService interface {
	CreateTicket(ctx context.Context, actor *domain.Profile, input service.TicketCreateInput) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, actor *domain.Profile, ticketID string, input service.TicketUpdateInput) (*domain.Ticket, error)
	ChangeStatus(ctx context.Context, actor *domain.Profile, ticketID string, status domain.TicketStatus, expectedUpdatedAt *time.Time) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, actor *domain.Profile, ticketID string) error
	AddNote(ctx context.Context, actor *domain.Profile, ticketID, title, description string) (*domain.TimelineEvent, error)
	ListTickets(ctx context.Context, actor *domain.Profile, query service.TicketListQuery) ([]domain.Ticket, error)
	Summary(ctx context.Context, actor *domain.Profile) (ticketview.Summary, error)
	GetTicket(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.Ticket, error)
	Timeline(ctx context.Context, actor *domain.Profile, ticketID string) ([]domain.TimelineEvent, error)
}

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service TicketService
	now     func() time.Time
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, now: time.Now}
}

// CreateTicket POST /api/v1/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	var submittedAt time.Time
	if req.SubmittedAt != "" {
		if submittedAt, err = parseDate(req.SubmittedAt, false); err != nil {
			return invalidField("submitted_at", "date")
		}
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		RequestingOrg:           req.RequestingOrg,
		RequestType:             req.RequestType,
		Subject:                 req.Subject,
		Description:             req.Description,
		Forwarding:              req.Forwarding,
		OfficialNumberPrimary:   req.OfficialNumberPrimary,
		OfficialNumberSecondary: req.OfficialNumberSecondary,
		Priority:                req.Priority,
		SubmittedAt:             submittedAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, h.now())})
}

// ListTickets GET /api/v1/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	query, err := parseListQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), actor, query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewTicketResponses(tickets, h.now()),
		"meta": fiber.Map{"total": len(tickets)},
	})
}

// Summary GET /api/v1/tickets/summary.
func (h *TicketsHandler) Summary(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Summary(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"counts": summary,
		"recent": dto.NewTicketResponses(summary.Recent, h.now()),
	}})
}

// GetTicket GET /api/v1/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, h.now())})
}

// UpdateTicket PATCH /api/v1/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	input := service.TicketUpdateInput{
		RequestingOrg:           req.RequestingOrg,
		RequestType:             req.RequestType,
		Subject:                 req.Subject,
		Description:             req.Description,
		Forwarding:              req.Forwarding,
		OfficialNumberPrimary:   req.OfficialNumberPrimary,
		OfficialNumberSecondary: req.OfficialNumberSecondary,
		Priority:                req.Priority,
		Status:                  req.Status,
		ExpectedUpdatedAt:       req.ExpectedUpdatedAt,
	}
	if req.SubmittedAt != nil {
		submittedAt, err := parseDate(*req.SubmittedAt, false)
		if err != nil {
			return invalidField("submitted_at", "date")
		}
		input.SubmittedAt = &submittedAt
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, h.now())})
}

// ChangeStatus POST /api/v1/tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if !req.Status.Valid() {
		return invalidField("status", "ticket_status")
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Status, req.ExpectedUpdatedAt)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, h.now())})
}

// DeleteTicket DELETE /api/v1/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Timeline GET /api/v1/tickets/:id/timeline.
func (h *TicketsHandler) Timeline(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	entries, err := h.service.Timeline(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTimelineResponses(entries)})
}

// AddNote POST /api/v1/tickets/:id/timeline.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	var req dto.AddNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	entry, err := h.service.AddNote(c.UserContext(), actor, c.Params("id"), req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTimelineEventResponse(entry)})
}

// Vocabularies GET /api/v1/vocabularies.
func (h *TicketsHandler) Vocabularies(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.NewVocabularyResponse()})
}

package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/export"
	"github.com/caosaude/solicitacoes/internal/service"
	"github.com/caosaude/solicitacoes/internal/ticketview"
)

// ReportService is the reporting surface used by the handler.
type ReportService interface {
	Stats(ctx context.Context, r ticketview.DateRange) (ticketview.Stats, error)
	Export(ctx context.Context, actor *domain.Profile, format export.Format, query service.TicketListQuery) (*export.File, error)
}

// ReportsHandler serves report statistics and exports.
type ReportsHandler struct {
	reports ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// Stats GET /api/v1/reports/stats?from=&to=.
func (h *ReportsHandler) Stats(c *fiber.Ctx) error {
	var r ticketview.DateRange
	if from := c.Query("from"); from != "" {
		start, err := parseDate(from, false)
		if err != nil {
			return invalidField("from", "date")
		}
		r.Start = start
	}
	if to := c.Query("to"); to != "" {
		end, err := parseDate(to, true)
		if err != nil {
			return invalidField("to", "date")
		}
		r.End = end
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return invalidField("to", "gtefield")
	}

	stats, err := h.reports.Stats(c.UserContext(), r)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Export GET /api/v1/reports/export?format=csv|pdf|xlsx plus listing filters.
func (h *ReportsHandler) Export(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		return invalidField("format", "oneof")
	}
	query, err := parseListQuery(c)
	if err != nil {
		return err
	}
	file, err := h.reports.Export(c.UserContext(), actor, format, query)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	return c.Send(file.Body)
}

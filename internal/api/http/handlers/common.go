package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/caosaude/solicitacoes/internal/auth"
	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/service"
	"github.com/caosaude/solicitacoes/internal/ticketview"
	apperrors "github.com/caosaude/solicitacoes/pkg/util/errorutil"
)

const dateLayout = "2006-01-02"

func currentProfile(c *fiber.Ctx) (*domain.Profile, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Profile == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Profile, nil
}

func invalidPayload() error {
	return apperrors.NewValidationError("invalid payload", nil)
}

func invalidField(field, reason string) error {
	return apperrors.NewValidationError("invalid "+field, map[string]any{
		"fields": map[string]string{field: reason},
	})
}

// parseListQuery reads ?q=&status=&priority=&sort=&order= into a listing query.
func parseListQuery(c *fiber.Ctx) (service.TicketListQuery, error) {
	query := service.TicketListQuery{
		Criteria: ticketview.Criteria{
			Search:   c.Query("q"),
			Status:   c.Query("status"),
			Priority: c.Query("priority"),
		},
	}
	key := ticketview.SortKey(strings.TrimSpace(c.Query("sort")))
	if !key.Valid() {
		return query, invalidField("sort", "oneof")
	}
	query.Sort = ticketview.SortState{Key: key}
	switch strings.ToLower(c.Query("order", "asc")) {
	case "asc":
	case "desc":
		query.Sort.Desc = true
	default:
		return query, invalidField("order", "oneof")
	}
	return query, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. A bare date
// used as an upper bound covers the whole day.
func parseDate(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

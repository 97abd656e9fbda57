// Package ticketview builds filtered, sorted and aggregated views over an
// in-memory ticket collection. Every function is pure.
package ticketview

import (
	"strings"

	"github.com/caosaude/solicitacoes/internal/domain"
)

// All is the filter value that matches every status or priority.
const All = "all"

// Criteria selects tickets. Predicates are AND-combined.
type Criteria struct {
	Search   string
	Status   string
	Priority string
}

// Matches reports whether the ticket satisfies every predicate.
func (c Criteria) Matches(t *domain.Ticket) bool {
	return matchesSearch(t, c.Search) &&
		matchesValue(c.Status, string(t.Status)) &&
		matchesValue(c.Priority, string(t.Priority))
}

// Filter returns the tickets matching c, preserving input order.
func Filter(tickets []domain.Ticket, c Criteria) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if c.Matches(&tickets[i]) {
			out = append(out, tickets[i])
		}
	}
	return out
}

func matchesSearch(t *domain.Ticket, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Subject), term) ||
		strings.Contains(strings.ToLower(t.RequestingOrg), term) ||
		strings.Contains(strings.ToLower(t.OfficialNumberPrimary), term)
}

func matchesValue(filter, value string) bool {
	return filter == "" || filter == All || filter == value
}

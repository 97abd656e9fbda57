package ticketview

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/caosaude/solicitacoes/internal/domain"
)

// SortKey names a sortable column.
type SortKey string

const (
	SortNone           SortKey = ""
	SortSubject        SortKey = "subject"
	SortOrg            SortKey = "requesting_org"
	SortOfficialNumber SortKey = "official_number"
	SortSubmittedAt    SortKey = "submitted_at"
	SortStatus         SortKey = "status"
	SortPriority       SortKey = "priority"
)

// Valid reports whether k is a known key. SortNone is valid.
func (k SortKey) Valid() bool {
	switch k {
	case SortNone, SortSubject, SortOrg, SortOfficialNumber, SortSubmittedAt, SortStatus, SortPriority:
		return true
	}
	return false
}

// SortState is the current column and direction.
type SortState struct {
	Key  SortKey
	Desc bool
}

// Toggle selects key. Selecting the current key flips the direction;
// a different key starts ascending.
func (s SortState) Toggle(key SortKey) SortState {
	if s.Key == key {
		return SortState{Key: key, Desc: !s.Desc}
	}
	return SortState{Key: key}
}

// Sort returns a copy of tickets ordered by state. Equal keys fall back to
// ticket id ascending so the output is deterministic. SortNone keeps input order.
func Sort(tickets []domain.Ticket, state SortState) []domain.Ticket {
	out := append([]domain.Ticket(nil), tickets...)
	if state.Key == SortNone {
		return out
	}
	col := collate.New(language.BrazilianPortuguese, collate.Loose)
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(col, &out[i], &out[j], state.Key)
		if c == 0 {
			return out[i].ID < out[j].ID
		}
		if state.Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// Build filters then sorts.
func Build(tickets []domain.Ticket, c Criteria, state SortState) []domain.Ticket {
	return Sort(Filter(tickets, c), state)
}

func compare(col *collate.Collator, a, b *domain.Ticket, key SortKey) int {
	switch key {
	case SortSubmittedAt:
		return a.SubmissionTime().Compare(b.SubmissionTime())
	case SortSubject:
		return col.CompareString(a.Subject, b.Subject)
	case SortOrg:
		return col.CompareString(a.RequestingOrg, b.RequestingOrg)
	case SortOfficialNumber:
		return col.CompareString(a.OfficialNumberPrimary, b.OfficialNumberPrimary)
	case SortStatus:
		return col.CompareString(a.Status.Label(), b.Status.Label())
	case SortPriority:
		return col.CompareString(a.Priority.Label(), b.Priority.Label())
	}
	return 0
}

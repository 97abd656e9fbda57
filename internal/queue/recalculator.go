// Package queue assigns dense queue positions to pending tickets.
package queue

import (
	"sort"

	"github.com/caosaude/solicitacoes/internal/domain"
)

// Update is a single corrected position. A nil Position clears it.
type Update struct {
	TicketID string
	Position *int
}

// Positions computes the desired queue position of every ticket, keyed by id.
// Pending tickets receive 1..P by ascending submission time; others get nil.
func Positions(tickets []domain.Ticket) map[string]*int {
	ordered := bySubmission(tickets)
	positions := make(map[string]*int, len(ordered))
	next := 1
	for _, t := range ordered {
		if !t.IsPending() {
			positions[t.ID] = nil
			continue
		}
		pos := next
		positions[t.ID] = &pos
		next++
	}
	return positions
}

// Recalculate returns the minimal set of updates that makes every stored
// position match Positions. Output follows submission order.
func Recalculate(tickets []domain.Ticket) []Update {
	desired := Positions(tickets)

	var updates []Update
	for _, t := range bySubmission(tickets) {
		want := desired[t.ID]
		if samePosition(t.QueuePosition, want) {
			continue
		}
		updates = append(updates, Update{TicketID: t.ID, Position: want})
	}
	return updates
}

// Apply writes the updates onto tickets in place and returns how many changed.
func Apply(tickets []domain.Ticket, updates []Update) int {
	byID := make(map[string]*int, len(updates))
	for _, u := range updates {
		byID[u.TicketID] = u.Position
	}
	changed := 0
	for i := range tickets {
		pos, ok := byID[tickets[i].ID]
		if !ok {
			continue
		}
		tickets[i].QueuePosition = pos
		changed++
	}
	return changed
}

func bySubmission(tickets []domain.Ticket) []*domain.Ticket {
	ordered := make([]*domain.Ticket, len(tickets))
	for i := range tickets {
		ordered[i] = &tickets[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return submittedBefore(ordered[i], ordered[j])
	})
	return ordered
}

func submittedBefore(a, b *domain.Ticket) bool {
	at, bt := a.SubmissionTime(), b.SubmissionTime()
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func samePosition(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

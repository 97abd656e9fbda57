package ticketview

import (
	"time"

	"github.com/caosaude/solicitacoes/internal/domain"
)

// Band classifies how long a ticket has been waiting.
type Band string

const (
	BandNeutral  Band = "neutral"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

// DaysInQueue returns whole days elapsed since submission for pending and
// in-review tickets. ok is false for every other status.
func DaysInQueue(t *domain.Ticket, now time.Time) (days int, ok bool) {
	if t.Status != domain.TicketStatusPending && t.Status != domain.TicketStatusInReview {
		return 0, false
	}
	elapsed := now.Sub(t.SubmissionTime())
	if elapsed < 0 {
		return 0, true
	}
	return int(elapsed / (24 * time.Hour)), true
}

// BandFor maps elapsed days onto an urgency band.
func BandFor(days int) Band {
	switch {
	case days <= 3:
		return BandNeutral
	case days <= 7:
		return BandWarning
	default:
		return BandCritical
	}
}

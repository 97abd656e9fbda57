package ticketview

import (
	"sort"
	"time"

	"github.com/caosaude/solicitacoes/internal/domain"
)

// DefaultTopSubjects is the number of subjects reported when none is given.
const DefaultTopSubjects = 5

// DateRange bounds submission time inclusively. Zero ends are unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether at falls inside the range.
func (r DateRange) Contains(at time.Time) bool {
	if !r.Start.IsZero() && at.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && at.After(r.End) {
		return false
	}
	return true
}

// Count is a labelled tally.
type Count struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MonthCount is the number of tickets submitted in a calendar month (YYYY-MM).
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// SubjectShare is a subject's frequency and its percentage of the total.
type SubjectShare struct {
	Subject    string  `json:"subject"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Stats summarises a ticket set for reports.
type Stats struct {
	Total                 int            `json:"total"`
	ByStatus              []Count        `json:"by_status"`
	ByPriority            []Count        `json:"by_priority"`
	CompletionRate        float64        `json:"completion_rate"`
	AverageResolutionDays *float64       `json:"average_resolution_days"`
	Monthly               []MonthCount   `json:"monthly"`
	TopSubjects           []SubjectShare `json:"top_subjects"`
}

// InRange returns the tickets whose submission time falls within r.
func InRange(tickets []domain.Ticket, r DateRange) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if r.Contains(tickets[i].SubmissionTime()) {
			out = append(out, tickets[i])
		}
	}
	return out
}

// Aggregate computes Stats over tickets submitted within r. topN <= 0 uses
// DefaultTopSubjects.
func Aggregate(tickets []domain.Ticket, r DateRange, topN int) Stats {
	if topN <= 0 {
		topN = DefaultTopSubjects
	}
	selected := InRange(tickets, r)

	stats := Stats{
		Total:       len(selected),
		ByStatus:    countStatuses(selected),
		ByPriority:  countPriorities(selected),
		Monthly:     monthlyVolume(selected),
		TopSubjects: topSubjects(selected, topN),
	}

	completed := 0
	var resolution time.Duration
	for i := range selected {
		if selected[i].Status != domain.TicketStatusCompleted {
			continue
		}
		completed++
		resolution += selected[i].UpdatedAt.Sub(selected[i].CreatedAt)
	}
	if stats.Total > 0 {
		stats.CompletionRate = float64(completed) / float64(stats.Total)
	}
	if completed > 0 {
		avg := resolution.Hours() / 24 / float64(completed)
		stats.AverageResolutionDays = &avg
	}
	return stats
}

func countStatuses(tickets []domain.Ticket) []Count {
	tally := make(map[domain.TicketStatus]int, len(domain.TicketStatuses))
	for i := range tickets {
		tally[tickets[i].Status]++
	}
	out := make([]Count, 0, len(domain.TicketStatuses))
	for _, s := range domain.TicketStatuses {
		out = append(out, Count{Key: string(s), Label: s.Label(), Count: tally[s]})
	}
	return out
}

func countPriorities(tickets []domain.Ticket) []Count {
	tally := make(map[domain.TicketPriority]int, len(domain.TicketPriorities))
	for i := range tickets {
		tally[tickets[i].Priority]++
	}
	out := make([]Count, 0, len(domain.TicketPriorities))
	for _, p := range domain.TicketPriorities {
		out = append(out, Count{Key: string(p), Label: p.Label(), Count: tally[p]})
	}
	return out
}

func monthlyVolume(tickets []domain.Ticket) []MonthCount {
	tally := map[string]int{}
	for i := range tickets {
		tally[tickets[i].SubmissionTime().Format("2006-01")]++
	}
	out := make([]MonthCount, 0, len(tally))
	for month, n := range tally {
		out = append(out, MonthCount{Month: month, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func topSubjects(tickets []domain.Ticket, n int) []SubjectShare {
	var order []string
	tally := map[string]int{}
	for i := range tickets {
		subject := tickets[i].Subject
		if _, seen := tally[subject]; !seen {
			order = append(order, subject)
		}
		tally[subject]++
	}
	out := make([]SubjectShare, 0, len(order))
	for _, subject := range order {
		out = append(out, SubjectShare{
			Subject:    subject,
			Count:      tally[subject],
			Percentage: float64(tally[subject]) / float64(len(tickets)) * 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Summary is the dashboard headline.
type Summary struct {
	Total      int             `json:"total"`
	Pending    int             `json:"pending"`
	InReview   int             `json:"in_review"`
	InProgress int             `json:"in_progress"`
	Completed  int             `json:"completed"`
	Urgent     int             `json:"urgent"`
	Recent     []domain.Ticket `json:"-"`
}

// RecentLimit is how many tickets Summarize keeps in Recent.
const RecentLimit = 4

// Summarize counts tickets per headline status and keeps the most recently
// created ones.
func Summarize(tickets []domain.Ticket) Summary {
	s := Summary{Total: len(tickets)}
	for i := range tickets {
		switch tickets[i].Status {
		case domain.TicketStatusPending:
			s.Pending++
		case domain.TicketStatusInReview:
			s.InReview++
		case domain.TicketStatusInProgress:
			s.InProgress++
		case domain.TicketStatusCompleted:
			s.Completed++
		}
		if tickets[i].Priority == domain.TicketPriorityUrgent {
			s.Urgent++
		}
	}
	recent := append([]domain.Ticket(nil), tickets...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	s.Recent = recent
	return s
}

package ticketview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caosaude/solicitacoes/internal/domain"
)

var base = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func mk(id string, day int, status domain.TicketStatus, priority domain.TicketPriority, subject, org, sei string) domain.Ticket {
	at := base.AddDate(0, 0, day)
	return domain.Ticket{
		ID:                    id,
		Subject:               subject,
		RequestingOrg:         org,
		OfficialNumberPrimary: sei,
		Status:                status,
		Priority:              priority,
		SubmittedAt:           at,
		CreatedAt:             at,
		UpdatedAt:             at,
	}
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, len(tickets))
	for i := range tickets {
		out[i] = tickets[i].ID
	}
	return out
}

func sample() []domain.Ticket {
	return []domain.Ticket{
		mk("T3", 3, domain.TicketStatusPending, domain.TicketPriorityHigh, "Oncologia", "Promotoria de Cuiabá", "12.34.5678.0000001/2025-01"),
		mk("T1", 1, domain.TicketStatusPending, domain.TicketPriorityLow, "Transporte", "Promotoria de Sinop", "99.00.0000.0000002/2025-02"),
		mk("T2", 2, domain.TicketStatusCompleted, domain.TicketPriorityHigh, "Oncologia", "Defensoria", "55.00.0000.0000003/2025-03"),
	}
}

func TestFilterByStatusAndSortByDate(t *testing.T) {
	view := Build(sample(), Criteria{Status: string(domain.TicketStatusPending)}, SortState{Key: SortSubmittedAt})
	assert.Equal(t, []string{"T1", "T3"}, ids(view))
}

func TestFilterSearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	tickets := sample()
	assert.Equal(t, []string{"T3", "T2"}, ids(Filter(tickets, Criteria{Search: "ONCO"})))
	assert.Equal(t, []string{"T1"}, ids(Filter(tickets, Criteria{Search: "sinop"})))
	assert.Equal(t, []string{"T2"}, ids(Filter(tickets, Criteria{Search: "0000003"})))
	assert.Len(t, Filter(tickets, Criteria{Search: "  "}), 3)
	assert.Len(t, Filter(tickets, Criteria{Status: All, Priority: All}), 3)
}

func TestFilterIsConjunction(t *testing.T) {
	tickets := sample()
	// T2 matches the search and the priority but not the status.
	got := Filter(tickets, Criteria{Search: "oncologia", Status: "pending", Priority: "high"})
	assert.Equal(t, []string{"T3"}, ids(got))

	got = Filter(tickets, Criteria{Search: "transporte", Priority: "high"})
	assert.Empty(t, got)
}

func TestSortToggle(t *testing.T) {
	s := SortState{}.Toggle(SortSubject)
	assert.Equal(t, SortState{Key: SortSubject}, s)
	s = s.Toggle(SortSubject)
	assert.True(t, s.Desc)
	s = s.Toggle(SortOrg)
	assert.Equal(t, SortState{Key: SortOrg}, s)
}

func TestSortIsStableWithIDTieBreak(t *testing.T) {
	tickets := []domain.Ticket{
		mk("c", 0, domain.TicketStatusPending, domain.TicketPriorityLow, "Oncologia", "", ""),
		mk("a", 0, domain.TicketStatusPending, domain.TicketPriorityLow, "Oncologia", "", ""),
		mk("b", 0, domain.TicketStatusPending, domain.TicketPriorityLow, "Cirurgia Eletiva", "", ""),
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids(Sort(tickets, SortState{Key: SortSubject})))
	assert.Equal(t, []string{"a", "c", "b"}, ids(Sort(tickets, SortState{Key: SortSubject, Desc: true})))
	assert.Equal(t, []string{"c", "a", "b"}, ids(Sort(tickets, SortState{})))
}

func TestSortUsesLocaleCollation(t *testing.T) {
	tickets := []domain.Ticket{
		mk("1", 0, domain.TicketStatusPending, domain.TicketPriorityLow, "", "Zeta", ""),
		mk("2", 0, domain.TicketStatusPending, domain.TicketPriorityLow, "", "Órgão Central", ""),
		mk("3", 0, domain.TicketStatusPending, domain.TicketPriorityLow, "", "abc", ""),
	}
	assert.Equal(t, []string{"3", "2", "1"}, ids(Sort(tickets, SortState{Key: SortOrg})))
}

func TestSortByStatusLabel(t *testing.T) {
	tickets := []domain.Ticket{
		mk("p", 0, domain.TicketStatusPending, domain.TicketPriorityLow, "", "", ""),
		mk("c", 0, domain.TicketStatusCompleted, domain.TicketPriorityLow, "", "", ""),
		mk("r", 0, domain.TicketStatusInReview, domain.TicketPriorityLow, "", "", ""),
		mk("a", 0, domain.TicketStatusAwaitingResponse, domain.TicketPriorityLow, "", "", ""),
	}
	assert.Equal(t, []string{"a", "c", "r", "p"}, ids(Sort(tickets, SortState{Key: SortStatus})))
}

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil, DateRange{}, 0)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.CompletionRate)
	assert.Nil(t, stats.AverageResolutionDays)
	assert.Empty(t, stats.TopSubjects)
	assert.Empty(t, stats.Monthly)
}

func TestAggregate(t *testing.T) {
	tickets := sample()
	tickets[2].UpdatedAt = tickets[2].CreatedAt.Add(72 * time.Hour)
	late := mk("T4", 40, domain.TicketStatusCompleted, domain.TicketPriorityMedium, "Transporte", "", "")
	late.UpdatedAt = late.CreatedAt.Add(24 * time.Hour)
	tickets = append(tickets, late)

	stats := Aggregate(tickets, DateRange{}, 5)
	assert.Equal(t, 4, stats.Total)
	assert.InDelta(t, 0.5, stats.CompletionRate, 1e-9)
	require.NotNil(t, stats.AverageResolutionDays)
	assert.InDelta(t, 2.0, *stats.AverageResolutionDays, 1e-9)

	assert.Equal(t, []MonthCount{{Month: "2025-01", Count: 3}, {Month: "2025-02", Count: 1}}, stats.Monthly)

	require.Len(t, stats.TopSubjects, 2)
	assert.Equal(t, "Oncologia", stats.TopSubjects[0].Subject)
	assert.InDelta(t, 50.0, stats.TopSubjects[0].Percentage, 1e-9)
	assert.Equal(t, "Transporte", stats.TopSubjects[1].Subject)

	byStatus := map[string]int{}
	for _, c := range stats.ByStatus {
		byStatus[c.Key] = c.Count
	}
	assert.Equal(t, 2, byStatus["pending"])
	assert.Equal(t, 2, byStatus["completed"])
	assert.Equal(t, 0, byStatus["in_review"])
}

func TestAggregateRespectsRange(t *testing.T) {
	r := DateRange{Start: base.AddDate(0, 0, 2), End: base.AddDate(0, 0, 3)}
	stats := Aggregate(sample(), r, 5)
	assert.Equal(t, 2, stats.Total)
	assert.InDelta(t, 0.5, stats.CompletionRate, 1e-9)
}

func TestTopSubjectsTieBreakAndTruncate(t *testing.T) {
	var tickets []domain.Ticket
	for i, s := range []string{"B", "A", "C", "D", "E", "F", "A", "B"} {
		tickets = append(tickets, mk(string(rune('a'+i)), 0, domain.TicketStatusPending, domain.TicketPriorityLow, s, "", ""))
	}
	top := Aggregate(tickets, DateRange{}, 3).TopSubjects
	require.Len(t, top, 3)
	assert.Equal(t, "B", top[0].Subject)
	assert.Equal(t, "A", top[1].Subject)
	assert.Equal(t, "C", top[2].Subject)
}

func TestDaysInQueueAndBands(t *testing.T) {
	now := base.AddDate(0, 0, 8).Add(time.Hour)
	pending := mk("p", 0, domain.TicketStatusPending, domain.TicketPriorityLow, "", "", "")
	days, ok := DaysInQueue(&pending, now)
	require.True(t, ok)
	assert.Equal(t, 8, days)
	assert.Equal(t, BandCritical, BandFor(days))

	review := mk("r", 5, domain.TicketStatusInReview, domain.TicketPriorityLow, "", "", "")
	days, ok = DaysInQueue(&review, now)
	require.True(t, ok)
	assert.Equal(t, 3, days)
	assert.Equal(t, BandNeutral, BandFor(days))

	done := mk("d", 0, domain.TicketStatusCompleted, domain.TicketPriorityLow, "", "", "")
	_, ok = DaysInQueue(&done, now)
	assert.False(t, ok)

	future := mk("f", 30, domain.TicketStatusPending, domain.TicketPriorityLow, "", "", "")
	days, _ = DaysInQueue(&future, now)
	assert.Equal(t, 0, days)

	assert.Equal(t, BandWarning, BandFor(4))
	assert.Equal(t, BandWarning, BandFor(7))
	assert.Equal(t, BandNeutral, BandFor(3))
}

func TestSummarize(t *testing.T) {
	tickets := sample()
	tickets = append(tickets,
		mk("T5", 5, domain.TicketStatusInProgress, domain.TicketPriorityUrgent, "", "", ""),
		mk("T6", 6, domain.TicketStatusInReview, domain.TicketPriorityLow, "", "", ""),
	)
	s := Summarize(tickets)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Pending)
	assert.Equal(t, 1, s.InReview)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.Urgent)
	assert.Equal(t, []string{"T6", "T5", "T3", "T2"}, ids(s.Recent))
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/events"
	"github.com/caosaude/solicitacoes/internal/ticketview"
	apperrors "github.com/caosaude/solicitacoes/pkg/util/errorutil"
)

type ticketFixture struct {
	svc        *TicketService
	tickets    *fakeTicketRepo
	timeline   *fakeTimelineRepo
	blobs      *fakeBlobs
	dispatcher *recordingDispatcher
}

func newTicketFixture(policy domain.TransitionPolicy) *ticketFixture {
	tickets := newFakeTicketRepo()
	timeline := &fakeTimelineRepo{}
	blobs := &fakeBlobs{}
	dispatcher := newRecordingDispatcher()
	queueSvc := NewQueueService(QueueDependencies{TicketRepo: tickets, Dispatcher: dispatcher})
	svc := NewTicketService(TicketDependencies{
		TicketRepo:   tickets,
		TimelineRepo: timeline,
		Blobs:        blobs,
		Queue:        queueSvc,
		Dispatcher:   dispatcher,
		Policy:       policy,
	})
	return &ticketFixture{svc: svc, tickets: tickets, timeline: timeline, blobs: blobs, dispatcher: dispatcher}
}

func validCreateInput(day int) TicketCreateInput {
	return TicketCreateInput{
		RequestingOrg:         "Promotoria de Justiça de Itabuna",
		RequestType:           domain.RequestTypes[0],
		Subject:               "Oncologia",
		Description:           "Paciente aguarda tratamento",
		OfficialNumberPrimary: "190000000000000000001",
		SubmittedAt:           time.Date(2024, 4, day, 8, 0, 0, 0, time.UTC),
	}
}

func TestCreateTicketDefaultsAndSideEffects(t *testing.T) {
	f := newTicketFixture(nil)
	ctx := context.Background()

	input := validCreateInput(2)
	input.Description = "<b>Paciente</b> aguarda <script>alert(1)</script>tratamento"
	ticket, err := f.svc.CreateTicket(ctx, testRequester, input)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, "19.00.0000.0000000/0000-01", ticket.OfficialNumberPrimary)
	assert.Equal(t, "Paciente aguarda tratamento", ticket.Description)
	require.NotNil(t, ticket.CreatedBy)
	assert.Equal(t, testRequester.ID, *ticket.CreatedBy)

	assert.Equal(t, []string{domain.TimelineTitleCreated}, f.timeline.titles(ticket.ID))
	assert.Equal(t, intPtr(1), f.tickets.get(ticket.ID).QueuePosition)
	assert.Equal(t, []events.EventType{events.EventTicketCreated, events.EventQueueRecomputed}, f.dispatcher.types())
}

func TestCreateTicketValidation(t *testing.T) {
	f := newTicketFixture(nil)

	_, err := f.svc.CreateTicket(context.Background(), testRequester, TicketCreateInput{
		RequestingOrg: "Promotoria",
		RequestType:   "Desconhecido",
		Subject:       "Oncologia",
	})
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	fields, ok := domainErr.Details["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "request_type", fields["request_type"])
	assert.Equal(t, "required", fields["description"])
	assert.Equal(t, "required", fields["official_number_primary"])
	assert.Equal(t, "required", fields["submitted_at"])
	assert.NotContains(t, fields, "subject")
	assert.Empty(t, f.tickets.rows)
}

func TestCreateTicketRejectsUrgentPriority(t *testing.T) {
	f := newTicketFixture(nil)

	input := validCreateInput(1)
	input.Priority = domain.TicketPriorityUrgent
	_, err := f.svc.CreateTicket(context.Background(), testRequester, input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestQueuePositionsFollowStatusChanges(t *testing.T) {
	f := newTicketFixture(nil)
	ctx := context.Background()

	first, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(1))
	require.NoError(t, err)
	second, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(2))
	require.NoError(t, err)
	third, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(3))
	require.NoError(t, err)
	assert.Equal(t, intPtr(3), f.tickets.get(third.ID).QueuePosition)

	_, err = f.svc.ChangeStatus(ctx, testManager, second.ID, domain.TicketStatusCompleted, nil)
	require.NoError(t, err)

	assert.Equal(t, intPtr(1), f.tickets.get(first.ID).QueuePosition)
	assert.Nil(t, f.tickets.get(second.ID).QueuePosition)
	assert.Equal(t, intPtr(2), f.tickets.get(third.ID).QueuePosition)
	assert.Equal(t, []string{domain.TimelineTitleCreated, domain.TimelineTitleStatusChanged}, f.timeline.titles(second.ID))

	require.NoError(t, f.svc.DeleteTicket(ctx, testManager, first.ID))
	assert.Equal(t, intPtr(1), f.tickets.get(third.ID).QueuePosition)
	assert.Equal(t, []string{first.ID}, f.blobs.removedPrefixes)
}

func TestWriteResponsesCarryRecomputedPosition(t *testing.T) {
	f := newTicketFixture(nil)
	ctx := context.Background()

	first, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(1))
	require.NoError(t, err)
	assert.Equal(t, intPtr(1), first.QueuePosition)

	second, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(2))
	require.NoError(t, err)
	assert.Equal(t, intPtr(2), second.QueuePosition)

	completed, err := f.svc.ChangeStatus(ctx, testManager, first.ID, domain.TicketStatusCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, completed.Status)
	assert.Nil(t, completed.QueuePosition)

	earlier := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	reopened, err := f.svc.UpdateTicket(ctx, testManager, first.ID, TicketUpdateInput{
		Status:      statusPtr(domain.TicketStatusPending),
		SubmittedAt: &earlier,
	})
	require.NoError(t, err)
	assert.Equal(t, intPtr(1), reopened.QueuePosition)
	assert.Equal(t, intPtr(2), f.tickets.get(second.ID).QueuePosition)
}

func TestCreateTicketTimelineFailureStillPositionsTicket(t *testing.T) {
	f := newTicketFixture(nil)
	f.timeline.err = errors.New("timeline down")

	_, err := f.svc.CreateTicket(context.Background(), testRequester, validCreateInput(1))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))

	require.Len(t, f.tickets.rows, 1)
	for id := range f.tickets.rows {
		assert.Equal(t, intPtr(1), f.tickets.get(id).QueuePosition)
	}
	assert.Equal(t, []events.EventType{events.EventQueueRecomputed}, f.dispatcher.types())
}

func TestDeleteTicketPublishesDeletedPayload(t *testing.T) {
	f := newTicketFixture(nil)
	ctx := context.Background()

	ticket, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(1))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteTicket(ctx, testManager, ticket.ID))

	var deleted *events.Event
	for i, e := range f.dispatcher.events {
		if e.Type == events.EventTicketDeleted {
			deleted = &f.dispatcher.events[i]
		}
	}
	require.NotNil(t, deleted)
	assert.Equal(t, ticket.ID, deleted.TicketID)
	assert.Equal(t, events.TicketDeletedPayload{
		Subject:       "Oncologia",
		RequestingOrg: ticket.RequestingOrg,
		Status:        domain.TicketStatusPending,
		QueuePosition: intPtr(1),
	}, deleted.Payload)
}

func TestUpdateTicketCompareAndSwap(t *testing.T) {
	f := newTicketFixture(nil)
	ctx := context.Background()

	ticket, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(1))
	require.NoError(t, err)
	stale := f.tickets.get(ticket.ID).UpdatedAt

	forwarding := "Encaminhado à Secretaria Municipal"
	updated, err := f.svc.UpdateTicket(ctx, testManager, ticket.ID, TicketUpdateInput{
		Forwarding:        &forwarding,
		ExpectedUpdatedAt: &stale,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Forwarding)
	assert.Equal(t, forwarding, *updated.Forwarding)

	subject := "Transporte"
	_, err = f.svc.UpdateTicket(ctx, testManager, ticket.ID, TicketUpdateInput{
		Subject:           &subject,
		ExpectedUpdatedAt: &stale,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, "Oncologia", f.tickets.get(ticket.ID).Subject)
}

func TestUpdateTicketErrors(t *testing.T) {
	f := newTicketFixture(nil)
	ctx := context.Background()

	ticket, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(1))
	require.NoError(t, err)

	subject := "Transporte"
	_, err = f.svc.UpdateTicket(ctx, testRequester, ticket.ID, TicketUpdateInput{Subject: &subject})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.svc.UpdateTicket(ctx, testManager, "missing", TicketUpdateInput{Subject: &subject})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	invalid := "Assunto inexistente"
	_, err = f.svc.UpdateTicket(ctx, testManager, ticket.ID, TicketUpdateInput{Subject: &invalid})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	published := len(f.dispatcher.types())
	same := "Oncologia"
	_, err = f.svc.UpdateTicket(ctx, testManager, ticket.ID, TicketUpdateInput{Subject: &same})
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.types(), published)
}

func TestStrictPolicyBlocksReopening(t *testing.T) {
	f := newTicketFixture(domain.StrictPolicy{})
	ctx := context.Background()

	ticket, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(1))
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, testManager, ticket.ID, domain.TicketStatusCompleted, nil)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, testManager, ticket.ID, domain.TicketStatusPending, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Equal(t, domain.TicketStatusCompleted, f.tickets.get(ticket.ID).Status)
}

func TestRequesterVisibility(t *testing.T) {
	f := newTicketFixture(nil)
	ctx := context.Background()

	mine, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(1))
	require.NoError(t, err)
	theirs, err := f.svc.CreateTicket(ctx, otherUser, validCreateInput(2))
	require.NoError(t, err)

	listed, err := f.svc.ListTickets(ctx, testRequester, TicketListQuery{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mine.ID, listed[0].ID)

	_, err = f.svc.GetTicket(ctx, testRequester, theirs.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	all, err := f.svc.ListTickets(ctx, testManager, TicketListQuery{
		Criteria: ticketview.Criteria{Status: string(domain.TicketStatusPending)},
		Sort:     ticketview.SortState{Key: ticketview.SortSubmittedAt},
	})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{mine.ID, theirs.ID}, []string{all[0].ID, all[1].ID})

	summary, err := f.svc.Summary(ctx, testManager)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Pending)
}

func TestNotesAndTimelineOrder(t *testing.T) {
	f := newTicketFixture(nil)
	ctx := context.Background()

	ticket, err := f.svc.CreateTicket(ctx, testRequester, validCreateInput(1))
	require.NoError(t, err)

	_, err = f.svc.AddNote(ctx, testManager, ticket.ID, "", "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	note, err := f.svc.AddNote(ctx, testManager, ticket.ID, "", "Contato com a regulação")
	require.NoError(t, err)
	assert.Equal(t, domain.TimelineTitleNote, note.Title)

	_, err = f.svc.AddNote(ctx, testManager, "missing", "", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	entries, err := f.svc.Timeline(ctx, testRequester, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.TimelineTitleCreated, entries[0].Title)
	assert.Equal(t, domain.TimelineTitleNote, entries[1].Title)
}

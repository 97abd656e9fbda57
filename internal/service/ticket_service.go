package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/events"
	"github.com/caosaude/solicitacoes/internal/repository"
	"github.com/caosaude/solicitacoes/internal/ticketview"
	apperrors "github.com/caosaude/solicitacoes/pkg/util/errorutil"
)

// Recomputer refreshes stored queue positions.
type Recomputer interface {
	Recompute(ctx context.Context, trigger string) (RecomputeResult, error)
}

// blobPrefixRemover drops every stored blob of a ticket.
type blobPrefixRemover interface {
	DeletePrefix(prefix string) error
}

// TicketService coordinates ticket workflows. Every write goes through
// commit, which pairs the store write with its timeline entry, event and
// queue recompute.
type TicketService struct {
	tickets    repository.TicketRepository
	timeline   repository.TimelineRepository
	blobs      blobPrefixRemover
	queue      Recomputer
	dispatcher events.Dispatcher
	policy     domain.TransitionPolicy
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	TimelineRepo repository.TimelineRepository
	Blobs        blobPrefixRemover
	Queue        Recomputer
	Dispatcher   events.Dispatcher
	Policy       domain.TransitionPolicy
	Validator    *validator.Validate
	Logger       *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	RequestingOrg           string
	RequestType             string
	Subject                 string
	Description             string
	Forwarding              *string
	OfficialNumberPrimary   string
	OfficialNumberSecondary *string
	Priority                domain.TicketPriority
	SubmittedAt             time.Time
}

// TicketUpdateInput is a partial field set; nil fields are left unchanged.
// ExpectedUpdatedAt, when set, turns the write into a compare-and-swap.
type TicketUpdateInput struct {
	RequestingOrg           *string
	RequestType             *string
	Subject                 *string
	Description             *string
	Forwarding              *string
	OfficialNumberPrimary   *string
	OfficialNumberSecondary *string
	Priority                *domain.TicketPriority
	Status                  *domain.TicketStatus
	SubmittedAt             *time.Time
	ExpectedUpdatedAt       *time.Time
}

// TicketListQuery narrows and orders a ticket listing.
type TicketListQuery struct {
	Criteria ticketview.Criteria
	Sort     ticketview.SortState
}

// ticketFields is the validated shape of a ticket about to be written.
type ticketFields struct {
	RequestingOrg         string                `json:"requesting_org" validate:"required,max=255"`
	RequestType           string                `json:"request_type" validate:"required,request_type"`
	Subject               string                `json:"subject" validate:"required,subject"`
	Description           string                `json:"description" validate:"required,max=20000"`
	OfficialNumberPrimary string                `json:"official_number_primary" validate:"required"`
	Priority              domain.TicketPriority `json:"priority" validate:"required,ticket_priority"`
	Status                domain.TicketStatus   `json:"status" validate:"required,ticket_status"`
	SubmittedAt           time.Time             `json:"submitted_at" validate:"required"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := deps.Policy
	if policy == nil {
		policy = domain.PermissivePolicy{}
	}
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	registerTicketValidations(validate)

	return &TicketService{
		tickets:    deps.TicketRepo,
		timeline:   deps.TimelineRepo,
		blobs:      deps.Blobs,
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
		policy:     policy,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger,
	}
}

func registerTicketValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("request_type", func(fl validator.FieldLevel) bool {
		return domain.IsKnownRequestType(fl.Field().String())
	})
	_ = v.RegisterValidation("subject", func(fl validator.FieldLevel) bool {
		return domain.IsKnownSubject(fl.Field().String())
	})
	_ = v.RegisterValidation("ticket_priority", func(fl validator.FieldLevel) bool {
		return domain.TicketPriority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("ticket_status", func(fl validator.FieldLevel) bool {
		return domain.TicketStatus(fl.Field().String()).Valid()
	})
}

// CreateTicket registers a new pending ticket owned by actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.Profile, input TicketCreateInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Assignable() {
		return nil, apperrors.NewValidationError("invalid ticket fields: priority", map[string]any{
			"fields": map[string]string{"priority": "assignable_priority"},
		})
	}

	ticket := &domain.Ticket{
		RequestingOrg:           s.cleanText(input.RequestingOrg),
		RequestType:             strings.TrimSpace(input.RequestType),
		Subject:                 strings.TrimSpace(input.Subject),
		Description:             s.cleanText(input.Description),
		Forwarding:              s.cleanOptional(input.Forwarding),
		OfficialNumberPrimary:   domain.FormatSEI(input.OfficialNumberPrimary),
		OfficialNumberSecondary: formatOptional(input.OfficialNumberSecondary, domain.FormatSIMP),
		Priority:                priority,
		Status:                  domain.TicketStatusPending,
		SubmittedAt:             input.SubmittedAt,
		CreatedBy:               &actor.ID,
	}
	if err := s.commit(ctx, actor, nil, ticket, nil); err != nil {
		return nil, err
	}
	// the recompute in commit may have moved queue_position
	return s.load(ctx, ticket.ID)
}

// UpdateTicket applies a partial update. Managers only.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.Profile, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("manager role required")
	}
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	next := *current
	if input.RequestingOrg != nil {
		next.RequestingOrg = s.cleanText(*input.RequestingOrg)
	}
	if input.RequestType != nil {
		next.RequestType = strings.TrimSpace(*input.RequestType)
	}
	if input.Subject != nil {
		next.Subject = strings.TrimSpace(*input.Subject)
	}
	if input.Description != nil {
		next.Description = s.cleanText(*input.Description)
	}
	if input.Forwarding != nil {
		next.Forwarding = s.cleanOptional(input.Forwarding)
	}
	if input.OfficialNumberPrimary != nil {
		next.OfficialNumberPrimary = domain.FormatSEI(*input.OfficialNumberPrimary)
	}
	if input.OfficialNumberSecondary != nil {
		next.OfficialNumberSecondary = formatOptional(input.OfficialNumberSecondary, domain.FormatSIMP)
	}
	if input.Priority != nil && *input.Priority != current.Priority {
		if !input.Priority.Assignable() {
			return nil, apperrors.NewValidationError("invalid ticket fields: priority", map[string]any{
				"fields": map[string]string{"priority": "assignable_priority"},
			})
		}
		next.Priority = *input.Priority
	}
	if input.Status != nil {
		next.Status = *input.Status
	}
	if input.SubmittedAt != nil {
		next.SubmittedAt = *input.SubmittedAt
	}

	if err := s.commit(ctx, actor, current, &next, input.ExpectedUpdatedAt); err != nil {
		return nil, err
	}
	return s.load(ctx, ticketID)
}

// ChangeStatus moves a ticket to status. Managers only.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.Profile, ticketID string, status domain.TicketStatus, expectedUpdatedAt *time.Time) (*domain.Ticket, error) {
	return s.UpdateTicket(ctx, actor, ticketID, TicketUpdateInput{Status: &status, ExpectedUpdatedAt: expectedUpdatedAt})
}

// DeleteTicket removes a ticket. Timeline and attachment rows cascade in the
// store; stored blobs are removed best-effort.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.Profile, ticketID string) error {
	if !actor.IsManager() {
		return apperrors.NewForbidden("manager role required")
	}
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return apperrors.NewUnavailable(fmt.Errorf("delete ticket: %w", err))
	}
	if s.blobs != nil {
		if err := s.blobs.DeletePrefix(ticketID); err != nil {
			s.logger.Warn("attachment blobs not removed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    profileActor(actor),
		Payload: events.TicketDeletedPayload{
			Subject:       current.Subject,
			RequestingOrg: current.RequestingOrg,
			Status:        current.Status,
			QueuePosition: current.QueuePosition,
		},
	})
	s.recompute(ctx)
	return nil
}

// AddNote appends a manager note to the ticket timeline.
func (s *TicketService) AddNote(ctx context.Context, actor *domain.Profile, ticketID, title, description string) (*domain.TimelineEvent, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("manager role required")
	}
	title = s.cleanText(title)
	description = s.cleanText(description)
	if description == "" {
		return nil, apperrors.NewValidationError("invalid timeline fields: description", map[string]any{
			"fields": map[string]string{"description": "required"},
		})
	}
	if title == "" {
		title = domain.TimelineTitleNote
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	event, err := s.appendTimeline(ctx, actor, ticket, title, description)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTimelineNoteAdded,
		TicketID: ticket.ID,
		Actor:    profileActor(actor),
	})
	return event, nil
}

// ListTickets returns the tickets visible to actor, filtered and sorted.
// Requesters see the tickets they created.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.Profile, query TicketListQuery) ([]domain.Ticket, error) {
	visible, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	return ticketview.Build(visible, query.Criteria, query.Sort), nil
}

// Summary returns dashboard headline counts over the visible tickets.
func (s *TicketService) Summary(ctx context.Context, actor *domain.Profile) (ticketview.Summary, error) {
	visible, err := s.visible(ctx, actor)
	if err != nil {
		return ticketview.Summary{}, err
	}
	return ticketview.Summarize(visible), nil
}

// GetTicket fetches a ticket the actor may see.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return ticket, nil
}

// Timeline lists a ticket's events in creation order.
func (s *TicketService) Timeline(ctx context.Context, actor *domain.Profile, ticketID string) ([]domain.TimelineEvent, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.timeline.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewUnavailable(fmt.Errorf("list timeline: %w", err))
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

// VisibleTickets returns every ticket actor may see, unfiltered.
func (s *TicketService) VisibleTickets(ctx context.Context, actor *domain.Profile) ([]domain.Ticket, error) {
	return s.visible(ctx, actor)
}

func (s *TicketService) visible(ctx context.Context, actor *domain.Profile) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.TicketFilter{}
	if !actor.IsManager() {
		filter.CreatedBy = &actor.ID
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewUnavailable(fmt.Errorf("list tickets: %w", err))
	}
	return tickets, nil
}

// commit is the single write path. before is nil for inserts.
func (s *TicketService) commit(ctx context.Context, actor *domain.Profile, before, after *domain.Ticket, expectedUpdatedAt *time.Time) error {
	if err := s.validateTicket(after); err != nil {
		return err
	}

	if before == nil {
		if err := s.tickets.Create(ctx, after); err != nil {
			return apperrors.NewUnavailable(fmt.Errorf("create ticket: %w", err))
		}
		if _, err := s.appendTimeline(ctx, actor, after, domain.TimelineTitleCreated,
			fmt.Sprintf("Solicitação registrada por %s", after.RequestingOrg)); err != nil {
			// the row is stored; it still needs a queue position
			s.recompute(ctx)
			return err
		}
		s.logger.Info("ticket created", zap.String("ticket_id", after.ID), zap.String("actor_id", actor.ID))
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type:     events.EventTicketCreated,
			TicketID: after.ID,
			Actor:    profileActor(actor),
			Payload: events.TicketCreatedPayload{
				Subject:       after.Subject,
				RequestingOrg: after.RequestingOrg,
				Priority:      after.Priority,
			},
		})
		s.recompute(ctx)
		return nil
	}

	statusChanged := before.Status != after.Status
	if statusChanged && !s.policy.Allowed(before.Status, after.Status) {
		return apperrors.NewValidationError("status transition not allowed", map[string]any{
			"from": before.Status,
			"to":   after.Status,
		})
	}
	fields := changedFields(before, after)
	if len(fields) == 0 {
		return nil
	}

	if err := s.tickets.Update(ctx, after, expectedUpdatedAt); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleTicket):
			return apperrors.NewConflict("ticket was modified by someone else", map[string]any{"id": after.ID})
		case apperrors.IsNotFound(err):
			return apperrors.NewNotFound("ticket", map[string]any{"id": after.ID})
		}
		return apperrors.NewUnavailable(fmt.Errorf("update ticket: %w", err))
	}

	if statusChanged {
		if _, err := s.appendTimeline(ctx, actor, after, domain.TimelineTitleStatusChanged,
			fmt.Sprintf("Status alterado de %s para %s", before.Status.Label(), after.Status.Label())); err != nil {
			return err
		}
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: after.ID,
			Actor:    profileActor(actor),
			Payload:  events.TicketStatusChangedPayload{OldStatus: before.Status, NewStatus: after.Status},
		})
	}
	if other := withoutField(fields, "status"); len(other) > 0 {
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: after.ID,
			Actor:    profileActor(actor),
			Payload:  events.TicketUpdatedPayload{Fields: other},
		})
	}
	if statusChanged || !before.SubmissionTime().Equal(after.SubmissionTime()) {
		s.recompute(ctx)
	}
	return nil
}

func (s *TicketService) appendTimeline(ctx context.Context, actor *domain.Profile, ticket *domain.Ticket, title, description string) (*domain.TimelineEvent, error) {
	event := &domain.TimelineEvent{
		TicketID:    ticket.ID,
		Title:       title,
		Description: description,
		Status:      ticket.Status,
	}
	if actor != nil {
		event.CreatedBy = &actor.ID
	}
	if err := s.timeline.Create(ctx, event); err != nil {
		return nil, apperrors.NewUnavailable(fmt.Errorf("append timeline: %w", err))
	}
	return event, nil
}

// recompute failures are logged; the next run heals them.
func (s *TicketService) recompute(ctx context.Context) {
	if s.queue == nil {
		return
	}
	if _, err := s.queue.Recompute(ctx, TriggerMutation); err != nil {
		s.logger.Warn("queue recompute after mutation failed", zap.Error(err))
	}
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.NewUnavailable(fmt.Errorf("get ticket: %w", err))
	}
	return ticket, nil
}

func (s *TicketService) validateTicket(t *domain.Ticket) error {
	err := s.validator.Struct(ticketFields{
		RequestingOrg:         t.RequestingOrg,
		RequestType:           t.RequestType,
		Subject:               t.Subject,
		Description:           t.Description,
		OfficialNumberPrimary: t.OfficialNumberPrimary,
		Priority:              t.Priority,
		Status:                t.Status,
		SubmittedAt:           t.SubmittedAt,
	})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewInternalError(err)
	}
	offending := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		offending[fe.Field()] = fe.Tag()
		names = append(names, fe.Field())
	}
	return apperrors.NewValidationError("invalid ticket fields: "+strings.Join(names, ", "),
		map[string]any{"fields": offending})
}

// cleanText strips markup from free text and trims it.
func (s *TicketService) cleanText(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

func (s *TicketService) cleanOptional(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := s.cleanText(*value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func formatOptional(value *string, format func(string) string) *string {
	if value == nil {
		return nil
	}
	formatted := format(*value)
	if formatted == "" {
		return nil
	}
	return &formatted
}

func canView(actor *domain.Profile, ticket *domain.Ticket) bool {
	if actor == nil {
		return false
	}
	if actor.IsManager() {
		return true
	}
	return ticket.CreatedBy != nil && *ticket.CreatedBy == actor.ID
}

func changedFields(before, after *domain.Ticket) []string {
	var fields []string
	add := func(name string, changed bool) {
		if changed {
			fields = append(fields, name)
		}
	}
	add("requesting_org", before.RequestingOrg != after.RequestingOrg)
	add("request_type", before.RequestType != after.RequestType)
	add("subject", before.Subject != after.Subject)
	add("description", before.Description != after.Description)
	add("forwarding", !equalOptional(before.Forwarding, after.Forwarding))
	add("official_number_primary", before.OfficialNumberPrimary != after.OfficialNumberPrimary)
	add("official_number_secondary", !equalOptional(before.OfficialNumberSecondary, after.OfficialNumberSecondary))
	add("priority", before.Priority != after.Priority)
	add("status", before.Status != after.Status)
	add("submitted_at", !before.SubmittedAt.Equal(after.SubmittedAt))
	return fields
}

func withoutField(fields []string, name string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != name {
			out = append(out, f)
		}
	}
	return out
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func profileActor(actor *domain.Profile) events.Actor {
	if actor == nil {
		return events.Actor{}
	}
	id := actor.ID
	return events.Actor{ProfileID: &id, Role: actor.Role}
}

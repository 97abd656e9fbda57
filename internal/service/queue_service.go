package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/caosaude/solicitacoes/internal/events"
	"github.com/caosaude/solicitacoes/internal/observability"
	"github.com/caosaude/solicitacoes/internal/queue"
	"github.com/caosaude/solicitacoes/internal/repository"
	apperrors "github.com/caosaude/solicitacoes/pkg/util/errorutil"
)

// Recompute triggers, used as metric and event labels.
const (
	TriggerMutation = "mutation"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// RecomputeResult summarizes one queue recompute run.
type RecomputeResult struct {
	Scanned int `json:"scanned"`
	Pending int `json:"pending"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// QueueService keeps stored queue positions in line with the pending set.
type QueueService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	// runs are serialized within the process; other instances may still race
	// and the next run heals whatever they leave behind.
	mu sync.Mutex
}

// QueueDependencies bundles collaborators for the queue service.
type QueueDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewQueueService constructs the service.
func NewQueueService(deps QueueDependencies) *QueueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Recompute reads every ticket, computes the minimal set of position
// changes and writes each one independently. A failed row does not stop the
// others; the per-row errors are joined into the returned error alongside a
// result that still reports what was written.
func (s *QueueService) Recompute(ctx context.Context, trigger string) (RecomputeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		s.metrics.RecordRecomputeFailure(trigger)
		return RecomputeResult{}, apperrors.NewUnavailable(fmt.Errorf("list tickets: %w", err))
	}

	result := RecomputeResult{Scanned: len(all)}
	for i := range all {
		if all[i].IsPending() {
			result.Pending++
		}
	}

	var errs []error
	for _, update := range queue.Recalculate(all) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.tickets.SetQueuePosition(ctx, update.TicketID, update.Position); err != nil {
			result.Failed++
			errs = append(errs, fmt.Errorf("ticket %s: %w", update.TicketID, err))
			continue
		}
		result.Updated++
	}

	s.metrics.RecordRecompute(trigger, result.Pending, result.Updated, result.Failed)
	fields := []zap.Field{
		zap.String("trigger", trigger),
		zap.Int("scanned", result.Scanned),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	}
	if len(errs) > 0 {
		s.logger.Warn("queue recompute incomplete", append(fields, zap.Error(errors.Join(errs...)))...)
	} else if result.Updated > 0 {
		s.logger.Info("queue positions recomputed", fields...)
	}

	if result.Updated > 0 {
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type: events.EventQueueRecomputed,
			Payload: events.QueueRecomputedPayload{
				Trigger: trigger,
				Scanned: result.Scanned,
				Updated: result.Updated,
				Failed:  result.Failed,
			},
		})
	}
	return result, errors.Join(errs...)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

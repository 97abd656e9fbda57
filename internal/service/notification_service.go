package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/caosaude/solicitacoes/internal/config"
	"github.com/caosaude/solicitacoes/internal/events"
)

// cacheInvalidator drops cached report data.
type cacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// NotificationService fans domain events out to the Redis change feed and
// invalidates cached reports. Failures are logged and never reach the
// mutation that raised the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	redis      *redis.Client
	reports    cacheInvalidator
	logger     *zap.Logger
	cfg        config.ChangefeedConfig
}

// NewNotificationService creates the service. A nil client disables the feed.
func NewNotificationService(dispatcher events.Dispatcher, client *redis.Client, reports cacheInvalidator, logger *zap.Logger, cfg config.ChangefeedConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		redis:      client,
		reports:    reports,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every ticket event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	events.SubscribeAll(n.dispatcher, events.TicketEventTypes, n.handleTicketEvent)
}

func (n *NotificationService) handleTicketEvent(ctx context.Context, event events.Event) error {
	if n.reports != nil {
		if err := n.reports.Invalidate(ctx); err != nil {
			n.logger.Warn("report cache invalidation failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	n.publishChange(ctx, event)
	return nil
}

func (n *NotificationService) publishChange(ctx context.Context, event events.Event) {
	if n.redis == nil || n.cfg.Channel == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("encode change event", zap.String("event_type", string(event.Type)), zap.Error(err))
		return
	}
	if err := n.redis.Publish(ctx, n.cfg.Channel, payload).Err(); err != nil {
		n.logger.Warn("change feed publish failed",
			zap.String("channel", n.cfg.Channel),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
		return
	}
	n.logger.Debug("change published",
		zap.String("channel", n.cfg.Channel),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}

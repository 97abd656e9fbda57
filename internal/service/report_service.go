package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/export"
	"github.com/caosaude/solicitacoes/internal/observability"
	"github.com/caosaude/solicitacoes/internal/repository"
	"github.com/caosaude/solicitacoes/internal/ticketview"
	apperrors "github.com/caosaude/solicitacoes/pkg/util/errorutil"
)

const (
	reportGenerationKey = "reports:generation"
	reportStatsPrefix   = "reports:stats"
	reportExportTitle   = "Relatório de Solicitações"
)

// ticketLister returns the tickets an actor may see, filtered and sorted.
type ticketLister interface {
	ListTickets(ctx context.Context, actor *domain.Profile, query TicketListQuery) ([]domain.Ticket, error)
}

// ReportService computes report statistics and exports.
type ReportService struct {
	tickets  repository.TicketRepository
	lister   ticketLister
	redis    *redis.Client
	exporter *export.Exporter
	metrics  *observability.Metrics
	logger   *zap.Logger
	ttl      time.Duration
	topN     int
	now      func() time.Time
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	TicketRepo repository.TicketRepository
	Lister     ticketLister
	Redis      *redis.Client
	Exporter   *export.Exporter
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	CacheTTL   time.Duration
	TopN       int
}

// NewReportService constructs the service. A nil Redis client or zero TTL
// disables caching.
func NewReportService(deps ReportDependencies) *ReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	exporter := deps.Exporter
	if exporter == nil {
		exporter = export.NewExporter()
	}
	topN := deps.TopN
	if topN <= 0 {
		topN = ticketview.DefaultTopSubjects
	}
	return &ReportService{
		tickets:  deps.TicketRepo,
		lister:   deps.Lister,
		redis:    deps.Redis,
		exporter: exporter,
		metrics:  deps.Metrics,
		logger:   logger,
		ttl:      deps.CacheTTL,
		topN:     topN,
		now:      time.Now,
	}
}

// Stats aggregates every ticket submitted inside r.
func (s *ReportService) Stats(ctx context.Context, r ticketview.DateRange) (ticketview.Stats, error) {
	key, cacheable := s.cacheKey(ctx, r)
	if cacheable {
		if stats, ok := s.cached(ctx, key); ok {
			return stats, nil
		}
	}

	all, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return ticketview.Stats{}, apperrors.NewUnavailable(fmt.Errorf("list tickets: %w", err))
	}
	stats := ticketview.Aggregate(all, r, s.topN)

	if cacheable {
		s.store(ctx, key, stats)
	}
	return stats, nil
}

// Invalidate makes every cached report stale by bumping the key generation.
func (s *ReportService) Invalidate(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Incr(ctx, reportGenerationKey).Err()
}

// Export renders the actor's filtered and sorted tickets.
func (s *ReportService) Export(ctx context.Context, actor *domain.Profile, format export.Format, query TicketListQuery) (*export.File, error) {
	tickets, err := s.lister.ListTickets(ctx, actor, query)
	if err != nil {
		return nil, err
	}
	file, err := s.exporter.Export(format, tickets, reportExportTitle, s.now())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("report exported",
		zap.String("format", string(format)),
		zap.Int("rows", len(tickets)),
		zap.String("actor_id", actor.ID))
	return file, nil
}

func (s *ReportService) cacheKey(ctx context.Context, r ticketview.DateRange) (string, bool) {
	if s.redis == nil || s.ttl <= 0 {
		return "", false
	}
	gen, err := s.redis.Get(ctx, reportGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("report cache unavailable", zap.Error(err))
		return "", false
	}
	return fmt.Sprintf("%s:%d:%s:%s", reportStatsPrefix, gen, rangeBound(r.Start), rangeBound(r.End)), true
}

func (s *ReportService) cached(ctx context.Context, key string) (ticketview.Stats, bool) {
	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
		return ticketview.Stats{}, false
	}
	var stats ticketview.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn("report cache entry corrupt", zap.String("key", key), zap.Error(err))
		s.metrics.RecordCacheLookup(false)
		return ticketview.Stats{}, false
	}
	s.metrics.RecordCacheLookup(true)
	return stats, true
}

func (s *ReportService) store(ctx context.Context, key string, stats ticketview.Stats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		s.logger.Warn("encode report cache entry", zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func rangeBound(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.UTC().Format(time.RFC3339)
}

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/caosaude/solicitacoes/internal/service"
)

// QueueWorker runs the queue position recompute on a cron schedule and once
// at startup.
type QueueWorker struct {
	queue    service.Recomputer
	cron     *cron.Cron
	schedule string
	logger   *zap.Logger
	timeout  time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewQueueWorker validates schedule and builds a worker. Standard five-field
// expressions and descriptors such as "@every 5m" are accepted.
func NewQueueWorker(queue service.Recomputer, schedule string, logger *zap.Logger) (*QueueWorker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid queue recompute schedule %q: %w", schedule, err)
	}
	return &QueueWorker{
		queue:    queue,
		cron:     cron.New(cron.WithLocation(time.UTC), cron.WithParser(parser)),
		schedule: schedule,
		logger:   logger,
		timeout:  time.Minute,
	}, nil
}

// Run schedules the job and blocks until ctx is cancelled.
func (w *QueueWorker) Run(ctx context.Context) error {
	var err error
	w.startOnce.Do(func() {
		_, err = w.cron.AddFunc(w.schedule, func() { w.RunOnce(ctx) })
		if err != nil {
			return
		}
		w.cron.Start()
		go w.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	w.Stop()
	return nil
}

// RunOnce performs a single scheduled recompute.
func (w *QueueWorker) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	result, err := w.queue.Recompute(runCtx, service.TriggerSchedule)
	if err != nil {
		w.logger.Warn("scheduled queue recompute failed", zap.Error(err), zap.Int("updated", result.Updated), zap.Int("failed", result.Failed))
		return
	}
	w.logger.Debug("scheduled queue recompute", zap.Int("scanned", result.Scanned), zap.Int("updated", result.Updated))
}

// Stop halts the scheduler and waits for a running job to finish.
func (w *QueueWorker) Stop() {
	w.stopOnce.Do(func() {
		<-w.cron.Stop().Done()
	})
}

// Package idempotency удаляет просроченные записи idempotency-ключей.
package idempotency

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
)

const (
	DefaultCleanupInterval  = 10 * time.Minute
	DefaultCleanupBatchSize = 500
)

// CleanupOptions настраивает воркер очистки.
type CleanupOptions struct {
	Logger    *log.Entry
	Metrics   *metrics.WorkerMetrics
	Clock     clock.Clock
	Interval  time.Duration
	BatchSize int
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

func WithLogger(logger *log.Entry) CleanupOption {
	return func(o *CleanupOptions) { o.Logger = logger }
}

func WithMetrics(m *metrics.WorkerMetrics) CleanupOption {
	return func(o *CleanupOptions) { o.Metrics = m }
}

func WithClock(clk clock.Clock) CleanupOption {
	return func(o *CleanupOptions) { o.Clock = clk }
}

func WithInterval(interval time.Duration) CleanupOption {
	return func(o *CleanupOptions) { o.Interval = interval }
}

// WithBatchSize задаёт размер одной порции удаления.
func WithBatchSize(batchSize int) CleanupOption {
	return func(o *CleanupOptions) { o.BatchSize = batchSize }
}

// CleanupWorker периодически удаляет записи с истёкшим ttl.
type CleanupWorker struct {
	repo    domain.IdempotencyRepository
	opts    CleanupOptions
	logger  *log.Entry
	clock   clock.Clock
	metrics *metrics.WorkerMetrics
}

// NewCleanupWorker создаёт воркер очистки.
func NewCleanupWorker(repo domain.IdempotencyRepository, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  DefaultCleanupInterval,
		BatchSize: DefaultCleanupBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultCleanupBatchSize
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "idempotency-cleanup")
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &CleanupWorker{repo: repo, opts: opts, logger: logger, clock: clk, metrics: opts.Metrics}
}

// Run чистит хранилище сразу и затем каждые Interval до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("idempotency cleanup is disabled: repo is nil")
		return
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	deleted, err := w.DeleteExpired(ctx, w.clock.Now())
	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		w.metrics.RecordCleanupRun("error")
		w.logger.WithError(err).WithField("deleted", deleted).Warn("idempotency cleanup failed")
		return
	}

	w.metrics.RecordCleanupRun("ok")
	w.metrics.SetCleanupLastDeleted(deleted)
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("expired idempotency keys removed")
	}
}

// DeleteExpired удаляет все записи с ttl <= before порциями BatchSize.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = w.clock.Now()
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		deleted, err := w.repo.DeleteExpired(before.UTC(), w.opts.BatchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		w.metrics.RecordCleanupDeleted(deleted)
		if deleted < w.opts.BatchSize {
			return total, nil
		}
	}
}

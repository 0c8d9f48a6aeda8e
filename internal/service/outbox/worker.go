// Package outbox доставляет доменные события из transactional outbox подписчикам.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
)

const (
	DefaultPollInterval   = time.Second
	DefaultBatchSize      = 100
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 50 * time.Millisecond
)

// Options настраивает воркер.
type Options struct {
	Logger         *log.Entry
	DLQPublisher   domain.OutboxPublisher
	Metrics        *metrics.WorkerMetrics
	Clock          clock.Clock
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Option настраивает Worker.
type Option func(*Options)

func WithLogger(logger *log.Entry) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithDLQPublisher задаёт получателя сообщений, не доставленных за MaxAttempts.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(o *Options) { o.DLQPublisher = publisher }
}

func WithMetrics(m *metrics.WorkerMetrics) Option {
	return func(o *Options) { o.Metrics = m }
}

func WithClock(clk clock.Clock) Option {
	return func(o *Options) { o.Clock = clk }
}

func WithPollInterval(interval time.Duration) Option {
	return func(o *Options) { o.PollInterval = interval }
}

func WithBatchSize(batchSize int) Option {
	return func(o *Options) { o.BatchSize = batchSize }
}

func WithMaxAttempts(maxAttempts int) Option {
	return func(o *Options) { o.MaxAttempts = maxAttempts }
}

// WithRetryBaseDelay задаёт первую задержку; каждая следующая вдвое больше.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(o *Options) { o.RetryBaseDelay = delay }
}

// Worker забирает pending-сообщения и передаёт их publisher: в Kafka или сразу в fan-out.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	opts      Options
	logger    *log.Entry
	clock     clock.Clock
}

// NewWorker создаёт outbox worker.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	opts := Options{
		PollInterval:   DefaultPollInterval,
		BatchSize:      DefaultBatchSize,
		MaxAttempts:    DefaultMaxAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-worker")
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Worker{repo: repo, publisher: publisher, opts: opts, logger: logger, clock: clk}
}

// Run опрашивает outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		// Полный батч означает, что в очереди может быть ещё, поэтому опрашиваем сразу.
		for {
			if n := w.ProcessOnce(ctx); n < w.opts.BatchSize || ctx.Err() != nil {
				break
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce обрабатывает один батч и возвращает число взятых сообщений.
// Сообщения публикуются в порядке постановки в очередь.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	w.refreshBacklog()

	batch, err := w.repo.PullPending(w.opts.BatchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return 0
	}

	for _, msg := range batch {
		if ctx.Err() != nil {
			return len(batch)
		}
		w.deliver(ctx, msg)
	}
	if len(batch) > 0 {
		w.refreshBacklog()
	}
	return len(batch)
}

func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) {
	fields := log.Fields{
		"outbox_id":    msg.ID,
		"event_type":   msg.EventType,
		"aggregate_id": msg.AggregateID,
	}

	err := w.publishWithRetry(ctx, msg)
	if err == nil {
		if markErr := w.repo.MarkSent(msg.ID); markErr != nil {
			w.logger.WithError(markErr).WithFields(fields).Warn("failed to mark outbox message as sent")
		}
		return
	}
	if ctx.Err() != nil {
		// Сообщение остаётся pending и будет взято при следующем запуске.
		return
	}

	w.logger.WithError(err).WithFields(fields).Error("outbox publish failed after retries")
	w.opts.Metrics.RecordOutboxPublish("failed")
	if dlqErr := w.publishToDLQ(msg, err); dlqErr != nil {
		w.logger.WithError(dlqErr).WithFields(fields).Warn("failed to publish to DLQ")
		w.opts.Metrics.RecordOutboxPublish("dlq_failed")
	}
	if markErr := w.repo.MarkFailed(msg.ID); markErr != nil {
		w.logger.WithError(markErr).WithFields(fields).Warn("failed to mark outbox message as failed")
	}
}

func (w *Worker) publishWithRetry(ctx context.Context, msg domain.OutboxMessage) error {
	var lastErr error
	delay := w.opts.RetryBaseDelay

	for attempt := 1; attempt <= w.opts.MaxAttempts; attempt++ {
		lastErr = w.publisher.Publish(msg)
		if lastErr == nil {
			w.opts.Metrics.RecordOutboxPublish("sent")
			return nil
		}
		w.opts.Metrics.RecordOutboxPublish("retry_error")
		if attempt == w.opts.MaxAttempts || delay <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < time.Minute {
			delay *= 2
		}
	}
	return fmt.Errorf("publish failed after %d attempts: %w", w.opts.MaxAttempts, lastErr)
}

func (w *Worker) refreshBacklog() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}
	var age time.Duration
	if !stats.OldestPendingAt.IsZero() {
		age = w.clock.Now().Sub(stats.OldestPendingAt)
	}
	w.opts.Metrics.SetOutboxBacklog(stats.PendingCount, age)
}

// DeadLetter описывает сообщение, отправленное в DLQ.
type DeadLetter struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	FailedAt      time.Time       `json:"failed_at"`
}

func (w *Worker) publishToDLQ(msg domain.OutboxMessage, publishErr error) error {
	if w.opts.DLQPublisher == nil {
		return nil
	}

	payload := json.RawMessage(msg.Payload)
	if !json.Valid(payload) {
		payload, _ = json.Marshal(string(msg.Payload))
	}
	body, err := json.Marshal(DeadLetter{
		OutboxID:      msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishError:  publishErr.Error(),
		FailedAt:      w.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	dead := msg
	dead.Payload = body
	if err := w.opts.DLQPublisher.Publish(dead); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}

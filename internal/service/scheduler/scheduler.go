// Package scheduler запускает периодические задачи по расписанию cron.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
)

const (
	DefaultPendingOrderTTL = 30 * time.Minute
	DefaultExpireSpec      = "@every 1m"
	DefaultCompleteSpec    = "@every 5m"
	defaultBatchSize       = 100
)

// OrderCanceler отменяет заказ с компенсациями.
type OrderCanceler interface {
	Cancel(orderID string, actor domain.Actor, reason string) (domain.Order, error)
}

// EventCompleter закрывает прошедшие мероприятия.
type EventCompleter interface {
	CompleteEnded(limit int) (int, error)
}

// Config задаёт расписание задач.
type Config struct {
	PendingOrderTTL time.Duration
	ExpireSpec      string
	CompleteSpec    string
	BatchSize       int
}

type Dependencies struct {
	Orders  domain.OrderRepository
	Saga    OrderCanceler
	Events  EventCompleter
	Metrics *metrics.WorkerMetrics
	Clock   clock.Clock
	Logger  *log.Entry
}

// Scheduler держит cron и задачи обслуживания.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	orders  domain.OrderRepository
	saga    OrderCanceler
	events  EventCompleter
	metrics *metrics.WorkerMetrics
	clock   clock.Clock
	logger  *log.Entry
}

// New регистрирует задачи. Ошибка означает некорректное выражение расписания.
func New(cfg Config, deps Dependencies) (*Scheduler, error) {
	if cfg.PendingOrderTTL <= 0 {
		cfg.PendingOrderTTL = DefaultPendingOrderTTL
	}
	if cfg.ExpireSpec == "" {
		cfg.ExpireSpec = DefaultExpireSpec
	}
	if cfg.CompleteSpec == "" {
		cfg.CompleteSpec = DefaultCompleteSpec
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "scheduler")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}

	cronLogger := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		cfg:     cfg,
		orders:  deps.Orders,
		saga:    deps.Saga,
		events:  deps.Events,
		metrics: deps.Metrics,
		clock:   clk,
		logger:  logger,
	}

	if s.orders != nil && s.saga != nil {
		if _, err := s.cron.AddFunc(cfg.ExpireSpec, s.job("expire-pending-orders", s.ExpirePendingOrders)); err != nil {
			return nil, fmt.Errorf("schedule order expiry %q: %w", cfg.ExpireSpec, err)
		}
	}
	if s.events != nil {
		if _, err := s.cron.AddFunc(cfg.CompleteSpec, s.job("complete-ended-events", s.CompleteEndedEvents)); err != nil {
			return nil, fmt.Errorf("schedule event completion %q: %w", cfg.CompleteSpec, err)
		}
	}
	return s, nil
}

// Run запускает cron и ждёт отмены ctx. Возвращается после завершения текущих задач.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	s.logger.WithField("jobs", len(s.cron.Entries())).Info("scheduler started")
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// ExpirePendingOrders отменяет неоплаченные заказы старше PendingOrderTTL.
func (s *Scheduler) ExpirePendingOrders() (int, error) {
	before := s.clock.Now().Add(-s.cfg.PendingOrderTTL)
	expired := 0
	for _, status := range []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusReserved} {
		orders, err := s.orders.ListByStatusBefore(status, before, s.cfg.BatchSize)
		if err != nil {
			return expired, fmt.Errorf("list %s orders: %w", status, err)
		}
		for _, order := range orders {
			if _, err := s.saga.Cancel(order.ID, domain.SystemActor(), "payment timeout"); err != nil {
				s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to expire order")
				continue
			}
			expired++
		}
	}
	return expired, nil
}

// CompleteEndedEvents закрывает мероприятия, время которых прошло.
func (s *Scheduler) CompleteEndedEvents() (int, error) {
	return s.events.CompleteEnded(s.cfg.BatchSize)
}

func (s *Scheduler) job(name string, fn func() (int, error)) func() {
	return func() {
		started := time.Now()
		n, err := fn()
		s.metrics.RecordSchedulerJob(name, err)
		entry := s.logger.WithFields(log.Fields{
			"job":      name,
			"affected": n,
			"duration": time.Since(started),
		})
		if err != nil {
			entry.WithError(err).Error("scheduled job failed")
			return
		}
		if n > 0 {
			entry.Info("scheduled job done")
		}
	}
}

// cronLogger пишет сообщения cron в logrus.
type cronLogger struct {
	entry *log.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []interface{}) log.Fields {
	f := make(log.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}

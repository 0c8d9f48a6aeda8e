// Package app собирает сервис EventHub: хранилище, доменные сервисы, gRPC и HTTP
// серверы и фоновые воркеры.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/eventhub/internal/health"
	"github.com/vladislavdragonenkov/eventhub/internal/messaging/kafka"
	grpcsvc "github.com/vladislavdragonenkov/eventhub/internal/service/grpc"
	"github.com/vladislavdragonenkov/eventhub/internal/service/idempotency"
	"github.com/vladislavdragonenkov/eventhub/internal/service/outbox"
	"github.com/vladislavdragonenkov/eventhub/internal/service/scheduler"
	"github.com/vladislavdragonenkov/eventhub/internal/version"
)

const (
	grpcStopTimeout       = 5 * time.Second
	rateLimitCleanupEvery = time.Minute
	rateLimitIdleAfter    = 10 * time.Minute
)

// Run запускает сервис и блокируется до отмены ctx или фатальной ошибки
// одного из компонентов. При отмене возвращает ctx.Err().
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	clk := clock.NewSystem()
	comps, err := buildComponents(cfg, deps, clk, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}

	producer, err := initKafkaProducer(cfg.KafkaBrokerList(), logger)
	if err != nil {
		logger.WithError(err).Warn("kafka is unavailable, domain events are delivered in-process")
	}
	defer closeKafka(producer, logger)

	outboxWorker := newOutboxWorker(cfg, deps.outbox, producer, comps, clk, logger)

	var consumer *kafka.Consumer
	if producer != nil {
		consumer, err = initNotificationConsumer(cfg.KafkaBrokerList(), cfg.KafkaGroupID,
			kafka.OutboxHandler(comps.fanout), producer, logger)
		if err != nil {
			return fmt.Errorf("init notification consumer: %w", err)
		}
	}

	cleanupWorker := idempotency.NewCleanupWorker(deps.idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithMetrics(comps.workerMetrics),
		idempotency.WithClock(clk),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)

	jobs, err := scheduler.New(scheduler.Config{
		PendingOrderTTL: cfg.PendingOrderTTL,
		ExpireSpec:      cfg.SchedulerExpireSpec,
		CompleteSpec:    cfg.SchedulerCompleteSpec,
	}, scheduler.Dependencies{
		Orders:  deps.orders,
		Saga:    comps.saga,
		Events:  comps.events,
		Metrics: comps.workerMetrics,
		Clock:   clk,
		Logger:  logger.WithField("component", "scheduler"),
	})
	if err != nil {
		return err
	}

	limiter := grpcsvc.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger.WithField("component", "rate-limit"))
	idem := grpcsvc.NewIdempotency(deps.idempotency, cfg.IdempotencyTTL, clk, logger.WithField("component", "idempotency"))
	server, err := grpcsvc.NewServer(grpcsvc.ServerConfig{
		Authenticator: comps.authn,
		RateLimiter:   limiter,
		Registerer:    prometheus.DefaultRegisterer,
		Logger:        logger.WithField("layer", "grpc"),
	}, comps.grpcServices(idem))
	if err != nil {
		return err
	}

	healthHandler := healthcheck.NewHandler(version.Short(), healthcheck.WithClock(clk))
	for name, checker := range deps.checkers {
		healthHandler.RegisterChecker(name, checker)
	}
	stream := newChatStream(comps.authn, comps.chat, comps.hub, logger.WithField("component", "chat-stream"))

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	httpLis, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("listen http %s: %w", cfg.MetricsAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", grpcLis.Addr().String()).Info("grpc server listening")
		if err := server.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		stopGRPC(server, logger)
		return nil
	})
	g.Go(func() error {
		return serveHTTP(gctx, httpLis, newHTTPRouter(healthHandler, stream), logger)
	})
	g.Go(func() error {
		outboxWorker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		cleanupWorker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		jobs.Run(gctx)
		return nil
	})
	g.Go(func() error {
		limiter.RunCleanup(gctx, rateLimitCleanupEvery, rateLimitIdleAfter)
		return nil
	})
	if consumer != nil {
		g.Go(func() error {
			if err := consumer.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			return consumer.Stop()
		})
	}

	logger.WithFields(log.Fields{
		"storage": cfg.StorageDriver,
		"kafka":   producer != nil,
		"redis":   cfg.RedisAddr != "",
		"version": version.String(),
	}).Info("eventhub started")

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// newOutboxWorker выбирает доставку событий: в Kafka, если producer есть,
// иначе сразу в fan-out уведомлений внутри процесса.
func newOutboxWorker(cfg Config, repo domain.OutboxRepository, producer *kafka.Producer, comps *components, clk clock.Clock, logger *log.Entry) *outbox.Worker {
	opts := []outbox.Option{
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithMetrics(comps.workerMetrics),
		outbox.WithClock(clk),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if producer == nil {
		return outbox.NewWorker(repo, comps.fanout, opts...)
	}
	opts = append(opts, outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)))
	return outbox.NewWorker(repo, kafka.NewOutboxPublisher(producer, kafka.TopicDomainEvents), opts...)
}

// stopGRPC останавливает сервер, дожидаясь активных вызовов не дольше grpcStopTimeout.
func stopGRPC(server *grpcsvc.Server, logger *log.Entry) {
	logger.Info("stopping grpc server")
	server.Health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	stopped := make(chan struct{})
	go func() {
		server.GRPC.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(grpcStopTimeout):
		logger.Warn("graceful stop timed out, forcing grpc server stop")
		server.GRPC.Stop()
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/eventhub/internal/health"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/memory"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/postgres"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/redisstore"
)

// eventStore объединяет мероприятия, регистрации и места: оба драйвера
// хранят их в одном хранилище.
type eventStore interface {
	domain.EventRepository
	domain.RegistrationRepository
	CountByOrganizer(organizerID string) (int32, error)
}

// runtimeDependencies собирает репозитории выбранного драйвера и проверки их доступности.
type runtimeDependencies struct {
	events        eventStore
	orders        domain.OrderRepository
	timeline      domain.TimelineRepository
	outbox        domain.OutboxRepository
	idempotency   domain.IdempotencyRepository
	coupons       domain.CouponRepository
	payments      domain.PaymentRepository
	businesses    domain.BusinessRepository
	partners      domain.PartnerRepository
	chats         domain.ChatRepository
	follows       domain.FollowRepository
	reviews       domain.ReviewRepository
	subscriptions domain.SubscriptionRepository
	notifications domain.NotificationRepository
	otps          domain.OTPStore

	checkers map[string]healthcheck.Checker
	closers  []func() error
}

// close освобождает подключения в обратном порядке.
func (d *runtimeDependencies) close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	var (
		deps *runtimeDependencies
		err  error
	)
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		deps = memoryDependencies()
		logger.Info("storage driver: memory")
	case StorageDriverPostgres:
		deps, err = postgresDependencies(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if strings.TrimSpace(cfg.RedisAddr) != "" {
		if err := attachRedis(ctx, cfg, deps, logger); err != nil {
			_ = deps.close()
			return nil, err
		}
	}
	return deps, nil
}

func memoryDependencies() *runtimeDependencies {
	return &runtimeDependencies{
		events:        memory.NewEventStore(),
		orders:        memory.NewOrderRepository(),
		timeline:      memory.NewTimelineRepository(),
		outbox:        memory.NewOutboxRepository(),
		idempotency:   memory.NewIdempotencyRepository(),
		coupons:       memory.NewCouponRepository(),
		payments:      memory.NewPaymentRepository(),
		businesses:    memory.NewBusinessRepository(),
		partners:      memory.NewPartnerRepository(),
		chats:         memory.NewChatRepository(),
		follows:       memory.NewFollowRepository(),
		reviews:       memory.NewReviewRepository(),
		subscriptions: memory.NewSubscriptionRepository(),
		notifications: memory.NewNotificationRepository(),
		otps:          memory.NewOTPStore(),
		checkers:      map[string]healthcheck.Checker{},
	}
}

func postgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("postgres storage requires EVENTHUB_POSTGRES_DSN")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("postgres migrations applied")
	}

	deps := &runtimeDependencies{
		events:        postgres.NewEventStore(store),
		orders:        postgres.NewOrderRepository(store),
		timeline:      postgres.NewTimelineRepository(store),
		outbox:        postgres.NewOutboxRepository(store),
		idempotency:   postgres.NewIdempotencyRepository(store),
		coupons:       postgres.NewCouponRepository(store),
		payments:      postgres.NewPaymentRepository(store),
		businesses:    postgres.NewBusinessRepository(store),
		partners:      postgres.NewPartnerRepository(store),
		chats:         postgres.NewChatRepository(store),
		follows:       postgres.NewFollowRepository(store),
		reviews:       postgres.NewReviewRepository(store),
		subscriptions: postgres.NewSubscriptionRepository(store),
		notifications: postgres.NewNotificationRepository(store),
		// Без Redis коды вручения живут в памяти процесса.
		otps: memory.NewOTPStore(),
		checkers: map[string]healthcheck.Checker{
			"postgres": healthcheck.NewPingChecker("postgres", store.Ping),
		},
		closers: []func() error{store.Close},
	}
	logger.Info("storage driver: postgres")
	return deps, nil
}

// attachRedis переносит социальный граф и коды вручения в Redis.
func attachRedis(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	client, err := redisstore.Open(ctx, redisstore.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	deps.follows = redisstore.NewFollowRepository(client)
	deps.otps = redisstore.NewOTPStore(client)
	deps.checkers["redis"] = healthcheck.NewPingChecker("redis", client.Ping, healthcheck.Optional())
	deps.closers = append(deps.closers, client.Close)
	logger.WithField("addr", cfg.RedisAddr).Info("redis attached for follows and delivery codes")
	return nil
}

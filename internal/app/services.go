package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/auth"
	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
	"github.com/vladislavdragonenkov/eventhub/internal/service/chat"
	"github.com/vladislavdragonenkov/eventhub/internal/service/delivery"
	"github.com/vladislavdragonenkov/eventhub/internal/service/events"
	grpcsvc "github.com/vladislavdragonenkov/eventhub/internal/service/grpc"
	"github.com/vladislavdragonenkov/eventhub/internal/service/notifications"
	"github.com/vladislavdragonenkov/eventhub/internal/service/orders"
	"github.com/vladislavdragonenkov/eventhub/internal/service/orderstatus"
	"github.com/vladislavdragonenkov/eventhub/internal/service/payment"
	"github.com/vladislavdragonenkov/eventhub/internal/service/saga"
	"github.com/vladislavdragonenkov/eventhub/internal/service/seats"
	"github.com/vladislavdragonenkov/eventhub/internal/service/social"
	"github.com/vladislavdragonenkov/eventhub/internal/service/subscriptions"
)

// components держит доменные сервисы, собранные поверх выбранного хранилища.
type components struct {
	authn         *auth.Authenticator
	hub           *chat.Hub
	fanout        *notifications.Fanout
	saga          saga.Orchestrator
	events        *events.Service
	orders        *orders.Service
	delivery      *delivery.Service
	chat          *chat.Service
	social        *social.Service
	subscriptions *subscriptions.Service
	notifications *notifications.Service

	domainMetrics *metrics.DomainMetrics
	sagaMetrics   *metrics.SagaMetrics
	workerMetrics *metrics.WorkerMetrics
}

func buildComponents(cfg Config, deps *runtimeDependencies, clk clock.Clock, registerer prometheus.Registerer, logger *log.Entry) (*components, error) {
	authn, err := auth.NewAuthenticator(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	c := &components{
		authn:         authn,
		hub:           chat.NewHub(chat.DefaultSubscriberBuffer, logger.WithField("component", "chat-hub")),
		domainMetrics: metrics.NewDomainMetricsWithRegisterer(registerer),
		sagaMetrics:   metrics.NewSagaMetricsWithRegisterer(registerer),
		workerMetrics: metrics.NewWorkerMetricsWithRegisterer(registerer),
	}

	payments := payment.NewGateway(deps.payments, clk, logger.WithField("component", "payments"))

	c.subscriptions = subscriptions.NewService(subscriptions.Dependencies{
		Repo:      deps.subscriptions,
		Events:    deps.events,
		Payments:  payments,
		Outbox:    deps.outbox,
		FreeQuota: int32(cfg.FreeEventQuota),
		Clock:     clk,
		Logger:    logger.WithField("component", "subscriptions"),
	})
	if cfg.PackagesFile != "" {
		catalog, err := subscriptions.LoadCatalogFile(cfg.PackagesFile)
		if err != nil {
			return nil, fmt.Errorf("load package catalog: %w", err)
		}
		if _, err := c.subscriptions.SeedCatalog(catalog); err != nil {
			return nil, err
		}
	}

	c.events = events.NewService(events.Dependencies{
		Events:        deps.events,
		Registrations: deps.events,
		Quota:         c.subscriptions,
		Outbox:        deps.outbox,
		Metrics:       c.domainMetrics,
		Clock:         clk,
		Logger:        logger.WithField("component", "events"),
	})

	updater := orderstatus.NewUpdater(deps.orders, deps.outbox, deps.timeline,
		orderstatus.WithClock(clk),
		orderstatus.WithLogger(logger.WithField("component", "order-status")),
		orderstatus.WithMetrics(c.sagaMetrics, c.domainMetrics),
	)

	c.delivery = delivery.NewService(delivery.Config{
		OTPTTL:         cfg.OTPTTL,
		OTPMaxAttempts: int32(cfg.OTPMaxAttempts),
		MaxRadiusKm:    cfg.DeliveryMaxRadiusKm,
	}, delivery.Dependencies{
		Partners: deps.partners,
		Orders:   deps.orders,
		OTPs:     deps.otps,
		Payments: payments,
		Status:   updater,
		Metrics:  c.domainMetrics,
		Clock:    clk,
		Logger:   logger.WithField("component", "delivery"),
	})

	c.saga = createOrchestrator(sagaDependencies{
		Orders:   deps.orders,
		Coupons:  deps.coupons,
		Seats:    seats.NewReserver(deps.events, clk, logger.WithField("component", "seats")),
		Payments: payments,
		Status:   updater,
		Metrics:  c.sagaMetrics,
		Logger:   logger.WithField("component", "saga"),
	})

	c.orders = orders.NewService(orders.Dependencies{
		Orders:     deps.orders,
		Timeline:   deps.timeline,
		Coupons:    deps.coupons,
		Businesses: deps.businesses,
		Events:     deps.events,
		Saga:       c.saga,
		Status:     updater,
		Delivery:   c.delivery,
		Clock:      clk,
		Logger:     logger.WithField("component", "orders"),
	})

	c.social = social.NewService(social.Dependencies{
		Follows:    deps.follows,
		Reviews:    deps.reviews,
		Businesses: deps.businesses,
		Orders:     deps.orders,
		Outbox:     deps.outbox,
		Clock:      clk,
		Logger:     logger.WithField("component", "social"),
	})

	c.chat = chat.NewService(chat.Dependencies{
		Chats:         deps.chats,
		Events:        deps.events,
		Registrations: deps.events,
		Outbox:        deps.outbox,
		Live:          c.hub,
		Metrics:       c.domainMetrics,
		Clock:         clk,
		Logger:        logger.WithField("component", "chat"),
	})

	c.fanout = notifications.NewFanout(notifications.FanoutDependencies{
		Notifications: deps.notifications,
		Follows:       deps.follows,
		Registrations: deps.events,
		Businesses:    deps.businesses,
		Live:          c.hub,
		Metrics:       c.domainMetrics,
		Clock:         clk,
		Logger:        logger.WithField("component", "notify-fanout"),
	})
	c.notifications = notifications.NewService(deps.notifications, clk, logger.WithField("component", "notifications"))

	return c, nil
}

// grpcServices оборачивает доменные сервисы в gRPC-адаптеры с общим хранилищем idempotency-ключей.
func (c *components) grpcServices(idem *grpcsvc.Idempotency) grpcsvc.Services {
	return grpcsvc.Services{
		Events:        grpcsvc.NewEventServer(c.events, idem),
		Orders:        grpcsvc.NewOrderServer(c.orders, idem),
		Delivery:      grpcsvc.NewDeliveryServer(c.delivery, idem),
		Chat:          grpcsvc.NewChatServer(c.chat, idem),
		Social:        grpcsvc.NewSocialServer(c.social, idem),
		Subscriptions: grpcsvc.NewSubscriptionServer(c.subscriptions, idem),
		Notifications: grpcsvc.NewNotificationServer(c.notifications),
	}
}

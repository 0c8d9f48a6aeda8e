// Package grpcsvc публикует доменные сервисы eventhub по gRPC.
package grpcsvc

import (
	"context"
	"errors"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	eventhubv1 "github.com/vladislavdragonenkov/eventhub/api/eventhub/v1"
	"github.com/vladislavdragonenkov/eventhub/internal/auth"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// Services перечисляет адаптеры для регистрации на сервере. Nil-адаптер пропускается.
type Services struct {
	Events        *EventServer
	Orders        *OrderServer
	Delivery      *DeliveryServer
	Chat          *ChatServer
	Social        *SocialServer
	Subscriptions *SubscriptionServer
	Notifications *NotificationServer
}

// ServerConfig задаёт параметры gRPC-сервера.
type ServerConfig struct {
	Authenticator *auth.Authenticator
	// RateLimiter == nil отключает ограничение частоты.
	RateLimiter *RateLimiter
	// Registerer по умолчанию prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	Logger     *log.Entry
}

// Server объединяет grpc.Server и его health-сервис.
type Server struct {
	GRPC   *grpc.Server
	Health *health.Server
}

// NewServer собирает gRPC-сервер с цепочкой metrics → auth → rate limit.
func NewServer(cfg ServerConfig, services Services) (*Server, error) {
	if cfg.Authenticator == nil {
		return nil, errors.New("grpc server requires an authenticator")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "grpc")
	}
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := reg.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	interceptors := []grpc.UnaryServerInterceptor{
		grpcMetrics.UnaryServerInterceptor(),
		UnaryAuthInterceptor(cfg.Authenticator, logger),
	}
	if cfg.RateLimiter != nil {
		interceptors = append(interceptors, cfg.RateLimiter.UnaryInterceptor())
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))

	if services.Events != nil {
		eventhubv1.RegisterEventServiceServer(srv, services.Events)
	}
	if services.Orders != nil {
		eventhubv1.RegisterOrderServiceServer(srv, services.Orders)
	}
	if services.Delivery != nil {
		eventhubv1.RegisterDeliveryServiceServer(srv, services.Delivery)
	}
	if services.Chat != nil {
		eventhubv1.RegisterChatServiceServer(srv, services.Chat)
	}
	if services.Social != nil {
		eventhubv1.RegisterSocialServiceServer(srv, services.Social)
	}
	if services.Subscriptions != nil {
		eventhubv1.RegisterSubscriptionServiceServer(srv, services.Subscriptions)
	}
	if services.Notifications != nil {
		eventhubv1.RegisterNotificationServiceServer(srv, services.Notifications)
	}

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)

	// Reflection для grpcurl.
	reflection.Register(srv)
	grpcMetrics.InitializeMetrics(srv)

	return &Server{GRPC: srv, Health: healthServer}, nil
}

// actorFrom возвращает актора, положенного в context интерсептором авторизации.
func actorFrom(ctx context.Context) (domain.Actor, error) {
	identity, ok := auth.FromContext(ctx)
	if !ok {
		return domain.Actor{}, status.Error(codes.Unauthenticated, "caller identity is missing")
	}
	return identity.Actor(), nil
}

package grpcsvc

import (
	"context"

	eventhubv1 "github.com/vladislavdragonenkov/eventhub/api/eventhub/v1"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/service/subscriptions"
)

// SubscriptionServer реализует eventhub.v1.SubscriptionService.
type SubscriptionServer struct {
	subs *subscriptions.Service
	idem *Idempotency
}

// NewSubscriptionServer создаёт gRPC-адаптер сервиса подписок.
func NewSubscriptionServer(svc *subscriptions.Service, idem *Idempotency) *SubscriptionServer {
	return &SubscriptionServer{subs: svc, idem: idem}
}

func (s *SubscriptionServer) ListPackages(ctx context.Context, req *eventhubv1.ListPackagesRequest) (*eventhubv1.ListPackagesResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	// Неактивные пакеты видит только администратор.
	activeOnly := !(req.IncludeInactive && actor.IsAdmin())
	pkgs, err := s.subs.ListPackages(activeOnly)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]eventhubv1.Package, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, toAPIPackage(p))
	}
	return &eventhubv1.ListPackagesResponse{Packages: out}, nil
}

func (s *SubscriptionServer) CreatePackage(ctx context.Context, req *eventhubv1.CreatePackageRequest) (*eventhubv1.PackageResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	pkg, err := s.subs.CreatePackage(actor, fromAPIPackage(req.Package))
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.PackageResponse{Package: toAPIPackage(pkg)}, nil
}

func (s *SubscriptionServer) PurchasePackage(ctx context.Context, req *eventhubv1.PurchasePackageRequest) (*eventhubv1.SubscriptionResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	method := domain.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = domain.PaymentMethodCard
	}
	return withIdempotency(ctx, s.idem, eventhubv1.SubscriptionService_PurchasePackage_FullMethodName, keyRequired, req, func() (*eventhubv1.SubscriptionResponse, error) {
		sub, err := s.subs.Purchase(actor, req.PackageID, method)
		if err != nil {
			return nil, toStatus(err)
		}
		return &eventhubv1.SubscriptionResponse{Subscription: toAPISubscription(sub)}, nil
	})
}

func (s *SubscriptionServer) ListSubscriptions(ctx context.Context, _ *eventhubv1.ListSubscriptionsRequest) (*eventhubv1.ListSubscriptionsResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.subs.Subscriptions(actor)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]eventhubv1.Subscription, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toAPISubscription(sub))
	}
	return &eventhubv1.ListSubscriptionsResponse{Subscriptions: out}, nil
}

func (s *SubscriptionServer) GetQuota(ctx context.Context, _ *eventhubv1.GetQuotaRequest) (*eventhubv1.QuotaResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	quota, err := s.subs.Quota(actor)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.QuotaResponse{Quota: toAPIQuota(quota)}, nil
}

var _ eventhubv1.SubscriptionServiceServer = (*SubscriptionServer)(nil)

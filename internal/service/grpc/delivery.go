package grpcsvc

import (
	"context"

	eventhubv1 "github.com/vladislavdragonenkov/eventhub/api/eventhub/v1"
	"github.com/vladislavdragonenkov/eventhub/internal/service/delivery"
)

// DeliveryServer реализует eventhub.v1.DeliveryService.
type DeliveryServer struct {
	delivery *delivery.Service
	idem     *Idempotency
}

// NewDeliveryServer создаёт gRPC-адаптер сервиса доставки.
func NewDeliveryServer(svc *delivery.Service, idem *Idempotency) *DeliveryServer {
	return &DeliveryServer{delivery: svc, idem: idem}
}

func (s *DeliveryServer) UpdatePartnerLocation(ctx context.Context, req *eventhubv1.UpdatePartnerLocationRequest) (*eventhubv1.PartnerResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	partner, err := s.delivery.UpdateLocation(actor, fromAPIPoint(req.Location))
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.PartnerResponse{Partner: toAPIPartner(partner)}, nil
}

func (s *DeliveryServer) SetPartnerAvailability(ctx context.Context, req *eventhubv1.SetPartnerAvailabilityRequest) (*eventhubv1.PartnerResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	partner, err := s.delivery.SetAvailability(actor, req.Available, req.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.PartnerResponse{Partner: toAPIPartner(partner)}, nil
}

func (s *DeliveryServer) GetPartner(ctx context.Context, req *eventhubv1.GetPartnerRequest) (*eventhubv1.PartnerResponse, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	partner, err := s.delivery.Partner(req.PartnerID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.PartnerResponse{Partner: toAPIPartner(partner)}, nil
}

func (s *DeliveryServer) AssignDeliveryPartner(ctx context.Context, req *eventhubv1.OrderIDRequest) (*eventhubv1.AssignDeliveryPartnerResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, eventhubv1.DeliveryService_AssignDeliveryPartner_FullMethodName, keyOptional, req, func() (*eventhubv1.AssignDeliveryPartnerResponse, error) {
		order, partner, err := s.delivery.Assign(actor, req.OrderID)
		if err != nil {
			return nil, toStatus(err)
		}
		return &eventhubv1.AssignDeliveryPartnerResponse{
			Order:   toAPIOrder(order),
			Partner: toAPIPartner(partner),
		}, nil
	})
}

// VerifyDeliveryOTP не кэширует ответы: каждая попытка ввода кода должна расходовать попытку.
func (s *DeliveryServer) VerifyDeliveryOTP(ctx context.Context, req *eventhubv1.VerifyDeliveryOTPRequest) (*eventhubv1.OrderResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return orderResponse(s.delivery.VerifyOTP(actor, req.OrderID, req.Code))
}

var _ eventhubv1.DeliveryServiceServer = (*DeliveryServer)(nil)

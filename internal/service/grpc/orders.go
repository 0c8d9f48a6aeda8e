package grpcsvc

import (
	"context"

	eventhubv1 "github.com/vladislavdragonenkov/eventhub/api/eventhub/v1"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/service/orders"
)

// OrderServer реализует eventhub.v1.OrderService.
// CreateOrder, PayOrder и RefundOrder двигают деньги и требуют idempotency-key.
type OrderServer struct {
	orders *orders.Service
	idem   *Idempotency
}

// NewOrderServer создаёт gRPC-адаптер сервиса заказов.
func NewOrderServer(svc *orders.Service, idem *Idempotency) *OrderServer {
	return &OrderServer{orders: svc, idem: idem}
}

func (s *OrderServer) QuoteOrder(ctx context.Context, req *eventhubv1.CreateOrderRequest) (*eventhubv1.QuoteOrderResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := s.orders.Quote(actor, fromAPICreateOrder(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.QuoteOrderResponse{Quote: toAPIQuote(quote)}, nil
}

func (s *OrderServer) CreateOrder(ctx context.Context, req *eventhubv1.CreateOrderRequest) (*eventhubv1.OrderResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, eventhubv1.OrderService_CreateOrder_FullMethodName, keyRequired, req, func() (*eventhubv1.OrderResponse, error) {
		return orderResponse(s.orders.Create(actor, fromAPICreateOrder(req)))
	})
}

func (s *OrderServer) PayOrder(ctx context.Context, req *eventhubv1.OrderIDRequest) (*eventhubv1.OrderResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, eventhubv1.OrderService_PayOrder_FullMethodName, keyRequired, req, func() (*eventhubv1.OrderResponse, error) {
		return orderResponse(s.orders.Pay(actor, req.OrderID))
	})
}

func (s *OrderServer) CancelOrder(ctx context.Context, req *eventhubv1.OrderReasonRequest) (*eventhubv1.OrderResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, eventhubv1.OrderService_CancelOrder_FullMethodName, keyOptional, req, func() (*eventhubv1.OrderResponse, error) {
		return orderResponse(s.orders.Cancel(actor, req.OrderID, req.Reason))
	})
}

func (s *OrderServer) RefundOrder(ctx context.Context, req *eventhubv1.OrderReasonRequest) (*eventhubv1.OrderResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, eventhubv1.OrderService_RefundOrder_FullMethodName, keyRequired, req, func() (*eventhubv1.OrderResponse, error) {
		return orderResponse(s.orders.Refund(actor, req.OrderID, req.Reason))
	})
}

func (s *OrderServer) UpdateOrderStatus(ctx context.Context, req *eventhubv1.UpdateOrderStatusRequest) (*eventhubv1.OrderResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, eventhubv1.OrderService_UpdateOrderStatus_FullMethodName, keyOptional, req, func() (*eventhubv1.OrderResponse, error) {
		return orderResponse(s.orders.UpdateStatus(actor, req.OrderID, domain.OrderStatus(req.Status), req.Reason))
	})
}

func (s *OrderServer) GetOrder(ctx context.Context, req *eventhubv1.OrderIDRequest) (*eventhubv1.GetOrderResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	view, err := s.orders.Get(actor, req.OrderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.GetOrderResponse{
		Order:    toAPIOrder(view.Order),
		Timeline: toAPITimeline(view.Timeline),
	}, nil
}

func (s *OrderServer) ListOrders(ctx context.Context, req *eventhubv1.ListOrdersRequest) (*eventhubv1.ListOrdersResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.orders.List(actor, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.ListOrdersResponse{Orders: toAPIOrders(list)}, nil
}

func (s *OrderServer) CreateCoupon(ctx context.Context, req *eventhubv1.CreateCouponRequest) (*eventhubv1.CouponResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	coupon, err := s.orders.CreateCoupon(actor, fromAPICoupon(req.Coupon))
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.CouponResponse{Coupon: toAPICoupon(coupon)}, nil
}

func orderResponse(order domain.Order, err error) (*eventhubv1.OrderResponse, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.OrderResponse{Order: toAPIOrder(order)}, nil
}

var _ eventhubv1.OrderServiceServer = (*OrderServer)(nil)

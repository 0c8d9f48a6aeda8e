package eventhubv1

import (
	"context"

	"google.golang.org/grpc"
)

type CreateOrderRequest struct {
	BusinessID       string      `json:"business_id"`
	Kind             string      `json:"kind"`
	Currency         string      `json:"currency"`
	Items            []OrderItem `json:"items"`
	CouponCode       string      `json:"coupon_code,omitempty"`
	PaymentMethod    string      `json:"payment_method"`
	DeliveryAddress  string      `json:"delivery_address,omitempty"`
	DeliveryLocation *GeoPoint   `json:"delivery_location,omitempty"`
}

type QuoteOrderResponse struct {
	Quote Quote `json:"quote"`
}

type OrderIDRequest struct {
	OrderID string `json:"order_id"`
}

type OrderReasonRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

type UpdateOrderStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

type OrderResponse struct {
	Order Order `json:"order"`
}

type GetOrderResponse struct {
	Order    Order           `json:"order"`
	Timeline []TimelineEntry `json:"timeline"`
}

type ListOrdersRequest struct {
	Limit int32 `json:"limit,omitempty"`
}

type ListOrdersResponse struct {
	Orders []Order `json:"orders"`
}

type CreateCouponRequest struct {
	Coupon Coupon `json:"coupon"`
}

type CouponResponse struct {
	Coupon Coupon `json:"coupon"`
}

// OrderServiceName задаёт полное имя сервиса заказов.
const OrderServiceName = "eventhub.v1.OrderService"

const (
	OrderService_QuoteOrder_FullMethodName        = "/eventhub.v1.OrderService/QuoteOrder"
	OrderService_CreateOrder_FullMethodName       = "/eventhub.v1.OrderService/CreateOrder"
	OrderService_PayOrder_FullMethodName          = "/eventhub.v1.OrderService/PayOrder"
	OrderService_CancelOrder_FullMethodName       = "/eventhub.v1.OrderService/CancelOrder"
	OrderService_RefundOrder_FullMethodName       = "/eventhub.v1.OrderService/RefundOrder"
	OrderService_UpdateOrderStatus_FullMethodName = "/eventhub.v1.OrderService/UpdateOrderStatus"
	OrderService_GetOrder_FullMethodName          = "/eventhub.v1.OrderService/GetOrder"
	OrderService_ListOrders_FullMethodName        = "/eventhub.v1.OrderService/ListOrders"
	OrderService_CreateCoupon_FullMethodName      = "/eventhub.v1.OrderService/CreateCoupon"
)

// OrderServiceServer описывает серверную часть сервиса заказов.
type OrderServiceServer interface {
	QuoteOrder(context.Context, *CreateOrderRequest) (*QuoteOrderResponse, error)
	CreateOrder(context.Context, *CreateOrderRequest) (*OrderResponse, error)
	PayOrder(context.Context, *OrderIDRequest) (*OrderResponse, error)
	CancelOrder(context.Context, *OrderReasonRequest) (*OrderResponse, error)
	RefundOrder(context.Context, *OrderReasonRequest) (*OrderResponse, error)
	UpdateOrderStatus(context.Context, *UpdateOrderStatusRequest) (*OrderResponse, error)
	GetOrder(context.Context, *OrderIDRequest) (*GetOrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	CreateCoupon(context.Context, *CreateCouponRequest) (*CouponResponse, error)
}

var OrderService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(OrderServiceName, "QuoteOrder", OrderServiceServer.QuoteOrder),
		unary(OrderServiceName, "CreateOrder", OrderServiceServer.CreateOrder),
		unary(OrderServiceName, "PayOrder", OrderServiceServer.PayOrder),
		unary(OrderServiceName, "CancelOrder", OrderServiceServer.CancelOrder),
		unary(OrderServiceName, "RefundOrder", OrderServiceServer.RefundOrder),
		unary(OrderServiceName, "UpdateOrderStatus", OrderServiceServer.UpdateOrderStatus),
		unary(OrderServiceName, "GetOrder", OrderServiceServer.GetOrder),
		unary(OrderServiceName, "ListOrders", OrderServiceServer.ListOrders),
		unary(OrderServiceName, "CreateCoupon", OrderServiceServer.CreateCoupon),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventhub/v1/orders",
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderService_ServiceDesc, srv)
}

type OrderServiceClient interface {
	QuoteOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*QuoteOrderResponse, error)
	CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error)
	PayOrder(ctx context.Context, in *OrderIDRequest, opts ...grpc.CallOption) (*OrderResponse, error)
	CancelOrder(ctx context.Context, in *OrderReasonRequest, opts ...grpc.CallOption) (*OrderResponse, error)
	RefundOrder(ctx context.Context, in *OrderReasonRequest, opts ...grpc.CallOption) (*OrderResponse, error)
	UpdateOrderStatus(ctx context.Context, in *UpdateOrderStatusRequest, opts ...grpc.CallOption) (*OrderResponse, error)
	GetOrder(ctx context.Context, in *OrderIDRequest, opts ...grpc.CallOption) (*GetOrderResponse, error)
	ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error)
	CreateCoupon(ctx context.Context, in *CreateCouponRequest, opts ...grpc.CallOption) (*CouponResponse, error)
}

type orderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) OrderServiceClient {
	return &orderServiceClient{cc: cc}
}

func (c *orderServiceClient) QuoteOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*QuoteOrderResponse, error) {
	return invoke[QuoteOrderResponse](ctx, c.cc, OrderService_QuoteOrder_FullMethodName, in, opts)
}

func (c *orderServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, OrderService_CreateOrder_FullMethodName, in, opts)
}

func (c *orderServiceClient) PayOrder(ctx context.Context, in *OrderIDRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, OrderService_PayOrder_FullMethodName, in, opts)
}

func (c *orderServiceClient) CancelOrder(ctx context.Context, in *OrderReasonRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, OrderService_CancelOrder_FullMethodName, in, opts)
}

func (c *orderServiceClient) RefundOrder(ctx context.Context, in *OrderReasonRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, OrderService_RefundOrder_FullMethodName, in, opts)
}

func (c *orderServiceClient) UpdateOrderStatus(ctx context.Context, in *UpdateOrderStatusRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, OrderService_UpdateOrderStatus_FullMethodName, in, opts)
}

func (c *orderServiceClient) GetOrder(ctx context.Context, in *OrderIDRequest, opts ...grpc.CallOption) (*GetOrderResponse, error) {
	return invoke[GetOrderResponse](ctx, c.cc, OrderService_GetOrder_FullMethodName, in, opts)
}

func (c *orderServiceClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c.cc, OrderService_ListOrders_FullMethodName, in, opts)
}

func (c *orderServiceClient) CreateCoupon(ctx context.Context, in *CreateCouponRequest, opts ...grpc.CallOption) (*CouponResponse, error) {
	return invoke[CouponResponse](ctx, c.cc, OrderService_CreateCoupon_FullMethodName, in, opts)
}

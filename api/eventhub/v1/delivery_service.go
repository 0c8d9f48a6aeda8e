package eventhubv1

import (
	"context"

	"google.golang.org/grpc"
)

type UpdatePartnerLocationRequest struct {
	Location GeoPoint `json:"location"`
}

type SetPartnerAvailabilityRequest struct {
	Available bool   `json:"available"`
	Name      string `json:"name,omitempty"`
}

type GetPartnerRequest struct {
	PartnerID string `json:"partner_id"`
}

type PartnerResponse struct {
	Partner Partner `json:"partner"`
}

type AssignDeliveryPartnerResponse struct {
	Order   Order   `json:"order"`
	Partner Partner `json:"partner"`
}

type VerifyDeliveryOTPRequest struct {
	OrderID string `json:"order_id"`
	Code    string `json:"code"`
}

// DeliveryServiceName задаёт полное имя сервиса доставки.
const DeliveryServiceName = "eventhub.v1.DeliveryService"

const (
	DeliveryService_UpdatePartnerLocation_FullMethodName  = "/eventhub.v1.DeliveryService/UpdatePartnerLocation"
	DeliveryService_SetPartnerAvailability_FullMethodName = "/eventhub.v1.DeliveryService/SetPartnerAvailability"
	DeliveryService_GetPartner_FullMethodName             = "/eventhub.v1.DeliveryService/GetPartner"
	DeliveryService_AssignDeliveryPartner_FullMethodName  = "/eventhub.v1.DeliveryService/AssignDeliveryPartner"
	DeliveryService_VerifyDeliveryOTP_FullMethodName      = "/eventhub.v1.DeliveryService/VerifyDeliveryOTP"
)

// DeliveryServiceServer описывает серверную часть сервиса доставки.
type DeliveryServiceServer interface {
	UpdatePartnerLocation(context.Context, *UpdatePartnerLocationRequest) (*PartnerResponse, error)
	SetPartnerAvailability(context.Context, *SetPartnerAvailabilityRequest) (*PartnerResponse, error)
	GetPartner(context.Context, *GetPartnerRequest) (*PartnerResponse, error)
	AssignDeliveryPartner(context.Context, *OrderIDRequest) (*AssignDeliveryPartnerResponse, error)
	VerifyDeliveryOTP(context.Context, *VerifyDeliveryOTPRequest) (*OrderResponse, error)
}

var DeliveryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: DeliveryServiceName,
	HandlerType: (*DeliveryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(DeliveryServiceName, "UpdatePartnerLocation", DeliveryServiceServer.UpdatePartnerLocation),
		unary(DeliveryServiceName, "SetPartnerAvailability", DeliveryServiceServer.SetPartnerAvailability),
		unary(DeliveryServiceName, "GetPartner", DeliveryServiceServer.GetPartner),
		unary(DeliveryServiceName, "AssignDeliveryPartner", DeliveryServiceServer.AssignDeliveryPartner),
		unary(DeliveryServiceName, "VerifyDeliveryOTP", DeliveryServiceServer.VerifyDeliveryOTP),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventhub/v1/delivery",
}

func RegisterDeliveryServiceServer(s grpc.ServiceRegistrar, srv DeliveryServiceServer) {
	s.RegisterService(&DeliveryService_ServiceDesc, srv)
}

type DeliveryServiceClient interface {
	UpdatePartnerLocation(ctx context.Context, in *UpdatePartnerLocationRequest, opts ...grpc.CallOption) (*PartnerResponse, error)
	SetPartnerAvailability(ctx context.Context, in *SetPartnerAvailabilityRequest, opts ...grpc.CallOption) (*PartnerResponse, error)
	GetPartner(ctx context.Context, in *GetPartnerRequest, opts ...grpc.CallOption) (*PartnerResponse, error)
	AssignDeliveryPartner(ctx context.Context, in *OrderIDRequest, opts ...grpc.CallOption) (*AssignDeliveryPartnerResponse, error)
	VerifyDeliveryOTP(ctx context.Context, in *VerifyDeliveryOTPRequest, opts ...grpc.CallOption) (*OrderResponse, error)
}

type deliveryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDeliveryServiceClient(cc grpc.ClientConnInterface) DeliveryServiceClient {
	return &deliveryServiceClient{cc: cc}
}

func (c *deliveryServiceClient) UpdatePartnerLocation(ctx context.Context, in *UpdatePartnerLocationRequest, opts ...grpc.CallOption) (*PartnerResponse, error) {
	return invoke[PartnerResponse](ctx, c.cc, DeliveryService_UpdatePartnerLocation_FullMethodName, in, opts)
}

func (c *deliveryServiceClient) SetPartnerAvailability(ctx context.Context, in *SetPartnerAvailabilityRequest, opts ...grpc.CallOption) (*PartnerResponse, error) {
	return invoke[PartnerResponse](ctx, c.cc, DeliveryService_SetPartnerAvailability_FullMethodName, in, opts)
}

func (c *deliveryServiceClient) GetPartner(ctx context.Context, in *GetPartnerRequest, opts ...grpc.CallOption) (*PartnerResponse, error) {
	return invoke[PartnerResponse](ctx, c.cc, DeliveryService_GetPartner_FullMethodName, in, opts)
}

func (c *deliveryServiceClient) AssignDeliveryPartner(ctx context.Context, in *OrderIDRequest, opts ...grpc.CallOption) (*AssignDeliveryPartnerResponse, error) {
	return invoke[AssignDeliveryPartnerResponse](ctx, c.cc, DeliveryService_AssignDeliveryPartner_FullMethodName, in, opts)
}

func (c *deliveryServiceClient) VerifyDeliveryOTP(ctx context.Context, in *VerifyDeliveryOTPRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, DeliveryService_VerifyDeliveryOTP_FullMethodName, in, opts)
}

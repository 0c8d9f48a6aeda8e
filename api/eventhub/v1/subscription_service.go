package eventhubv1

import (
	"context"

	"google.golang.org/grpc"
)

type ListPackagesRequest struct {
	IncludeInactive bool `json:"include_inactive,omitempty"`
}

type ListPackagesResponse struct {
	Packages []Package `json:"packages"`
}

type CreatePackageRequest struct {
	Package Package `json:"package"`
}

type PackageResponse struct {
	Package Package `json:"package"`
}

type PurchasePackageRequest struct {
	PackageID     string `json:"package_id"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

type SubscriptionResponse struct {
	Subscription Subscription `json:"subscription"`
}

type ListSubscriptionsRequest struct{}

type ListSubscriptionsResponse struct {
	Subscriptions []Subscription `json:"subscriptions"`
}

type GetQuotaRequest struct{}

type QuotaResponse struct {
	Quota Quota `json:"quota"`
}

// SubscriptionServiceName задаёт полное имя сервиса пакетов и подписок.
const SubscriptionServiceName = "eventhub.v1.SubscriptionService"

const (
	SubscriptionService_ListPackages_FullMethodName      = "/eventhub.v1.SubscriptionService/ListPackages"
	SubscriptionService_CreatePackage_FullMethodName     = "/eventhub.v1.SubscriptionService/CreatePackage"
	SubscriptionService_PurchasePackage_FullMethodName   = "/eventhub.v1.SubscriptionService/PurchasePackage"
	SubscriptionService_ListSubscriptions_FullMethodName = "/eventhub.v1.SubscriptionService/ListSubscriptions"
	SubscriptionService_GetQuota_FullMethodName          = "/eventhub.v1.SubscriptionService/GetQuota"
)

// SubscriptionServiceServer описывает серверную часть сервиса пакетов и подписок.
type SubscriptionServiceServer interface {
	ListPackages(context.Context, *ListPackagesRequest) (*ListPackagesResponse, error)
	CreatePackage(context.Context, *CreatePackageRequest) (*PackageResponse, error)
	PurchasePackage(context.Context, *PurchasePackageRequest) (*SubscriptionResponse, error)
	ListSubscriptions(context.Context, *ListSubscriptionsRequest) (*ListSubscriptionsResponse, error)
	GetQuota(context.Context, *GetQuotaRequest) (*QuotaResponse, error)
}

var SubscriptionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: SubscriptionServiceName,
	HandlerType: (*SubscriptionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SubscriptionServiceName, "ListPackages", SubscriptionServiceServer.ListPackages),
		unary(SubscriptionServiceName, "CreatePackage", SubscriptionServiceServer.CreatePackage),
		unary(SubscriptionServiceName, "PurchasePackage", SubscriptionServiceServer.PurchasePackage),
		unary(SubscriptionServiceName, "ListSubscriptions", SubscriptionServiceServer.ListSubscriptions),
		unary(SubscriptionServiceName, "GetQuota", SubscriptionServiceServer.GetQuota),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventhub/v1/subscriptions",
}

func RegisterSubscriptionServiceServer(s grpc.ServiceRegistrar, srv SubscriptionServiceServer) {
	s.RegisterService(&SubscriptionService_ServiceDesc, srv)
}

type SubscriptionServiceClient interface {
	ListPackages(ctx context.Context, in *ListPackagesRequest, opts ...grpc.CallOption) (*ListPackagesResponse, error)
	CreatePackage(ctx context.Context, in *CreatePackageRequest, opts ...grpc.CallOption) (*PackageResponse, error)
	PurchasePackage(ctx context.Context, in *PurchasePackageRequest, opts ...grpc.CallOption) (*SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, in *ListSubscriptionsRequest, opts ...grpc.CallOption) (*ListSubscriptionsResponse, error)
	GetQuota(ctx context.Context, in *GetQuotaRequest, opts ...grpc.CallOption) (*QuotaResponse, error)
}

type subscriptionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSubscriptionServiceClient(cc grpc.ClientConnInterface) SubscriptionServiceClient {
	return &subscriptionServiceClient{cc: cc}
}

func (c *subscriptionServiceClient) ListPackages(ctx context.Context, in *ListPackagesRequest, opts ...grpc.CallOption) (*ListPackagesResponse, error) {
	return invoke[ListPackagesResponse](ctx, c.cc, SubscriptionService_ListPackages_FullMethodName, in, opts)
}

func (c *subscriptionServiceClient) CreatePackage(ctx context.Context, in *CreatePackageRequest, opts ...grpc.CallOption) (*PackageResponse, error) {
	return invoke[PackageResponse](ctx, c.cc, SubscriptionService_CreatePackage_FullMethodName, in, opts)
}

func (c *subscriptionServiceClient) PurchasePackage(ctx context.Context, in *PurchasePackageRequest, opts ...grpc.CallOption) (*SubscriptionResponse, error) {
	return invoke[SubscriptionResponse](ctx, c.cc, SubscriptionService_PurchasePackage_FullMethodName, in, opts)
}

func (c *subscriptionServiceClient) ListSubscriptions(ctx context.Context, in *ListSubscriptionsRequest, opts ...grpc.CallOption) (*ListSubscriptionsResponse, error) {
	return invoke[ListSubscriptionsResponse](ctx, c.cc, SubscriptionService_ListSubscriptions_FullMethodName, in, opts)
}

func (c *subscriptionServiceClient) GetQuota(ctx context.Context, in *GetQuotaRequest, opts ...grpc.CallOption) (*QuotaResponse, error) {
	return invoke[QuotaResponse](ctx, c.cc, SubscriptionService_GetQuota_FullMethodName, in, opts)
}

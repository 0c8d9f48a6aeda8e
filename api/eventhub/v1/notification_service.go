package eventhubv1

import (
	"context"

	"google.golang.org/grpc"
)

type ListNotificationsRequest struct {
	UnreadOnly bool  `json:"unread_only,omitempty"`
	Limit      int32 `json:"limit,omitempty"`
}

type ListNotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int32          `json:"unread_count"`
}

type MarkNotificationsReadRequest struct {
	IDs []string `json:"ids"`
}

type MarkNotificationsReadResponse struct {
	Updated int32 `json:"updated"`
}

// NotificationServiceName задаёт полное имя сервиса уведомлений.
const NotificationServiceName = "eventhub.v1.NotificationService"

const (
	NotificationService_ListNotifications_FullMethodName     = "/eventhub.v1.NotificationService/ListNotifications"
	NotificationService_MarkNotificationsRead_FullMethodName = "/eventhub.v1.NotificationService/MarkNotificationsRead"
)

// NotificationServiceServer описывает серверную часть сервиса уведомлений.
type NotificationServiceServer interface {
	ListNotifications(context.Context, *ListNotificationsRequest) (*ListNotificationsResponse, error)
	MarkNotificationsRead(context.Context, *MarkNotificationsReadRequest) (*MarkNotificationsReadResponse, error)
}

var NotificationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: NotificationServiceName,
	HandlerType: (*NotificationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(NotificationServiceName, "ListNotifications", NotificationServiceServer.ListNotifications),
		unary(NotificationServiceName, "MarkNotificationsRead", NotificationServiceServer.MarkNotificationsRead),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventhub/v1/notifications",
}

func RegisterNotificationServiceServer(s grpc.ServiceRegistrar, srv NotificationServiceServer) {
	s.RegisterService(&NotificationService_ServiceDesc, srv)
}

type NotificationServiceClient interface {
	ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error)
	MarkNotificationsRead(ctx context.Context, in *MarkNotificationsReadRequest, opts ...grpc.CallOption) (*MarkNotificationsReadResponse, error)
}

type notificationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewNotificationServiceClient(cc grpc.ClientConnInterface) NotificationServiceClient {
	return &notificationServiceClient{cc: cc}
}

func (c *notificationServiceClient) ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error) {
	return invoke[ListNotificationsResponse](ctx, c.cc, NotificationService_ListNotifications_FullMethodName, in, opts)
}

func (c *notificationServiceClient) MarkNotificationsRead(ctx context.Context, in *MarkNotificationsReadRequest, opts ...grpc.CallOption) (*MarkNotificationsReadResponse, error) {
	return invoke[MarkNotificationsReadResponse](ctx, c.cc, NotificationService_MarkNotificationsRead_FullMethodName, in, opts)
}

package grpcsvc

import (
	"context"

	eventhubv1 "github.com/vladislavdragonenkov/eventhub/api/eventhub/v1"
	"github.com/vladislavdragonenkov/eventhub/internal/service/notifications"
)

// NotificationServer реализует eventhub.v1.NotificationService.
type NotificationServer struct {
	notifications *notifications.Service
}

// NewNotificationServer создаёт gRPC-адаптер входящих уведомлений.
func NewNotificationServer(svc *notifications.Service) *NotificationServer {
	return &NotificationServer{notifications: svc}
}

func (s *NotificationServer) ListNotifications(ctx context.Context, req *eventhubv1.ListNotificationsRequest) (*eventhubv1.ListNotificationsResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	items, unread, err := s.notifications.List(actor, req.UnreadOnly, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]eventhubv1.Notification, 0, len(items))
	for _, n := range items {
		out = append(out, toAPINotification(n))
	}
	return &eventhubv1.ListNotificationsResponse{
		Notifications: out,
		UnreadCount:   int32(unread), //nolint:gosec // unread is bounded by the inbox size.
	}, nil
}

func (s *NotificationServer) MarkNotificationsRead(ctx context.Context, req *eventhubv1.MarkNotificationsReadRequest) (*eventhubv1.MarkNotificationsReadResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := s.notifications.MarkRead(actor, req.IDs)
	if err != nil {
		return nil, toStatus(err)
	}
	return &eventhubv1.MarkNotificationsReadResponse{Updated: int32(updated)}, nil //nolint:gosec // bounded by len(req.IDs).
}

var _ eventhubv1.NotificationServiceServer = (*NotificationServer)(nil)

// Package notifications превращает доменные события во входящие уведомления пользователей.
package notifications

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
)

const followerPage = 500

// LivePublisher доставляет сообщения чата подключённым клиентам.
type LivePublisher interface {
	Publish(msg domain.Message)
}

// FanoutDependencies перечисляет источники получателей для fan-out.
type FanoutDependencies struct {
	Notifications domain.NotificationRepository
	Follows       domain.FollowRepository
	Registrations domain.RegistrationRepository
	Businesses    domain.BusinessRepository
	// Live может быть nil: тогда сообщения чата попадают только во входящие.
	Live    LivePublisher
	Metrics *metrics.DomainMetrics
	Clock   clock.Clock
	Logger  *log.Entry
}

// Fanout рассылает уведомления по событиям из outbox. Повторная доставка того же
// сообщения не создаёт дубликатов, так как ключ уведомления состоит из получателя и ID сообщения.
type Fanout struct {
	notifications domain.NotificationRepository
	follows       domain.FollowRepository
	regs          domain.RegistrationRepository
	businesses    domain.BusinessRepository
	live          LivePublisher
	metrics       *metrics.DomainMetrics
	clock         clock.Clock
	logger        *log.Entry
}

// NewFanout создаёт обработчик fan-out.
func NewFanout(deps FanoutDependencies) *Fanout {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "notify-fanout")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Fanout{
		notifications: deps.Notifications,
		follows:       deps.Follows,
		regs:          deps.Registrations,
		businesses:    deps.Businesses,
		live:          deps.Live,
		metrics:       deps.Metrics,
		clock:         clk,
		logger:        logger,
	}
}

// Publish обрабатывает одно сообщение outbox. Неизвестные типы пропускаются.
func (f *Fanout) Publish(msg domain.OutboxMessage) error {
	items, err := f.build(msg)
	if err != nil {
		return fmt.Errorf("fan-out %s %s: %w", msg.EventType, msg.ID, err)
	}
	if len(items) > 0 {
		if err := f.store(msg, items); err != nil {
			return err
		}
	}
	f.pushLive(msg)
	return nil
}

func (f *Fanout) store(msg domain.OutboxMessage, items []domain.Notification) error {
	now := f.clock.Now()
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].CreatedAt = now
		if items[i].SourceID == "" {
			items[i].SourceID = msg.ID
		}
	}
	created, err := f.notifications.CreateMany(items)
	if err != nil {
		return fmt.Errorf("store notifications for %s: %w", msg.ID, err)
	}

	f.metrics.RecordNotifications(string(items[0].Kind), created)
	f.logger.WithFields(log.Fields{
		"event":      msg.EventType,
		"message_id": msg.ID,
		"recipients": len(items),
		"created":    created,
	}).Debug("notifications fanned out")
	return nil
}

// pushLive отдаёт новое сообщение чата в live-hub этого узла.
func (f *Fanout) pushLive(msg domain.OutboxMessage) {
	if f.live == nil || msg.EventType != domain.EventTypeChatMessageSent {
		return
	}
	var p domain.ChatMessageSentPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		return
	}
	f.live.Publish(domain.Message{
		ID:        p.MessageID,
		ChatID:    p.ChatID,
		Seq:       p.Seq,
		SenderID:  p.SenderID,
		Body:      p.Body,
		CreatedAt: p.OccurredAt,
	})
}

func (f *Fanout) build(msg domain.OutboxMessage) ([]domain.Notification, error) {
	switch msg.EventType {
	case domain.EventTypeEventPublished:
		var p domain.EventPublishedPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		followers, err := f.allFollowers(p.OrganizerID)
		if err != nil {
			return nil, err
		}
		return toEach(followers, domain.Notification{
			Kind:        domain.NotificationEventPublished,
			Title:       "New event: " + p.Title,
			Body:        "Starts " + p.StartsAt.Format("Mon, 02 Jan 15:04 MST"),
			ReferenceID: p.EventID,
		}), nil

	case domain.EventTypeEventCanceled:
		var p domain.EventCanceledPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		regs, err := f.regs.ListByEvent(p.EventID)
		if err != nil {
			return nil, err
		}
		users := make([]string, 0, len(regs))
		for _, reg := range regs {
			users = append(users, reg.UserID)
		}
		return toEach(users, domain.Notification{
			Kind:        domain.NotificationEventCanceled,
			Title:       "Event canceled: " + p.Title,
			Body:        p.Reason,
			ReferenceID: p.EventID,
		}), nil

	case domain.EventTypeOrderStatusChanged:
		var p domain.OrderStatusChangedPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		return f.orderNotifications(msg.ID, p)

	case domain.EventTypeChatMessageSent:
		var p domain.ChatMessageSentPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		recipients := make([]string, 0, len(p.Participants))
		for _, id := range p.Participants {
			if id != p.SenderID {
				recipients = append(recipients, id)
			}
		}
		return toEach(recipients, domain.Notification{
			Kind:        domain.NotificationChatMessage,
			Title:       "New message",
			Body:        preview(p.Body),
			ReferenceID: p.ChatID,
		}), nil

	case domain.EventTypeUserFollowed:
		var p domain.UserFollowedPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		return toEach([]string{p.FolloweeID}, domain.Notification{
			Kind:        domain.NotificationNewFollower,
			Title:       "New follower",
			Body:        p.FollowerID + " started following you",
			ReferenceID: p.FollowerID,
		}), nil

	case domain.EventTypeReviewPosted:
		var p domain.ReviewPostedPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		return toEach([]string{p.OwnerID}, domain.Notification{
			Kind:        domain.NotificationReviewPosted,
			Title:       "New review",
			Body:        fmt.Sprintf("%d/5 from %s", p.Rating, p.AuthorID),
			ReferenceID: p.ReviewID,
		}), nil
	}
	return nil, nil
}

func (f *Fanout) orderNotifications(sourceID string, p domain.OrderStatusChangedPayload) ([]domain.Notification, error) {
	items := []domain.Notification{{
		UserID:      p.CustomerID,
		Kind:        domain.NotificationOrderStatusChanged,
		Title:       "Order " + string(p.To),
		Body:        p.Reason,
		ReferenceID: p.OrderID,
	}}
	if p.DeliveryOTP != "" {
		items = append(items, domain.Notification{
			UserID:      p.CustomerID,
			Kind:        domain.NotificationDeliveryOTP,
			Title:       "Your delivery code",
			Body:        "Share code " + p.DeliveryOTP + " with the courier to receive your order",
			ReferenceID: p.OrderID,
			SourceID:    sourceID + ":otp",
		})
	}
	if p.To == domain.OrderStatusCanceled && p.BusinessID != "" {
		business, err := f.businesses.Get(p.BusinessID)
		if err != nil {
			f.logger.WithError(err).WithField("business_id", p.BusinessID).Warn("business owner lookup failed")
		} else if business.OwnerID != p.CustomerID {
			items = append(items, domain.Notification{
				UserID:      business.OwnerID,
				Kind:        domain.NotificationOrderStatusChanged,
				Title:       "Order canceled",
				Body:        p.Reason,
				ReferenceID: p.OrderID,
			})
		}
	}
	return items, nil
}

func (f *Fanout) allFollowers(userID string) ([]string, error) {
	var result []string
	for offset := 0; ; offset += followerPage {
		page, err := f.follows.ListFollowers(userID, followerPage, offset)
		if err != nil {
			return nil, err
		}
		result = append(result, page...)
		if len(page) < followerPage {
			return result, nil
		}
	}
}

func toEach(users []string, tmpl domain.Notification) []domain.Notification {
	items := make([]domain.Notification, 0, len(users))
	for _, id := range users {
		if id == "" {
			continue
		}
		n := tmpl
		n.UserID = id
		items = append(items, n)
	}
	return items
}

func preview(body string) string {
	const max = 120
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "…"
}

var _ domain.OutboxPublisher = (*Fanout)(nil)

func decodePayload(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, domain.ErrValidation)
	}
	return nil
}

package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Типы агрегатов в outbox.
const (
	AggregateOrder        = "order"
	AggregateEvent        = "event"
	AggregateChat         = "chat"
	AggregateUser         = "user"
	AggregateBusiness     = "business"
	AggregateSubscription = "subscription"
)

// Типы доменных событий, которые уходят через outbox.
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
	EventTypeEventPublished     = "EventPublished"
	EventTypeEventCanceled      = "EventCanceled"
	EventTypeChatMessageSent    = "ChatMessageSent"
	EventTypeUserFollowed       = "UserFollowed"
	EventTypeReviewPosted       = "ReviewPosted"
	EventTypePackagePurchased   = "PackagePurchased"
)

// OrderStatusChangedPayload публикуется при смене статуса заказа.
type OrderStatusChangedPayload struct {
	OrderID    string      `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	BusinessID string      `json:"business_id"`
	From       OrderStatus `json:"from"`
	To         OrderStatus `json:"to"`
	Reason     string      `json:"reason,omitempty"`
	// DeliveryOTP заполняется только при выезде COD-заказа и доставляется клиенту уведомлением.
	DeliveryOTP string    `json:"delivery_otp,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type EventPublishedPayload struct {
	EventID     string    `json:"event_id"`
	OrganizerID string    `json:"organizer_id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"starts_at"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type EventCanceledPayload struct {
	EventID     string    `json:"event_id"`
	OrganizerID string    `json:"organizer_id"`
	Title       string    `json:"title"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ChatMessageSentPayload несёт новое сообщение чата и список участников.
type ChatMessageSentPayload struct {
	ChatID       string    `json:"chat_id"`
	MessageID    string    `json:"message_id"`
	Seq          int64     `json:"seq"`
	SenderID     string    `json:"sender_id"`
	Body         string    `json:"body"`
	Participants []string  `json:"participants"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type UserFollowedPayload struct {
	FollowerID string    `json:"follower_id"`
	FolloweeID string    `json:"followee_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ReviewPostedPayload struct {
	ReviewID   string    `json:"review_id"`
	BusinessID string    `json:"business_id"`
	OwnerID    string    `json:"owner_id"`
	AuthorID   string    `json:"author_id"`
	Rating     int32     `json:"rating"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PackagePurchasedPayload struct {
	SubscriptionID string    `json:"subscription_id"`
	UserID         string    `json:"user_id"`
	PackageID      string    `json:"package_id"`
	EventCredits   int32     `json:"event_credits"`
	ExpiresAt      time.Time `json:"expires_at"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewOutboxMessage сериализует payload в сообщение outbox.
func NewOutboxMessage(aggregateType, aggregateID, eventType string, payload any) (OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}

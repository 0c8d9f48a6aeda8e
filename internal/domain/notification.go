package domain

import "time"

// NotificationKind задаёт тип уведомления во входящих.
type NotificationKind string

const (
	NotificationEventPublished     NotificationKind = "event_published"
	NotificationEventCanceled      NotificationKind = "event_canceled"
	NotificationOrderStatusChanged NotificationKind = "order_status_changed"
	NotificationDeliveryOTP        NotificationKind = "delivery_otp"
	NotificationChatMessage        NotificationKind = "chat_message"
	NotificationNewFollower        NotificationKind = "new_follower"
	NotificationReviewPosted       NotificationKind = "review_posted"
)

// Notification хранит запись во входящих пользователя.
type Notification struct {
	ID          string
	UserID      string
	Kind        NotificationKind
	Title       string
	Body        string
	ReferenceID string
	// SourceID указывает исходное доменное событие; вместе с UserID
	// делает fan-out идемпотентным при повторной доставке.
	SourceID  string
	CreatedAt time.Time
	ReadAt    time.Time
}

// Read сообщает, прочитано ли уведомление.
func (n Notification) Read() bool {
	return !n.ReadAt.IsZero()
}

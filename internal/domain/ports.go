package domain

import "time"

// SeatReserver удерживает места на мероприятиях под билетные заказы.
type SeatReserver interface {
	// Reserve удерживает места по всем билетным позициям заказа атомарно.
	Reserve(orderID string, items []OrderItem) error
	// Release снимает резерв по заказу (компенсация). Повторный вызов безопасен.
	Release(orderID string) error
	// Confirm превращает резерв в регистрации покупателя.
	Confirm(orderID, customerID string) error
	// Revoke возвращает места, выданные покупателю по этому заказу. Места из
	// других заказов того же покупателя не затрагиваются.
	Revoke(orderID, customerID string) error
}

// PaymentService описывает взаимодействие с платёжным провайдером.
type PaymentService interface {
	// Pay инициирует списание средств.
	Pay(orderID string, method PaymentMethod, amountMinor int64, currency string) (PaymentStatus, error)
	// Refund инициирует возврат средств (для компенсаций/отмен).
	Refund(orderID string, amountMinor int64, currency string) (PaymentStatus, error)
	// Capture фиксирует получение денег, например наличных при COD-доставке.
	Capture(orderID string) (PaymentStatus, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OTPStore хранит хэши кодов подтверждения COD-доставки.
type OTPStore interface {
	// Put сохраняет код, заменяя предыдущий для заказа.
	Put(otp DeliveryOTP) error
	// Get возвращает код или ErrOTPNotFound.
	Get(orderID string) (DeliveryOTP, error)
	// ConsumeAttempt атомарно списывает попытку до сравнения кода и возвращает остаток.
	// Отрицательный результат значит, что попыток не было и сравнивать нельзя.
	ConsumeAttempt(orderID string) (int32, error)
	// Delete удаляет код.
	Delete(orderID string) error
}

// FollowRepository хранит социальный граф.
type FollowRepository interface {
	// Follow создаёт связь; возвращает false, если она уже была.
	Follow(followerID, followeeID string, at time.Time) (bool, error)
	// Unfollow удаляет связь; возвращает false, если её не было.
	Unfollow(followerID, followeeID string) (bool, error)
	ListFollowers(userID string, limit, offset int) ([]string, error)
	ListFollowing(userID string, limit, offset int) ([]string, error)
	Counts(userID string) (FollowCounts, error)
}

// SagaStep задаёт константы шагов для метрик/логов.
type SagaStep string

const (
	SagaStepReserve SagaStep = "reserve"
	SagaStepPay     SagaStep = "pay"
	SagaStepConfirm SagaStep = "confirm"
	SagaStepRelease SagaStep = "release"
	SagaStepCancel  SagaStep = "cancel"
	SagaStepRefund  SagaStep = "refund"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// Package orderstatus применяет переходы статусов заказа: проверка по таблице,
// сохранение с optimistic locking, запись в timeline и outbox.
package orderstatus

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 10 * time.Millisecond
)

// Change описывает изменение заказа.
type Change struct {
	// Пустой To оставляет текущий статус.
	To     domain.OrderStatus
	Actor  domain.Actor
	Reason string
	// DeliveryOTP попадает только в payload события и доставляется клиенту уведомлением.
	DeliveryOTP string
	// Mutate применяется после перехода; после конфликта версий вызывается заново на свежей копии.
	Mutate func(*domain.Order) error
}

// Updater сохраняет переходы статусов заказа.
type Updater struct {
	orders        domain.OrderRepository
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	clock         clock.Clock
	logger        *log.Entry
	sagaMetrics   *metrics.SagaMetrics
	domainMetrics *metrics.DomainMetrics
	maxRetries    int
	baseDelay     time.Duration
}

// Option настраивает Updater.
type Option func(*Updater)

// WithClock задаёт источник времени.
func WithClock(c clock.Clock) Option {
	return func(u *Updater) {
		if c != nil {
			u.clock = c
		}
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(u *Updater) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithMetrics включает метрики переходов, timeline и outbox.
func WithMetrics(saga *metrics.SagaMetrics, dm *metrics.DomainMetrics) Option {
	return func(u *Updater) {
		u.sagaMetrics = saga
		u.domainMetrics = dm
	}
}

// WithRetry задаёт число попыток при конфликте версий и базовую задержку.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(u *Updater) {
		if maxRetries > 0 {
			u.maxRetries = maxRetries
		}
		if baseDelay >= 0 {
			u.baseDelay = baseDelay
		}
	}
}

// NewUpdater создаёт Updater. timeline и outbox могут быть nil.
func NewUpdater(orders domain.OrderRepository, outbox domain.OutboxRepository, timeline domain.TimelineRepository, opts ...Option) *Updater {
	u := &Updater{
		orders:     orders,
		outbox:     outbox,
		timeline:   timeline,
		clock:      clock.NewSystem(),
		logger:     log.WithField("component", "order-status"),
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Now возвращает текущее время по часам Updater.
func (u *Updater) Now() time.Time {
	return u.clock.Now()
}

// Apply переводит заказ в change.To. При конфликте версий перечитывает заказ и повторяет
// проверку перехода с exponential backoff. Возвращает false, если статус уже был целевым.
// order обновляется сохранённым состоянием.
func (u *Updater) Apply(order *domain.Order, change Change) (bool, error) {
	for attempt := 0; ; attempt++ {
		working := *order
		working.Items = append([]domain.OrderItem(nil), order.Items...)
		from := working.Status
		to := change.To
		if to == "" {
			to = from
		}

		changed, err := working.Transition(to, change.Actor.Role, u.clock.Now())
		if err != nil {
			return false, err
		}
		if !changed && change.Mutate == nil {
			return false, nil
		}
		if change.Mutate != nil {
			if err := change.Mutate(&working); err != nil {
				return false, err
			}
		}
		working.UpdatedAt = u.clock.Now()

		err = u.orders.Save(working)
		if err == nil {
			working.Version++
			*order = working
			if changed {
				u.recordTransition(from, order, change)
			}
			return changed, nil
		}

		if !domain.IsVersionConflict(err) || attempt >= u.maxRetries-1 {
			u.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"to":       to,
				"attempt":  attempt + 1,
			}).Error("failed to persist order status")
			return false, err
		}

		u.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"attempt":  attempt + 1,
			"version":  working.Version,
		}).Warn("version conflict detected, retrying")

		fresh, loadErr := u.orders.Get(order.ID)
		if loadErr != nil {
			return false, fmt.Errorf("reload order after conflict: %w", loadErr)
		}
		*order = fresh
		if u.baseDelay > 0 {
			time.Sleep(u.baseDelay * time.Duration(1<<uint(attempt)))
		}
	}
}

// Save сохраняет изменения заказа без смены статуса.
func (u *Updater) Save(order *domain.Order, mutate func(*domain.Order) error) error {
	_, err := u.Apply(order, Change{Actor: domain.SystemActor(), Mutate: mutate})
	return err
}

// RecordCreated фиксирует создание заказа в timeline и outbox.
func (u *Updater) RecordCreated(order domain.Order, actor domain.Actor) {
	u.appendTimeline(domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     domain.EventTypeOrderCreated,
		ActorID:  actor.UserID,
		Occurred: order.CreatedAt,
	})
	u.enqueue(order.ID, domain.EventTypeOrderCreated, domain.OrderStatusChangedPayload{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		BusinessID: order.BusinessID,
		To:         order.Status,
		OccurredAt: order.CreatedAt,
	})
}

func (u *Updater) recordTransition(from domain.OrderStatus, order *domain.Order, change Change) {
	u.domainMetrics.RecordOrderTransition(string(from), string(order.Status))

	reason := fmt.Sprintf("%s -> %s", from, order.Status)
	if change.Reason != "" {
		reason += ": " + change.Reason
	}
	u.appendTimeline(domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     domain.EventTypeOrderStatusChanged,
		Reason:   reason,
		ActorID:  change.Actor.UserID,
		Occurred: order.UpdatedAt,
	})
	u.enqueue(order.ID, domain.EventTypeOrderStatusChanged, domain.OrderStatusChangedPayload{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		BusinessID:  order.BusinessID,
		From:        from,
		To:          order.Status,
		Reason:      change.Reason,
		DeliveryOTP: change.DeliveryOTP,
		OccurredAt:  order.UpdatedAt,
	})
}

func (u *Updater) appendTimeline(event domain.TimelineEvent) {
	if u.timeline == nil {
		return
	}
	if err := u.timeline.Append(event); err != nil {
		u.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.OrderID,
			"event":    event.Type,
		}).Warn("append timeline event failed")
		return
	}
	if u.sagaMetrics != nil {
		u.sagaMetrics.RecordTimelineEvent()
	}
}

func (u *Updater) enqueue(orderID, eventType string, payload domain.OrderStatusChangedPayload) {
	if u.outbox == nil {
		return
	}
	msg, err := domain.NewOutboxMessage(domain.AggregateOrder, orderID, eventType, payload)
	if err != nil {
		u.logger.WithError(err).WithField("order_id", orderID).Error("marshal order event failed")
		return
	}
	if _, err := u.outbox.Enqueue(msg); err != nil {
		u.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("enqueue event failed")
		return
	}
	if u.sagaMetrics != nil {
		u.sagaMetrics.RecordOutboxEvent()
	}
}

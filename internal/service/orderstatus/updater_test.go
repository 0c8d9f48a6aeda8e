package orderstatus

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/memory"
)

// conflictingRepo отдаёт конфликт версий на первых n сохранениях, параллельно меняя запись.
type conflictingRepo struct {
	domain.OrderRepository
	conflicts int
}

func (r *conflictingRepo) Save(order domain.Order) error {
	if r.conflicts > 0 {
		r.conflicts--
		current, err := r.OrderRepository.Get(order.ID)
		if err != nil {
			return err
		}
		current.UpdatedAt = current.UpdatedAt.Add(time.Second)
		if err := r.OrderRepository.Save(current); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}
	return r.OrderRepository.Save(order)
}

func seedOrder(t *testing.T, repo domain.OrderRepository, status domain.OrderStatus) domain.Order {
	t.Helper()

	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	order := domain.Order{
		ID:            "order-1",
		CustomerID:    "customer-1",
		BusinessID:    "biz-1",
		Kind:          domain.OrderKindGoods,
		Status:        status,
		Currency:      "INR",
		SubtotalMinor: 1000,
		AmountMinor:   1000,
		PaymentMethod: domain.PaymentMethodCOD,
		Delivery:      domain.Delivery{Address: "MG Road 1"},
		Items:         []domain.OrderItem{{ID: "item-1", SKU: "sku-1", Qty: 1, PriceMinor: 1000}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestUpdater_ApplyRecordsTimelineAndOutbox(t *testing.T) {
	orders := memory.NewOrderRepository()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	u := NewUpdater(orders, outbox, timeline, WithClock(clock.NewManual(time.Date(2026, 4, 2, 13, 0, 0, 0, time.UTC))))

	order := seedOrder(t, orders, domain.OrderStatusReady)
	order.Delivery.PartnerID = "partner-1"

	changed, err := u.Apply(&order, Change{
		To:          domain.OrderStatusOutForDelivery,
		Actor:       domain.Actor{UserID: "partner-1", Role: domain.RolePartner},
		Reason:      "picked up",
		DeliveryOTP: "123456",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !changed {
		t.Fatal("expected status change")
	}
	if order.Version != 1 {
		t.Fatalf("expected version 1, got %d", order.Version)
	}

	stored, err := orders.Get(order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Status != domain.OrderStatusOutForDelivery {
		t.Fatalf("expected stored status out_for_delivery, got %s", stored.Status)
	}

	events, _ := timeline.List(order.ID)
	if len(events) != 1 || events[0].ActorID != "partner-1" {
		t.Fatalf("unexpected timeline: %+v", events)
	}
	if events[0].Reason != "ready -> out_for_delivery: picked up" {
		t.Fatalf("unexpected timeline reason: %q", events[0].Reason)
	}

	pending := outbox.AllPending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(pending))
	}
	var payload domain.OrderStatusChangedPayload
	if err := json.Unmarshal(pending[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.From != domain.OrderStatusReady || payload.To != domain.OrderStatusOutForDelivery || payload.DeliveryOTP != "123456" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestUpdater_SameStatusIsNoop(t *testing.T) {
	orders := memory.NewOrderRepository()
	outbox := memory.NewOutboxRepository()
	u := NewUpdater(orders, outbox, nil)

	order := seedOrder(t, orders, domain.OrderStatusConfirmed)
	changed, err := u.Apply(&order, Change{To: domain.OrderStatusConfirmed, Actor: domain.SystemActor()})
	if err != nil || changed {
		t.Fatalf("expected no-op, got changed=%v err=%v", changed, err)
	}
	if len(outbox.AllPending()) != 0 {
		t.Fatal("no-op must not enqueue events")
	}
}

func TestUpdater_RejectsForbiddenRole(t *testing.T) {
	orders := memory.NewOrderRepository()
	u := NewUpdater(orders, nil, nil)

	order := seedOrder(t, orders, domain.OrderStatusConfirmed)
	_, err := u.Apply(&order, Change{To: domain.OrderStatusPreparing, Actor: domain.Actor{UserID: "customer-1", Role: domain.RoleUser}})
	if !errors.Is(err, domain.ErrForbiddenTransition) {
		t.Fatalf("expected ErrForbiddenTransition, got %v", err)
	}

	_, err = u.Apply(&order, Change{To: domain.OrderStatusDelivered, Actor: domain.SystemActor()})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdater_RetriesVersionConflict(t *testing.T) {
	base := memory.NewOrderRepository()
	repo := &conflictingRepo{OrderRepository: base, conflicts: 1}
	u := NewUpdater(repo, nil, nil, WithRetry(3, 0))

	order := seedOrder(t, base, domain.OrderStatusConfirmed)
	changed, err := u.Apply(&order, Change{
		To:    domain.OrderStatusPreparing,
		Actor: domain.Actor{UserID: "owner", Role: domain.RoleBusiness},
	})
	if err != nil {
		t.Fatalf("apply after conflict: %v", err)
	}
	if !changed {
		t.Fatal("expected change after retry")
	}
	if order.Version != 2 {
		t.Fatalf("expected version 2 after concurrent write and retry, got %d", order.Version)
	}
}

func TestUpdater_GivesUpAfterRetries(t *testing.T) {
	base := memory.NewOrderRepository()
	repo := &conflictingRepo{OrderRepository: base, conflicts: 5}
	u := NewUpdater(repo, nil, nil, WithRetry(2, 0))

	order := seedOrder(t, base, domain.OrderStatusConfirmed)
	_, err := u.Apply(&order, Change{To: domain.OrderStatusCanceled, Actor: domain.SystemActor()})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestUpdater_SaveMutatesWithoutTransition(t *testing.T) {
	orders := memory.NewOrderRepository()
	outbox := memory.NewOutboxRepository()
	u := NewUpdater(orders, outbox, nil)

	order := seedOrder(t, orders, domain.OrderStatusReady)
	err := u.Save(&order, func(o *domain.Order) error {
		o.Delivery.PartnerID = "partner-7"
		return nil
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	stored, _ := orders.Get(order.ID)
	if stored.Delivery.PartnerID != "partner-7" || stored.Status != domain.OrderStatusReady {
		t.Fatalf("unexpected stored order: %+v", stored.Delivery)
	}
	if len(outbox.AllPending()) != 0 {
		t.Fatal("save without transition must not enqueue events")
	}
}

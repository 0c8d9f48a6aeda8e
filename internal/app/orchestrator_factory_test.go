package app

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
	"github.com/vladislavdragonenkov/eventhub/internal/service/orderstatus"
	"github.com/vladislavdragonenkov/eventhub/internal/service/payment"
	"github.com/vladislavdragonenkov/eventhub/internal/service/seats"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/memory"
)

func TestCreateOrchestrator_CompletesTicketOrder(t *testing.T) {
	logger := log.WithField("test", "orchestrator")
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewManual(now)

	events := memory.NewEventStore()
	orders := memory.NewOrderRepository()
	event := domain.Event{
		ID:          "event-1",
		OrganizerID: "organizer-1",
		Title:       "Jazz night",
		StartsAt:    now.Add(24 * time.Hour),
		EndsAt:      now.Add(27 * time.Hour),
		Capacity:    10,
		PriceMinor:  50000,
		Currency:    "INR",
		Status:      domain.EventStatusPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := events.Create(event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	order := domain.Order{
		ID:            "order-1",
		CustomerID:    "user-1",
		BusinessID:    "biz-1",
		Kind:          domain.OrderKindTicket,
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentMethodCard,
		Currency:      "INR",
		SubtotalMinor: 100000,
		AmountMinor:   100000,
		Items: []domain.OrderItem{{
			ID:         "item-1",
			EventID:    event.ID,
			Title:      event.Title,
			Qty:        2,
			PriceMinor: 50000,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := orders.Create(order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	registry := prometheus.NewRegistry()
	updater := orderstatus.NewUpdater(orders, memory.NewOutboxRepository(), memory.NewTimelineRepository(),
		orderstatus.WithClock(clk))
	orch := createOrchestrator(sagaDependencies{
		Orders:   orders,
		Coupons:  memory.NewCouponRepository(),
		Seats:    seats.NewReserver(events, clk, logger),
		Payments: payment.NewGateway(memory.NewPaymentRepository(), clk, logger),
		Status:   updater,
		Metrics:  metrics.NewSagaMetricsWithRegisterer(registry),
		Logger:   logger,
	})

	got, err := orch.Start(order.ID)
	if err != nil {
		t.Fatalf("saga start failed: %v", err)
	}
	if got.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %s", got.Status)
	}
	stored, err := events.Get(event.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if stored.SeatsTaken != 2 {
		t.Fatalf("expected 2 seats taken, got %d", stored.SeatsTaken)
	}
}

func TestCreateOrchestrator_MissingOrder(t *testing.T) {
	logger := log.WithField("test", "orchestrator")
	clk := clock.NewManual(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	orders := memory.NewOrderRepository()
	events := memory.NewEventStore()

	orch := createOrchestrator(sagaDependencies{
		Orders:   orders,
		Coupons:  memory.NewCouponRepository(),
		Seats:    seats.NewReserver(events, clk, logger),
		Payments: payment.NewMockService(),
		Status:   orderstatus.NewUpdater(orders, memory.NewOutboxRepository(), memory.NewTimelineRepository()),
		Logger:   logger,
	})

	if _, err := orch.Start("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

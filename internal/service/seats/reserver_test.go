package seats

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/memory"
)

func seedEvent(t *testing.T, store *memory.EventStore, id string, capacity int32, startsAt time.Time) {
	t.Helper()

	err := store.Create(domain.Event{
		ID:          id,
		OrganizerID: "org-1",
		Title:       "Jazz night",
		Category:    "music",
		StartsAt:    startsAt,
		EndsAt:      startsAt.Add(2 * time.Hour),
		Capacity:    capacity,
		PriceMinor:  1500,
		Currency:    "INR",
		Status:      domain.EventStatusPublished,
		CreatedAt:   startsAt.Add(-48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
}

func TestReserver_ReserveConfirm(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewEventStore()
	seedEvent(t, store, "ev-1", 3, now.Add(24*time.Hour))

	r := NewReserver(store, clock.NewManual(now), nil)
	items := []domain.OrderItem{
		{SKU: "ticket", EventID: "ev-1", Qty: 2, PriceMinor: 1500},
		{SKU: "merch", Qty: 1, PriceMinor: 500},
	}

	if err := r.Reserve("order-1", items); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	event, _ := store.Get("ev-1")
	if event.SeatsReserved != 2 {
		t.Fatalf("expected 2 reserved seats, got %d", event.SeatsReserved)
	}

	if err := r.Confirm("order-1", "user-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	event, _ = store.Get("ev-1")
	if event.SeatsReserved != 0 || event.SeatsTaken != 2 {
		t.Fatalf("unexpected counters after confirm: reserved=%d taken=%d", event.SeatsReserved, event.SeatsTaken)
	}
	reg, err := store.GetRegistration("ev-1", "user-1")
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if reg.Seats != 2 || reg.OrderID != "order-1" {
		t.Fatalf("unexpected registration: %+v", reg)
	}
}

func TestReserver_RevokeCancelsRegistrations(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewEventStore()
	seedEvent(t, store, "ev-1", 2, now.Add(time.Hour))

	r := NewReserver(store, clock.NewManual(now), nil)
	items := []domain.OrderItem{{SKU: "ticket", EventID: "ev-1", Qty: 2, PriceMinor: 1}}
	if err := r.Reserve("order-1", items); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := r.Confirm("order-1", "user-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := r.Revoke("order-1", "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := r.Revoke("order-1", "user-1"); err != nil {
		t.Fatalf("second revoke must be a no-op: %v", err)
	}
	event, _ := store.Get("ev-1")
	if event.SeatsTaken != 0 {
		t.Fatalf("expected seats to be freed, got taken=%d", event.SeatsTaken)
	}
}

func TestReserver_RevokeKeepsSeatsOfOtherOrders(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewEventStore()
	seedEvent(t, store, "ev-1", 10, now.Add(time.Hour))

	r := NewReserver(store, clock.NewManual(now), nil)
	for orderID, qty := range map[string]int32{"order-a": 2, "order-b": 1} {
		items := []domain.OrderItem{{SKU: "ticket", EventID: "ev-1", Qty: qty, PriceMinor: 1}}
		if err := r.Reserve(orderID, items); err != nil {
			t.Fatalf("reserve %s: %v", orderID, err)
		}
		if err := r.Confirm(orderID, "user-1"); err != nil {
			t.Fatalf("confirm %s: %v", orderID, err)
		}
	}

	if err := r.Revoke("order-b", "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	event, _ := store.Get("ev-1")
	if event.SeatsTaken != 2 {
		t.Fatalf("expected order-a seats to stay taken, got taken=%d", event.SeatsTaken)
	}
	reg, err := store.GetRegistration("ev-1", "user-1")
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if reg.Status != domain.RegistrationStatusActive || reg.Seats != 2 {
		t.Fatalf("expected active registration with 2 seats, got %+v", reg)
	}

	if err := r.Revoke("order-a", "user-1"); err != nil {
		t.Fatalf("revoke order-a: %v", err)
	}
	event, _ = store.Get("ev-1")
	reg, _ = store.GetRegistration("ev-1", "user-1")
	if event.SeatsTaken != 0 || reg.Status != domain.RegistrationStatusCanceled {
		t.Fatalf("expected everything returned, got taken=%d reg=%+v", event.SeatsTaken, reg)
	}
}

func TestReserver_ReserveRejectsOverbooking(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewEventStore()
	seedEvent(t, store, "ev-1", 1, now.Add(time.Hour))

	r := NewReserver(store, clock.NewManual(now), nil)
	err := r.Reserve("order-1", []domain.OrderItem{{SKU: "ticket", EventID: "ev-1", Qty: 2, PriceMinor: 1}})
	if !errors.Is(err, domain.ErrSeatsUnavailable) {
		t.Fatalf("expected ErrSeatsUnavailable, got %v", err)
	}
}

func TestReserver_ReleaseFreesSeats(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewEventStore()
	seedEvent(t, store, "ev-1", 2, now.Add(time.Hour))

	r := NewReserver(store, clock.NewManual(now), nil)
	items := []domain.OrderItem{{SKU: "ticket", EventID: "ev-1", Qty: 2, PriceMinor: 1}}
	if err := r.Reserve("order-1", items); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := r.Release("order-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := r.Release("order-1"); err != nil {
		t.Fatalf("second release must be a no-op: %v", err)
	}
	if err := r.Reserve("order-2", items); err != nil {
		t.Fatalf("seats must be available after release: %v", err)
	}
}

func TestReserver_GoodsOnlyIsNoop(t *testing.T) {
	r := NewReserver(memory.NewEventStore(), nil, nil)
	if err := r.Reserve("order-1", []domain.OrderItem{{SKU: "merch", Qty: 1, PriceMinor: 100}}); err != nil {
		t.Fatalf("goods reserve: %v", err)
	}
}

func TestMockReserver(t *testing.T) {
	mock := NewMockReserver()
	items := []domain.OrderItem{{SKU: "ticket", EventID: "ev-1", Qty: 1, PriceMinor: 100}}

	if err := mock.Reserve("o-1", items); err != nil {
		t.Fatalf("unexpected reserve error: %v", err)
	}
	mock.ConfirmErr = errors.New("confirm failed")
	if err := mock.Confirm("o-1", "u-1"); err == nil {
		t.Fatal("expected confirm error")
	}
	_ = mock.Release("o-1")

	reserve, release, confirm := mock.Calls()
	if reserve != 1 || release != 1 || confirm != 1 {
		t.Fatalf("unexpected call counters: reserve=%d release=%d confirm=%d", reserve, release, confirm)
	}
}

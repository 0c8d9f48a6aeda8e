package saga

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
	"github.com/vladislavdragonenkov/eventhub/internal/service/orderstatus"
	"github.com/vladislavdragonenkov/eventhub/internal/service/payment"
	"github.com/vladislavdragonenkov/eventhub/internal/service/seats"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/memory"
)

var testNow = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

type harness struct {
	orders   domain.OrderRepository
	coupons  domain.CouponRepository
	outbox   *memory.OutboxRepository
	timeline domain.TimelineRepository
	seats    *seats.MockReserver
	payments *payment.MockService
	orch     Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		orders:   memory.NewOrderRepository(),
		coupons:  memory.NewCouponRepository(),
		outbox:   memory.NewOutboxRepository(),
		timeline: memory.NewTimelineRepository(),
		seats:    seats.NewMockReserver(),
		payments: payment.NewMockService(),
	}
	updater := orderstatus.NewUpdater(h.orders, h.outbox, h.timeline,
		orderstatus.WithClock(clock.NewManual(testNow)),
		orderstatus.WithRetry(3, 0),
	)
	h.orch = NewOrchestrator(Dependencies{
		Orders:   h.orders,
		Coupons:  h.coupons,
		Seats:    h.seats,
		Payments: h.payments,
		Status:   updater,
		Metrics:  metrics.NewSagaMetricsWithRegisterer(prometheus.NewRegistry()),
	})
	return h
}

func (h *harness) seed(t *testing.T, kind domain.OrderKind, status domain.OrderStatus, method domain.PaymentMethod) domain.Order {
	t.Helper()

	order := domain.Order{
		ID:            "order-1",
		CustomerID:    "customer-1",
		BusinessID:    "biz-1",
		Kind:          kind,
		Status:        status,
		Currency:      "INR",
		SubtotalMinor: 500,
		AmountMinor:   500,
		PaymentMethod: method,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	if kind == domain.OrderKindTicket {
		order.Items = []domain.OrderItem{{ID: "item-1", SKU: "ticket", EventID: "event-1", Qty: 2, PriceMinor: 250}}
	} else {
		order.Items = []domain.OrderItem{{ID: "item-1", SKU: "sku-1", Qty: 1, PriceMinor: 500}}
		order.Delivery = domain.Delivery{Address: "MG Road 1"}
	}
	if err := h.orders.Create(order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func (h *harness) stored(t *testing.T) domain.Order {
	t.Helper()
	order, err := h.orders.Get("order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	return order
}

func TestOrchestrator_TicketSuccessFlow(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindTicket, domain.OrderStatusPending, domain.PaymentMethodCard)

	order, err := h.orch.Start("order-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", order.Status)
	}

	stored := h.stored(t)
	if stored.Status != domain.OrderStatusConfirmed || stored.PaymentStatus != domain.PaymentStatusCaptured {
		t.Fatalf("unexpected stored order: status=%s payment=%s", stored.Status, stored.PaymentStatus)
	}
	reserve, release, confirm := h.seats.Calls()
	if reserve != 1 || release != 0 || confirm != 1 {
		t.Fatalf("unexpected seat calls: reserve=%d release=%d confirm=%d", reserve, release, confirm)
	}

	events, _ := h.timeline.List("order-1")
	if len(events) != 3 {
		t.Fatalf("expected reserved, paid, confirmed in timeline, got %d", len(events))
	}
	if len(h.outbox.AllPending()) != 3 {
		t.Fatalf("expected 3 outbox messages, got %d", len(h.outbox.AllPending()))
	}
}

func TestOrchestrator_GoodsSkipReserve(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusPending, domain.PaymentMethodUPI)

	order, err := h.orch.Start("order-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", order.Status)
	}
	if reserve, _, confirm := h.seats.Calls(); reserve != 0 || confirm != 0 {
		t.Fatalf("goods must not touch seats: reserve=%d confirm=%d", reserve, confirm)
	}
}

func TestOrchestrator_CODConfirmsWithPendingPayment(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusPending, domain.PaymentMethodCOD)

	if _, err := h.orch.Start("order-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	stored := h.stored(t)
	if stored.Status != domain.OrderStatusConfirmed || stored.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("unexpected COD order: status=%s payment=%s", stored.Status, stored.PaymentStatus)
	}
}

func TestOrchestrator_ReserveFailureCancels(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindTicket, domain.OrderStatusPending, domain.PaymentMethodCard)
	h.seats.ReserveErr = domain.ErrSeatsUnavailable

	_, err := h.orch.Start("order-1")
	if !errors.Is(err, domain.ErrSeatsUnavailable) {
		t.Fatalf("expected ErrSeatsUnavailable, got %v", err)
	}
	if stored := h.stored(t); stored.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", stored.Status)
	}
	if pay, _, _ := h.payments.Calls(); pay != 0 {
		t.Fatalf("payment must not be attempted, got %d calls", pay)
	}
}

func TestOrchestrator_TemporaryReserveKeepsPending(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindTicket, domain.OrderStatusPending, domain.PaymentMethodCard)
	h.seats.ReserveErr = domain.ErrSeatsTemporary

	_, err := h.orch.Start("order-1")
	if !errors.Is(err, domain.ErrSeatsTemporary) {
		t.Fatalf("expected ErrSeatsTemporary, got %v", err)
	}
	if stored := h.stored(t); stored.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", stored.Status)
	}
}

func TestOrchestrator_PaymentFailureReleasesSeats(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindTicket, domain.OrderStatusPending, domain.PaymentMethodCard)
	h.payments.PayErr = domain.ErrPaymentDeclined

	_, err := h.orch.Start("order-1")
	if !errors.Is(err, domain.ErrPaymentDeclined) {
		t.Fatalf("expected ErrPaymentDeclined, got %v", err)
	}
	if stored := h.stored(t); stored.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", stored.Status)
	}
	if _, release, _ := h.seats.Calls(); release != 1 {
		t.Fatalf("expected seats released once, got %d", release)
	}
}

func TestOrchestrator_ConfirmFailureRefunds(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindTicket, domain.OrderStatusPending, domain.PaymentMethodCard)
	h.seats.ConfirmErr = domain.ErrEventNotOpen

	_, err := h.orch.Start("order-1")
	if !errors.Is(err, domain.ErrEventNotOpen) {
		t.Fatalf("expected confirm error, got %v", err)
	}
	stored := h.stored(t)
	if stored.Status != domain.OrderStatusCanceled || stored.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("unexpected order: status=%s payment=%s", stored.Status, stored.PaymentStatus)
	}
	if _, refund, _ := h.payments.Calls(); refund != 1 {
		t.Fatalf("expected compensating refund, got %d", refund)
	}
}

func TestOrchestrator_StartIsIdempotentForConfirmed(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusConfirmed, domain.PaymentMethodCard)

	order, err := h.orch.Start("order-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", order.Status)
	}
	if pay, _, _ := h.payments.Calls(); pay != 0 {
		t.Fatalf("expected no payment calls, got %d", pay)
	}
}

func TestOrchestrator_StartUnknownOrder(t *testing.T) {
	h := newHarness(t)
	if _, err := h.orch.Start("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrchestrator_CancelReservedReleasesSeatsAndCoupon(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindTicket, domain.OrderStatusReserved, domain.PaymentMethodCard)
	if err := h.coupons.Create(domain.Coupon{BusinessID: "biz-1", Code: "SAVE10", Kind: domain.CouponKindFlat, Value: 10, UsedCount: 1}); err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	stored := h.stored(t)
	stored.CouponCode = "SAVE10"
	if err := h.orders.Save(stored); err != nil {
		t.Fatalf("save: %v", err)
	}

	result, err := h.orch.Cancel("order-1", domain.Actor{UserID: "customer-1", Role: domain.RoleUser}, "changed my mind")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", result.Status)
	}
	if _, release, _ := h.seats.Calls(); release != 1 {
		t.Fatalf("expected release, got %d", release)
	}
	coupon, _ := h.coupons.Get("biz-1", "SAVE10")
	if coupon.UsedCount != 0 {
		t.Fatalf("expected coupon released, used=%d", coupon.UsedCount)
	}
}

func TestOrchestrator_CancelPaidRefunds(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusPaid, domain.PaymentMethodCard)
	stored := h.stored(t)
	stored.PaymentStatus = domain.PaymentStatusCaptured
	if err := h.orders.Save(stored); err != nil {
		t.Fatalf("save: %v", err)
	}

	result, err := h.orch.Cancel("order-1", domain.Actor{UserID: "owner", Role: domain.RoleBusiness}, "out of stock")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("expected refunded payment, got %s", result.PaymentStatus)
	}
	if _, refund, _ := h.payments.Calls(); refund != 1 {
		t.Fatalf("expected one refund, got %d", refund)
	}
}

func TestOrchestrator_CancelConfirmedTicketRevokes(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindTicket, domain.OrderStatusConfirmed, domain.PaymentMethodCard)

	if _, err := h.orch.Cancel("order-1", domain.Actor{UserID: "customer-1", Role: domain.RoleUser}, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if h.seats.RevokeCalls != 1 {
		t.Fatalf("expected revoke, got %d", h.seats.RevokeCalls)
	}
}

func TestOrchestrator_CancelIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusCanceled, domain.PaymentMethodCard)

	result, err := h.orch.Cancel("order-1", domain.Actor{UserID: "customer-1", Role: domain.RoleUser}, "")
	if err != nil || result.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected idempotent cancel, got status=%s err=%v", result.Status, err)
	}
	if events, _ := h.timeline.List("order-1"); len(events) != 0 {
		t.Fatalf("expected no timeline events, got %d", len(events))
	}
}

func TestOrchestrator_CancelForbiddenAfterDelivery(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusOutForDelivery, domain.PaymentMethodCard)

	_, err := h.orch.Cancel("order-1", domain.Actor{UserID: "customer-1", Role: domain.RoleUser}, "")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestOrchestrator_CancelRefundFailureKeepsStatus(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusConfirmed, domain.PaymentMethodCard)
	stored := h.stored(t)
	stored.PaymentStatus = domain.PaymentStatusCaptured
	if err := h.orders.Save(stored); err != nil {
		t.Fatalf("save: %v", err)
	}
	h.payments.RefundErr = domain.ErrPaymentTemporary

	_, err := h.orch.Cancel("order-1", domain.Actor{UserID: "customer-1", Role: domain.RoleUser}, "")
	if !errors.Is(err, domain.ErrPaymentTemporary) {
		t.Fatalf("expected ErrPaymentTemporary, got %v", err)
	}
	if got := h.stored(t).Status; got != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", got)
	}
}

func TestOrchestrator_CancelDuringPaymentRefundsCharge(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindTicket, domain.OrderStatusPending, domain.PaymentMethodCard)

	customer := domain.Actor{UserID: "customer-1", Role: domain.RoleUser}
	h.payments.OnPay = func(orderID string) {
		if _, err := h.orch.Cancel(orderID, customer, "changed my mind"); err != nil {
			t.Errorf("cancel during payment: %v", err)
		}
	}

	_, err := h.orch.Start("order-1")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	stored := h.stored(t)
	if stored.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", stored.Status)
	}
	if stored.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("expected charge refunded, got payment %s", stored.PaymentStatus)
	}
	if pay, refund, _ := h.payments.Calls(); pay != 1 || refund != 1 {
		t.Fatalf("unexpected payment calls: pay=%d refund=%d", pay, refund)
	}
	if _, _, confirm := h.seats.Calls(); confirm != 0 {
		t.Fatalf("seats must not be confirmed, got %d", confirm)
	}
}

func TestOrchestrator_CancelConfirmedTicketKeepsSeatsWhenRefundFails(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindTicket, domain.OrderStatusConfirmed, domain.PaymentMethodCard)
	stored := h.stored(t)
	stored.PaymentStatus = domain.PaymentStatusCaptured
	if err := h.orders.Save(stored); err != nil {
		t.Fatalf("save: %v", err)
	}
	h.payments.RefundErr = domain.ErrPaymentTemporary

	_, err := h.orch.Cancel("order-1", domain.Actor{UserID: "customer-1", Role: domain.RoleUser}, "")
	if !errors.Is(err, domain.ErrPaymentTemporary) {
		t.Fatalf("expected ErrPaymentTemporary, got %v", err)
	}
	if h.seats.RevokeCalls != 0 {
		t.Fatalf("tickets revoked although refund failed: %d", h.seats.RevokeCalls)
	}
	if got := h.stored(t); got.Status != domain.OrderStatusConfirmed || got.PaymentStatus != domain.PaymentStatusCaptured {
		t.Fatalf("unexpected order: status=%s payment=%s", got.Status, got.PaymentStatus)
	}

	h.payments.RefundErr = nil
	if _, err := h.orch.Cancel("order-1", domain.Actor{UserID: "customer-1", Role: domain.RoleUser}, ""); err != nil {
		t.Fatalf("retry cancel: %v", err)
	}
	if h.seats.RevokeCalls != 1 {
		t.Fatalf("expected revoke after successful refund, got %d", h.seats.RevokeCalls)
	}
}

func TestOrchestrator_RejectPaidGoodsRefunds(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusConfirmed, domain.PaymentMethodWallet)
	stored := h.stored(t)
	stored.PaymentStatus = domain.PaymentStatusCaptured
	if err := h.orders.Save(stored); err != nil {
		t.Fatalf("save: %v", err)
	}

	result, err := h.orch.Reject("order-1", domain.Actor{UserID: "owner", Role: domain.RoleBusiness}, "closed today")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if result.Status != domain.OrderStatusRejected || result.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("unexpected order: status=%s payment=%s", result.Status, result.PaymentStatus)
	}

	_, err = h.orch.Reject("order-1", domain.Actor{UserID: "customer-1", Role: domain.RoleUser}, "")
	if err != nil {
		t.Fatalf("second reject must be a no-op, got %v", err)
	}
}

func TestOrchestrator_RejectForbiddenForCustomer(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusConfirmed, domain.PaymentMethodCard)

	_, err := h.orch.Reject("order-1", domain.Actor{UserID: "customer-1", Role: domain.RoleUser}, "")
	if !errors.Is(err, domain.ErrForbiddenTransition) {
		t.Fatalf("expected ErrForbiddenTransition, got %v", err)
	}
}

func TestOrchestrator_RefundConfirmed(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindTicket, domain.OrderStatusConfirmed, domain.PaymentMethodCard)
	stored := h.stored(t)
	stored.PaymentStatus = domain.PaymentStatusCaptured
	if err := h.orders.Save(stored); err != nil {
		t.Fatalf("save: %v", err)
	}

	result, err := h.orch.Refund("order-1", domain.Actor{UserID: "owner", Role: domain.RoleBusiness}, "event moved")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if result.Status != domain.OrderStatusRefunded || result.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("unexpected order: status=%s payment=%s", result.Status, result.PaymentStatus)
	}
	if h.seats.RevokeCalls != 1 {
		t.Fatalf("expected registrations revoked, got %d", h.seats.RevokeCalls)
	}

	again, err := h.orch.Refund("order-1", domain.Actor{UserID: "owner", Role: domain.RoleBusiness}, "")
	if err != nil || again.Status != domain.OrderStatusRefunded {
		t.Fatalf("expected idempotent refund, got status=%s err=%v", again.Status, err)
	}
	if _, refund, _ := h.payments.Calls(); refund != 1 {
		t.Fatalf("expected one refund call, got %d", refund)
	}
}

func TestOrchestrator_RefundRequiresCollectedPayment(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusConfirmed, domain.PaymentMethodCOD)

	_, err := h.orch.Refund("order-1", domain.SystemActor(), "")
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestOrchestrator_RefundForbiddenForCustomer(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusConfirmed, domain.PaymentMethodCard)

	_, err := h.orch.Refund("order-1", domain.Actor{UserID: "customer-1", Role: domain.RoleUser}, "")
	if !errors.Is(err, domain.ErrForbiddenTransition) {
		t.Fatalf("expected ErrForbiddenTransition, got %v", err)
	}
}

func TestOrchestrator_RefundUnexpectedStatus(t *testing.T) {
	h := newHarness(t)
	h.seed(t, domain.OrderKindGoods, domain.OrderStatusConfirmed, domain.PaymentMethodCard)
	stored := h.stored(t)
	stored.PaymentStatus = domain.PaymentStatusCaptured
	if err := h.orders.Save(stored); err != nil {
		t.Fatalf("save: %v", err)
	}
	h.payments.RefundStatus = domain.PaymentStatusPending

	_, err := h.orch.Refund("order-1", domain.SystemActor(), "")
	if !errors.Is(err, domain.ErrPaymentIndeterminate) {
		t.Fatalf("expected ErrPaymentIndeterminate, got %v", err)
	}
}

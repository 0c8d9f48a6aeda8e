// Package payment содержит платёжный шлюз, который фиксирует платежи в хранилище
// без обращения к внешнему провайдеру.
package payment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// ProviderSimulated попадает в записи платежей как имя провайдера.
const ProviderSimulated = "simulated"

// Gateway — сквозной платёжный шлюз: карта, UPI и кошелёк списываются сразу,
// наличные (COD) остаются pending до вручения заказа.
type Gateway struct {
	payments domain.PaymentRepository
	clock    clock.Clock
	logger   *log.Entry
}

// NewGateway создаёт шлюз, сохраняющий платежи в payments.
func NewGateway(payments domain.PaymentRepository, clk clock.Clock, logger *log.Entry) *Gateway {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = log.WithField("component", "payment-gateway")
	}
	return &Gateway{payments: payments, clock: clk, logger: logger}
}

// Pay списывает сумму. Повторный вызов для уже оплаченной ссылки возвращает текущий статус.
func (g *Gateway) Pay(orderID string, method domain.PaymentMethod, amountMinor int64, currency string) (domain.PaymentStatus, error) {
	existing, err := g.payments.GetByOrder(orderID)
	switch {
	case err == nil && existing.Status != domain.PaymentStatusFailed:
		return existing.Status, nil
	case err != nil && !errors.Is(err, domain.ErrPaymentNotFound):
		return domain.PaymentStatusFailed, fmt.Errorf("%w: %v", domain.ErrPaymentTemporary, err)
	}

	status := domain.PaymentStatusCaptured
	if method == domain.PaymentMethodCOD {
		status = domain.PaymentStatusPending
	}

	now := g.clock.Now()
	payment := domain.Payment{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Provider:    ProviderSimulated,
		Method:      method,
		ExternalID:  "sim_" + uuid.NewString(),
		Status:      status,
		AmountMinor: amountMinor,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errs := payment.Validate(); len(errs) > 0 {
		return domain.PaymentStatusFailed, errors.Join(errs...)
	}
	if err := g.payments.Upsert(payment); err != nil {
		return domain.PaymentStatusFailed, fmt.Errorf("%w: %v", domain.ErrPaymentTemporary, err)
	}

	g.logger.WithFields(log.Fields{
		"order_id": orderID,
		"method":   method,
		"status":   status,
	}).Info("payment recorded")
	return status, nil
}

// Refund возвращает деньги по списанному платежу.
func (g *Gateway) Refund(orderID string, amountMinor int64, currency string) (domain.PaymentStatus, error) {
	payment, err := g.payments.GetByOrder(orderID)
	if err != nil {
		return domain.PaymentStatusFailed, err
	}

	switch payment.Status {
	case domain.PaymentStatusRefunded:
		return payment.Status, nil
	case domain.PaymentStatusCaptured, domain.PaymentStatusAuthorized:
	default:
		return payment.Status, domain.ErrPaymentIndeterminate
	}

	payment.Status = domain.PaymentStatusRefunded
	payment.UpdatedAt = g.clock.Now()
	if err := g.payments.Upsert(payment); err != nil {
		return domain.PaymentStatusFailed, fmt.Errorf("%w: %v", domain.ErrPaymentTemporary, err)
	}

	g.logger.WithFields(log.Fields{
		"order_id":     orderID,
		"amount_minor": amountMinor,
	}).Info("payment refunded")
	return payment.Status, nil
}

// Capture фиксирует получение наличных по COD-платежу.
func (g *Gateway) Capture(orderID string) (domain.PaymentStatus, error) {
	payment, err := g.payments.GetByOrder(orderID)
	if err != nil {
		return domain.PaymentStatusFailed, err
	}
	if payment.Status == domain.PaymentStatusCaptured {
		return payment.Status, nil
	}
	if payment.Status != domain.PaymentStatusPending && payment.Status != domain.PaymentStatusAuthorized {
		return payment.Status, domain.ErrPaymentIndeterminate
	}

	payment.Status = domain.PaymentStatusCaptured
	payment.UpdatedAt = g.clock.Now()
	if err := g.payments.Upsert(payment); err != nil {
		return domain.PaymentStatusFailed, fmt.Errorf("%w: %v", domain.ErrPaymentTemporary, err)
	}
	return payment.Status, nil
}

var _ domain.PaymentService = (*Gateway)(nil)

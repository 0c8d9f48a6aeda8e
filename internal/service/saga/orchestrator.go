package saga

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
	"github.com/vladislavdragonenkov/eventhub/internal/service/orderstatus"
)

// Orchestrator описывает интерфейс управления сагой оформления заказа.
type Orchestrator interface {
	// Start проводит заказ по шагам Reserve → Pay → Confirm. Идемпотентен относительно конечных статусов.
	Start(orderID string) (domain.Order, error)
	// Cancel отменяет заказ с компенсациями: снятие резерва, возврат денег, возврат купона.
	Cancel(orderID string, actor domain.Actor, reason string) (domain.Order, error)
	// Reject отклоняет заказ от имени бизнеса с теми же компенсациями, что и Cancel.
	Reject(orderID string, actor domain.Actor, reason string) (domain.Order, error)
	// Refund возвращает деньги и переводит заказ в refunded.
	Refund(orderID string, actor domain.Actor, reason string) (domain.Order, error)
}

// Dependencies перечисляет зависимости оркестратора.
type Dependencies struct {
	Orders   domain.OrderRepository
	Coupons  domain.CouponRepository
	Seats    domain.SeatReserver
	Payments domain.PaymentService
	Status   *orderstatus.Updater
	// Metrics может быть nil (тесты).
	Metrics *metrics.SagaMetrics
	Logger  *log.Entry
}

// orchestrator реализует последовательность шагов саги: Reserve → Pay → Confirm.
type orchestrator struct {
	orders   domain.OrderRepository
	coupons  domain.CouponRepository
	seats    domain.SeatReserver
	payments domain.PaymentService
	status   *orderstatus.Updater
	logger   *log.Entry
	metrics  *metrics.SagaMetrics
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(deps Dependencies) Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "saga")
	}
	return &orchestrator{
		orders:   deps.Orders,
		coupons:  deps.Coupons,
		seats:    deps.Seats,
		payments: deps.Payments,
		status:   deps.Status,
		logger:   logger,
		metrics:  deps.Metrics,
	}
}

func (o *orchestrator) Start(orderID string) (domain.Order, error) {
	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordSagaStarted()
		defer func() { o.metrics.RecordSagaFinished(time.Since(start)) }()
	}

	order, err := o.orders.Get(orderID)
	if err != nil {
		o.logger.WithError(err).WithField("order_id", orderID).Warn("order not found for saga")
		o.recordFailed(domain.SagaStepReserve)
		return domain.Order{}, err
	}

	switch order.Status {
	case domain.OrderStatusPending:
		if err := o.handleReserve(&order); err != nil {
			return order, err
		}
		fallthrough
	case domain.OrderStatusReserved:
		if err := o.handlePayment(&order); err != nil {
			return order, err
		}
		fallthrough
	case domain.OrderStatusPaid:
		if err := o.handleConfirm(&order); err != nil {
			return order, err
		}
	default:
		o.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   order.Status,
		}).Debug("order already processed, skipping saga")
	}
	return order, nil
}

func (o *orchestrator) handleReserve(order *domain.Order) error {
	defer o.observeStep(domain.SagaStepReserve, time.Now())

	if order.Kind != domain.OrderKindTicket {
		return nil
	}
	if err := o.seats.Reserve(order.ID, order.Items); err != nil {
		if isTemporary(err) {
			o.logger.WithError(err).WithField("order_id", order.ID).Warn("reserve failed temporarily")
			return err
		}
		o.logger.WithError(err).WithField("order_id", order.ID).Warn("reserve failed")
		return o.failOrder(order, domain.SagaStepReserve, err)
	}
	_, err := o.status.Apply(order, orderstatus.Change{
		To:    domain.OrderStatusReserved,
		Actor: domain.SystemActor(),
	})
	if err != nil {
		o.releaseSeats(order)
		return err
	}
	return nil
}

func (o *orchestrator) handlePayment(order *domain.Order) error {
	defer o.observeStep(domain.SagaStepPay, time.Now())

	status, err := o.payments.Pay(order.ID, order.PaymentMethod, order.AmountMinor, order.Currency)
	if err != nil {
		if isTemporary(err) {
			o.logger.WithError(err).WithField("order_id", order.ID).Warn("payment failed temporarily")
			return err
		}
		o.logger.WithError(err).WithField("order_id", order.ID).Warn("payment failed")
		o.releaseSeats(order)
		return o.failOrder(order, domain.SagaStepPay, err)
	}

	if order.IsCOD() {
		// Наличные принимает курьер: заказ идёт сразу на подтверждение.
		order.PaymentStatus = status
		return nil
	}

	if status != domain.PaymentStatusCaptured && status != domain.PaymentStatusAuthorized {
		o.logger.WithField("status", status).WithField("order_id", order.ID).Warn("unexpected payment status")
		o.releaseSeats(order)
		return o.failOrder(order, domain.SagaStepPay, domain.ErrPaymentIndeterminate)
	}

	_, err = o.status.Apply(order, orderstatus.Change{
		To:    domain.OrderStatusPaid,
		Actor: domain.SystemActor(),
		Mutate: func(ord *domain.Order) error {
			ord.PaymentStatus = status
			return nil
		},
	})
	if err != nil && !isTemporary(err) {
		// Заказ закрыли, пока шло списание: деньги возвращаются, статус заказа не трогаем.
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"status":   order.Status,
		}).Warn("order changed during payment, refunding charge")
		o.recordFailed(domain.SagaStepPay)
		o.refundCharge(order, status)
	}
	return err
}

func (o *orchestrator) handleConfirm(order *domain.Order) error {
	defer o.observeStep(domain.SagaStepConfirm, time.Now())

	if order.Kind == domain.OrderKindTicket {
		if err := o.seats.Confirm(order.ID, order.CustomerID); err != nil {
			if isTemporary(err) {
				return err
			}
			o.logger.WithError(err).WithField("order_id", order.ID).Error("confirm seats failed")
			o.refundPayment(order)
			o.releaseSeats(order)
			return o.failOrder(order, domain.SagaStepConfirm, err)
		}
	}

	paymentStatus := order.PaymentStatus
	_, err := o.status.Apply(order, orderstatus.Change{
		To:    domain.OrderStatusConfirmed,
		Actor: domain.SystemActor(),
		Mutate: func(ord *domain.Order) error {
			if paymentStatus != "" {
				ord.PaymentStatus = paymentStatus
			}
			return nil
		},
	})
	if err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Error("confirm failed")
		o.recordFailed(domain.SagaStepConfirm)
		return err
	}

	o.logger.WithField("order_id", order.ID).Info("saga completed successfully")
	if o.metrics != nil {
		o.metrics.RecordSagaCompleted()
	}
	return nil
}

func (o *orchestrator) Cancel(orderID string, actor domain.Actor, reason string) (domain.Order, error) {
	return o.terminate(orderID, domain.OrderStatusCanceled, actor, reason)
}

func (o *orchestrator) Reject(orderID string, actor domain.Actor, reason string) (domain.Order, error) {
	return o.terminate(orderID, domain.OrderStatusRejected, actor, reason)
}

// terminate закрывает заказ статусом to: снимает места, возвращает деньги или купон.
func (o *orchestrator) terminate(orderID string, to domain.OrderStatus, actor domain.Actor, reason string) (domain.Order, error) {
	order, err := o.orders.Get(orderID)
	if err != nil {
		o.logger.WithError(err).WithField("order_id", orderID).Warn("order not found for cancel")
		return domain.Order{}, err
	}
	if order.Status == to {
		o.logger.WithField("order_id", order.ID).Debugf("order already %s", to)
		return order, nil
	}
	if err := domain.CanTransition(order.Status, to, actor.Role); err != nil {
		return order, err
	}

	// Деньги возвращаются до снятия мест: при отказе возврата заказ и билеты остаются как были.
	paid := isCollected(order.PaymentStatus)
	paymentStatus := order.PaymentStatus
	if paid {
		status, err := o.payments.Refund(order.ID, order.AmountMinor, order.Currency)
		if err != nil {
			o.logger.WithError(err).WithField("order_id", order.ID).Warn("refund during cancel failed")
			o.recordFailed(domain.SagaStepRefund)
			return order, err
		}
		paymentStatus = status
	}

	if order.Kind == domain.OrderKindTicket {
		if order.Status == domain.OrderStatusConfirmed {
			if err := o.seats.Revoke(order.ID, order.CustomerID); err != nil {
				o.logger.WithError(err).WithField("order_id", order.ID).Warn("revoke registrations failed")
			}
		} else {
			o.releaseSeats(&order)
		}
	}
	if !paid {
		o.releaseCoupon(&order)
	}

	_, err = o.status.Apply(&order, orderstatus.Change{
		To:     to,
		Actor:  actor,
		Reason: reason,
		Mutate: func(ord *domain.Order) error {
			ord.PaymentStatus = paymentStatus
			return nil
		},
	})
	if err != nil {
		return order, err
	}
	if o.metrics != nil {
		o.metrics.RecordSagaCanceled()
	}
	return order, nil
}

func (o *orchestrator) Refund(orderID string, actor domain.Actor, reason string) (domain.Order, error) {
	order, err := o.orders.Get(orderID)
	if err != nil {
		o.logger.WithError(err).WithField("order_id", orderID).Warn("order not found for refund")
		return domain.Order{}, err
	}
	if order.Status == domain.OrderStatusRefunded {
		o.logger.WithField("order_id", order.ID).Debug("order already refunded")
		return order, nil
	}
	if err := domain.CanTransition(order.Status, domain.OrderStatusRefunded, actor.Role); err != nil {
		return order, err
	}
	if !isCollected(order.PaymentStatus) {
		o.logger.WithFields(log.Fields{
			"order_id":       order.ID,
			"payment_status": order.PaymentStatus,
		}).Warn("refund skipped for order without collected payment")
		return order, fmt.Errorf("refund order %s: %w", order.ID, domain.ErrPaymentNotFound)
	}

	status, err := o.payments.Refund(order.ID, order.AmountMinor, order.Currency)
	if err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Warn("refund failed")
		o.recordFailed(domain.SagaStepRefund)
		return order, err
	}
	if status != domain.PaymentStatusRefunded {
		o.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   status,
		}).Warn("unexpected refund status")
		return order, domain.ErrPaymentIndeterminate
	}

	if order.Kind == domain.OrderKindTicket {
		if order.Status == domain.OrderStatusPaid {
			o.releaseSeats(&order)
		} else if err := o.seats.Revoke(order.ID, order.CustomerID); err != nil {
			o.logger.WithError(err).WithField("order_id", order.ID).Warn("revoke registrations failed")
		}
	}

	_, err = o.status.Apply(&order, orderstatus.Change{
		To:     domain.OrderStatusRefunded,
		Actor:  actor,
		Reason: reason,
		Mutate: func(ord *domain.Order) error {
			ord.PaymentStatus = domain.PaymentStatusRefunded
			return nil
		},
	})
	if err != nil {
		return order, err
	}
	if o.metrics != nil {
		o.metrics.RecordSagaRefunded()
	}
	return order, nil
}

// failOrder отменяет заказ от имени системы и возвращает исходную ошибку шага.
func (o *orchestrator) failOrder(order *domain.Order, step domain.SagaStep, rootErr error) error {
	o.recordFailed(step)
	o.releaseCoupon(order)

	paymentStatus := order.PaymentStatus
	_, err := o.status.Apply(order, orderstatus.Change{
		To:     domain.OrderStatusCanceled,
		Actor:  domain.SystemActor(),
		Reason: rootErr.Error(),
		Mutate: func(ord *domain.Order) error {
			ord.PaymentStatus = paymentStatus
			return nil
		},
	})
	if err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Error("failed to cancel order after saga failure")
	}
	return rootErr
}

func (o *orchestrator) releaseSeats(order *domain.Order) {
	if order.Kind != domain.OrderKindTicket {
		return
	}
	if err := o.seats.Release(order.ID); err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Warn("release failed")
	}
}

func (o *orchestrator) refundPayment(order *domain.Order) {
	if !isCollected(order.PaymentStatus) {
		return
	}
	status, err := o.payments.Refund(order.ID, order.AmountMinor, order.Currency)
	if err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Error("compensating refund failed")
		return
	}
	order.PaymentStatus = status
}

// refundCharge возвращает списание, которое не удалось закрепить за заказом,
// и сохраняет итоговый статус платежа без смены статуса заказа.
func (o *orchestrator) refundCharge(order *domain.Order, charged domain.PaymentStatus) {
	if !isCollected(charged) {
		return
	}
	status, err := o.payments.Refund(order.ID, order.AmountMinor, order.Currency)
	if err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Error("refund of orphaned charge failed")
		o.recordFailed(domain.SagaStepRefund)
		return
	}
	_, err = o.status.Apply(order, orderstatus.Change{
		Actor: domain.SystemActor(),
		Mutate: func(ord *domain.Order) error {
			ord.PaymentStatus = status
			return nil
		},
	})
	if err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to record refund of orphaned charge")
	}
}

func (o *orchestrator) releaseCoupon(order *domain.Order) {
	if order.CouponCode == "" || o.coupons == nil {
		return
	}
	if err := o.coupons.Release(order.BusinessID, order.CouponCode); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"coupon":   order.CouponCode,
		}).Warn("coupon release failed")
	}
}

func (o *orchestrator) observeStep(step domain.SagaStep, started time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStepDuration(string(step), time.Since(started))
	}
}

func (o *orchestrator) recordFailed(step domain.SagaStep) {
	if o.metrics != nil {
		o.metrics.RecordSagaFailed(string(step))
	}
}

// isCollected сообщает, что деньги по заказу получены и их нужно возвращать при отмене.
func isCollected(status domain.PaymentStatus) bool {
	return status == domain.PaymentStatusCaptured || status == domain.PaymentStatusAuthorized
}

// isTemporary распознаёт ошибки, после которых заказ остаётся в текущем статусе и шаг можно повторить.
func isTemporary(err error) bool {
	return errors.Is(err, domain.ErrSeatsTemporary) ||
		errors.Is(err, domain.ErrPaymentTemporary) ||
		errors.Is(err, domain.ErrVersionConflict)
}

var _ Orchestrator = (*orchestrator)(nil)

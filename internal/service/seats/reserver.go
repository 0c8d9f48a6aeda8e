// Package seats связывает сагу оформления заказа с учётом мест на мероприятиях.
package seats

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// Reserver реализует domain.SeatReserver поверх RegistrationRepository.
type Reserver struct {
	regs   domain.RegistrationRepository
	clock  clock.Clock
	logger *log.Entry
}

// NewReserver создаёт адаптер резервирования мест.
func NewReserver(regs domain.RegistrationRepository, clk clock.Clock, logger *log.Entry) *Reserver {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = log.WithField("component", "seats")
	}
	return &Reserver{regs: regs, clock: clk, logger: logger}
}

// Reserve удерживает места по билетным позициям. Товарные позиции пропускаются.
func (r *Reserver) Reserve(orderID string, items []domain.OrderItem) error {
	seats := domain.SeatsByEvent(items)
	if len(seats) == 0 {
		return nil
	}
	if err := r.regs.ReserveSeats(orderID, seats, r.clock.Now()); err != nil {
		return fmt.Errorf("reserve seats for order %s: %w", orderID, err)
	}
	r.logger.WithFields(log.Fields{
		"order_id": orderID,
		"events":   len(seats),
	}).Debug("seats reserved")
	return nil
}

// Release снимает резерв заказа.
func (r *Reserver) Release(orderID string) error {
	if err := r.regs.ReleaseSeats(orderID, r.clock.Now()); err != nil {
		return fmt.Errorf("release seats for order %s: %w", orderID, err)
	}
	return nil
}

// Confirm превращает резерв в регистрации покупателя.
func (r *Reserver) Confirm(orderID, customerID string) error {
	regs, err := r.regs.ConfirmSeats(orderID, customerID, r.clock.Now())
	if err != nil {
		return fmt.Errorf("confirm seats for order %s: %w", orderID, err)
	}
	r.logger.WithFields(log.Fields{
		"order_id":      orderID,
		"user_id":       customerID,
		"registrations": len(regs),
	}).Debug("seats confirmed")
	return nil
}

// Revoke возвращает места заказа. Повторный вызов ничего не меняет.
func (r *Reserver) Revoke(orderID, customerID string) error {
	regs, err := r.regs.RevokeSeats(orderID, customerID, r.clock.Now())
	if err != nil {
		return fmt.Errorf("revoke seats for order %s: %w", orderID, err)
	}
	r.logger.WithFields(log.Fields{
		"order_id":      orderID,
		"user_id":       customerID,
		"registrations": len(regs),
	}).Debug("seats revoked")
	return nil
}

var _ domain.SeatReserver = (*Reserver)(nil)

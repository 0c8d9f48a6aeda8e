package domain

import "time"

// ReservationStatus отражает статус удержания мест под заказ.
type ReservationStatus string

const (
	// ReservationStatusReserved — места удерживаются под заказ.
	ReservationStatusReserved ReservationStatus = "reserved"
	// ReservationStatusConfirmed — резерв превращён в регистрацию.
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	// ReservationStatusReleased — резерв снят (например, при отмене заказа).
	ReservationStatusReleased ReservationStatus = "released"
	// ReservationStatusRevoked означает, что выданные по заказу места возвращены.
	ReservationStatusRevoked ReservationStatus = "revoked"
)

// SeatReservation описывает удержание мест мероприятия под конкретный заказ.
type SeatReservation struct {
	OrderID   string
	EventID   string
	Qty       int32
	Status    ReservationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет, корректно ли заполнены ключевые поля резервирования.
func (r *SeatReservation) Validate() []error {
	var errs []error

	if r.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if r.EventID == "" {
		errs = append(errs, ErrReservationEventRequired)
	}
	if r.Qty <= 0 {
		errs = append(errs, ErrReservationQtyInvalid)
	}

	return errs
}

// SeatsByEvent группирует билетные позиции заказа по мероприятиям.
func SeatsByEvent(items []OrderItem) map[string]int32 {
	result := make(map[string]int32)
	for _, item := range items {
		if item.EventID == "" {
			continue
		}
		result[item.EventID] += item.Qty
	}
	return result
}

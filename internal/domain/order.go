package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, но резервирование и оплата ещё не выполнены.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusReserved — места на мероприятиях зарезервированы.
	OrderStatusReserved OrderStatus = "reserved"
	// OrderStatusPaid — оплата подтверждена платёжным провайдером.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusConfirmed — заказ финализирован; товарный ждёт бизнес, билетный выдан.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPreparing: бизнес собирает заказ.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusReady: заказ готов к передаче курьеру.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusOutForDelivery: курьер везёт заказ.
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	// OrderStatusDelivered: заказ вручён клиенту.
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusRejected — бизнес отказался выполнять заказ.
	OrderStatusRejected OrderStatus = "rejected"
	// OrderStatusCanceled — заказ отменён до завершения цикла.
	OrderStatusCanceled OrderStatus = "canceled"
	// OrderStatusRefunded — деньги по заказу возвращены клиенту.
	OrderStatusRefunded OrderStatus = "refunded"
)

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// OrderKind различает билетные и товарные заказы.
type OrderKind string

const (
	OrderKindTicket OrderKind = "ticket"
	OrderKindGoods  OrderKind = "goods"
)

// Valid проверяет вид заказа.
func (k OrderKind) Valid() bool {
	return k == OrderKindTicket || k == OrderKindGoods
}

// PaymentMethod задаёт способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodWallet PaymentMethod = "wallet"
	// PaymentMethodCOD означает оплату наличными курьеру с подтверждением по OTP.
	PaymentMethodCOD PaymentMethod = "cod"
)

// Valid проверяет способ оплаты.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodWallet, PaymentMethodCOD:
		return true
	default:
		return false
	}
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID  string
	SKU string
	// EventID заполнен для билетов.
	EventID    string
	Title      string
	Qty        int32
	PriceMinor int64
	CreatedAt  time.Time
}

// Delivery хранит данные доставки товарного заказа.
type Delivery struct {
	Address     string
	Location    GeoPoint
	Pickup      GeoPoint
	DistanceKm  float64
	PartnerID   string
	AssignedAt  time.Time
	DeliveredAt time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID               string
	CustomerID       string
	BusinessID       string
	Kind             OrderKind
	Status           OrderStatus
	Currency         string
	SubtotalMinor    int64
	DiscountMinor    int64
	DeliveryFeeMinor int64
	AmountMinor      int64
	CouponCode       string
	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	Delivery         Delivery
	Items            []OrderItem
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ItemsSubtotal возвращает сумму qty * price по позициям.
func (o *Order) ItemsSubtotal() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += int64(item.Qty) * item.PriceMinor
	}
	return sum
}

// IsCOD сообщает, что заказ оплачивается наличными при получении.
func (o *Order) IsCOD() bool {
	return o.PaymentMethod == PaymentMethodCOD
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.BusinessID == "" {
		errs = append(errs, ErrBusinessRequired)
	}
	if !o.Kind.Valid() {
		errs = append(errs, ErrOrderKindInvalid)
	}
	if !o.PaymentMethod.Valid() {
		errs = append(errs, ErrPaymentMethodInvalid)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if o.Kind == OrderKindTicket && item.EventID == "" {
			errs = append(errs, ErrItemEventRequired)
		}
	}
	if o.Kind == OrderKindGoods && o.Delivery.Address == "" {
		errs = append(errs, ErrDeliveryAddressRequired)
	}

	// Сверяем суммы: subtotal = Σ qty*price, total = subtotal - discount + fee.
	if o.SubtotalMinor != o.ItemsSubtotal() {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.DiscountMinor < 0 || o.DiscountMinor > o.SubtotalMinor {
		errs = append(errs, ErrDiscountInvalid)
	}
	if o.DeliveryFeeMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if o.AmountMinor != o.SubtotalMinor-o.DiscountMinor+o.DeliveryFeeMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

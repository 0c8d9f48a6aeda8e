package domain

import (
	"math"
	"strings"
	"time"
)

// CouponKind задаёт тип скидки.
type CouponKind string

const (
	// CouponKindPercent считает скидку в базисных пунктах (1..10000).
	CouponKindPercent CouponKind = "percent"
	// CouponKindFlat вычитает фиксированную сумму в минимальных единицах.
	CouponKindFlat CouponKind = "flat"
)

const maxBasisPoints = 10000

// Coupon описывает промокод бизнеса.
type Coupon struct {
	BusinessID string
	Code       string
	Kind       CouponKind
	// Value хранит базисные пункты для percent и сумму для flat.
	Value            int64
	MinSubtotalMinor int64
	// MaxDiscountMinor 0 означает скидку без потолка.
	MaxDiscountMinor int64
	ValidFrom        time.Time
	ValidUntil       time.Time
	// UsageLimit 0 означает без ограничений.
	UsageLimit int32
	UsedCount  int32
	CreatedAt  time.Time
}

// NormalizeCouponCode приводит код к каноническому виду.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate проверяет определение купона.
func (c *Coupon) Validate() []error {
	var errs []error

	if c.BusinessID == "" {
		errs = append(errs, ErrBusinessRequired)
	}
	if NormalizeCouponCode(c.Code) == "" {
		errs = append(errs, ErrCouponCodeRequired)
	}
	switch c.Kind {
	case CouponKindPercent:
		if c.Value < 1 || c.Value > maxBasisPoints {
			errs = append(errs, ErrCouponInvalid)
		}
	case CouponKindFlat:
		if c.Value <= 0 {
			errs = append(errs, ErrCouponInvalid)
		}
	default:
		errs = append(errs, ErrCouponInvalid)
	}
	if c.MinSubtotalMinor < 0 || c.MaxDiscountMinor < 0 || c.UsageLimit < 0 {
		errs = append(errs, ErrCouponInvalid)
	}
	if !c.ValidFrom.IsZero() && !c.ValidUntil.IsZero() && !c.ValidUntil.After(c.ValidFrom) {
		errs = append(errs, ErrCouponInvalid)
	}

	return errs
}

// CheckApplicable проверяет окно действия, минимальную сумму и лимит использований.
func (c *Coupon) CheckApplicable(subtotalMinor int64, now time.Time) error {
	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		return ErrCouponNotActive
	}
	if !c.ValidUntil.IsZero() && !now.Before(c.ValidUntil) {
		return ErrCouponExpired
	}
	if subtotalMinor < c.MinSubtotalMinor {
		return ErrCouponMinOrder
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return ErrCouponExhausted
	}
	return nil
}

// Discount считает скидку для subtotal. Процент округляется half-up,
// результат ограничен потолком и самой суммой заказа.
func (c *Coupon) Discount(subtotalMinor int64, now time.Time) (int64, error) {
	if err := c.CheckApplicable(subtotalMinor, now); err != nil {
		return 0, err
	}

	var discount int64
	switch c.Kind {
	case CouponKindPercent:
		discount = percentOf(subtotalMinor, c.Value)
	case CouponKindFlat:
		discount = c.Value
	default:
		return 0, ErrCouponInvalid
	}

	if c.MaxDiscountMinor > 0 && discount > c.MaxDiscountMinor {
		discount = c.MaxDiscountMinor
	}
	if discount > subtotalMinor {
		discount = subtotalMinor
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}

func percentOf(amount, bps int64) int64 {
	// (amount*bps + 5000) / 10000 без переполнения для разумных сумм.
	if amount <= 0 {
		return 0
	}
	if amount > math.MaxInt64/maxBasisPoints {
		whole := amount / maxBasisPoints * bps
		rest := (amount%maxBasisPoints*bps + maxBasisPoints/2) / maxBasisPoints
		return whole + rest
	}
	return (amount*bps + maxBasisPoints/2) / maxBasisPoints
}

const (
	DeliveryBaseFeeMinor int64 = 3000
	// DeliveryPerKmFeeMinor берётся за каждый начатый километр сверх бесплатных.
	DeliveryPerKmFeeMinor int64 = 800
	// DeliveryFreeKm входит в базовую стоимость.
	DeliveryFreeKm = 3.0
)

// DeliveryFee считает стоимость доставки по расстоянию.
func DeliveryFee(distanceKm float64) int64 {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		distanceKm = 0
	}
	extra := distanceKm - DeliveryFreeKm
	if extra <= 0 {
		return DeliveryBaseFeeMinor
	}
	return DeliveryBaseFeeMinor + int64(math.Ceil(extra))*DeliveryPerKmFeeMinor
}

// Quote содержит итоговый расчёт стоимости заказа.
type Quote struct {
	SubtotalMinor    int64
	DiscountMinor    int64
	DeliveryFeeMinor int64
	TotalMinor       int64
	DistanceKm       float64
}

// Apply переносит расчёт на заказ.
func (q Quote) Apply(o *Order) {
	o.SubtotalMinor = q.SubtotalMinor
	o.DiscountMinor = q.DiscountMinor
	o.DeliveryFeeMinor = q.DeliveryFeeMinor
	o.AmountMinor = q.TotalMinor
	o.Delivery.DistanceKm = q.DistanceKm
}

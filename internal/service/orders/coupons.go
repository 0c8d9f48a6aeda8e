package orders

import (
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// CreateCoupon заводит промокод бизнеса. Доступно владельцу бизнеса и администратору.
func (s *Service) CreateCoupon(actor domain.Actor, coupon domain.Coupon) (domain.Coupon, error) {
	if coupon.BusinessID == "" && actor.Role == domain.RoleBusiness {
		coupon.BusinessID = actor.EffectiveBusinessID()
	}
	if !actor.IsAdmin() && !actor.OwnsBusiness(coupon.BusinessID) {
		return domain.Coupon{}, domain.ErrForbidden
	}

	coupon.Code = domain.NormalizeCouponCode(coupon.Code)
	coupon.UsedCount = 0
	coupon.CreatedAt = s.clock.Now()
	if err := domain.ValidationError(coupon.Validate()); err != nil {
		return domain.Coupon{}, err
	}
	if err := s.coupons.Create(coupon); err != nil {
		return domain.Coupon{}, err
	}

	s.logger.WithField("business_id", coupon.BusinessID).WithField("coupon", coupon.Code).Info("coupon created")
	return coupon, nil
}

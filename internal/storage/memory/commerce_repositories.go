package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

type couponRepositoryInMemory struct {
	mu    sync.Mutex
	items map[string]domain.Coupon
}

// NewCouponRepository создаёт in-memory хранилище промокодов.
func NewCouponRepository() domain.CouponRepository {
	return &couponRepositoryInMemory{items: make(map[string]domain.Coupon)}
}

func couponKey(businessID, code string) string {
	return businessID + "/" + domain.NormalizeCouponCode(code)
}

func (r *couponRepositoryInMemory) Create(coupon domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	coupon.Code = domain.NormalizeCouponCode(coupon.Code)
	key := couponKey(coupon.BusinessID, coupon.Code)
	if _, ok := r.items[key]; ok {
		return domain.ErrAlreadyExists
	}
	r.items[key] = coupon
	return nil
}

func (r *couponRepositoryInMemory) Get(businessID, code string) (domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	coupon, ok := r.items[couponKey(businessID, code)]
	if !ok {
		return domain.Coupon{}, domain.ErrCouponNotFound
	}
	return coupon, nil
}

func (r *couponRepositoryInMemory) Redeem(businessID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := couponKey(businessID, code)
	coupon, ok := r.items[key]
	if !ok {
		return domain.ErrCouponNotFound
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return domain.ErrCouponExhausted
	}
	coupon.UsedCount++
	r.items[key] = coupon
	return nil
}

func (r *couponRepositoryInMemory) Release(businessID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := couponKey(businessID, code)
	coupon, ok := r.items[key]
	if !ok {
		return domain.ErrCouponNotFound
	}
	if coupon.UsedCount > 0 {
		coupon.UsedCount--
	}
	r.items[key] = coupon
	return nil
}

type paymentRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Payment
}

// NewPaymentRepository создаёт in-memory хранилище платежей.
func NewPaymentRepository() domain.PaymentRepository {
	return &paymentRepositoryInMemory{items: make(map[string]domain.Payment)}
}

func (r *paymentRepositoryInMemory) Upsert(payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[payment.OrderID]; ok {
		payment.ID = existing.ID
		payment.CreatedAt = existing.CreatedAt
	}
	r.items[payment.OrderID] = payment
	return nil
}

func (r *paymentRepositoryInMemory) GetByOrder(orderID string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.items[orderID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

type businessRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Business
}

// NewBusinessRepository создаёт in-memory хранилище профилей бизнеса.
func NewBusinessRepository() domain.BusinessRepository {
	return &businessRepositoryInMemory{items: make(map[string]domain.Business)}
}

func (r *businessRepositoryInMemory) Upsert(business domain.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[business.ID]; ok {
		business.CreatedAt = existing.CreatedAt
	}
	r.items[business.ID] = business
	return nil
}

func (r *businessRepositoryInMemory) Get(id string) (domain.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	business, ok := r.items[id]
	if !ok {
		return domain.Business{}, domain.ErrBusinessNotFound
	}
	return business, nil
}

var (
	_ domain.CouponRepository   = (*couponRepositoryInMemory)(nil)
	_ domain.PaymentRepository  = (*paymentRepositoryInMemory)(nil)
	_ domain.BusinessRepository = (*businessRepositoryInMemory)(nil)
)

package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

type partnerRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.DeliveryPartner
}

// NewPartnerRepository создаёт in-memory хранилище курьеров.
func NewPartnerRepository() domain.PartnerRepository {
	return &partnerRepositoryInMemory{items: make(map[string]domain.DeliveryPartner)}
}

// Upsert сохраняет профиль курьера; счётчик активных заказов остаётся прежним.
func (r *partnerRepositoryInMemory) Upsert(partner domain.DeliveryPartner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[partner.ID]; ok {
		partner.ActiveOrders = existing.ActiveOrders
	}
	r.items[partner.ID] = partner
	return nil
}

func (r *partnerRepositoryInMemory) Get(id string) (domain.DeliveryPartner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	partner, ok := r.items[id]
	if !ok {
		return domain.DeliveryPartner{}, domain.ErrPartnerNotFound
	}
	return partner, nil
}

func (r *partnerRepositoryInMemory) ListAvailable(box domain.BoundingBox) ([]domain.DeliveryPartner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.DeliveryPartner, 0)
	for _, p := range r.items {
		if p.Available && box.Contains(p.Location) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *partnerRepositoryInMemory) AdjustActiveOrders(id string, delta int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	partner, ok := r.items[id]
	if !ok {
		return domain.ErrPartnerNotFound
	}
	partner.ActiveOrders += delta
	if partner.ActiveOrders < 0 {
		partner.ActiveOrders = 0
	}
	r.items[id] = partner
	return nil
}

// OTPStore хранит коды подтверждения доставки в памяти.
type OTPStore struct {
	mu    sync.Mutex
	items map[string]domain.DeliveryOTP
}

// NewOTPStore создаёт in-memory OTPStore.
func NewOTPStore() *OTPStore {
	return &OTPStore{items: make(map[string]domain.DeliveryOTP)}
}

func (s *OTPStore) Put(otp domain.DeliveryOTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	otp.CodeHash = append([]byte(nil), otp.CodeHash...)
	s.items[otp.OrderID] = otp
	return nil
}

func (s *OTPStore) Get(orderID string) (domain.DeliveryOTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	otp, ok := s.items[orderID]
	if !ok {
		return domain.DeliveryOTP{}, domain.ErrOTPNotFound
	}
	return otp, nil
}

func (s *OTPStore) ConsumeAttempt(orderID string) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	otp, ok := s.items[orderID]
	if !ok {
		return 0, domain.ErrOTPNotFound
	}
	if otp.AttemptsLeft <= 0 {
		return -1, nil
	}
	otp.AttemptsLeft--
	s.items[orderID] = otp
	return otp.AttemptsLeft, nil
}

func (s *OTPStore) Delete(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, orderID)
	return nil
}

var (
	_ domain.PartnerRepository = (*partnerRepositoryInMemory)(nil)
	_ domain.OTPStore          = (*OTPStore)(nil)
)

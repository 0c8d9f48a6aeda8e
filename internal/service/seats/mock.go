package seats

import (
	"sync"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// MockReserver — конфигурируемая заглушка SeatReserver для тестов саги.
type MockReserver struct {
	mu sync.Mutex

	ReserveErr error
	ReleaseErr error
	ConfirmErr error
	RevokeErr  error

	ReserveCalls int
	ReleaseCalls int
	ConfirmCalls int
	RevokeCalls  int
}

// NewMockReserver возвращает mock с успешным сценарием по умолчанию.
func NewMockReserver() *MockReserver {
	return &MockReserver{}
}

func (m *MockReserver) Reserve(orderID string, items []domain.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReserveCalls++
	return m.ReserveErr
}

func (m *MockReserver) Release(orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseCalls++
	return m.ReleaseErr
}

func (m *MockReserver) Confirm(orderID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmCalls++
	return m.ConfirmErr
}

func (m *MockReserver) Revoke(orderID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevokeCalls++
	return m.RevokeErr
}

// Calls возвращает счётчики вызовов reserve/release/confirm.
func (m *MockReserver) Calls() (reserve, release, confirm int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ReserveCalls, m.ReleaseCalls, m.ConfirmCalls
}

var _ domain.SeatReserver = (*MockReserver)(nil)

package payment

import (
	"sync"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// MockService — конфигурируемая заглушка PaymentService для тестов.
type MockService struct {
	mu sync.Mutex

	PayStatus     domain.PaymentStatus
	PayErr        error
	RefundStatus  domain.PaymentStatus
	RefundErr     error
	CaptureStatus domain.PaymentStatus
	CaptureErr    error

	PayCalls     int
	RefundCalls  int
	CaptureCalls int
	// LastMethod запоминает способ оплаты последнего вызова Pay.
	LastMethod domain.PaymentMethod
	// OnPay вызывается после списания, до возврата из Pay, без удержания мьютекса.
	OnPay func(orderID string)
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		PayStatus:     domain.PaymentStatusCaptured,
		RefundStatus:  domain.PaymentStatusRefunded,
		CaptureStatus: domain.PaymentStatusCaptured,
	}
}

// Pay возвращает заранее настроенный результат. COD всегда остаётся pending.
func (m *MockService) Pay(orderID string, method domain.PaymentMethod, amountMinor int64, currency string) (domain.PaymentStatus, error) {
	status, hook, err := m.pay(method)
	if hook != nil {
		hook(orderID)
	}
	return status, err
}

func (m *MockService) pay(method domain.PaymentMethod) (domain.PaymentStatus, func(string), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PayCalls++
	m.LastMethod = method
	if m.PayErr != nil {
		return domain.PaymentStatusFailed, m.OnPay, m.PayErr
	}
	if method == domain.PaymentMethodCOD {
		return domain.PaymentStatusPending, m.OnPay, nil
	}
	return m.PayStatus, m.OnPay, nil
}

func (m *MockService) Refund(orderID string, amountMinor int64, currency string) (domain.PaymentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefundCalls++
	return m.RefundStatus, m.RefundErr
}

func (m *MockService) Capture(orderID string) (domain.PaymentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CaptureCalls++
	return m.CaptureStatus, m.CaptureErr
}

// Calls возвращает счётчики pay/refund/capture.
func (m *MockService) Calls() (pay, refund, capture int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PayCalls, m.RefundCalls, m.CaptureCalls
}

var _ domain.PaymentService = (*MockService)(nil)

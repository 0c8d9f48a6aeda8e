package saga

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
)

// RetryConfig конфигурация для retry логики.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryableOrchestrator повторяет шаги саги после временных ошибок.
// Бизнес-ошибки (нет мест, отказ в оплате, запрещённый переход) возвращаются сразу.
type RetryableOrchestrator struct {
	orchestrator Orchestrator
	config       RetryConfig
	logger       *log.Entry
	metrics      *metrics.SagaMetrics
	sleep        func(time.Duration)
}

// NewRetryableOrchestrator создаёт оркестратор с retry логикой. m может быть nil.
func NewRetryableOrchestrator(orchestrator Orchestrator, config RetryConfig, m *metrics.SagaMetrics, logger *log.Entry) *RetryableOrchestrator {
	if logger == nil {
		logger = log.WithField("component", "retryable-orchestrator")
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}
	return &RetryableOrchestrator{
		orchestrator: orchestrator,
		config:       config,
		logger:       logger,
		metrics:      m,
		sleep:        time.Sleep,
	}
}

func (ro *RetryableOrchestrator) Start(orderID string) (domain.Order, error) {
	return ro.executeWithRetry("Start", orderID, func() (domain.Order, error) {
		return ro.orchestrator.Start(orderID)
	})
}

func (ro *RetryableOrchestrator) Cancel(orderID string, actor domain.Actor, reason string) (domain.Order, error) {
	return ro.executeWithRetry("Cancel", orderID, func() (domain.Order, error) {
		return ro.orchestrator.Cancel(orderID, actor, reason)
	})
}

func (ro *RetryableOrchestrator) Reject(orderID string, actor domain.Actor, reason string) (domain.Order, error) {
	return ro.executeWithRetry("Reject", orderID, func() (domain.Order, error) {
		return ro.orchestrator.Reject(orderID, actor, reason)
	})
}

func (ro *RetryableOrchestrator) Refund(orderID string, actor domain.Actor, reason string) (domain.Order, error) {
	return ro.executeWithRetry("Refund", orderID, func() (domain.Order, error) {
		return ro.orchestrator.Refund(orderID, actor, reason)
	})
}

func (ro *RetryableOrchestrator) executeWithRetry(operation, orderID string, fn func() (domain.Order, error)) (domain.Order, error) {
	var (
		order   domain.Order
		lastErr error
	)
	delay := ro.config.InitialDelay

	for attempt := 1; attempt <= ro.config.MaxAttempts; attempt++ {
		order, lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				ro.logger.WithFields(log.Fields{
					"operation": operation,
					"order_id":  orderID,
					"attempt":   attempt,
				}).Info("operation succeeded after retry")
			}
			return order, nil
		}

		if !shouldRetry(lastErr) {
			return order, lastErr
		}

		if attempt < ro.config.MaxAttempts {
			ro.logger.WithError(lastErr).WithFields(log.Fields{
				"operation": operation,
				"order_id":  orderID,
				"attempt":   attempt,
				"delay":     delay,
			}).Warn("operation failed, retrying")
			if ro.metrics != nil {
				ro.metrics.RecordSagaRetried()
			}

			ro.sleep(delay)

			delay = time.Duration(float64(delay) * ro.config.BackoffFactor)
			if ro.config.MaxDelay > 0 && delay > ro.config.MaxDelay {
				delay = ro.config.MaxDelay
			}
		}
	}

	ro.logger.WithError(lastErr).WithFields(log.Fields{
		"operation":    operation,
		"order_id":     orderID,
		"max_attempts": ro.config.MaxAttempts,
	}).Error("operation failed after all retry attempts")
	return order, lastErr
}

// shouldRetry повторяет только временные ошибки.
func shouldRetry(err error) bool {
	return isTemporary(err)
}

// ErrCircuitOpen возвращается, пока circuit breaker не пропускает вызовы.
var ErrCircuitOpen = fmt.Errorf("circuit breaker is open: %w", domain.ErrPaymentTemporary)

// CircuitState описывает состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker размыкается после maxFailures подряд и пропускает пробный вызов через resetTimeout.
type CircuitBreaker struct {
	mu           sync.Mutex
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	failures    int
	lastFailure time.Time
	state       CircuitState
	logger      *log.Entry
}

// NewCircuitBreaker создаёт новый circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.WithField("component", "circuit-breaker")
	}
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        CircuitClosed,
		logger:       logger,
	}
}

// State возвращает текущее состояние.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute выполняет операцию через circuit breaker. Сбоем считаются только ошибки,
// для которых countFailure возвращает true.
func (cb *CircuitBreaker) Execute(operation string, fn func() error, countFailure func(error) bool) error {
	cb.mu.Lock()
	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.lastFailure) <= cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
		cb.logger.WithField("operation", operation).Info("circuit breaker half-open")
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && (countFailure == nil || countFailure(err)) {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = CircuitOpen
			cb.logger.WithFields(log.Fields{
				"operation": operation,
				"failures":  cb.failures,
			}).Warn("circuit breaker opened")
		}
		return err
	}

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		cb.logger.WithField("operation", operation).Info("circuit breaker closed")
	}
	cb.failures = 0
	return err
}

// GuardedPayments пропускает вызовы платёжного шлюза через circuit breaker.
type GuardedPayments struct {
	next    domain.PaymentService
	breaker *CircuitBreaker
}

// NewGuardedPayments оборачивает PaymentService.
func NewGuardedPayments(next domain.PaymentService, breaker *CircuitBreaker) *GuardedPayments {
	return &GuardedPayments{next: next, breaker: breaker}
}

func (g *GuardedPayments) Pay(orderID string, method domain.PaymentMethod, amountMinor int64, currency string) (domain.PaymentStatus, error) {
	var status domain.PaymentStatus
	err := g.breaker.Execute("pay", func() error {
		var err error
		status, err = g.next.Pay(orderID, method, amountMinor, currency)
		return err
	}, isGatewayFailure)
	if errors.Is(err, ErrCircuitOpen) {
		return domain.PaymentStatusFailed, err
	}
	return status, err
}

func (g *GuardedPayments) Refund(orderID string, amountMinor int64, currency string) (domain.PaymentStatus, error) {
	var status domain.PaymentStatus
	err := g.breaker.Execute("refund", func() error {
		var err error
		status, err = g.next.Refund(orderID, amountMinor, currency)
		return err
	}, isGatewayFailure)
	return status, err
}

func (g *GuardedPayments) Capture(orderID string) (domain.PaymentStatus, error) {
	var status domain.PaymentStatus
	err := g.breaker.Execute("capture", func() error {
		var err error
		status, err = g.next.Capture(orderID)
		return err
	}, isGatewayFailure)
	return status, err
}

// isGatewayFailure не считает сбоем отказ в оплате: это нормальный ответ провайдера.
func isGatewayFailure(err error) bool {
	return errors.Is(err, domain.ErrPaymentTemporary) || errors.Is(err, domain.ErrPaymentIndeterminate)
}

var (
	_ Orchestrator          = (*RetryableOrchestrator)(nil)
	_ domain.PaymentService = (*GuardedPayments)(nil)
)

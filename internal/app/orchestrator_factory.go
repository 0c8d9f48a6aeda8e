package app

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
	"github.com/vladislavdragonenkov/eventhub/internal/service/orderstatus"
	"github.com/vladislavdragonenkov/eventhub/internal/service/saga"
)

const (
	paymentBreakerFailures = 5
	paymentBreakerReset    = 30 * time.Second
)

// sagaDependencies содержит всё, что нужно саге оформления заказа.
type sagaDependencies struct {
	Orders   domain.OrderRepository
	Coupons  domain.CouponRepository
	Seats    domain.SeatReserver
	Payments domain.PaymentService
	Status   *orderstatus.Updater
	Metrics  *metrics.SagaMetrics
	Logger   *log.Entry
}

// createOrchestrator собирает сагу: платежи идут через circuit breaker,
// временные ошибки шагов повторяются с экспоненциальной задержкой.
func createOrchestrator(deps sagaDependencies) saga.Orchestrator {
	breaker := saga.NewCircuitBreaker(paymentBreakerFailures, paymentBreakerReset, deps.Logger.WithField("breaker", "payments"))
	base := saga.NewOrchestrator(saga.Dependencies{
		Orders:   deps.Orders,
		Coupons:  deps.Coupons,
		Seats:    deps.Seats,
		Payments: saga.NewGuardedPayments(deps.Payments, breaker),
		Status:   deps.Status,
		Metrics:  deps.Metrics,
		Logger:   deps.Logger,
	})
	return saga.NewRetryableOrchestrator(base, saga.DefaultRetryConfig(), deps.Metrics, deps.Logger)
}

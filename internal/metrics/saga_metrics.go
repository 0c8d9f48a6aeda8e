package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SagaMetrics содержит метрики саги оформления заказа.
type SagaMetrics struct {
	sagaStarted   prometheus.Counter
	sagaCompleted prometheus.Counter
	sagaFailed    *prometheus.CounterVec
	sagaCanceled  prometheus.Counter
	sagaRefunded  prometheus.Counter
	sagaRetried   prometheus.Counter

	sagaDuration prometheus.Histogram
	stepDuration *prometheus.HistogramVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	activeSagas prometheus.Gauge
}

// NewSagaMetrics регистрирует метрики в глобальном реестре.
func NewSagaMetrics() *SagaMetrics {
	return NewSagaMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewSagaMetricsWithRegisterer регистрирует метрики в переданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewSagaMetricsWithRegisterer(registerer prometheus.Registerer) *SagaMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SagaMetrics{
		sagaStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventhub_saga_started_total",
			Help: "Total number of checkout sagas started",
		}),
		sagaCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventhub_saga_completed_total",
			Help: "Total number of checkout sagas that confirmed the order",
		}),
		sagaFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "eventhub_saga_failed_total",
			Help: "Total number of checkout sagas that failed, by step",
		}, []string{"step"}),
		sagaCanceled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventhub_saga_canceled_total",
			Help: "Total number of orders canceled through the saga",
		}),
		sagaRefunded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventhub_saga_refunded_total",
			Help: "Total number of orders refunded through the saga",
		}),
		sagaRetried: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventhub_saga_retries_total",
			Help: "Total number of saga retries after temporary failures",
		}),
		sagaDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "eventhub_saga_duration_seconds",
			Help:    "Duration of checkout sagas in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "eventhub_saga_step_duration_seconds",
			Help:    "Duration of individual saga steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventhub_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventhub_outbox_enqueued_total",
			Help: "Total number of domain events enqueued to the outbox",
		}),
		activeSagas: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "eventhub_active_sagas",
			Help: "Number of checkout sagas in flight",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	return register(registerer, opts.Name, prometheus.NewCounter(opts))
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	return register(registerer, opts.Name, prometheus.NewCounterVec(opts, labels))
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	return register(registerer, opts.Name, prometheus.NewGauge(opts))
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	return register(registerer, opts.Name, prometheus.NewHistogram(opts))
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	return register(registerer, opts.Name, prometheus.NewHistogramVec(opts, labels))
}

// register регистрирует коллектор; при повторной регистрации возвращает существующий того же типа.
func register[C prometheus.Collector](registerer prometheus.Registerer, name string, collector C) C {
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector %q: %v", name, err))
	}
	return collector
}

// RecordSagaStarted увеличивает счётчик запущенных саг и число активных.
func (m *SagaMetrics) RecordSagaStarted() {
	m.sagaStarted.Inc()
	m.activeSagas.Inc()
}

// RecordSagaFinished уменьшает число активных саг и пишет длительность.
func (m *SagaMetrics) RecordSagaFinished(duration time.Duration) {
	m.activeSagas.Dec()
	m.sagaDuration.Observe(duration.Seconds())
}

func (m *SagaMetrics) RecordSagaCompleted() {
	m.sagaCompleted.Inc()
}

// RecordSagaFailed учитывает провал саги на шаге step.
func (m *SagaMetrics) RecordSagaFailed(step string) {
	m.sagaFailed.WithLabelValues(step).Inc()
}

func (m *SagaMetrics) RecordSagaCanceled() {
	m.sagaCanceled.Inc()
}

func (m *SagaMetrics) RecordSagaRefunded() {
	m.sagaRefunded.Inc()
}

// RecordSagaRetried учитывает повтор саги после временной ошибки.
func (m *SagaMetrics) RecordSagaRetried() {
	m.sagaRetried.Inc()
}

// RecordStepDuration записывает время выполнения шага саги.
func (m *SagaMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

func (m *SagaMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

func (m *SagaMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

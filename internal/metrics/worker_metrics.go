package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics собирает метрики фоновых воркеров: outbox и очистки idempotency-ключей.
type WorkerMetrics struct {
	outboxPublishes   *prometheus.CounterVec
	outboxPending     prometheus.Gauge
	outboxOldestAge   prometheus.Gauge
	cleanupRuns       *prometheus.CounterVec
	cleanupDeleted    prometheus.Counter
	cleanupLastDelete prometheus.Gauge
	schedulerJobs     *prometheus.CounterVec
}

// NewWorkerMetrics регистрирует метрики в глобальном реестре.
func NewWorkerMetrics() *WorkerMetrics {
	return NewWorkerMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWorkerMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewWorkerMetricsWithRegisterer(registerer prometheus.Registerer) *WorkerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &WorkerMetrics{
		outboxPublishes: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "eventhub_outbox_publish_attempts_total",
			Help: "Outbox publish attempts grouped by result",
		}, []string{"result"}),
		outboxPending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "eventhub_outbox_pending_records",
			Help: "Pending records in the transactional outbox",
		}),
		outboxOldestAge: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "eventhub_outbox_oldest_pending_age_seconds",
			Help: "Age of the oldest pending outbox record",
		}),
		cleanupRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "eventhub_idempotency_cleanup_runs_total",
			Help: "Idempotency cleanup runs grouped by result",
		}, []string{"result"}),
		cleanupDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventhub_idempotency_cleanup_deleted_total",
			Help: "Expired idempotency records deleted",
		}),
		cleanupLastDelete: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "eventhub_idempotency_cleanup_last_deleted",
			Help: "Records deleted by the last cleanup run",
		}),
		schedulerJobs: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "eventhub_scheduler_job_runs_total",
			Help: "Scheduled job runs grouped by job and result",
		}, []string{"job", "result"}),
	}
}

// RecordOutboxPublish учитывает попытку публикации: sent, retry_error, failed, dlq_failed.
func (m *WorkerMetrics) RecordOutboxPublish(result string) {
	if m == nil {
		return
	}
	m.outboxPublishes.WithLabelValues(result).Inc()
}

// SetOutboxBacklog обновляет размер и возраст очереди outbox.
func (m *WorkerMetrics) SetOutboxBacklog(pending int, oldestAge time.Duration) {
	if m == nil {
		return
	}
	if oldestAge < 0 || pending == 0 {
		oldestAge = 0
	}
	m.outboxPending.Set(float64(pending))
	m.outboxOldestAge.Set(oldestAge.Seconds())
}

func (m *WorkerMetrics) RecordCleanupRun(result string) {
	if m == nil {
		return
	}
	m.cleanupRuns.WithLabelValues(result).Inc()
}

// RecordCleanupDeleted учитывает удалённые записи одной порции.
func (m *WorkerMetrics) RecordCleanupDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cleanupDeleted.Add(float64(n))
}

func (m *WorkerMetrics) SetCleanupLastDeleted(n int) {
	if m == nil {
		return
	}
	m.cleanupLastDelete.Set(float64(n))
}

// RecordSchedulerJob учитывает запуск cron-задачи.
func (m *WorkerMetrics) RecordSchedulerJob(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.schedulerJobs.WithLabelValues(job, result).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics считает бизнес-операции вне саги.
type DomainMetrics struct {
	orderTransitions *prometheus.CounterVec
	otpVerifications *prometheus.CounterVec
	chatMessages     prometheus.Counter
	notifications    *prometheus.CounterVec
	partnerAssigned  *prometheus.CounterVec
	eventsCreated    prometheus.Counter
}

// NewDomainMetrics регистрирует метрики в глобальном реестре.
func NewDomainMetrics() *DomainMetrics {
	return NewDomainMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewDomainMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewDomainMetricsWithRegisterer(registerer prometheus.Registerer) *DomainMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &DomainMetrics{
		orderTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "eventhub_order_transitions_total",
			Help: "Order status transitions grouped by source and target status",
		}, []string{"from", "to"}),
		otpVerifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "eventhub_delivery_otp_verifications_total",
			Help: "Cash-on-delivery OTP verification attempts grouped by result",
		}, []string{"result"}),
		chatMessages: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventhub_chat_messages_total",
			Help: "Chat messages accepted",
		}),
		notifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "eventhub_notifications_created_total",
			Help: "Inbox notifications created by fan-out grouped by kind",
		}, []string{"kind"}),
		partnerAssigned: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "eventhub_delivery_assignments_total",
			Help: "Delivery partner assignment attempts grouped by result",
		}, []string{"result"}),
		eventsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventhub_events_created_total",
			Help: "Events created by organizers",
		}),
	}
}

// RecordOrderTransition учитывает смену статуса заказа.
func (m *DomainMetrics) RecordOrderTransition(from, to string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(from, to).Inc()
}

// RecordOTPVerification учитывает попытку проверки кода: ok, mismatch, locked, expired.
func (m *DomainMetrics) RecordOTPVerification(result string) {
	if m == nil {
		return
	}
	m.otpVerifications.WithLabelValues(result).Inc()
}

func (m *DomainMetrics) RecordChatMessage() {
	if m == nil {
		return
	}
	m.chatMessages.Inc()
}

// RecordNotifications учитывает созданные уведомления.
func (m *DomainMetrics) RecordNotifications(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notifications.WithLabelValues(kind).Add(float64(n))
}

func (m *DomainMetrics) RecordPartnerAssignment(result string) {
	if m == nil {
		return
	}
	m.partnerAssigned.WithLabelValues(result).Inc()
}

func (m *DomainMetrics) RecordEventCreated() {
	if m == nil {
		return
	}
	m.eventsCreated.Inc()
}

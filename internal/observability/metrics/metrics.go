package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters/histograms for the reminder and follow-up
// schedulers and the inbound reply webhook.
type SchedulerMetrics struct {
	remindersTotal *prometheus.CounterVec
	followUpsTotal *prometheus.CounterVec
	inboundTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "afyalink",
			Subsystem: "reminders",
			Name:      "dispatch_total",
			Help:      "Reminder dispatch attempts by outcome",
		}, []string{"channel", "outcome"}),
		followUpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "afyalink",
			Subsystem: "followups",
			Name:      "sent_total",
			Help:      "Follow-up outreach attempts by outcome",
		}, []string{"outcome"}),
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "afyalink",
			Subsystem: "inbound",
			Name:      "replies_total",
			Help:      "Inbound confirmation replies by outcome",
		}, []string{"outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "afyalink",
			Subsystem: "inbound",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.remindersTotal, m.followUpsTotal, m.inboundTotal, m.webhookLatency)
	return m
}

func (m *SchedulerMetrics) ObserveDispatch(channel, outcome string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(channel, outcome).Inc()
}

func (m *SchedulerMetrics) ObserveFollowUp(outcome string) {
	if m == nil {
		return
	}
	m.followUpsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) ObserveInbound(outcome string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) ObserveWebhookLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(provider).Observe(seconds)
}

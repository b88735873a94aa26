package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics exposes counters/histograms for inbound webhook flows.
type WebhookMetrics struct {
	inboundTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "showrate",
			Subsystem: "webhooks",
			Name:      "inbound_total",
			Help:      "Total inbound webhooks by source and outcome",
		}, []string{"source", "event_type", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "showrate",
			Subsystem: "webhooks",
			Name:      "latency_seconds",
			Help:      "Latency of webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.webhookLatency)
	return m
}

func (m *WebhookMetrics) ObserveInbound(source, eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(source, eventType, status).Inc()
}

func (m *WebhookMetrics) ObserveLatency(source string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(source).Observe(seconds)
}

// BillingMetrics exposes counters for milestone and invoicing outcomes.
type BillingMetrics struct {
	milestonesTotal prometheus.Counter
	invoicesTotal   *prometheus.CounterVec
}

func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	m := &BillingMetrics{
		milestonesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "showrate",
			Subsystem: "billing",
			Name:      "milestones_total",
			Help:      "Total milestones achieved",
		}),
		invoicesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "showrate",
			Subsystem: "billing",
			Name:      "invoices_total",
			Help:      "Total provider invoices by type and outcome",
		}, []string{"type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.milestonesTotal, m.invoicesTotal)
	return m
}

// MilestoneCreated records a newly achieved milestone.
func (m *BillingMetrics) MilestoneCreated() {
	if m == nil {
		return
	}
	m.milestonesTotal.Inc()
}

// InvoiceCreated records a successfully finalized provider invoice.
func (m *BillingMetrics) InvoiceCreated(invoiceType string) {
	if m == nil {
		return
	}
	m.invoicesTotal.WithLabelValues(invoiceType, "created").Inc()
}

// InvoiceFailed records a provider invoice that could not be created.
func (m *BillingMetrics) InvoiceFailed(invoiceType string) {
	if m == nil {
		return
	}
	m.invoicesTotal.WithLabelValues(invoiceType, "failed").Inc()
}

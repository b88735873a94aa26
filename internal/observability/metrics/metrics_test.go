package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestWebhookMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)
	m.ObserveInbound("retell", "call_ended", "processed")
	m.ObserveInbound("stripe", "invoice.paid", "failed")
	m.ObserveLatency("retell", 0.05)
}

func TestBillingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBillingMetrics(reg)
	m.MilestoneCreated()
	m.InvoiceCreated("milestone")
	m.InvoiceFailed("usage")
}

func TestMetricsNilSafe(t *testing.T) {
	var w *WebhookMetrics
	w.ObserveInbound("retell", "call_started", "processed")
	w.ObserveLatency("retell", 0.1)

	var b *BillingMetrics
	b.MilestoneCreated()
	b.InvoiceCreated("usage")
	b.InvoiceFailed("milestone")
}

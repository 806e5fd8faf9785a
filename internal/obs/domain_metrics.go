package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersTotal counts checkout and quote attempts by outcome.
	OrdersTotal *prometheus.CounterVec
	// StockAdjustmentsTotal counts cart lines reduced or dropped for lack of stock.
	StockAdjustmentsTotal *prometheus.CounterVec
	// PaymentConfirmationsTotal counts manual payment confirmations by outcome.
	PaymentConfirmationsTotal *prometheus.CounterVec
	// InvoicesTotal counts invoice generation outcomes.
	InvoicesTotal *prometheus.CounterVec
	// QuoteRequestsTotal counts quote hand-offs to customer support.
	QuoteRequestsTotal *prometheus.CounterVec
	// EventDeliveriesTotal tracks background event notification outcomes.
	EventDeliveriesTotal *prometheus.CounterVec
	// CheckoutLatency records checkout transaction latency in milliseconds.
	CheckoutLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Count of checkout and quote attempts by outcome.",
		}, []string{"kind", "result"}))
		StockAdjustmentsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_adjustments_total",
			Help:      "Cart lines clamped or dropped because of insufficient stock.",
		}, []string{"flow", "reason"}))
		PaymentConfirmationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirmations_total",
			Help:      "Count of payment confirmations by outcome.",
		}, []string{"result"}))
		InvoicesTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_total",
			Help:      "Count of invoice generation attempts by outcome.",
		}, []string{"result"}))
		QuoteRequestsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_requests_total",
			Help:      "Count of quote requests sent to customer support.",
		}, []string{"result"}))
		EventDeliveriesTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_deliveries_total",
			Help:      "Count of domain event notification outcomes.",
		}, []string{"topic", "result"}))
		CheckoutLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_ms",
			Help:      "Latency of checkout, quote and invoice transactions in milliseconds.",
			Buckets:   defaultLatencyBuckets,
		}, []string{"kind"}))
	})
}

// CountOrder increments OrdersTotal when metrics are registered.
func CountOrder(kind, result string) {
	if OrdersTotal != nil {
		OrdersTotal.WithLabelValues(kind, result).Inc()
	}
}

// CountStockAdjustment increments StockAdjustmentsTotal when metrics are registered.
func CountStockAdjustment(flow, reason string) {
	if StockAdjustmentsTotal != nil {
		StockAdjustmentsTotal.WithLabelValues(flow, reason).Inc()
	}
}

// CountPaymentConfirmation increments PaymentConfirmationsTotal when metrics are registered.
func CountPaymentConfirmation(result string) {
	if PaymentConfirmationsTotal != nil {
		PaymentConfirmationsTotal.WithLabelValues(result).Inc()
	}
}

// CountInvoice increments InvoicesTotal when metrics are registered.
func CountInvoice(result string) {
	if InvoicesTotal != nil {
		InvoicesTotal.WithLabelValues(result).Inc()
	}
}

// CountQuoteRequest increments QuoteRequestsTotal when metrics are registered.
func CountQuoteRequest(result string) {
	if QuoteRequestsTotal != nil {
		QuoteRequestsTotal.WithLabelValues(result).Inc()
	}
}

// CountEventDelivery increments EventDeliveriesTotal when metrics are registered.
func CountEventDelivery(topic, result string) {
	if EventDeliveriesTotal != nil {
		EventDeliveriesTotal.WithLabelValues(topic, result).Inc()
	}
}

// ObserveCheckout records a transaction latency when metrics are registered.
func ObserveCheckout(kind string, ms float64) {
	if CheckoutLatency != nil {
		CheckoutLatency.WithLabelValues(kind).Observe(ms)
	}
}

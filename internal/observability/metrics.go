package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	scansTotal            *prometheus.CounterVec
	scansRejectedTotal    *prometheus.CounterVec
	curfewViolationsTotal prometheus.Counter

	invoicesGeneratedTotal *prometheus.CounterVec
	paymentsTotal          *prometheus.CounterVec
	priceAdjustmentsTotal  *prometheus.CounterVec

	alertsPublishedTotal *prometheus.CounterVec
	feedClientsActive    prometheus.Gauge

	uploadLatencySeconds prometheus.Histogram
	uploadRejectedTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentease_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rentease_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentease_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		scansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentease_gate_scans_total",
			Help: "Accepted gate scans by direction.",
		}, []string{"direction"})

		scansRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentease_gate_scans_rejected_total",
			Help: "Rejected gate scans by reason.",
		}, []string{"reason"})

		curfewViolationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rentease_curfew_violations_total",
			Help: "Gate scans flagged as curfew violations.",
		})

		invoicesGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentease_invoices_generated_total",
			Help: "Monthly billing run outcomes per enrollment.",
		}, []string{"result"})

		paymentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentease_payments_total",
			Help: "Recorded payment events by status.",
		}, []string{"status"})

		priceAdjustmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentease_price_adjustments_total",
			Help: "Dynamic pricing adjustments by reason.",
		}, []string{"reason"})

		alertsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentease_alerts_published_total",
			Help: "Alerts published through the alert service by type.",
		}, []string{"type"})

		feedClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rentease_feed_clients_active",
			Help: "Websocket scan-feed clients currently connected.",
		})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentease_upload_latency_seconds",
			Help:    "Latency distribution for property photo uploads.",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentease_upload_rejected_total",
			Help: "Property photo uploads rejected by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			scansTotal, scansRejectedTotal, curfewViolationsTotal,
			invoicesGeneratedTotal, paymentsTotal, priceAdjustmentsTotal,
			alertsPublishedTotal, feedClientsActive,
			uploadLatencySeconds, uploadRejectedTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ScansTotal exposes the counter for accepted gate scans.
func ScansTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return scansTotal
}

// ScansRejected exposes the counter for rejected gate scans.
func ScansRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return scansRejectedTotal
}

// CurfewViolations exposes the counter for flagged scans.
func CurfewViolations() prometheus.Counter {
	RegisterMetrics()
	return curfewViolationsTotal
}

// InvoicesGenerated exposes the counter for billing run outcomes.
func InvoicesGenerated() *prometheus.CounterVec {
	RegisterMetrics()
	return invoicesGeneratedTotal
}

// PaymentsTotal exposes the counter for payment events.
func PaymentsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return paymentsTotal
}

// PriceAdjustments exposes the counter for dynamic pricing changes.
func PriceAdjustments() *prometheus.CounterVec {
	RegisterMetrics()
	return priceAdjustmentsTotal
}

// AlertsPublished exposes the counter for published alerts.
func AlertsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return alertsPublishedTotal
}

// FeedClientsActive exposes the gauge of connected feed clients.
func FeedClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return feedClientsActive
}

// UploadLatency exposes the histogram for upload latency.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// UploadRejected exposes the counter for rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	AIRequests      *prometheus.CounterVec
	AILatency       *prometheus.HistogramVec
	MetaRequests    *prometheus.CounterVec
	MetaLatency     *prometheus.HistogramVec
	WebhookMessages *prometheus.CounterVec
	Errors          *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method and status.",
			}, []string{"method", "status"}),
			AIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_requests_total",
				Help:      "Total chat-completion requests by outcome.",
			}, []string{"status"}),
			AILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ai_request_duration_seconds",
				Help:      "Latency distribution for chat-completion calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"status"}),
			MetaRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "meta_requests_total",
				Help:      "Total Meta Graph API requests by endpoint and status.",
			}, []string{"endpoint", "status"}),
			MetaLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "meta_request_duration_seconds",
				Help:      "Latency distribution for Meta Graph API requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint", "status"}),
			WebhookMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_messages_total",
				Help:      "Total inbound webhook messages processed.",
			}, []string{"type"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.HTTPRequests,
			metricsInstance.AIRequests,
			metricsInstance.AILatency,
			metricsInstance.MetaRequests,
			metricsInstance.MetaLatency,
			metricsInstance.WebhookMessages,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}

// Package monitoring exposes Prometheus metrics for the service
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRetriesTotal    *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New registers and returns the service metrics on the default registry
func New() *Metrics {
	return &Metrics{
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatling_llm_requests_total",
			Help: "Completed language-model calls by final outcome",
		}, []string{"outcome"}),
		LLMRetriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatling_llm_retries_total",
			Help: "Retried language-model attempts by failure reason",
		}, []string{"reason"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatling_llm_request_duration_seconds",
			Help:    "Wall-clock duration of language-model calls including retries",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatling_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatling_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

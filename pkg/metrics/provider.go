package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderCallMetrics records outcomes of calls into payment provider plugins.
type ProviderCallMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewProviderCallMetrics registers the provider call metrics on the provided
// registerer.
func NewProviderCallMetrics(reg prometheus.Registerer) *ProviderCallMetrics {
	if reg == nil {
		return &ProviderCallMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_provider_call_duration_seconds",
		Help:    "Duration of payment provider calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_provider_call_success",
		Help: "Successful payment provider calls.",
	}, []string{"provider", "operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_provider_call_failure",
		Help: "Failed payment provider calls.",
	}, []string{"provider", "operation"})
	reg.MustRegister(duration, success, failure)
	return &ProviderCallMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration of a provider call.
func (p *ProviderCallMetrics) ObserveDuration(provider, operation string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the provider operation.
func (p *ProviderCallMetrics) IncSuccess(provider, operation string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the provider operation.
func (p *ProviderCallMetrics) IncFailure(provider, operation string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

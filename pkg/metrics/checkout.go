package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeFailure  = "failure"
)

// CheckoutMetrics records checkout pipeline outcomes and degraded paths.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	attempts *prometheus.CounterVec
	retries  prometheus.Counter
	warnings *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout calls in seconds, including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout calls by final outcome.",
	}, []string{"outcome"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_retries_total",
		Help: "Checkout attempts re-run after a transient persistence failure.",
	})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_warnings_total",
		Help: "Non-fatal checkout warnings by code.",
	}, []string{"code"})
	reg.MustRegister(duration, attempts, retries, warnings)
	return &CheckoutMetrics{
		duration: duration,
		attempts: attempts,
		retries:  retries,
		warnings: warnings,
	}
}

// Observe records the final outcome and total duration of one checkout call.
func (c *CheckoutMetrics) Observe(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	c.duration.WithLabelValues(outcome).Observe(duration.Seconds())
	c.attempts.WithLabelValues(outcome).Inc()
}

// IncRetry counts one re-run of the checkout pipeline.
func (c *CheckoutMetrics) IncRetry() {
	if c == nil || c.retries == nil {
		return
	}
	c.retries.Inc()
}

// IncWarning counts one checkout warning.
func (c *CheckoutMetrics) IncWarning(code string) {
	if c == nil || c.warnings == nil {
		return
	}
	c.warnings.WithLabelValues(normalizeLabel(code)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

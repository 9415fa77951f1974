package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	PublishPublished = "published"
	PublishFailed    = "failed"
	PublishDLQ       = "dlq"
)

// OutboxMetrics counts publisher results per event type.
type OutboxMetrics struct {
	results *prometheus.CounterVec
	batches prometheus.Counter
}

// NewOutboxMetrics registers the outbox publisher metrics. A nil registerer
// yields a no-op recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox rows handled by the publisher, by event type and result.",
	}, []string{"event_type", "result"})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_batch_errors_total",
		Help: "Publisher batches aborted by a database error.",
	})
	reg.MustRegister(results, batches)
	return &OutboxMetrics{results: results, batches: batches}
}

func (m *OutboxMetrics) Inc(eventType, result string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func (m *OutboxMetrics) IncBatchError() {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/statement-redactor/internal/redact"
)

// Metrics holds the collectors exported by the upload server
type Metrics struct {
	Documents *prometheus.CounterVec
	Marks     *prometheus.CounterVec
	Pages     prometheus.Counter
	Duration  prometheus.Histogram
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "redactor",
			Name:      "documents_total",
			Help:      "Statements processed, by outcome.",
		}, []string{"outcome"}),
		Marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "redactor",
			Name:      "marks_total",
			Help:      "Redaction marks applied, by rule.",
		}, []string{"rule"}),
		Pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "redactor",
			Name:      "pages_total",
			Help:      "Statement pages redacted.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "redactor",
			Name:      "redact_duration_seconds",
			Help:      "Time spent redacting one statement.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Documents, m.Marks, m.Pages, m.Duration)
	return m
}

// ObserveResult records a successful redaction
func (m *Metrics) ObserveResult(r *redact.Result, seconds float64) {
	m.Documents.WithLabelValues("ok").Inc()
	m.Pages.Add(float64(r.Pages))
	m.Duration.Observe(seconds)
	for _, p := range r.Plans {
		for rule, n := range p.CountByRule() {
			m.Marks.WithLabelValues(string(rule)).Add(float64(n))
		}
	}
}

// ObserveFailure records a rejected or failed request
func (m *Metrics) ObserveFailure(outcome string) {
	m.Documents.WithLabelValues(outcome).Inc()
}

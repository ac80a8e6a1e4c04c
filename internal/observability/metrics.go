package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process collectors. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Claims               *prometheus.CounterVec
	ClaimDuration        prometheus.Histogram
	ListEntriesGenerated prometheus.Counter
	OutboxPublished      *prometheus.CounterVec
	OutboxBacklog        prometheus.Gauge

	AggregateOps       *prometheus.HistogramVec
	AggregateConflicts *prometheus.CounterVec
	AggregateRetries   *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		Claims: f.NewCounterVec(prometheus.CounterOpts{
			Name: "randomization_claims_total",
			Help: "Subject randomization attempts by outcome code",
		}, []string{"outcome"}),
		ClaimDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "randomization_claim_duration_seconds",
			Help:    "Duration of the subject claim transaction",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ListEntriesGenerated: f.NewCounter(prometheus.CounterOpts{
			Name: "randomization_list_entries_generated_total",
			Help: "List entries written by list generation",
		}),
		OutboxPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "randomization_outbox_published_total",
			Help: "Audit outbox rows relayed by result",
		}, []string{"result"}),
		OutboxBacklog: f.NewGauge(prometheus.GaugeOpts{
			Name: "randomization_outbox_backlog",
			Help: "Audit outbox rows not yet relayed",
		}),

		AggregateOps: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "randomization_aggregate_operation_duration_seconds",
			Help:    "Aggregate write transactions by operation and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		AggregateConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "randomization_aggregate_conflicts_total",
			Help: "Aggregate writes that lost a concurrent update",
		}, []string{"op"}),
		AggregateRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "randomization_aggregate_retryable_total",
			Help: "Aggregate writes that failed with a transient error",
		}, []string{"op"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveClaim records a finished claim. outcome is "success" or an error code.
func (m *Metrics) ObserveClaim(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Claims.WithLabelValues(outcome).Inc()
	m.ClaimDuration.Observe(d.Seconds())
}

func (m *Metrics) IncOutbox(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OutboxPublished.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) SetOutboxBacklog(n int64) {
	if m == nil {
		return
	}
	m.OutboxBacklog.Set(float64(n))
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

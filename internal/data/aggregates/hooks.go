package aggregates

import (
	"strings"
	"time"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/observability"
)

// Hooks captures aggregate-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	AddGeneratedEntries(n int)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) AddGeneratedEntries(int)                        {}

// metricsHooks forwards to the process-wide Prometheus collectors.
type metricsHooks struct {
	m *observability.Metrics
}

func NewMetricsHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return noopHooks{}
	}
	return metricsHooks{m: m}
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.AggregateOps.WithLabelValues(strings.TrimSpace(name), strings.TrimSpace(status)).Observe(dur.Seconds())
}

func (h metricsHooks) IncConflict(name string) {
	h.m.AggregateConflicts.WithLabelValues(strings.TrimSpace(name)).Inc()
}

func (h metricsHooks) IncRetry(name string) {
	h.m.AggregateRetries.WithLabelValues(strings.TrimSpace(name)).Inc()
}

func (h metricsHooks) AddGeneratedEntries(n int) {
	if n > 0 {
		h.m.ListEntriesGenerated.Add(float64(n))
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollMetrics records poll cycle outcomes per source.
type PollMetrics struct {
	duration *prometheus.HistogramVec
	cycles   *prometheus.CounterVec
}

// NewPollMetrics registers the poll cycle metrics on the provided registerer.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	if reg == nil {
		return &PollMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_cycle_duration_seconds",
		Help:    "Duration of poll cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source", "status"})
	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_cycle_total",
		Help: "Poll cycles by outcome.",
	}, []string{"source", "status"})
	reg.MustRegister(duration, cycles)
	return &PollMetrics{
		duration: duration,
		cycles:   cycles,
	}
}

// ObserveCycle records one finished cycle.
func (p *PollMetrics) ObserveCycle(source, status string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(source), normalizeLabel(status)).Observe(duration.Seconds())
	p.cycles.WithLabelValues(normalizeLabel(source), normalizeLabel(status)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

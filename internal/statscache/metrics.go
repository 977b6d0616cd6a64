package statscache

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports cache behaviour to Prometheus. One Metrics is shared by all
// caches of a process; the metric label tells them apart.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ndb",
			Subsystem: "stats_cache",
			Name:      "requests_total",
			Help:      "Cache reads by metric and result (hit or miss).",
		}, []string{"metric", "result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ndb",
			Subsystem: "stats_cache",
			Name:      "refreshes_total",
			Help:      "Producer calls by metric and status (success or error).",
		}, []string{"metric", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ndb",
			Subsystem: "stats_cache",
			Name:      "refresh_duration_seconds",
			Help:      "Time spent in the producer per refresh.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.requests, m.refreshes, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register stats cache metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeRequest(metric string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.requests.WithLabelValues(metric, result).Inc()
}

func (m *Metrics) observeRefresh(metric string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	m.refreshes.WithLabelValues(metric, status).Inc()
	m.duration.WithLabelValues(metric).Observe(elapsed.Seconds())
}

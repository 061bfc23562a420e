package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the Prometheus metrics for the lifecycle tracker and
// the suggestion engine. A nil *Collector is valid and records nothing,
// so tests can wire components without a registry.
type Collector struct {
	polls              prometheus.Counter
	pollRetries        prometheus.Counter
	jobsCompleted      prometheus.Counter
	jobsFailed         prometheus.Counter
	hydrations         *prometheus.CounterVec
	suggestionsFetched prometheus.Counter
	suggestionsApplied *prometheus.CounterVec
	activeSessions     prometheus.Gauge
}

// NewCollector creates and registers the collector. Passing nil registers
// against the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "suliko_status_polls_total",
			Help: "Total number of job status polls answered by the backend",
		}),
		pollRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "suliko_status_poll_retries_total",
			Help: "Total number of status polls retried after a transport failure",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "suliko_jobs_completed_total",
			Help: "Total number of tracked jobs that completed",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "suliko_jobs_failed_total",
			Help: "Total number of tracked jobs that failed",
		}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suliko_hydrations_total",
			Help: "Total number of completed hydration passes",
		}, []string{"file"}),
		suggestionsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "suliko_suggestions_fetched_total",
			Help: "Total number of suggestions obtained from the backend",
		}),
		suggestionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suliko_suggestions_applied_total",
			Help: "Total number of suggestions applied, by mode",
		}, []string{"mode"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "suliko_active_sessions",
			Help: "Current number of open tracking sessions",
		}),
	}

	reg.MustRegister(
		c.polls,
		c.pollRetries,
		c.jobsCompleted,
		c.jobsFailed,
		c.hydrations,
		c.suggestionsFetched,
		c.suggestionsApplied,
		c.activeSessions,
	)

	return c
}

func (c *Collector) RecordPoll() {
	if c == nil {
		return
	}
	c.polls.Inc()
}

func (c *Collector) RecordPollRetry() {
	if c == nil {
		return
	}
	c.pollRetries.Inc()
}

func (c *Collector) RecordJobCompleted() {
	if c == nil {
		return
	}
	c.jobsCompleted.Inc()
}

func (c *Collector) RecordJobFailed() {
	if c == nil {
		return
	}
	c.jobsFailed.Inc()
}

func (c *Collector) RecordHydration(withFile bool) {
	if c == nil {
		return
	}
	label := "absent"
	if withFile {
		label = "present"
	}
	c.hydrations.WithLabelValues(label).Inc()
}

func (c *Collector) RecordSuggestionsFetched(count int) {
	if c == nil {
		return
	}
	c.suggestionsFetched.Add(float64(count))
}

// RecordSuggestionApplied counts one applied suggestion; mode is "local"
// for exact-match substitution or "remote" for a delegated patch.
func (c *Collector) RecordSuggestionApplied(mode string) {
	if c == nil {
		return
	}
	c.suggestionsApplied.WithLabelValues(mode).Inc()
}

func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.activeSessions.Set(float64(n))
}

package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	actionsTotal    *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	jobsCompleted   prometheus.Counter
	jobDuration     prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
}

// NewPrometheusSink creates the workflow collectors and registers them on reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuelhaul_workflow_actions_total",
			Help: "Total number of workflow actions by outcome.",
		}, []string{"action", "outcome"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuelhaul_workflow_rejections_total",
			Help: "Total number of rejected workflow actions by error class.",
		}, []string{"action", "reason"}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuelhaul_jobs_completed_total",
			Help: "Total number of transport jobs that reached completed.",
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fuelhaul_job_duration_seconds",
			Help:    "Time from trip start to depot arrival in seconds.",
			Buckets: []float64{1800, 3600, 2 * 3600, 4 * 3600, 6 * 3600, 8 * 3600, 12 * 3600, 24 * 3600},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuelhaul_snapshot_cache_lookups_total",
			Help: "Job snapshot cache lookups by result.",
		}, []string{"result"}),
	}

	s.register(reg, s.actionsTotal, "fuelhaul_workflow_actions_total")
	s.register(reg, s.rejectionsTotal, "fuelhaul_workflow_rejections_total")
	s.register(reg, s.jobsCompleted, "fuelhaul_jobs_completed_total")
	s.register(reg, s.jobDuration, "fuelhaul_job_duration_seconds")
	s.register(reg, s.cacheLookups, "fuelhaul_snapshot_cache_lookups_total")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		slog.Warn("metrics: failed to register collector", "name", name, "error", err)
	}
}

func (s *PrometheusSink) ActionCommitted(action string) {
	s.actionsTotal.WithLabelValues(action, OutcomeCommitted).Inc()
}

func (s *PrometheusSink) ActionRejected(action, reason string) {
	s.actionsTotal.WithLabelValues(action, OutcomeRejected).Inc()
	s.rejectionsTotal.WithLabelValues(action, reason).Inc()
}

func (s *PrometheusSink) JobCompleted(tripDuration time.Duration) {
	s.jobsCompleted.Inc()
	if tripDuration > 0 {
		s.jobDuration.Observe(tripDuration.Seconds())
	}
}

func (s *PrometheusSink) SnapshotCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	s.cacheLookups.WithLabelValues(result).Inc()
}

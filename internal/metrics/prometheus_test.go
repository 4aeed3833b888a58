package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusSink(reg), reg
}

func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m.GetLabel(), labels) {
				return m
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	m := findMetric(t, reg, name, labels)
	if m == nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; !ok || v != p.GetValue() {
			return false
		}
	}
	return true
}

func TestPrometheusSink_Actions(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.ActionCommitted("start_trip")
	sink.ActionCommitted("start_trip")
	sink.ActionRejected("confirm_pickup", "precondition")

	assert.Equal(t, 2.0, counterValue(t, reg, "fuelhaul_workflow_actions_total",
		map[string]string{"action": "start_trip", "outcome": OutcomeCommitted}))
	assert.Equal(t, 1.0, counterValue(t, reg, "fuelhaul_workflow_actions_total",
		map[string]string{"action": "confirm_pickup", "outcome": OutcomeRejected}))
	assert.Equal(t, 1.0, counterValue(t, reg, "fuelhaul_workflow_rejections_total",
		map[string]string{"action": "confirm_pickup", "reason": "precondition"}))
}

func TestPrometheusSink_JobCompleted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.JobCompleted(3 * time.Hour)
	sink.JobCompleted(0)

	assert.Equal(t, 2.0, counterValue(t, reg, "fuelhaul_jobs_completed_total", map[string]string{}))

	m := findMetric(t, reg, "fuelhaul_job_duration_seconds", map[string]string{})
	require.NotNil(t, m)
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
	assert.Equal(t, (3 * time.Hour).Seconds(), m.GetHistogram().GetSampleSum())
}

func TestPrometheusSink_SnapshotCacheLookup(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.SnapshotCacheLookup(true)
	sink.SnapshotCacheLookup(false)
	sink.SnapshotCacheLookup(false)

	assert.Equal(t, 1.0, counterValue(t, reg, "fuelhaul_snapshot_cache_lookups_total", map[string]string{"result": "hit"}))
	assert.Equal(t, 2.0, counterValue(t, reg, "fuelhaul_snapshot_cache_lookups_total", map[string]string{"result": "miss"}))
}

func TestPrometheusSink_DuplicateRegistrationDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewPrometheusSink(reg)
	second := NewPrometheusSink(reg)

	first.ActionCommitted("set_route")
	second.ActionCommitted("set_route")

	assert.Equal(t, 1.0, counterValue(t, reg, "fuelhaul_workflow_actions_total",
		map[string]string{"action": "set_route", "outcome": OutcomeCommitted}))
}

func TestPrometheusSink_ImplementsSink(t *testing.T) {
	var _ Sink = (*PrometheusSink)(nil)
	var _ Sink = (*NoopSink)(nil)
}

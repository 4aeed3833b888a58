package metrics

import "time"

// Sink records workflow metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
type Sink interface {
	// Workflow metrics
	ActionCommitted(action string)
	ActionRejected(action, reason string)
	JobCompleted(tripDuration time.Duration)

	// Registry metrics
	SnapshotCacheLookup(hit bool)
}

// Outcome label values for fuelhaul_workflow_actions_total.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
)

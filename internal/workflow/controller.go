package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/fuelhaul/internal/metrics"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
)

// Action names a driver-initiated workflow operation.
type Action string

const (
	ActionStartTrip           Action = "start_trip"
	ActionConfirmWarehouse    Action = "confirm_warehouse"
	ActionConfirmPickup       Action = "confirm_pickup"
	ActionSetRoute            Action = "set_route"
	ActionBeginDelivery       Action = "begin_delivery"
	ActionConfirmArrival      Action = "confirm_arrival"
	ActionConfirmDelivery     Action = "confirm_delivery"
	ActionConfirmDepotArrival Action = "confirm_depot_arrival"
)

// Registry is durable keyed storage of whole job snapshots.
// Get returns an error matching ErrJobNotFound when no job has the id.
type Registry interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Put(ctx context.Context, job *models.Job) error
}

// Controller applies checkpoint actions to jobs. Every action is an atomic
// read-validate-write of one snapshot: either the checkpoint and the derived
// state are written together, or the stored job is left untouched.
//
// Two writers racing on the same job are not arbitrated; the last Put wins.
type Controller struct {
	registry Registry
	metrics  metrics.Sink
	now      func() time.Time
}

type Option func(*Controller)

// WithClock overrides the time source used for evidence timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithMetrics sets the metrics sink. Defaults to a no-op sink.
func WithMetrics(s metrics.Sink) Option {
	return func(c *Controller) { c.metrics = s }
}

// NewController creates a Controller backed by registry.
func NewController(registry Registry, opts ...Option) *Controller {
	c := &Controller{
		registry: registry,
		metrics:  metrics.NewNoopSink(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type actorKey struct{}

// WithActor attaches the name recorded as recorded_by on evidence written under ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor attached by WithActor, or "".
func ActorFrom(ctx context.Context) string {
	a, _ := ctx.Value(actorKey{}).(string)
	return a
}

// --- Queries ---

// Job loads the current snapshot.
func (c *Controller) Job(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return c.load(ctx, id)
}

// OrderedStops returns copies of the job's stops in committed (or natural) order.
func (c *Controller) OrderedStops(ctx context.Context, id uuid.UUID) ([]models.Stop, error) {
	job, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return OrderedStops(job), nil
}

// NextPendingStop returns the stop the driver should act on next, or nil when all are delivered.
func (c *Controller) NextPendingStop(ctx context.Context, id uuid.UUID) (*models.Stop, error) {
	job, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next := NextPending(Project(job))
	if next == nil {
		return nil, nil
	}
	s := *next
	return &s, nil
}

// OrderedStops is the value form of Project.
func OrderedStops(job *models.Job) []models.Stop {
	ordered := Project(job)
	out := make([]models.Stop, len(ordered))
	for i, s := range ordered {
		out[i] = *s
	}
	return out
}

// --- Actions ---

// StartTrip records the StartTrip checkpoint: NotStarted -> EnRoute.
func (c *Controller) StartTrip(ctx context.Context, id uuid.UUID, in StartTripInput) (*models.Job, error) {
	return c.apply(ctx, id, ActionStartTrip, func(job *models.Job, stamp Stamp) (bool, error) {
		if job.Status != models.JobStatusNotStarted || job.StartTrip != nil {
			return false, alreadyRecorded(ActionStartTrip, models.CheckpointStartTrip)
		}
		cp, err := NewStartTrip(in, LastOdometer(job), stamp)
		if err != nil {
			return false, err
		}
		job.StartTrip = cp
		job.Status = models.JobStatusEnRoute
		return true, nil
	})
}

// ConfirmWarehouse records the WarehouseConfirmation gate. The status stays EnRoute.
func (c *Controller) ConfirmWarehouse(ctx context.Context, id uuid.UUID, in WarehouseInput) (*models.Job, error) {
	return c.apply(ctx, id, ActionConfirmWarehouse, func(job *models.Job, stamp Stamp) (bool, error) {
		switch {
		case job.StartTrip == nil:
			return false, missing(ActionConfirmWarehouse, string(models.CheckpointStartTrip))
		case job.Warehouse != nil || job.Status != models.JobStatusEnRoute:
			return false, alreadyRecorded(ActionConfirmWarehouse, models.CheckpointWarehouse)
		}
		cp, err := NewWarehouseConfirmation(in, stamp)
		if err != nil {
			return false, err
		}
		job.Warehouse = cp
		return true, nil
	})
}

// ConfirmPickup records the PickupConfirmation checkpoint: EnRoute -> OilReceived.
// The warehouse confirmation must already be on the job.
func (c *Controller) ConfirmPickup(ctx context.Context, id uuid.UUID, in PickupInput) (*models.Job, error) {
	return c.apply(ctx, id, ActionConfirmPickup, func(job *models.Job, stamp Stamp) (bool, error) {
		switch {
		case job.StartTrip == nil:
			return false, missing(ActionConfirmPickup, string(models.CheckpointStartTrip))
		case job.Warehouse == nil:
			return false, missing(ActionConfirmPickup, string(models.CheckpointWarehouse))
		case job.Pickup != nil || job.Status != models.JobStatusEnRoute:
			return false, alreadyRecorded(ActionConfirmPickup, models.CheckpointPickup)
		}
		cp, err := NewPickupConfirmation(in, LastOdometer(job), stamp)
		if err != nil {
			return false, err
		}
		job.Pickup = cp
		job.Status = models.JobStatusOilReceived
		return true, nil
	})
}

// SetRoute commits the delivery order: OilReceived -> RouteSet.
func (c *Controller) SetRoute(ctx context.Context, id uuid.UUID, order []string) (*models.Job, error) {
	return c.apply(ctx, id, ActionSetRoute, func(job *models.Job, _ Stamp) (bool, error) {
		switch {
		case job.Pickup == nil:
			return false, missing(ActionSetRoute, string(models.CheckpointPickup))
		case job.RouteOrder != nil || job.Status != models.JobStatusOilReceived:
			return false, &PreconditionError{Action: ActionSetRoute, Missing: "route is already committed"}
		}
		if err := CommitRoute(job, order); err != nil {
			return false, err
		}
		job.Status = models.JobStatusRouteSet
		return true, nil
	})
}

// BeginDelivery moves RouteSet -> Delivering. On a job already delivering it is a no-op.
func (c *Controller) BeginDelivery(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return c.apply(ctx, id, ActionBeginDelivery, func(job *models.Job, _ Stamp) (bool, error) {
		if err := requireDelivering(ActionBeginDelivery, job); err != nil {
			return false, err
		}
		if job.Status == models.JobStatusDelivering {
			return false, nil
		}
		job.Status = models.JobStatusDelivering
		return true, nil
	})
}

// ConfirmArrival sets arrival at the current stop. An empty stopID means the current
// stop. Stops must be worked in route order. Re-confirming an arrived stop is a no-op.
func (c *Controller) ConfirmArrival(ctx context.Context, id uuid.UUID, stopID string) (*models.Job, error) {
	return c.apply(ctx, id, ActionConfirmArrival, func(job *models.Job, stamp Stamp) (bool, error) {
		if err := requireDelivering(ActionConfirmArrival, job); err != nil {
			return false, err
		}
		stop, err := resolveStop(ActionConfirmArrival, job, stopID)
		if err != nil {
			return false, err
		}
		changed, err := MarkArrived(stop, stamp)
		if err != nil {
			return false, err
		}
		if job.Status == models.JobStatusRouteSet {
			job.Status = models.JobStatusDelivering
			changed = true
		}
		return changed, nil
	})
}

// ConfirmDelivery writes the delivery confirmation for an arrived stop. After the last
// stop the job stays Delivering with AwaitingDepot set.
func (c *Controller) ConfirmDelivery(ctx context.Context, id uuid.UUID, stopID string, in DeliveryInput) (*models.Job, error) {
	return c.apply(ctx, id, ActionConfirmDelivery, func(job *models.Job, stamp Stamp) (bool, error) {
		if err := requireDelivering(ActionConfirmDelivery, job); err != nil {
			return false, err
		}
		if stopID != "" {
			if s := job.Stop(stopID); s != nil && s.Status == models.StopStatusPending {
				return false, &PreconditionError{
					Action:  ActionConfirmDelivery,
					Missing: fmt.Sprintf("arrival confirmation at stop %s", stopID),
				}
			}
		}
		stop, err := resolveStop(ActionConfirmDelivery, job, stopID)
		if err != nil {
			return false, err
		}
		if err := MarkDelivered(stop, in, LastOdometer(job), stamp); err != nil {
			return false, err
		}
		return true, nil
	})
}

// ConfirmDepotArrival records the DepotArrival checkpoint once every stop is delivered,
// completing the job.
func (c *Controller) ConfirmDepotArrival(ctx context.Context, id uuid.UUID, in DepotArrivalInput) (*models.Job, error) {
	return c.apply(ctx, id, ActionConfirmDepotArrival, func(job *models.Job, stamp Stamp) (bool, error) {
		switch {
		case job.DepotArrival != nil || job.Status == models.JobStatusCompleted:
			return false, alreadyRecorded(ActionConfirmDepotArrival, models.CheckpointDepotArrival)
		case job.RouteOrder == nil || !AllDelivered(job.Stops):
			return false, missing(ActionConfirmDepotArrival, "delivery confirmation at every stop")
		}
		cp, err := NewDepotArrival(in, LastOdometer(job), stamp)
		if err != nil {
			return false, err
		}
		job.DepotArrival = cp
		return true, nil
	})
}

// --- internals ---

type mutation func(job *models.Job, stamp Stamp) (changed bool, err error)

func (c *Controller) apply(ctx context.Context, id uuid.UUID, action Action, mutate mutation) (*models.Job, error) {
	current, err := c.load(ctx, id)
	if err != nil {
		c.reject(action, id, err)
		return nil, err
	}

	next := current.Clone()
	stamp := Stamp{At: c.now(), By: ActorFrom(ctx)}
	changed, err := mutate(next, stamp)
	if err != nil {
		c.reject(action, id, err)
		return nil, err
	}
	if !changed {
		return current, nil
	}

	next.Status, next.AwaitingDepot = Evaluate(next.Stops, next.DepotArrival != nil, next.Status)
	next.UpdatedAt = stamp.At

	if err := c.registry.Put(ctx, next); err != nil {
		var st *StorageError
		if !errors.As(err, &st) {
			err = &StorageError{Op: "put", Err: err}
		}
		c.reject(action, id, err)
		return nil, err
	}

	c.metrics.ActionCommitted(string(action))
	slog.Info("workflow action committed",
		"job_id", id,
		"action", action,
		"status", next.Status,
		"awaiting_depot", next.AwaitingDepot,
	)
	if next.Status == models.JobStatusCompleted && current.Status != models.JobStatusCompleted {
		var trip time.Duration
		if next.StartTrip != nil && next.DepotArrival != nil {
			trip = next.DepotArrival.RecordedAt.Sub(next.StartTrip.RecordedAt)
		}
		c.metrics.JobCompleted(trip)
	}
	return next, nil
}

func (c *Controller) load(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := c.registry.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return nil, err
		}
		var st *StorageError
		if errors.As(err, &st) {
			return nil, err
		}
		return nil, &StorageError{Op: "get", Err: err}
	}
	return job, nil
}

func (c *Controller) reject(action Action, id uuid.UUID, err error) {
	reason := Reason(err)
	c.metrics.ActionRejected(string(action), reason)
	slog.Warn("workflow action rejected",
		"job_id", id,
		"action", action,
		"reason", reason,
		"error", err,
	)
}

// requireDelivering admits RouteSet and Delivering jobs.
func requireDelivering(action Action, job *models.Job) error {
	switch job.Status {
	case models.JobStatusRouteSet, models.JobStatusDelivering:
		return nil
	case models.JobStatusCompleted:
		return &PreconditionError{Action: action, Missing: "job is already completed"}
	}
	if job.Pickup == nil {
		return missing(action, string(models.CheckpointPickup))
	}
	return missing(action, "committed route")
}

// resolveStop finds the stop to act on and enforces route order.
func resolveStop(action Action, job *models.Job, stopID string) (*models.Stop, error) {
	next := NextPending(Project(job))
	if stopID == "" {
		if next == nil {
			return nil, &PreconditionError{Action: action, Missing: "a pending stop"}
		}
		return next, nil
	}
	stop := job.Stop(stopID)
	if stop == nil {
		return nil, ValidationErrors{{Field: "stop_id", Message: fmt.Sprintf("stop %q is not on this job", stopID)}}
	}
	if stop.Status == models.StopStatusDelivered {
		return stop, nil
	}
	if next != nil && next.ID != stop.ID {
		return nil, &PreconditionError{
			Action:  action,
			Missing: fmt.Sprintf("delivery at stop %s (route order)", next.ID),
		}
	}
	return stop, nil
}

func missing(action Action, what string) error {
	return &PreconditionError{Action: action, Missing: what}
}

func alreadyRecorded(action Action, kind models.CheckpointKind) error {
	return &PreconditionError{Action: action, Missing: fmt.Sprintf("%s checkpoint is already recorded", kind)}
}

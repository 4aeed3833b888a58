package workflow

import "github.com/kiranshivaraju/fuelhaul/pkg/models"

// Step is the checkpoint form a driver should be shown.
type Step string

const (
	StepStartTrip           Step = "start_trip"
	StepConfirmWarehouse    Step = "confirm_warehouse"
	StepConfirmPickup       Step = "confirm_pickup"
	StepSetRoute            Step = "set_route"
	StepConfirmArrival      Step = "confirm_arrival"
	StepConfirmDelivery     Step = "confirm_delivery"
	StepConfirmDepotArrival Step = "confirm_depot_arrival"
	StepDone                Step = "done"
)

// StepView is a step plus the stop it applies to, for the per-stop steps.
type StepView struct {
	Step   Step   `json:"step"`
	StopID string `json:"stop_id,omitempty"`
}

// CurrentStep derives the next form to show solely from the job snapshot.
func CurrentStep(job *models.Job) StepView {
	switch {
	case job.StartTrip == nil:
		return StepView{Step: StepStartTrip}
	case job.Warehouse == nil:
		return StepView{Step: StepConfirmWarehouse}
	case job.Pickup == nil:
		return StepView{Step: StepConfirmPickup}
	case job.RouteOrder == nil:
		return StepView{Step: StepSetRoute}
	}
	if next := NextPending(Project(job)); next != nil {
		if next.Status == models.StopStatusArrived {
			return StepView{Step: StepConfirmDelivery, StopID: next.ID}
		}
		return StepView{Step: StepConfirmArrival, StopID: next.ID}
	}
	if job.DepotArrival == nil {
		return StepView{Step: StepConfirmDepotArrival}
	}
	return StepView{Step: StepDone}
}

// Sequence lists every step of the job in the order a driver walks them, ending with done.
func Sequence(job *models.Job) []StepView {
	seq := []StepView{
		{Step: StepStartTrip},
		{Step: StepConfirmWarehouse},
		{Step: StepConfirmPickup},
		{Step: StepSetRoute},
	}
	for _, s := range Project(job) {
		seq = append(seq,
			StepView{Step: StepConfirmArrival, StopID: s.ID},
			StepView{Step: StepConfirmDelivery, StopID: s.ID},
		)
	}
	return append(seq, StepView{Step: StepConfirmDepotArrival}, StepView{Step: StepDone})
}

// PreviousStep is the step before from in Sequence. It only moves the view: no
// checkpoint, stop sub-state or lifecycle status is touched. ok is false for the
// first step and for steps that do not belong to the job.
func PreviousStep(job *models.Job, from StepView) (StepView, bool) {
	seq := Sequence(job)
	for i, v := range seq {
		if v == from {
			if i == 0 {
				return StepView{}, false
			}
			return seq[i-1], true
		}
	}
	return StepView{}, false
}

// Prefill returns the evidence already recorded for a step, or nil when nothing is recorded.
func Prefill(job *models.Job, v StepView) any {
	switch v.Step {
	case StepStartTrip:
		if job.StartTrip != nil {
			return job.StartTrip
		}
	case StepConfirmWarehouse:
		if job.Warehouse != nil {
			return job.Warehouse
		}
	case StepConfirmPickup:
		if job.Pickup != nil {
			return job.Pickup
		}
	case StepSetRoute:
		return ProjectedOrder(job)
	case StepConfirmArrival:
		if s := job.Stop(v.StopID); s != nil && s.Arrival != nil {
			return s.Arrival
		}
	case StepConfirmDelivery:
		if s := job.Stop(v.StopID); s != nil && s.Delivery != nil {
			return s.Delivery
		}
	case StepConfirmDepotArrival:
		if job.DepotArrival != nil {
			return job.DepotArrival
		}
	}
	return nil
}

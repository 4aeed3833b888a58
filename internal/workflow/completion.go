package workflow

import "github.com/kiranshivaraju/fuelhaul/pkg/models"

// Evaluate derives the lifecycle status from stop progress and depot arrival.
// current is the status the controller has set so far; the result never ranks below it.
// awaitingDepot is true when every stop is delivered but the truck has not checked in.
func Evaluate(stops []models.Stop, depotArrivalRecorded bool, current models.JobStatus) (status models.JobStatus, awaitingDepot bool) {
	progressed := false
	for _, s := range stops {
		if s.Status != models.StopStatusPending {
			progressed = true
			break
		}
	}

	switch {
	case progressed && AllDelivered(stops) && depotArrivalRecorded:
		return models.JobStatusCompleted, false
	case progressed && AllDelivered(stops):
		return atLeast(current, models.JobStatusDelivering), true
	case progressed:
		return atLeast(current, models.JobStatusDelivering), false
	default:
		return current, false
	}
}

func atLeast(current, floor models.JobStatus) models.JobStatus {
	if current.Rank() >= floor.Rank() {
		return current
	}
	return floor
}

package workflow

import (
	"fmt"

	"github.com/kiranshivaraju/fuelhaul/pkg/models"
)

// DefaultOrder is the natural (dispatch) order of the job's stops.
func DefaultOrder(job *models.Job) []string {
	return job.StopIDs()
}

// Reorder moves the element at from to position to, shifting the elements in between
// by one. The input is not modified. A move with from == to returns an equal copy.
func Reorder(order []string, from, to int) ([]string, error) {
	n := len(order)
	if from < 0 || from >= n {
		return nil, &InvalidRouteError{Reason: fmt.Sprintf("from index %d out of range [0,%d)", from, n)}
	}
	if to < 0 || to >= n {
		return nil, &InvalidRouteError{Reason: fmt.Sprintf("to index %d out of range [0,%d)", to, n)}
	}
	out := make([]string, n)
	copy(out, order)
	if from == to {
		return out, nil
	}
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out, nil
}

// ValidateRoute checks that proposed is a permutation of the job's stop ids:
// same set, no duplicates, no omissions.
func ValidateRoute(job *models.Job, proposed []string) error {
	want := make(map[string]bool, len(job.Stops))
	for _, s := range job.Stops {
		want[s.ID] = true
	}
	seen := make(map[string]bool, len(proposed))
	for _, id := range proposed {
		if !want[id] {
			return &InvalidRouteError{Reason: fmt.Sprintf("stop %q is not on this job", id)}
		}
		if seen[id] {
			return &InvalidRouteError{Reason: fmt.Sprintf("stop %q appears more than once", id)}
		}
		seen[id] = true
	}
	for _, s := range job.Stops {
		if !seen[s.ID] {
			return &InvalidRouteError{Reason: fmt.Sprintf("stop %q is missing", s.ID)}
		}
	}
	return nil
}

// CommitRoute validates proposed and stores a copy of it as the job's route order.
func CommitRoute(job *models.Job, proposed []string) error {
	if err := ValidateRoute(job, proposed); err != nil {
		return err
	}
	job.RouteOrder = append([]string{}, proposed...)
	return nil
}

// Project returns pointers to the job's stops in route order, or in natural order
// when no route has been committed.
func Project(job *models.Job) []*models.Stop {
	if job.RouteOrder == nil {
		out := make([]*models.Stop, len(job.Stops))
		for i := range job.Stops {
			out[i] = &job.Stops[i]
		}
		return out
	}
	out := make([]*models.Stop, 0, len(job.RouteOrder))
	for _, id := range job.RouteOrder {
		if s := job.Stop(id); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// ProjectedOrder is the stop ids in the order Project yields them.
func ProjectedOrder(job *models.Job) []string {
	stops := Project(job)
	ids := make([]string, len(stops))
	for i, s := range stops {
		ids[i] = s.ID
	}
	return ids
}

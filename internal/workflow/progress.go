package workflow

import (
	"fmt"

	"github.com/kiranshivaraju/fuelhaul/pkg/models"
)

// NextPending returns the first stop in ordered that is not yet delivered, or nil.
func NextPending(ordered []*models.Stop) *models.Stop {
	for _, s := range ordered {
		if s.Status != models.StopStatusDelivered {
			return s
		}
	}
	return nil
}

// AllDelivered reports whether every stop has been delivered.
func AllDelivered(stops []models.Stop) bool {
	for _, s := range stops {
		if s.Status != models.StopStatusDelivered {
			return false
		}
	}
	return true
}

// MarkArrived moves a pending stop to arrived. Calling it on an arrived stop is a
// no-op that reports changed == false and keeps the original timestamp.
func MarkArrived(stop *models.Stop, stamp Stamp) (changed bool, err error) {
	switch stop.Status {
	case models.StopStatusArrived:
		return false, nil
	case models.StopStatusDelivered:
		return false, &PreconditionError{
			Action:  ActionConfirmArrival,
			Missing: fmt.Sprintf("stop %s is already delivered", stop.ID),
		}
	}
	stop.Status = models.StopStatusArrived
	stop.Arrival = &models.StopArrival{RecordedAt: stamp.At, RecordedBy: stamp.By}
	return true, nil
}

// MarkDelivered validates the evidence and moves an arrived stop to delivered.
func MarkDelivered(stop *models.Stop, in DeliveryInput, floor float64, stamp Stamp) error {
	switch stop.Status {
	case models.StopStatusPending:
		return &PreconditionError{
			Action:  ActionConfirmDelivery,
			Missing: fmt.Sprintf("arrival confirmation at stop %s", stop.ID),
		}
	case models.StopStatusDelivered:
		return &PreconditionError{
			Action:  ActionConfirmDelivery,
			Missing: fmt.Sprintf("stop %s is already delivered", stop.ID),
		}
	}
	delivery, err := NewStopDelivery(in, floor, stamp)
	if err != nil {
		return err
	}
	stop.Status = models.StopStatusDelivered
	stop.Delivery = delivery
	return nil
}

package workflow

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
)

// StopSpec is one delivery destination on a dispatched order.
type StopSpec struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	OilType  string  `json:"oil_type"`
	Quantity float64 `json:"quantity"`
}

// JobSpec is what dispatch supplies when a transport job is created.
type JobSpec struct {
	TransportNo    string               `json:"transport_no"`
	OrderKind      models.OrderKind     `json:"order_kind"`
	InternalRef    string               `json:"internal_ref"`
	SupplierRef    string               `json:"supplier_ref"`
	SourceLocation string               `json:"source_location"`
	Stops          []StopSpec           `json:"stops"`
	Compartments   []models.Compartment `json:"compartments"`
}

// NewJob validates spec and builds a job in NotStarted with every stop pending
// and no committed route.
func NewJob(spec JobSpec, depotID uuid.UUID, stamp Stamp) (*models.Job, error) {
	var errs ValidationErrors
	required := func(field, v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			errs = append(errs, ValidationError{Field: field, Message: "required"})
		}
		return v
	}

	transportNo := required("transport_no", spec.TransportNo)
	internalRef := strings.TrimSpace(spec.InternalRef)
	supplierRef := strings.TrimSpace(spec.SupplierRef)
	switch spec.OrderKind {
	case models.OrderKindInternal:
		internalRef = required("internal_ref", spec.InternalRef)
	case models.OrderKindExternal:
		supplierRef = required("supplier_ref", spec.SupplierRef)
	default:
		errs = append(errs, ValidationError{
			Field:   "order_kind",
			Message: fmt.Sprintf("must be internal or external, got %q", spec.OrderKind),
		})
	}

	if len(spec.Stops) == 0 {
		errs = append(errs, ValidationError{Field: "stops", Message: "at least one stop is required"})
	}
	stops := make([]models.Stop, 0, len(spec.Stops))
	seen := make(map[string]bool, len(spec.Stops))
	for i, s := range spec.Stops {
		id := required(fmt.Sprintf("stops[%d].id", i), s.ID)
		if id != "" && seen[id] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("stops[%d].id", i),
				Message: fmt.Sprintf("duplicate stop id %q", id),
			})
		}
		seen[id] = true
		if s.Quantity < 0 {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("stops[%d].quantity", i), Message: "must not be negative"})
		}
		stops = append(stops, models.Stop{
			ID:       id,
			Name:     strings.TrimSpace(s.Name),
			Address:  strings.TrimSpace(s.Address),
			OilType:  strings.TrimSpace(s.OilType),
			Quantity: s.Quantity,
			Status:   models.StopStatusPending,
		})
	}

	compartments := make([]models.Compartment, 0, len(spec.Compartments))
	for i, c := range spec.Compartments {
		if c.Capacity <= 0 {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("compartments[%d].capacity", i), Message: "must be positive"})
		}
		if c.StopID != "" && !seen[c.StopID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("compartments[%d].stop_id", i),
				Message: fmt.Sprintf("stop %q is not on this job", c.StopID),
			})
		}
		compartments = append(compartments, c)
	}

	if err := errs.orNil(); err != nil {
		return nil, err
	}

	return &models.Job{
		ID:             uuid.New(),
		DepotID:        depotID,
		TransportNo:    transportNo,
		OrderKind:      spec.OrderKind,
		InternalRef:    internalRef,
		SupplierRef:    supplierRef,
		SourceLocation: strings.TrimSpace(spec.SourceLocation),
		Stops:          stops,
		Compartments:   compartments,
		Status:         models.JobStatusNotStarted,
		CreatedBy:      stamp.By,
		CreatedAt:      stamp.At,
		UpdatedAt:      stamp.At,
	}, nil
}

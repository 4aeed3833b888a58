package models

import "time"

// CheckpointKind names the job-level evidence records. Each is written at most once per job.
type CheckpointKind string

const (
	CheckpointStartTrip    CheckpointKind = "start_trip"
	CheckpointWarehouse    CheckpointKind = "warehouse_confirmation"
	CheckpointPickup       CheckpointKind = "pickup_confirmation"
	CheckpointDepotArrival CheckpointKind = "depot_arrival"
)

// Inspection is the driver's verdict on seals, meters and product at pickup or delivery.
type Inspection string

const (
	InspectionPassed Inspection = "passed"
	InspectionFailed Inspection = "failed"
)

// StartTrip is recorded when the truck leaves the depot.
type StartTrip struct {
	Odometer   float64   `json:"odometer"`
	Photos     []string  `json:"photos,omitempty"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	RecordedBy string    `json:"recorded_by,omitempty"`
}

// WarehouseConfirmation records that the cargo source authorized the order before loading.
type WarehouseConfirmation struct {
	AuthorizationNo string    `json:"authorization_no"`
	Photos          []string  `json:"photos"`
	Note            string    `json:"note,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
	RecordedBy      string    `json:"recorded_by,omitempty"`
}

// PickupConfirmation records the product being loaded. Documents groups photo
// references by document category (delivery note, meter ticket, seal, ...).
type PickupConfirmation struct {
	Odometer   float64             `json:"odometer"`
	Documents  map[string][]string `json:"documents"`
	Inspection Inspection          `json:"inspection"`
	Note       string              `json:"note,omitempty"`
	RecordedAt time.Time           `json:"recorded_at"`
	RecordedBy string              `json:"recorded_by,omitempty"`
}

// DepotArrival closes the run.
type DepotArrival struct {
	Odometer   float64   `json:"odometer"`
	Photos     []string  `json:"photos,omitempty"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	RecordedBy string    `json:"recorded_by,omitempty"`
}

// StopArrival gates delivery at a stop.
type StopArrival struct {
	RecordedAt time.Time `json:"recorded_at"`
	RecordedBy string    `json:"recorded_by,omitempty"`
}

// StopDelivery is the evidence that product was discharged at a stop.
type StopDelivery struct {
	Odometer   float64    `json:"odometer"`
	Photos     []string   `json:"photos"`
	Inspection Inspection `json:"inspection"`
	Note       string     `json:"note,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
	RecordedBy string     `json:"recorded_by,omitempty"`
}

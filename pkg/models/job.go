package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the persisted lifecycle status of a transport job. It only moves forward.
type JobStatus string

const (
	JobStatusNotStarted  JobStatus = "not_started"
	JobStatusEnRoute     JobStatus = "en_route"
	JobStatusOilReceived JobStatus = "oil_received"
	JobStatusRouteSet    JobStatus = "route_set"
	JobStatusDelivering  JobStatus = "delivering"
	JobStatusCompleted   JobStatus = "completed"
)

var jobStatusRank = map[JobStatus]int{
	JobStatusNotStarted:  0,
	JobStatusEnRoute:     1,
	JobStatusOilReceived: 2,
	JobStatusRouteSet:    3,
	JobStatusDelivering:  4,
	JobStatusCompleted:   5,
}

// Rank orders statuses along the forward lifecycle. Unknown statuses rank -1.
func (s JobStatus) Rank() int {
	if r, ok := jobStatusRank[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is one of the six lifecycle statuses.
func (s JobStatus) Valid() bool {
	return s.Rank() >= 0
}

// OrderKind classifies where the cargo comes from.
type OrderKind string

const (
	OrderKindInternal OrderKind = "internal" // intra-network transfer
	OrderKindExternal OrderKind = "external" // received from an outside supplier
)

// StopStatus is the delivery sub-state of a single destination stop.
type StopStatus string

const (
	StopStatusPending   StopStatus = "pending"
	StopStatusArrived   StopStatus = "arrived"
	StopStatusDelivered StopStatus = "delivered"
)

// Job is one truck dispatch from a source location to one or more destination stops.
// Stops and Compartments form the fixed cargo plan; everything from Status down is
// workflow state written by the workflow controller.
type Job struct {
	ID             uuid.UUID     `db:"id"              json:"id"`
	DepotID        uuid.UUID     `db:"depot_id"        json:"depot_id"`
	TransportNo    string        `db:"transport_no"    json:"transport_no"`
	OrderKind      OrderKind     `db:"order_kind"      json:"order_kind"`
	InternalRef    string        `db:"internal_ref"    json:"internal_ref,omitempty"`
	SupplierRef    string        `db:"supplier_ref"    json:"supplier_ref,omitempty"`
	SourceLocation string        `db:"source_location" json:"source_location"`
	Stops          []Stop        `db:"stops"           json:"stops"`
	Compartments   []Compartment `db:"compartments"    json:"compartments"`

	Status        JobStatus `db:"status"         json:"status"`
	AwaitingDepot bool      `db:"awaiting_depot" json:"awaiting_depot"`
	// RouteOrder is nil until the driver commits a route.
	RouteOrder []string `db:"route_order" json:"route_order"`

	StartTrip    *StartTrip             `db:"start_trip"             json:"start_trip,omitempty"`
	Warehouse    *WarehouseConfirmation `db:"warehouse_confirmation" json:"warehouse_confirmation,omitempty"`
	Pickup       *PickupConfirmation    `db:"pickup_confirmation"    json:"pickup_confirmation,omitempty"`
	DepotArrival *DepotArrival          `db:"depot_arrival"          json:"depot_arrival,omitempty"`

	Revision  int64     `db:"revision"   json:"revision"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Stop is one destination branch's delivery obligation within a job.
type Stop struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Address  string     `json:"address"`
	OilType  string     `json:"oil_type"`
	Quantity float64    `json:"quantity"`
	Status   StopStatus `json:"status"`

	Arrival  *StopArrival  `json:"arrival,omitempty"`
	Delivery *StopDelivery `json:"delivery,omitempty"`
}

// Compartment describes a truck chamber. Read-only for the workflow.
type Compartment struct {
	Number   int     `json:"number"`
	Capacity float64 `json:"capacity"`
	OilType  string  `json:"oil_type,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
	StopID   string  `json:"stop_id,omitempty"`
}

// StopIDs returns the stop identifiers in natural (dispatch) order.
func (j *Job) StopIDs() []string {
	ids := make([]string, len(j.Stops))
	for i, s := range j.Stops {
		ids[i] = s.ID
	}
	return ids
}

// Stop returns a pointer into j.Stops for the given id, or nil.
func (j *Job) Stop(id string) *Stop {
	for i := range j.Stops {
		if j.Stops[i].ID == id {
			return &j.Stops[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it without touching the original snapshot.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Stops != nil {
		c.Stops = make([]Stop, len(j.Stops))
		for i, s := range j.Stops {
			c.Stops[i] = s.clone()
		}
	}
	if j.Compartments != nil {
		c.Compartments = append([]Compartment(nil), j.Compartments...)
	}
	if j.RouteOrder != nil {
		c.RouteOrder = append([]string{}, j.RouteOrder...)
	}
	if j.StartTrip != nil {
		st := *j.StartTrip
		st.Photos = cloneStrings(st.Photos)
		c.StartTrip = &st
	}
	if j.Warehouse != nil {
		w := *j.Warehouse
		w.Photos = cloneStrings(w.Photos)
		c.Warehouse = &w
	}
	if j.Pickup != nil {
		p := *j.Pickup
		p.Documents = cloneDocuments(p.Documents)
		c.Pickup = &p
	}
	if j.DepotArrival != nil {
		d := *j.DepotArrival
		d.Photos = cloneStrings(d.Photos)
		c.DepotArrival = &d
	}
	return &c
}

func (s Stop) clone() Stop {
	c := s
	if s.Arrival != nil {
		a := *s.Arrival
		c.Arrival = &a
	}
	if s.Delivery != nil {
		d := *s.Delivery
		d.Photos = cloneStrings(d.Photos)
		c.Delivery = &d
	}
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func cloneDocuments(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = cloneStrings(v)
	}
	return out
}

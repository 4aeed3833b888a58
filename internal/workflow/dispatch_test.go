package workflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() JobSpec {
	return JobSpec{
		TransportNo:    "TR-2044",
		OrderKind:      models.OrderKindInternal,
		InternalRef:    "IO-778",
		SourceLocation: "Terminal North",
		Stops: []StopSpec{
			{ID: "S1", Address: "1 Harbour Rd", OilType: "diesel", Quantity: 4000},
			{ID: "S2", Address: "9 Mill Lane", OilType: "diesel", Quantity: 2000},
		},
		Compartments: []models.Compartment{{Number: 1, Capacity: 6000, StopID: "S1"}},
	}
}

func TestNewJob(t *testing.T) {
	depotID := uuid.New()
	job, err := NewJob(validSpec(), depotID, testStamp)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, depotID, job.DepotID)
	assert.Equal(t, models.JobStatusNotStarted, job.Status)
	assert.Nil(t, job.RouteOrder)
	assert.Equal(t, []string{"S1", "S2"}, job.StopIDs())
	for _, s := range job.Stops {
		assert.Equal(t, models.StopStatusPending, s.Status)
	}
	assert.Equal(t, testStamp.By, job.CreatedBy)
	assert.Equal(t, testStamp.At, job.CreatedAt)
	assert.Equal(t, StepView{Step: StepStartTrip}, CurrentStep(job))
}

func TestNewJob_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*JobSpec)
		field  string
	}{
		{"missing transport number", func(s *JobSpec) { s.TransportNo = " " }, "transport_no"},
		{"unknown order kind", func(s *JobSpec) { s.OrderKind = "barter" }, "order_kind"},
		{"internal without ref", func(s *JobSpec) { s.InternalRef = "" }, "internal_ref"},
		{"external without supplier ref", func(s *JobSpec) { s.OrderKind = models.OrderKindExternal }, "supplier_ref"},
		{"no stops", func(s *JobSpec) { s.Stops = nil; s.Compartments = nil }, "stops"},
		{"blank stop id", func(s *JobSpec) { s.Stops[1].ID = "" }, "stops[1].id"},
		{"duplicate stop id", func(s *JobSpec) { s.Stops[1].ID = "S1" }, "stops[1].id"},
		{"negative quantity", func(s *JobSpec) { s.Stops[0].Quantity = -1 }, "stops[0].quantity"},
		{"zero capacity", func(s *JobSpec) { s.Compartments[0].Capacity = 0 }, "compartments[0].capacity"},
		{"compartment for unknown stop", func(s *JobSpec) { s.Compartments[0].StopID = "S9" }, "compartments[0].stop_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			job, err := NewJob(spec, uuid.New(), testStamp)
			assert.Nil(t, job)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.Fields(), tt.field)
		})
	}
}

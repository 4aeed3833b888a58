package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/fuelhaul/internal/api/middleware"
	"github.com/kiranshivaraju/fuelhaul/internal/api/response"
	"github.com/kiranshivaraju/fuelhaul/internal/store"
	"github.com/kiranshivaraju/fuelhaul/internal/workflow"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
)

// JobStore is the subset of store.Store the job handlers need beyond the registry.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error)
}

// Jobs serves the dispatch, query and driver workflow endpoints.
type Jobs struct {
	store JobStore
	ctrl  *workflow.Controller
	now   func() time.Time
}

// NewJobs creates the job handlers.
func NewJobs(s JobStore, ctrl *workflow.Controller) *Jobs {
	return &Jobs{store: s, ctrl: ctrl, now: func() time.Time { return time.Now().UTC() }}
}

// jobView is a snapshot plus the step the driver should see next.
type jobView struct {
	*models.Job
	CurrentStep workflow.StepView `json:"current_step"`
}

func viewOf(job *models.Job) jobView {
	return jobView{Job: job, CurrentStep: workflow.CurrentStep(job)}
}

// --- Dispatch and queries ---

// Create handles POST /api/v1/jobs.
func (h *Jobs) Create(w http.ResponseWriter, r *http.Request) {
	depotID, ok := mw.GetDepotID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing depot", nil)
		return
	}

	var spec workflow.JobSpec
	if !decodeBody(w, r, &spec) {
		return
	}

	job, err := workflow.NewJob(spec, depotID, workflow.Stamp{At: h.now(), By: mw.GetKeyName(r)})
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	if err := h.store.CreateJob(r.Context(), job); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			response.Error(w, http.StatusConflict, "DUPLICATE_JOB", "Job already exists", nil)
			return
		}
		writeWorkflowError(w, r, err)
		return
	}

	slog.Info("job dispatched", "job_id", job.ID, "transport_no", job.TransportNo, "stops", len(job.Stops))
	response.Created(w, viewOf(job))
}

// List handles GET /api/v1/jobs.
func (h *Jobs) List(w http.ResponseWriter, r *http.Request) {
	depotID, ok := mw.GetDepotID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing depot", nil)
		return
	}

	q := r.URL.Query()
	status := models.JobStatus(q.Get("status"))
	if status != "" && !status.Valid() {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "status is not a known job status", nil)
		return
	}
	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), 20)
	if limit > 100 {
		limit = 100
	}

	jobs, total, err := h.store.ListJobs(r.Context(), store.JobFilter{
		DepotID:     depotID,
		Status:      status,
		TransportNo: q.Get("transport_no"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	views := make([]jobView, len(jobs))
	for i, j := range jobs {
		views[i] = viewOf(j)
	}
	response.Collection(w, views, response.NewPaginationMeta(page, limit, total))
}

// Get handles GET /api/v1/jobs/{jobID}.
func (h *Jobs) Get(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	response.JSON(w, viewOf(job))
}

// Stops handles GET /api/v1/jobs/{jobID}/stops.
func (h *Jobs) Stops(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	response.JSON(w, workflow.OrderedStops(job))
}

// NextStop handles GET /api/v1/jobs/{jobID}/next-stop.
func (h *Jobs) NextStop(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	next := workflow.NextPending(workflow.Project(job))
	if next == nil {
		response.Error(w, http.StatusNotFound, "NO_PENDING_STOP", "Every stop has been delivered", nil)
		return
	}
	response.JSON(w, next)
}

// PreviewRoute handles POST /api/v1/jobs/{jobID}/route/preview. Nothing is persisted.
func (h *Jobs) PreviewRoute(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}

	var req struct {
		Order []string `json:"order"`
		From  *int     `json:"from"`
		To    *int     `json:"to"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.From == nil || req.To == nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "from and to are required", nil)
		return
	}

	order := req.Order
	if order == nil {
		order = workflow.ProjectedOrder(job)
	} else if err := workflow.ValidateRoute(job, order); err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	proposed, err := workflow.Reorder(order, *req.From, *req.To)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	response.JSON(w, map[string]any{"order": proposed})
}

// PreviousStep handles GET /api/v1/jobs/{jobID}/steps/previous?step=&stop=.
func (h *Jobs) PreviousStep(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}

	step := r.URL.Query().Get("step")
	if step == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "step is required", nil)
		return
	}
	from := workflow.StepView{Step: workflow.Step(step), StopID: r.URL.Query().Get("stop")}

	prev, ok := workflow.PreviousStep(job, from)
	if !ok {
		response.Error(w, http.StatusNotFound, "NO_PREVIOUS_STEP", "There is no step before "+step, nil)
		return
	}
	response.JSON(w, map[string]any{
		"step":    prev,
		"prefill": workflow.Prefill(job, prev),
	})
}

// --- Workflow actions ---

// StartTrip handles POST /api/v1/jobs/{jobID}/start-trip.
func (h *Jobs) StartTrip(w http.ResponseWriter, r *http.Request) {
	var in workflow.StartTripInput
	h.act(w, r, &in, func(ctx context.Context, id uuid.UUID) (*models.Job, error) {
		return h.ctrl.StartTrip(ctx, id, in)
	})
}

// ConfirmWarehouse handles POST /api/v1/jobs/{jobID}/warehouse.
func (h *Jobs) ConfirmWarehouse(w http.ResponseWriter, r *http.Request) {
	var in workflow.WarehouseInput
	h.act(w, r, &in, func(ctx context.Context, id uuid.UUID) (*models.Job, error) {
		return h.ctrl.ConfirmWarehouse(ctx, id, in)
	})
}

// ConfirmPickup handles POST /api/v1/jobs/{jobID}/pickup.
func (h *Jobs) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	var in workflow.PickupInput
	h.act(w, r, &in, func(ctx context.Context, id uuid.UUID) (*models.Job, error) {
		return h.ctrl.ConfirmPickup(ctx, id, in)
	})
}

// SetRoute handles POST /api/v1/jobs/{jobID}/route.
func (h *Jobs) SetRoute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Order []string `json:"order"`
	}
	h.act(w, r, &req, func(ctx context.Context, id uuid.UUID) (*models.Job, error) {
		return h.ctrl.SetRoute(ctx, id, req.Order)
	})
}

// BeginDelivery handles POST /api/v1/jobs/{jobID}/delivery/begin.
func (h *Jobs) BeginDelivery(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, nil, func(ctx context.Context, id uuid.UUID) (*models.Job, error) {
		return h.ctrl.BeginDelivery(ctx, id)
	})
}

// ConfirmArrival handles POST /api/v1/jobs/{jobID}/stops/{stopID}/arrival.
func (h *Jobs) ConfirmArrival(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopID")
	h.act(w, r, nil, func(ctx context.Context, id uuid.UUID) (*models.Job, error) {
		return h.ctrl.ConfirmArrival(ctx, id, stopID)
	})
}

// ConfirmDelivery handles POST /api/v1/jobs/{jobID}/stops/{stopID}/delivery.
func (h *Jobs) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopID")
	var in workflow.DeliveryInput
	h.act(w, r, &in, func(ctx context.Context, id uuid.UUID) (*models.Job, error) {
		return h.ctrl.ConfirmDelivery(ctx, id, stopID, in)
	})
}

// ConfirmDepotArrival handles POST /api/v1/jobs/{jobID}/depot-arrival.
func (h *Jobs) ConfirmDepotArrival(w http.ResponseWriter, r *http.Request) {
	var in workflow.DepotArrivalInput
	h.act(w, r, &in, func(ctx context.Context, id uuid.UUID) (*models.Job, error) {
		return h.ctrl.ConfirmDepotArrival(ctx, id, in)
	})
}

// act checks ownership, decodes the body into in (when non-nil), runs the
// action as the authenticated key and writes the updated snapshot.
func (h *Jobs) act(w http.ResponseWriter, r *http.Request, in any,
	run func(ctx context.Context, id uuid.UUID) (*models.Job, error)) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	if in != nil && !decodeBody(w, r, in) {
		return
	}

	ctx := workflow.WithActor(r.Context(), mw.GetKeyName(r))
	updated, err := run(ctx, job.ID)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	response.JSON(w, viewOf(updated))
}

// ownedJob loads the job named in the URL and hides jobs of other depots.
func (h *Jobs) ownedJob(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	depotID, ok := mw.GetDepotID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing depot", nil)
		return nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
		return nil, false
	}

	job, err := h.ctrl.Job(r.Context(), id)
	if err != nil {
		writeWorkflowError(w, r, err)
		return nil, false
	}
	if job.DepotID != depotID {
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
		return nil, false
	}
	return job, true
}

// decodeBody decodes a JSON body into v. An empty body leaves v at its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	return true
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

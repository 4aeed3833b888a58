package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/fuelhaul/internal/api/response"
	"github.com/kiranshivaraju/fuelhaul/internal/workflow"
)

// writeWorkflowError maps a controller error onto the error envelope.
func writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		pre      *workflow.PreconditionError
		verrs    workflow.ValidationErrors
		routeErr *workflow.InvalidRouteError
	)
	switch {
	case errors.Is(err, workflow.ErrJobNotFound):
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
	case errors.As(err, &pre):
		response.Error(w, http.StatusConflict, "PRECONDITION_FAILED", err.Error(), map[string]string{
			"action":  string(pre.Action),
			"missing": pre.Missing,
		})
	case errors.As(err, &verrs):
		response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Evidence is missing or malformed", verrs)
	case errors.As(err, &routeErr):
		response.Error(w, http.StatusUnprocessableEntity, "INVALID_ROUTE", routeErr.Error(), nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

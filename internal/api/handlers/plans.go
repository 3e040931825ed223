package handlers

import (
	"errors"
	"net/http"

	"github.com/felixgeelhaar/finplan/internal/api/respond"
	"github.com/felixgeelhaar/finplan/internal/domain"
	"github.com/felixgeelhaar/finplan/internal/plan"
)

// PlanHandler serves the caller's plans
type PlanHandler struct {
	plans *plan.Service
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(plans *plan.Service) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// TargetRequest is one target in a plan body
type TargetRequest struct {
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	DueDate string  `json:"dueDate"`
}

// CreatePlanRequest is the request body for a new plan
type CreatePlanRequest struct {
	Title   string          `json:"title"`
	Targets []TargetRequest `json:"targets"`
}

// UpdatePlanRequest is a partial update; absent fields are left unchanged
type UpdatePlanRequest struct {
	Title   *string          `json:"title"`
	Targets *[]TargetRequest `json:"targets"`
}

func targetInputs(in []TargetRequest) []plan.TargetInput {
	out := make([]plan.TargetInput, len(in))
	for i, t := range in {
		out[i] = plan.TargetInput{Name: t.Name, Amount: t.Amount, DueDate: t.DueDate}
	}
	return out
}

// Create stores a plan owned by the caller
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.InvalidBody(w, r, err)
		return
	}

	p, err := h.plans.Create(r.Context(), caller(r).UserID, plan.CreateInput{
		Title:   req.Title,
		Targets: targetInputs(req.Targets),
	})
	if errors.Is(err, domain.ErrInvalidInput) {
		respond.InvalidBody(w, r, err)
		return
	}
	if err != nil {
		respond.Internal(w, r, "Create failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// List returns the caller's plans, newest first
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.plans.List(r.Context(), caller(r).UserID)
	if err != nil {
		respond.Internal(w, r, "List failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// Update applies a partial update to one of the caller's plans
func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdatePlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.InvalidBody(w, r, err)
		return
	}

	in := plan.UpdateInput{Title: req.Title}
	if req.Targets != nil {
		targets := targetInputs(*req.Targets)
		in.Targets = &targets
	}

	p, err := h.plans.Update(r.Context(), caller(r).UserID, r.PathValue("id"), in)
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		respond.NotFound(w, r, "Plan not found")
		return
	case errors.Is(err, domain.ErrInvalidInput):
		respond.InvalidBody(w, r, err)
		return
	case err != nil:
		respond.Internal(w, r, "Update failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// Delete removes one of the caller's plans
func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.plans.Delete(r.Context(), caller(r).UserID, r.PathValue("id")); err != nil {
		respond.Internal(w, r, "Delete failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.OK)
}

package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/felixgeelhaar/finplan/internal/api/respond"
	"github.com/felixgeelhaar/finplan/internal/domain"
	"github.com/felixgeelhaar/finplan/internal/expense"
)

// ExpenseHandler serves the caller's expenses
type ExpenseHandler struct {
	expenses *expense.Service
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(expenses *expense.Service) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// CreateExpenseRequest is the request body for a new expense
type CreateExpenseRequest struct {
	Date     *string  `json:"date"`
	Category string   `json:"category"`
	Amount   *float64 `json:"amount"`
	Memo     string   `json:"memo"`
}

func (req CreateExpenseRequest) input() (expense.CreateInput, error) {
	if req.Date == nil || req.Amount == nil {
		return expense.CreateInput{}, fmt.Errorf("%w: date and amount are required", domain.ErrInvalidInput)
	}
	amount := *req.Amount
	if amount != math.Trunc(amount) || amount < 0 || amount > 1<<53 {
		return expense.CreateInput{}, fmt.Errorf("%w: amount must be a non-negative integer", domain.ErrInvalidInput)
	}
	return expense.CreateInput{
		Date:     *req.Date,
		Category: req.Category,
		Amount:   int64(amount),
		Memo:     req.Memo,
	}, nil
}

// List returns the caller's expenses in the requested range
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	rng, err := h.expenses.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respond.BadRequest(w, r, "Invalid range", err)
		return
	}

	list, err := h.expenses.List(r.Context(), caller(r).UserID, rng)
	if err != nil {
		respond.Internal(w, r, "List failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// Create records an expense for the caller
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.InvalidBody(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respond.InvalidBody(w, r, err)
		return
	}

	e, err := h.expenses.Create(r.Context(), caller(r).UserID, in)
	if errors.Is(err, domain.ErrInvalidInput) {
		respond.InvalidBody(w, r, err)
		return
	}
	if err != nil {
		respond.Internal(w, r, "Create failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, e)
}

// Delete removes one of the caller's expenses
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.expenses.Delete(r.Context(), caller(r).UserID, r.PathValue("id")); err != nil {
		respond.Internal(w, r, "Delete failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.OK)
}

// Summary returns chart aggregates for the requested range
func (h *ExpenseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rng, err := h.expenses.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respond.BadRequest(w, r, "Invalid range", err)
		return
	}

	summary, err := h.expenses.Summary(r.Context(), caller(r).UserID, rng)
	if err != nil {
		respond.Internal(w, r, "Summary failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, summary)
}

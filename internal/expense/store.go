package expense

import (
	"context"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// Store persists expenses
type Store interface {
	CreateExpense(ctx context.Context, e *domain.Expense) error

	// ListExpenses returns the user's expenses dated within r, newest first
	// (ties broken by descending id).
	ListExpenses(ctx context.Context, userID string, r domain.DateRange) ([]*domain.Expense, error)

	// DeleteExpense removes an expense owned by userID; domain.ErrExpenseNotFound otherwise.
	DeleteExpense(ctx context.Context, userID, id string) error
}

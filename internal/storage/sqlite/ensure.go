package sqlite

import (
	"github.com/felixgeelhaar/finplan/internal/auth"
	"github.com/felixgeelhaar/finplan/internal/expense"
	"github.com/felixgeelhaar/finplan/internal/plan"
)

// Ensure SQLite stores implement the storage interfaces.
var (
	_ auth.UserStore    = (*UserStore)(nil)
	_ auth.SessionStore = (*SessionStore)(nil)
	_ expense.Store     = (*ExpenseStore)(nil)
	_ plan.Store        = (*PlanStore)(nil)
)

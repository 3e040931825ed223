package sqlite

import (
	"testing"

	"github.com/felixgeelhaar/finplan/internal/storage/storetest"
)

// combined exposes every SQLite store through one value
type combined struct {
	*UserStore
	*SessionStore
	*ExpenseStore
	*PlanStore
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		db := openTestDB(t)
		return combined{
			UserStore:    NewUserStore(db),
			SessionStore: NewSessionStore(db),
			ExpenseStore: NewExpenseStore(db),
			PlanStore:    NewPlanStore(db),
		}
	})
}

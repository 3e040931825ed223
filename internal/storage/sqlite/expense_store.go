package sqlite

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// ExpenseStore persists expenses
type ExpenseStore struct {
	db *DB
}

// NewExpenseStore creates a new SQLite-backed expense store.
func NewExpenseStore(db *DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

func (s *ExpenseStore) CreateExpense(ctx context.Context, e *domain.Expense) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, date, category, amount, memo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, utc(e.Date), e.Category, e.Amount, e.Memo, utc(e.CreatedAt), utc(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *ExpenseStore) ListExpenses(ctx context.Context, userID string, r domain.DateRange) ([]*domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, date, category, amount, memo, created_at, updated_at
		FROM expenses
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC, id DESC`,
		userID, utc(r.From), utc(r.To),
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	list := make([]*domain.Expense, 0)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Category, &e.Amount, &e.Memo, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

func (s *ExpenseStore) DeleteExpense(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrExpenseNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

func (s *Store) CreateExpense(ctx context.Context, e *domain.Expense) error {
	_, err := s.db.ExecContext(ctx, `
		insert into expenses (id, user_id, date, category, amount, memo, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.UserID, e.Date.UTC(), e.Category, e.Amount, e.Memo, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string, r domain.DateRange) ([]*domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, date, category, amount, memo, created_at, updated_at
		from expenses
		where user_id = $1 and date >= $2 and date <= $3
		order by date desc, id desc
	`, userID, r.From.UTC(), r.To.UTC())
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from expenses where id = $1 and user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrExpenseNotFound
	}
	return nil
}

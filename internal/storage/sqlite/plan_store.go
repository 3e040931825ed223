package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// PlanStore persists plans. Targets are kept as a JSON column.
type PlanStore struct {
	db *DB
}

// NewPlanStore creates a new SQLite-backed plan store.
func NewPlanStore(db *DB) *PlanStore {
	return &PlanStore{db: db}
}

func (s *PlanStore) CreatePlan(ctx context.Context, p *domain.Plan) error {
	targets, err := marshalTargets(p.Targets)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plans (id, user_id, title, targets, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Title, targets, utc(p.CreatedAt), utc(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *PlanStore) ListPlans(ctx context.Context, userID string) ([]*domain.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, targets, created_at, updated_at
		FROM plans WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	list := make([]*domain.Plan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s *PlanStore) GetPlan(ctx context.Context, userID, id string) (*domain.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, targets, created_at, updated_at
		FROM plans WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	return p, err
}

func (s *PlanStore) UpdatePlan(ctx context.Context, p *domain.Plan) error {
	targets, err := marshalTargets(p.Targets)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE plans SET title = ?, targets = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		p.Title, targets, utc(p.UpdatedAt), p.ID, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func (s *PlanStore) DeletePlan(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM plans WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (*domain.Plan, error) {
	var (
		p       domain.Plan
		targets string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &targets, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	if err := json.Unmarshal([]byte(targets), &p.Targets); err != nil {
		return nil, fmt.Errorf("unmarshal targets: %w", err)
	}
	if p.Targets == nil {
		p.Targets = []domain.Target{}
	}
	return &p, nil
}

func marshalTargets(targets []domain.Target) (string, error) {
	if targets == nil {
		targets = []domain.Target{}
	}
	data, err := json.Marshal(targets)
	if err != nil {
		return "", fmt.Errorf("marshal targets: %w", err)
	}
	return string(data), nil
}

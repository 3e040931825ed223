package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

func (s *Store) CreatePlan(ctx context.Context, p *domain.Plan) error {
	targets, err := encodeTargets(p.Targets)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into plans (id, user_id, title, targets, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.UserID, p.Title, targets, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *Store) ListPlans(ctx context.Context, userID string) ([]*domain.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, title, targets, created_at, updated_at
		from plans
		where user_id = $1
		order by created_at desc, id desc
	`, userID)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return list, nil
}

func (s *Store) GetPlan(ctx context.Context, userID, id string) (*domain.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, user_id, title, targets, created_at, updated_at
		from plans
		where id = $1 and user_id = $2
	`, id, userID)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	return p, err
}

func (s *Store) UpdatePlan(ctx context.Context, p *domain.Plan) error {
	targets, err := encodeTargets(p.Targets)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update plans
		set title = $1, targets = $2, updated_at = $3
		where id = $4 and user_id = $5
	`, p.Title, targets, p.UpdatedAt.UTC(), p.ID, p.UserID)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from plans where id = $1 and user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*domain.Plan, error) {
	var (
		p   domain.Plan
		raw []byte
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &raw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	p.Targets = []domain.Target{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Targets); err != nil {
			return nil, fmt.Errorf("decode targets: %w", err)
		}
	}
	if p.Targets == nil {
		p.Targets = []domain.Target{}
	}
	return &p, nil
}

func encodeTargets(targets []domain.Target) ([]byte, error) {
	if targets == nil {
		targets = []domain.Target{}
	}
	raw, err := json.Marshal(targets)
	if err != nil {
		return nil, fmt.Errorf("encode targets: %w", err)
	}
	return raw, nil
}

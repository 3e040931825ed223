package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var sess domain.Session
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, last_activity, created_at
		from auth_sessions
		where id = $1
	`, id).Scan(&sess.ID, &sess.UserID, &sess.LastActivity, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *Store) SaveSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		insert into auth_sessions (id, user_id, last_activity, created_at)
		values ($1, $2, $3, $4)
		on conflict (id) do update
		set user_id = excluded.user_id, last_activity = excluded.last_activity
	`, sess.ID, sess.UserID, sess.LastActivity.UTC(), sess.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *Store) TouchSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update auth_sessions set last_activity = $2 where id = $1
	`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `delete from auth_sessions where id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Package redis keeps authentication sessions in Redis so several API
// processes can share them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/finplan/internal/auth"
	"github.com/felixgeelhaar/finplan/internal/domain"
)

// DefaultPrefix namespaces session keys
const DefaultPrefix = "finplan:sess"

// ErrRedisUnavailable wraps transport failures
var ErrRedisUnavailable = errors.New("redis unavailable")

var _ auth.SessionStore = (*SessionStore)(nil)

// SessionStore persists sessions as JSON values under prefix:<token>.
//
// Keys carry no TTL unless a retention is configured. The idle check lives in
// the authenticator, which must see stale records to report an idle timeout
// instead of an unknown session. Retention only bounds how long abandoned
// records linger and is clamped to at least twice the idle timeout.
type SessionStore struct {
	client    goredis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewSessionStore creates a session store on client
func NewSessionStore(client goredis.UniversalClient, prefix string, retention time.Duration) *SessionStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if retention > 0 && retention < 2*auth.IdleTimeout {
		retention = 2 * auth.IdleTimeout
	}
	return &SessionStore{
		client:    client,
		prefix:    prefix,
		retention: retention,
	}
}

// Connect parses a redis:// URL and pings the server
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return client, nil
}

type record struct {
	UserID       string `json:"u"`
	LastActivity int64  `json:"la"`
	CreatedAt    int64  `json:"c"`
}

func (s *SessionStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &domain.Session{
		ID:           id,
		UserID:       rec.UserID,
		LastActivity: time.UnixMilli(rec.LastActivity).UTC(),
		CreatedAt:    time.UnixMilli(rec.CreatedAt).UTC(),
	}, nil
}

func (s *SessionStore) SaveSession(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(record{
		UserID:       sess.UserID,
		LastActivity: sess.LastActivity.UnixMilli(),
		CreatedAt:    sess.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), data, s.retention).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// TouchSession rewrites LastActivity with SET XX so a session deleted since
// it was read stays deleted.
func (s *SessionStore) TouchSession(ctx context.Context, id string, at time.Time) error {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(record{
		UserID:       sess.UserID,
		LastActivity: at.UnixMilli(),
		CreatedAt:    sess.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	err = s.client.SetArgs(ctx, s.key(id), data, goredis.SetArgs{Mode: "XX", TTL: s.retention}).Err()
	if errors.Is(err, goredis.Nil) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping checks the server is reachable
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

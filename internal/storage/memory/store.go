// Package memory provides a goroutine-safe in-memory implementation of every
// store contract. It backs tests and the "memory" backend for local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// Store keeps users, sessions, expenses and plans in maps. Values are copied on
// the way in and out so callers never share state with the store.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	emails   map[string]string
	sessions map[string]domain.Session
	expenses map[string]domain.Expense
	plans    map[string]domain.Plan
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		sessions: make(map[string]domain.Session),
		expenses: make(map[string]domain.Expense),
		plans:    make(map[string]domain.Plan),
	}
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() error { return nil }

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[user.Email]; taken {
		return domain.ErrEmailExists
	}
	s.users[user.ID] = *user
	s.emails[user.Email] = user.ID
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) FindIdentity(_ context.Context, id string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	identity := u.Identity()
	return &identity, nil
}

// DeleteUser removes a user. Sessions owned by the user are left in place.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.emails, u.Email)
	return nil
}

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

func (s *Store) GetSession(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *Store) SaveSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *Store) TouchSession(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.Touch(at)
	s.sessions[id] = sess
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// -----------------------------------------------------------------------------
// Expenses
// -----------------------------------------------------------------------------

func (s *Store) CreateExpense(_ context.Context, e *domain.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[e.ID] = *e
	return nil
}

func (s *Store) ListExpenses(_ context.Context, userID string, r domain.DateRange) ([]*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Expense, 0)
	for _, e := range s.expenses {
		if e.UserID != userID || !r.Contains(e.Date) {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return strings.Compare(out[i].ID, out[j].ID) > 0
	})
	return out, nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return domain.ErrExpenseNotFound
	}
	delete(s.expenses, id)
	return nil
}

// -----------------------------------------------------------------------------
// Plans
// -----------------------------------------------------------------------------

func (s *Store) CreatePlan(_ context.Context, p *domain.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = clonePlan(*p)
	return nil
}

func (s *Store) ListPlans(_ context.Context, userID string) ([]*domain.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Plan, 0)
	for _, p := range s.plans {
		if p.UserID != userID {
			continue
		}
		p := clonePlan(p)
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return strings.Compare(out[i].ID, out[j].ID) > 0
	})
	return out, nil
}

func (s *Store) GetPlan(_ context.Context, userID, id string) (*domain.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok || p.UserID != userID {
		return nil, domain.ErrPlanNotFound
	}
	p = clonePlan(p)
	return &p, nil
}

func (s *Store) UpdatePlan(_ context.Context, p *domain.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.plans[p.ID]
	if !ok || existing.UserID != p.UserID {
		return domain.ErrPlanNotFound
	}
	s.plans[p.ID] = clonePlan(*p)
	return nil
}

func (s *Store) DeletePlan(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok || p.UserID != userID {
		return domain.ErrPlanNotFound
	}
	delete(s.plans, id)
	return nil
}

func clonePlan(p domain.Plan) domain.Plan {
	p.Targets = append([]domain.Target(nil), p.Targets...)
	if p.Targets == nil {
		p.Targets = []domain.Target{}
	}
	return p
}

// Package storetest holds the behavioural contract every storage backend
// must satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// Store is the union of the user, session, expense and plan contracts
type Store interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindIdentity(ctx context.Context, id string) (*domain.Identity, error)
	DeleteUser(ctx context.Context, id string) error

	GetSession(ctx context.Context, id string) (*domain.Session, error)
	SaveSession(ctx context.Context, sess *domain.Session) error
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error

	CreateExpense(ctx context.Context, e *domain.Expense) error
	ListExpenses(ctx context.Context, userID string, r domain.DateRange) ([]*domain.Expense, error)
	DeleteExpense(ctx context.Context, userID, id string) error

	CreatePlan(ctx context.Context, p *domain.Plan) error
	ListPlans(ctx context.Context, userID string) ([]*domain.Plan, error)
	GetPlan(ctx context.Context, userID, id string) (*domain.Plan, error)
	UpdatePlan(ctx context.Context, p *domain.Plan) error
	DeletePlan(ctx context.Context, userID, id string) error
}

// Factory returns an empty store for a single subtest
type Factory func(t *testing.T) Store

var base = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

// Run executes the full contract against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("Expenses", func(t *testing.T) { testExpenses(t, newStore(t)) })
	t.Run("Plans", func(t *testing.T) { testPlans(t, newStore(t)) })
}

// RunSessions executes only the session contract, for session-only backends
func RunSessions(t *testing.T, newStore func(t *testing.T) SessionStore) {
	testSessions(t, newStore(t))
}

// SessionStore is the session subset of Store
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	SaveSession(ctx context.Context, sess *domain.Session) error
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	u := &domain.User{
		ID:           "user-1",
		Email:        "kim@example.com",
		Name:         "Kim",
		PasswordHash: "$2a$04$hash",
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	require.NoError(t, s.CreateUser(ctx, u))

	dup := *u
	dup.ID = "user-2"
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), domain.ErrEmailExists)

	got, err := s.GetUserByEmail(ctx, "kim@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)
	assert.Equal(t, "Kim", got.Name)
	assert.Equal(t, "$2a$04$hash", got.PasswordHash)
	assert.True(t, got.CreatedAt.Equal(base), "CreatedAt = %v", got.CreatedAt)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	id, err := s.FindIdentity(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{UserID: "user-1", Email: "kim@example.com", Name: "Kim"}, *id)

	_, err = s.FindIdentity(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, s.SaveSession(ctx, &domain.Session{ID: "s-orphan", UserID: "user-1", LastActivity: base, CreatedAt: base}))
	require.NoError(t, s.DeleteUser(ctx, "user-1"))
	_, err = s.FindIdentity(ctx, "user-1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	// sessions are not cascaded
	_, err = s.GetSession(ctx, "s-orphan")
	assert.NoError(t, err)

	assert.ErrorIs(t, s.DeleteUser(ctx, "user-1"), domain.ErrUserNotFound)
}

func testSessions(t *testing.T, s SessionStore) {
	ctx := context.Background()

	_, err := s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sess := &domain.Session{ID: "tok-1", UserID: "user-1", LastActivity: base, CreatedAt: base}
	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.GetSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.True(t, got.LastActivity.Equal(base), "LastActivity = %v", got.LastActivity)

	later := base.Add(42*time.Minute + 123*time.Millisecond)
	require.NoError(t, s.TouchSession(ctx, "tok-1", later))

	got, err = s.GetSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, got.LastActivity.Equal(later), "LastActivity = %v; want %v", got.LastActivity, later)
	assert.True(t, got.CreatedAt.Equal(base), "CreatedAt = %v", got.CreatedAt)

	require.NoError(t, s.DeleteSession(ctx, "tok-1"))
	_, err = s.GetSession(ctx, "tok-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.NoError(t, s.DeleteSession(ctx, "tok-1"), "delete must be idempotent")

	assert.ErrorIs(t, s.TouchSession(ctx, "tok-1", later.Add(time.Minute)), domain.ErrSessionNotFound)
	_, err = s.GetSession(ctx, "tok-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "touch must not recreate a deleted session")
}

func expenseAt(id, user string, day int, cat string, amount int64) *domain.Expense {
	d := base.AddDate(0, 0, day)
	return &domain.Expense{
		ID:        id,
		UserID:    user,
		Date:      d,
		Category:  cat,
		Amount:    amount,
		Memo:      "memo " + id,
		CreatedAt: d,
		UpdatedAt: d,
	}
}

func testExpenses(t *testing.T, s Store) {
	ctx := context.Background()

	for _, e := range []*domain.Expense{
		expenseAt("e1", "u1", 0, "food", 100),
		expenseAt("e2", "u1", 1, "transport", 200),
		expenseAt("e3", "u1", 1, "food", 300),
		expenseAt("e4", "u1", 5, "rent", 400),
		expenseAt("e5", "u2", 1, "food", 999),
	} {
		require.NoError(t, s.CreateExpense(ctx, e))
	}

	r := domain.DateRange{From: base, To: base.AddDate(0, 0, 2).Add(-time.Millisecond)}
	list, err := s.ListExpenses(ctx, "u1", r)
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	// date desc, then id desc
	assert.Equal(t, []string{"e3", "e2", "e1"}, ids)
	assert.Equal(t, "memo e3", list[0].Memo)
	assert.Equal(t, int64(300), list[0].Amount)
	assert.True(t, list[0].Date.Equal(base.AddDate(0, 0, 1)), "Date = %v", list[0].Date)

	// bounds are inclusive
	exact := domain.DateRange{From: base, To: base}
	list, err = s.ListExpenses(ctx, "u1", exact)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "e1", list[0].ID)

	empty, err := s.ListExpenses(ctx, "nobody", r)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	assert.ErrorIs(t, s.DeleteExpense(ctx, "u2", "e1"), domain.ErrExpenseNotFound)
	require.NoError(t, s.DeleteExpense(ctx, "u1", "e1"))
	assert.ErrorIs(t, s.DeleteExpense(ctx, "u1", "e1"), domain.ErrExpenseNotFound)

	list, err = s.ListExpenses(ctx, "u1", r)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func testPlans(t *testing.T, s Store) {
	ctx := context.Background()

	older := &domain.Plan{
		ID:        "p1",
		UserID:    "u1",
		Title:     "Emergency fund",
		Targets:   []domain.Target{{Name: "month one", Amount: 500000, DueDate: base.AddDate(0, 1, 0)}},
		CreatedAt: base,
		UpdatedAt: base,
	}
	newer := &domain.Plan{
		ID:        "p2",
		UserID:    "u1",
		Title:     "Travel",
		Targets:   []domain.Target{},
		CreatedAt: base.Add(time.Hour),
		UpdatedAt: base.Add(time.Hour),
	}
	other := &domain.Plan{ID: "p3", UserID: "u2", Title: "Not yours", Targets: []domain.Target{}, CreatedAt: base, UpdatedAt: base}
	for _, p := range []*domain.Plan{older, newer, other} {
		require.NoError(t, s.CreatePlan(ctx, p))
	}

	list, err := s.ListPlans(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].ID)
	assert.Equal(t, "p1", list[1].ID)
	assert.NotNil(t, list[0].Targets)

	got, err := s.GetPlan(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, got.Targets, 1)
	assert.Equal(t, "month one", got.Targets[0].Name)
	assert.Equal(t, 500000.0, got.Targets[0].Amount)
	assert.True(t, got.Targets[0].DueDate.Equal(base.AddDate(0, 1, 0)), "DueDate = %v", got.Targets[0].DueDate)

	_, err = s.GetPlan(ctx, "u2", "p1")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	_, err = s.GetPlan(ctx, "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)

	got.Title = "Rainy day"
	got.Targets = append(got.Targets, domain.Target{Name: "month two", Amount: 250000, DueDate: base.AddDate(0, 2, 0)})
	got.UpdatedAt = base.Add(2 * time.Hour)
	require.NoError(t, s.UpdatePlan(ctx, got))

	got, err = s.GetPlan(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Rainy day", got.Title)
	assert.Len(t, got.Targets, 2)
	assert.True(t, got.CreatedAt.Equal(base), "CreatedAt changed to %v", got.CreatedAt)

	hijack := *other
	hijack.UserID = "u1"
	hijack.Title = "mine now"
	assert.ErrorIs(t, s.UpdatePlan(ctx, &hijack), domain.ErrPlanNotFound)

	theirs, err := s.GetPlan(ctx, "u2", "p3")
	require.NoError(t, err)
	assert.Equal(t, "Not yours", theirs.Title)

	assert.ErrorIs(t, s.DeletePlan(ctx, "u2", "p1"), domain.ErrPlanNotFound)
	require.NoError(t, s.DeletePlan(ctx, "u1", "p1"))
	assert.ErrorIs(t, s.DeletePlan(ctx, "u1", "p1"), domain.ErrPlanNotFound)
}

package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/finplan/internal/domain"
	"github.com/felixgeelhaar/finplan/internal/events"
)

// DefaultWindowDays is the length of the range used when none is requested
const DefaultWindowDays = 7

// Service manages a user's expenses
type Service struct {
	store     Store
	publisher events.Publisher
	loc       *time.Location
	now       func() time.Time
}

// NewService creates an expense service. Day boundaries are computed in loc.
func NewService(store Store, publisher events.Publisher, loc *time.Location) *Service {
	if publisher == nil {
		publisher = events.Discard
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:     store,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
	}
}

// SetClock overrides the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateInput is the client-supplied part of a new expense
type CreateInput struct {
	Date     string
	Category string
	Amount   int64
	Memo     string
}

// Create records a new expense for userID
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.Expense, error) {
	date, err := domain.ParseDate(strings.TrimSpace(in.Date), s.loc)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	e := &domain.Expense{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Date:      date.UTC(),
		Category:  in.Category,
		Amount:    in.Amount,
		Memo:      in.Memo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.publish(ctx, domain.NewEvent(domain.EventExpenseCreated, userID, e.ID))
	return e, nil
}

// List returns the user's expenses within r
func (s *Service) List(ctx context.Context, userID string, r domain.DateRange) ([]*domain.Expense, error) {
	list, err := s.store.ListExpenses(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

// Delete removes one of the user's expenses. Deleting an expense that does not
// exist or belongs to someone else is a silent no-op.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := s.store.DeleteExpense(ctx, userID, id)
	if errors.Is(err, domain.ErrExpenseNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publish(ctx, domain.NewEvent(domain.EventExpenseDeleted, userID, id))
	return nil
}

// ParseRange turns optional from/to calendar days into an inclusive range.
// Both must be given to select a custom range; otherwise the last
// DefaultWindowDays days including today are used.
func (s *Service) ParseRange(from, to string) (domain.DateRange, error) {
	if from == "" || to == "" {
		today := s.now()
		return domain.DateRange{
			From: domain.StartOfDay(today.AddDate(0, 0, -(DefaultWindowDays-1)), s.loc),
			To:   domain.EndOfDay(today, s.loc),
		}, nil
	}

	f, err := domain.ParseDate(from, s.loc)
	if err != nil {
		return domain.DateRange{}, err
	}
	t, err := domain.ParseDate(to, s.loc)
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.DateRange{
		From: domain.StartOfDay(f, s.loc),
		To:   domain.EndOfDay(t, s.loc),
	}, nil
}

func (s *Service) publish(ctx context.Context, ev domain.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish event",
			"type", ev.Type,
			"subject_id", ev.SubjectID,
			"error", err,
		)
	}
}

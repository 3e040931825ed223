// Package plan manages savings plans and their dated targets.
package plan

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

// Service manages a user's plans
type Service struct {
	store     Store
	publisher events.Publisher
	loc       *time.Location
	now       func() time.Time
}

// NewService creates a plan service. Date-only due dates are read in loc.
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

// TargetInput is a target as submitted by the client
type TargetInput struct {
	Name    string
	Amount  float64
	DueDate string
}

// CreateInput describes a new plan
type CreateInput struct {
	Title   string
	Targets []TargetInput
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title   *string
	Targets *[]TargetInput
}

// Create stores a new plan owned by userID
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.Plan, error) {
	targets, err := s.parseTargets(in.Targets)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &domain.Plan{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Title:     in.Title,
		Targets:   targets,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreatePlan(ctx, p); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	s.publish(ctx, domain.NewEvent(domain.EventPlanCreated, userID, p.ID))
	return p, nil
}

// List returns the user's plans, newest first
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Plan, error) {
	list, err := s.store.ListPlans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return list, nil
}

// Update applies in to one of the user's plans
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*domain.Plan, error) {
	p, err := s.store.GetPlan(ctx, userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load plan: %w", err)
	}

	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Targets != nil {
		targets, err := s.parseTargets(*in.Targets)
		if err != nil {
			return nil, err
		}
		p.Targets = targets
	}
	p.UpdatedAt = s.now().UTC()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdatePlan(ctx, p); err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update plan: %w", err)
	}

	s.publish(ctx, domain.NewEvent(domain.EventPlanUpdated, userID, p.ID))
	return p, nil
}

// Delete removes one of the user's plans. Missing plans are ignored.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := s.store.DeletePlan(ctx, userID, id)
	if errors.Is(err, domain.ErrPlanNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}

	s.publish(ctx, domain.NewEvent(domain.EventPlanDeleted, userID, id))
	return nil
}

func (s *Service) parseTargets(in []TargetInput) ([]domain.Target, error) {
	out := make([]domain.Target, 0, len(in))
	for i, t := range in {
		due, err := domain.ParseDate(strings.TrimSpace(t.DueDate), s.loc)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		out = append(out, domain.Target{
			Name:    t.Name,
			Amount:  t.Amount,
			DueDate: due.UTC(),
		})
	}
	return out, nil
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

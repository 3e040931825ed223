package plan

import (
	"context"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// Store persists plans. Every lookup is scoped to the owning user; a plan
// owned by someone else is reported as domain.ErrPlanNotFound.
type Store interface {
	CreatePlan(ctx context.Context, p *domain.Plan) error
	ListPlans(ctx context.Context, userID string) ([]*domain.Plan, error)
	GetPlan(ctx context.Context, userID, id string) (*domain.Plan, error)
	UpdatePlan(ctx context.Context, p *domain.Plan) error
	DeletePlan(ctx context.Context, userID, id string) error
}

package testutil

import (
	"context"

	"github.com/flexprice/revenue/internal/domain/plan"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
}

// NewInMemoryPlanStore creates a new in-memory plan store
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
	}
}

func (s *InMemoryPlanStore) CreatePlan(ctx context.Context, p *plan.Plan) error {
	return s.Create(ctx, p.ID, p)
}

// GetResolved resolves the stored plan on every call
func (s *InMemoryPlanStore) GetResolved(ctx context.Context, id string) (*plan.ResolvedPlan, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return plan.Resolve(p)
}

func (s *InMemoryPlanStore) List(ctx context.Context) ([]*plan.Plan, error) {
	return s.InMemoryStore.List(ctx, nil, func(a, b *plan.Plan) bool {
		return a.ID < b.ID
	})
}

package testutil

import (
	"context"

	"github.com/flexprice/revenue/internal/domain/subscription"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func (s *InMemorySubscriptionStore) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return s.Create(ctx, sub.ID, sub)
}

func (s *InMemorySubscriptionStore) List(ctx context.Context) ([]*subscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, nil, subscriptionSortFn)
}

func (s *InMemorySubscriptionStore) ListByPlan(ctx context.Context, planID string) ([]*subscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return sub.Plan.ID == planID
	}, subscriptionSortFn)
}

func subscriptionSortFn(a, b *subscription.Subscription) bool {
	return a.ID < b.ID
}

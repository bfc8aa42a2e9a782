package subscription

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Subscription, error)
	List(ctx context.Context) ([]*Subscription, error)
	// ListByPlan returns the subscriptions bound to planID
	ListByPlan(ctx context.Context, planID string) ([]*Subscription, error)
}

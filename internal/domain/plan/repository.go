package plan

import (
	"context"
)

// Repository loads plan definitions
type Repository interface {
	Get(ctx context.Context, id string) (*Plan, error)
	// GetResolved returns the evaluation ready form of a plan
	GetResolved(ctx context.Context, id string) (*ResolvedPlan, error)
	List(ctx context.Context) ([]*Plan, error)
}

package metrics

import (
	"context"

	"github.com/flexprice/revenue/internal/types"
	"github.com/shopspring/decimal"
)

// Provider is the boundary between the engine and wherever metric values live.
//
// A nil value together with a nil error means the metric is absent for the
// requested entity and period. Absent values never contribute to a revenue
// item and are not the same as zero.
type Provider interface {
	// MetricValue returns the value of key for entityID aggregated over period
	MetricValue(ctx context.Context, key, entityID string, period types.TimePeriod) (*decimal.Decimal, error)

	// DistinctEntities returns the entities related to anchorEntityID through
	// iterationKey during period, in a stable order
	DistinctEntities(ctx context.Context, iterationKey, anchorEntityID string, period types.TimePeriod) ([]string, error)

	// EntityDisplayName returns a human readable label for entityID.
	// Implementations fall back to the id when no name is known.
	EntityDisplayName(ctx context.Context, entityID string) (string, error)
}

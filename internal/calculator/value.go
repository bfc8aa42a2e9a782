package calculator

import (
	"context"

	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/types"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// atomicValue is the magnitude of an atomic node: its amount, or its
// computation base times percent / 100 or times unitAmount. It is nil when
// the node does not apply or its base is unavailable.
func (ev *evaluation) atomicValue(ctx context.Context, n *plan.Node, cc Context) (*decimal.Decimal, error) {
	ok, err := ev.applicable(ctx, n, cc)
	if err != nil || !ok {
		return nil, err
	}

	if n.Amount != nil {
		v := *n.Amount
		return &v, nil
	}

	base, err := ev.base(ctx, n, n.ComputationBase, n.ComputationBaseReferencePeriod, cc)
	if err != nil || base == nil {
		return nil, err
	}

	var v decimal.Decimal
	switch {
	case n.Percent != nil:
		v = base.Mul(*n.Percent).Div(hundred)
	case n.UnitAmount != nil:
		v = base.Mul(*n.UnitAmount)
	default:
		return nil, nil
	}
	return &v, nil
}

// applicable checks the applicable base of n against its range. A node
// with a range but no readable base does not apply.
func (ev *evaluation) applicable(ctx context.Context, n *plan.Node, cc Context) (bool, error) {
	var (
		value *decimal.Decimal
		err   error
	)
	if n.ApplicableBase != "" {
		value, err = ev.base(ctx, n, n.ApplicableBase, n.ApplicableBaseReferencePeriod, cc)
		if err != nil {
			return false, err
		}
	}

	switch {
	case value != nil && n.ApplicableBaseRange != nil:
		in := n.ApplicableBaseRange.InRange(*value)
		if !in {
			ev.log().Debugw("applicable base out of range",
				"plan_item", n.Path,
				"applicable_base", n.ApplicableBase,
				"value", value.String(),
			)
		}
		return in, nil
	case value != nil:
		ev.log().Warnw("applicable base set without a range", "plan_item", n.Path, "applicable_base", n.ApplicableBase)
		return true, nil
	case n.ApplicableBaseRange != nil:
		ev.log().Debugw("applicable base unavailable, item does not apply",
			"plan_item", n.Path,
			"applicable_base", n.ApplicableBase,
		)
		return false, nil
	}
	return true, nil
}

// base reads the value of a computation or applicable base over its
// reference period. parent-price reads from the context.
func (ev *evaluation) base(ctx context.Context, n *plan.Node, key string, ref *types.ReferencePeriod, cc Context) (*decimal.Decimal, error) {
	if key == types.ParentPriceBase {
		if cc.ParentPrice == nil {
			ev.log().Debugw("no parent price in context", "plan_item", n.Path)
		}
		return cc.ParentPrice, nil
	}

	window := &ev.period
	if ref != nil {
		w, err := ev.windows(n).CustomPeriod(ev.period.Start, *ref)
		if err != nil {
			return nil, planError(err, n)
		}
		if w == nil {
			ev.log().Debugw("reference period does not exist yet",
				"plan_item", n.Path,
				"reference_period", ref.String(),
			)
			return nil, nil
		}
		window = w
	}

	entity := ev.entity(cc)
	v, err := ev.engine.provider.MetricValue(ctx, key, entity, *window)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ev.log().Warnw("metric lookup failed, treating as absent",
			"plan_item", n.Path,
			"metric", key,
			"entity_id", entity,
			"error", err,
		)
		return nil, nil
	}
	if v == nil {
		ev.log().Debugw("metric absent",
			"plan_item", n.Path,
			"metric", key,
			"entity_id", entity,
			"window", window.String(),
		)
	}
	return v, nil
}

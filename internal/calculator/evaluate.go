package calculator

import (
	"context"
	"time"

	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/domain/revenue"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/period"
	"github.com/flexprice/revenue/internal/tokens"
	"github.com/flexprice/revenue/internal/types"
)

// evaluate runs the node at idx through its strategy, wrapped by the checks
// and adjustments every node gets. A nil item means the node contributes
// nothing to the period.
func (ev *evaluation) evaluate(ctx context.Context, idx int, cc Context) (*revenue.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := ev.plan.Node(idx)
	log := ev.log().With("plan_item", n.Path, "period", ev.period.String())

	// atomic nodes only contribute to their own charge periods, bundles
	// let their children decide
	chargePeriod, err := period.ChargePeriodAt(n, ev.subscription, ev.period.Start)
	if err != nil {
		return nil, planError(err, n)
	}
	aligned := chargePeriod != nil && chargePeriod.Equal(ev.period)
	if !aligned && !n.IsBundle {
		log.Debugw("charge period does not match, skipping", "charge_period", chargePeriod)
		return nil, nil
	}

	if n.Ignore != nil {
		ignore, unresolved := n.Ignore.Bool(ev.scope(ctx, cc, nil))
		if len(unresolved) > 0 {
			log.Infow("unresolved tokens in ignore flag", "tokens", unresolved)
		}
		if ignore {
			log.Infow("ignore flag set, skipping", "ignore", n.Ignore.Source())
			return nil, nil
		}
	}

	if n.ValidPeriod != nil {
		valid, err := ev.windows(n).CustomPeriod(ev.period.Start, *n.ValidPeriod)
		if err != nil {
			return nil, planError(err, n)
		}
		if valid != nil && !ev.period.Start.Before(valid.End) {
			log.Debugw("period starts after the valid period, skipping", "valid_period", valid.String())
			return nil, nil
		}
	}

	zero, err := ev.zeroed(n)
	if err != nil {
		return nil, err
	}

	strat, err := ev.engine.strategyFor(n)
	if err != nil {
		return nil, err
	}
	item, err := strat(ctx, ev, n, cc)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	if aligned {
		item.SetChargeTime(period.ChargeTime(*chargePeriod, n.PriceType))
	}
	if n.IsPrice() && n.PriceType != "" {
		item.Type = n.PriceType
	}

	if zero {
		log.Debugw("zeroing item amounts")
		item.ZeroAmounts()
	} else if n.ResultingAmountRange != nil {
		ev.clamp(n, item)
	}

	if n.SkipIfZero && item.OverallValue().IsZero() {
		log.Debugw("overall value is zero, skipping")
		return nil, nil
	}

	if item.ChargeTime != nil {
		item.Estimated = n.Variable && item.ChargeTime.After(ev.now)
	}

	if n.Collapse {
		if item.ChargeTime != nil {
			item.Collapse()
		} else {
			log.Warnw("cannot collapse an item without charge time")
		}
	}

	item.Name = ev.renderName(ctx, n, cc, item.ChargeTime)
	return item, nil
}

// zeroed reports whether the node is evaluated for its shape only: before
// applicableFrom or while its ignore period is running
func (ev *evaluation) zeroed(n *plan.Node) (bool, error) {
	if n.ApplicableFrom != nil && n.ApplicableFrom.After(ev.period.Start) {
		return true, nil
	}
	if n.IgnorePeriod == nil {
		return false, nil
	}
	ignored, err := ev.windows(n).CustomPeriod(ev.period.Start, *n.IgnorePeriod)
	if err != nil {
		return false, planError(err, n)
	}
	return ignored != nil && ignored.Contains(ev.period.Start), nil
}

// clamp moves the own value of item so that its overall value falls in the
// resulting amount range. Discount ranges are written as magnitudes.
func (ev *evaluation) clamp(n *plan.Node, item *revenue.Item) {
	r := *n.ResultingAmountRange
	if n.IsDiscount() {
		r = r.Negate()
	}

	overall := item.OverallValue()
	bounded := r.Clamp(overall)
	if bounded.Equal(overall) {
		return
	}

	v := item.OwnValue().Add(bounded.Sub(overall))
	item.Value = &v
	ev.log().Debugw("resulting amount constrained",
		"plan_item", n.Path,
		"overall", overall.String(),
		"bounded", bounded.String(),
	)
}

// scope is the token scope under cc, with chargeTime when known
func (ev *evaluation) scope(ctx context.Context, cc Context, chargeTime *time.Time) tokens.Scope {
	s := ev.baseScope
	s.Seller = ev.seller(ctx, cc)
	s = s.WithComputed(tokens.ComputedChargePeriodStart, types.FormatDate(ev.period.Start))
	s = s.WithComputed(tokens.ComputedChargePeriodEnd, types.FormatDate(ev.period.End))
	if chargeTime != nil {
		s = s.WithComputed(tokens.ComputedChargeTime, types.FormatDate(*chargeTime))
	}
	if cc.ParentPrice != nil {
		s = s.WithComputed(tokens.ComputedParentPrice, cc.ParentPrice.String())
	}
	return s
}

func (ev *evaluation) seller(ctx context.Context, cc Context) *tokens.SellerScope {
	if cc.SellerID == "" {
		if p := ev.sub.Seller(); p != nil {
			return &tokens.SellerScope{ID: p.ID, TradingName: p.Name}
		}
		return nil
	}
	return &tokens.SellerScope{ID: cc.SellerID, TradingName: ev.displayName(ctx, cc.SellerID)}
}

// displayName asks the provider once per entity and computation
func (ev *evaluation) displayName(ctx context.Context, id string) string {
	if v, ok := ev.sellerNames.Load(id); ok {
		return v.(string)
	}
	name, err := ev.engine.provider.EntityDisplayName(ctx, id)
	if err != nil || name == "" {
		if err != nil {
			ev.log().Warnw("could not read entity name", "entity_id", id, "error", err)
		}
		name = id
	}
	ev.sellerNames.Store(id, name)
	return name
}

func (ev *evaluation) renderName(ctx context.Context, n *plan.Node, cc Context, chargeTime *time.Time) string {
	if !n.Name.HasTokens() {
		return n.RawName()
	}
	name, unresolved := n.Name.Render(ev.scope(ctx, cc, chargeTime))
	if len(unresolved) > 0 {
		ev.log().Infow("unresolved tokens in item name",
			"plan_item", n.Path,
			"tokens", unresolved,
		)
	}
	return name
}

// planError tags err with the node it was raised for
func planError(err error, n *plan.Node) error {
	return ierr.WithError(err).
		WithHintf("Plan item %q is misconfigured", n.Path).
		WithReportableDetails(map[string]any{
			"plan_item": n.Path,
		}).
		Mark(ierr.ErrInvalidPlan)
}

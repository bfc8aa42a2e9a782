package calculator

import (
	"context"

	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/domain/revenue"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/iter"
)

// strategy builds the revenue item of a node, before the evaluation wrapper
// adjusts it
type strategy func(ctx context.Context, ev *evaluation, n *plan.Node, cc Context) (*revenue.Item, error)

type strategyKey struct {
	kind   types.PlanItemKind
	bundle bool
	op     types.BundleOperator
}

func keyFor(n *plan.Node) strategyKey {
	if !n.IsBundle {
		return strategyKey{kind: n.Kind}
	}
	return strategyKey{kind: n.Kind, bundle: true, op: n.BundleOp}
}

func newStrategyTable() map[strategyKey]strategy {
	table := map[strategyKey]strategy{
		{kind: types.PlanItemKindPrice}:    atomicPrice,
		{kind: types.PlanItemKindDiscount}: atomicDiscount,
	}
	for _, kind := range []types.PlanItemKind{types.PlanItemKindPrice, types.PlanItemKindDiscount} {
		table[strategyKey{kind, true, types.BundleOperatorCumulative}] = cumulative
		table[strategyKey{kind, true, types.BundleOperatorAlternativeHigher}] = alternative
		table[strategyKey{kind, true, types.BundleOperatorAlternativeLower}] = alternative
		table[strategyKey{kind, true, types.BundleOperatorForEach}] = forEach
	}
	return table
}

func (e *Engine) strategyFor(n *plan.Node) (strategy, error) {
	s, ok := e.strategies[keyFor(n)]
	if !ok {
		return nil, ierr.NewErrorf("no evaluation strategy for %s bundle=%t op=%q", n.Kind, n.IsBundle, n.BundleOp).
			WithHintf("Plan item %q uses an unknown bundle operator", n.Path).
			WithReportableDetails(map[string]any{
				"plan_item": n.Path,
				"bundle_op": n.BundleOp,
			}).
			Mark(ierr.ErrUnknownBundleOperator)
	}
	return s, nil
}

func atomicPrice(ctx context.Context, ev *evaluation, n *plan.Node, cc Context) (*revenue.Item, error) {
	value, err := ev.atomicValue(ctx, n, cc)
	if err != nil || value == nil {
		return nil, err
	}

	item := revenue.NewValueItem(n.RawName(), *value, n.Currency)
	if err := ev.attachDiscount(ctx, n, cc, item); err != nil {
		return nil, err
	}
	return item, nil
}

// atomicDiscount computes like a price, the value is always non positive
func atomicDiscount(ctx context.Context, ev *evaluation, n *plan.Node, cc Context) (*revenue.Item, error) {
	value, err := ev.atomicValue(ctx, n, cc)
	if err != nil || value == nil {
		return nil, err
	}
	return revenue.NewValueItem(n.RawName(), value.Abs().Neg(), n.Currency), nil
}

// cumulative sums every child. The wrapper is returned even when no child
// contributes.
func cumulative(ctx context.Context, ev *evaluation, n *plan.Node, cc Context) (*revenue.Item, error) {
	item := revenue.NewItem(n.RawName(), n.Currency)
	item.BundleOp = types.BundleOperatorCumulative

	for _, c := range n.Children {
		child, err := ev.evaluate(ctx, c, cc)
		if err != nil {
			return nil, err
		}
		if err := attach(item, child, n); err != nil {
			return nil, err
		}
	}

	if err := ev.attachDiscount(ctx, n, cc, item); err != nil {
		return nil, err
	}
	return item, nil
}

// alternative keeps the one child picked by revenue.PickAlternative. The
// wrapper holds the winner and the nested discount, so it sums them.
func alternative(ctx context.Context, ev *evaluation, n *plan.Node, cc Context) (*revenue.Item, error) {
	var candidates []*revenue.Item
	for _, c := range n.Children {
		child, err := ev.evaluate(ctx, c, cc)
		if err != nil {
			return nil, err
		}
		if child == nil || child.IsEmpty() {
			continue
		}
		candidates = append(candidates, child)
	}
	if len(candidates) == 0 {
		ev.log().Debugw("no alternative produced a value", "plan_item", n.Path)
		return nil, nil
	}

	values := lo.Map(candidates, func(c *revenue.Item, _ int) decimal.Decimal { return c.OverallValue() })
	winner := candidates[revenue.PickAlternative(n.BundleOp, values)]
	ev.log().Debugw("alternative selected",
		"plan_item", n.Path,
		"bundle_op", n.BundleOp,
		"selected", winner.Name,
		"value", winner.OverallValue().String(),
	)

	item := revenue.NewItem(n.RawName(), n.Currency)
	if err := attach(item, winner, n); err != nil {
		return nil, err
	}
	if err := ev.attachDiscount(ctx, n, cc, item); err != nil {
		return nil, err
	}
	return item, nil
}

// forEach evaluates the children once per entity behind the evaluated
// entity, each under a wrapper named after the entity
func forEach(ctx context.Context, ev *evaluation, n *plan.Node, cc Context) (*revenue.Item, error) {
	if !lo.Contains(types.SupportedIterationKeys, n.ForEachMetric) {
		return nil, ierr.NewErrorf("unsupported iteration metric %q", n.ForEachMetric).
			WithHintf("Plan item %q must iterate over one of %v", n.Path, types.SupportedIterationKeys).
			WithReportableDetails(map[string]any{
				"plan_item":      n.Path,
				"forEachMetric":  n.ForEachMetric,
				"supported_keys": types.SupportedIterationKeys,
			}).
			Mark(ierr.ErrUnsupportedIterationMetric)
	}

	anchor := ev.entity(cc)
	ids, err := ev.engine.provider.DistinctEntities(ctx, n.ForEachMetric, anchor, ev.period)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ev.log().Warnw("could not list entities, treating as none",
			"plan_item", n.Path,
			"iteration_key", n.ForEachMetric,
			"anchor", anchor,
			"error", err,
		)
		ids = nil
	}

	item := revenue.NewItem(n.RawName(), n.Currency)
	item.BundleOp = types.BundleOperatorForEach

	perEntity := func(id *string) (*revenue.Item, error) {
		return ev.evaluateEntity(ctx, n, cc.WithSeller(*id))
	}

	var results []*revenue.Item
	if ev.engine.foreachConcurrency > 1 && len(ids) > 1 {
		mapper := iter.Mapper[string, *revenue.Item]{MaxGoroutines: ev.engine.foreachConcurrency}
		results, err = mapper.MapErr(ids, perEntity)
		if err != nil {
			return nil, err
		}
	} else {
		results = make([]*revenue.Item, 0, len(ids))
		for i := range ids {
			r, err := perEntity(&ids[i])
			if err != nil {
				return nil, err
			}
			results = append(results, r)
		}
	}

	for _, r := range results {
		if err := attach(item, r, n); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (ev *evaluation) evaluateEntity(ctx context.Context, n *plan.Node, cc Context) (*revenue.Item, error) {
	label := ev.displayName(ctx, cc.SellerID)
	item := revenue.NewItem(ev.renderName(ctx, n, cc, nil)+" for "+label, n.Currency)
	if n.IsPrice() {
		item.Type = n.PriceType
	}

	for _, c := range n.Children {
		child, err := ev.evaluate(ctx, c, cc)
		if err != nil {
			return nil, err
		}
		if err := attach(item, child, n); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// attachDiscount evaluates the nested discount of n against the current
// overall value of item and appends it
func (ev *evaluation) attachDiscount(ctx context.Context, n *plan.Node, cc Context, item *revenue.Item) error {
	if !n.HasDiscount() {
		return nil
	}
	d, err := ev.evaluate(ctx, n.Discount, cc.WithParentPrice(item.OverallValue()))
	if err != nil {
		return err
	}
	return attach(item, d, n)
}

// attach appends child unless it is nil or empty
func attach(parent, child *revenue.Item, n *plan.Node) error {
	if child == nil || child.IsEmpty() {
		return nil
	}
	if err := parent.AddItem(child); err != nil {
		return ierr.WithError(err).
			WithReportableDetails(map[string]any{
				"plan_item": n.Path,
			}).
			Mark(ierr.ErrCurrencyMismatch)
	}
	return nil
}

package plan

import (
	"time"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/tokens"
	"github.com/flexprice/revenue/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var maxPercent = decimal.NewFromInt(100)

// inherited holds the attributes a node passes down to the nodes below it
type inherited struct {
	currency                       string
	priceType                      types.PriceType
	recurrence                     *types.Recurrence
	applicableBase                 string
	applicableBaseRange            *types.Range
	applicableBaseReferencePeriod  *types.ReferencePeriod
	computationBase                string
	computationBaseReferencePeriod *types.ReferencePeriod
	applicableFrom                 *time.Time
	ignorePeriod                   *types.ReferencePeriod
	validPeriod                    *types.ReferencePeriod
	referencePrice                 int
}

type resolver struct {
	nodes []Node
}

// Resolve walks the plan tree once and returns the arena of resolved nodes.
// Configuration errors name the offending item and are marked with
// ierr.ErrInvalidPlan or one of its specific sentinels.
func Resolve(p *Plan) (*ResolvedPlan, error) {
	if p == nil || p.Price == nil {
		return nil, ierr.NewError("plan has no price").
			WithHint("A plan must define a root price").
			Mark(ierr.ErrInvalidPlan)
	}

	duration := types.DefaultSubscriptionDuration
	if p.SubscriptionDuration != nil {
		if err := p.SubscriptionDuration.Validate(); err != nil {
			return nil, ierr.WithError(err).
				WithMessagef("plan %q subscription duration", p.Name).
				WithReportableDetails(map[string]any{"plan_id": p.ID}).
				Mark(ierr.ErrInvalidPlan)
		}
		duration = *p.SubscriptionDuration
	}

	if p.BillCycle != nil {
		if err := p.BillCycle.Recurrence().Validate(); err != nil {
			return nil, ierr.WithError(err).
				WithMessagef("plan %q bill cycle", p.Name).
				WithReportableDetails(map[string]any{"plan_id": p.ID}).
				Mark(ierr.ErrInvalidPlan)
		}
		if _, err := types.ParseBillPeriodModifier(p.BillCycle.BillingPeriodEnd); err != nil {
			return nil, ierr.WithError(err).
				WithMessagef("plan %q bill cycle", p.Name).
				WithReportableDetails(map[string]any{"plan_id": p.ID}).
				Mark(ierr.ErrInvalidPlan)
		}
	}

	r := &resolver{}
	root, err := r.resolve(p.Price, types.PlanItemKindPrice, NoNode, "", inherited{referencePrice: NoNode})
	if err != nil {
		return nil, err
	}

	return &ResolvedPlan{
		ID:                   p.ID,
		Name:                 p.Name,
		Description:          p.Description,
		SubscriptionDuration: duration,
		BillCycle:            p.BillCycle,
		Nodes:                r.nodes,
		Root:                 root,
	}, nil
}

func (r *resolver) resolve(item *PlanItem, kind types.PlanItemKind, parent int, parentPath string, inh inherited) (int, error) {
	path := item.Name
	if parentPath != "" {
		path = parentPath + " / " + item.Name
	}

	idx := len(r.nodes)
	// reserve the slot so that parents precede their children in the arena
	r.nodes = append(r.nodes, Node{})

	n := Node{
		Index:    idx,
		Parent:   parent,
		Path:     path,
		Name:     tokens.Compile(item.Name),
		Kind:     kind,
		IsBundle: item.IsBundle,
		BundleOp: types.BundleOperatorCumulative,

		Amount:     item.Amount,
		Percent:    item.Percent,
		UnitAmount: item.UnitAmount,
		Currency:   lo.Ternary(item.Currency != "", types.NormalizeCurrency(item.Currency), inh.currency),

		ApplicableBase:      lo.Ternary(item.ApplicableBase != "", item.ApplicableBase, inh.applicableBase),
		ApplicableBaseRange: lo.Ternary(item.ApplicableBaseRange != nil, item.ApplicableBaseRange, inh.applicableBaseRange),
		ComputationBase:     lo.Ternary(item.ComputationBase != "", item.ComputationBase, inh.computationBase),
		ApplicableFrom:      lo.Ternary(item.ApplicableFrom != nil, item.ApplicableFrom, inh.applicableFrom),

		ForEachMetric:        item.ForEachMetric,
		ResultingAmountRange: item.ResultingAmountRange,
		SkipIfZero:           item.SkipIfZero,
		Collapse:             item.Collapse,

		Discount:       NoNode,
		ReferencePrice: inh.referencePrice,
	}

	if item.Ignore != "" {
		n.Ignore = tokens.Compile(item.Ignore)
	}

	if item.IsBundle || item.BundleOp != "" {
		op, err := types.ParseBundleOperator(item.BundleOp)
		if err != nil {
			return NoNode, wrapItemError(err, path)
		}
		n.BundleOp = op
	}

	if err := checkValues(item, path); err != nil {
		return NoNode, err
	}

	var err error
	if n.ApplicableBaseReferencePeriod, err = referencePeriod(item.ApplicableBaseReferencePeriod, inh.applicableBaseReferencePeriod, path); err != nil {
		return NoNode, err
	}
	if n.ComputationBaseReferencePeriod, err = referencePeriod(item.ComputationBaseReferencePeriod, inh.computationBaseReferencePeriod, path); err != nil {
		return NoNode, err
	}
	if n.IgnorePeriod, err = referencePeriod(item.IgnorePeriod, inh.ignorePeriod, path); err != nil {
		return NoNode, err
	}
	if n.ValidPeriod, err = referencePeriod(item.ValidPeriod, inh.validPeriod, path); err != nil {
		return NoNode, err
	}

	if n.ApplicableBaseRange != nil {
		if err := n.ApplicableBaseRange.Validate(); err != nil {
			return NoNode, wrapItemError(err, path)
		}
	}
	if n.ResultingAmountRange != nil {
		if err := n.ResultingAmountRange.Validate(); err != nil {
			return NoNode, wrapItemError(err, path)
		}
	}

	if (n.Percent != nil || n.UnitAmount != nil) && n.ComputationBase == "" {
		return NoNode, ierr.NewErrorf("plan item %q has a percent or unit amount but no computation base", path).
			WithHint("Set computationBase on the item or on one of its ancestors").
			WithReportableDetails(map[string]any{"plan_item": path}).
			Mark(ierr.ErrInvalidPlan)
	}

	// price type and recurrence belong to prices, discounts read them from
	// their reference price
	n.PriceType = inh.priceType
	n.Recurrence = inh.recurrence
	if kind == types.PlanItemKindPrice {
		n.ReferencePrice = idx
		if item.Type != "" {
			if err := item.Type.Validate(); err != nil {
				return NoNode, wrapItemError(err, path)
			}
			n.PriceType = item.Type
		}
		rec, err := recurrence(item, path)
		if err != nil {
			return NoNode, err
		}
		if rec != nil {
			n.Recurrence = rec
		}
	}

	if n.IsBundle && n.BundleOp == types.BundleOperatorForEach {
		if n.ForEachMetric == "" {
			return NoNode, ierr.NewErrorf("plan item %q is a FOREACH bundle without forEachMetric", path).
				WithHint("FOREACH bundles must name the metric that lists the entities to iterate over").
				WithReportableDetails(map[string]any{"plan_item": path}).
				Mark(ierr.ErrInvalidPlan)
		}
		if !lo.Contains(types.SupportedIterationKeys, n.ForEachMetric) {
			return NoNode, ierr.NewErrorf("plan item %q iterates over unsupported metric %q", path, n.ForEachMetric).
				WithHintf("forEachMetric must be one of %v", types.SupportedIterationKeys).
				WithReportableDetails(map[string]any{
					"plan_item":       path,
					"for_each_metric": n.ForEachMetric,
				}).
				Mark(ierr.ErrUnsupportedIterationMetric)
		}
	}

	if n.IsPrice() && !n.IsBundle && n.UsesParentPrice() {
		return NoNode, ierr.NewErrorf("price %q computes on %s", path, types.ParentPriceBase).
			WithHintf("Only discounts nested under a price can use %s as computation base", types.ParentPriceBase).
			WithReportableDetails(map[string]any{"plan_item": path}).
			Mark(ierr.ErrInvalidPlan)
	}

	childInh := inherited{
		currency:                       n.Currency,
		priceType:                      n.PriceType,
		recurrence:                     n.Recurrence,
		applicableBase:                 n.ApplicableBase,
		applicableBaseRange:            n.ApplicableBaseRange,
		applicableBaseReferencePeriod:  n.ApplicableBaseReferencePeriod,
		computationBase:                n.ComputationBase,
		computationBaseReferencePeriod: n.ComputationBaseReferencePeriod,
		applicableFrom:                 n.ApplicableFrom,
		ignorePeriod:                   n.IgnorePeriod,
		validPeriod:                    n.ValidPeriod,
		referencePrice:                 n.ReferencePrice,
	}

	children, nested, err := childItems(item, kind, path)
	if err != nil {
		return NoNode, err
	}

	n.Variable = n.Percent != nil || n.UnitAmount != nil || n.ApplicableBase != ""
	for _, child := range children {
		c, err := r.resolve(child, kind, idx, path, childInh)
		if err != nil {
			return NoNode, err
		}
		n.Children = append(n.Children, c)
		n.Variable = n.Variable || r.nodes[c].Variable
	}
	if nested != nil {
		d, err := r.resolve(nested, types.PlanItemKindDiscount, idx, path, childInh)
		if err != nil {
			return NoNode, err
		}
		n.Discount = d
		n.Variable = n.Variable || r.nodes[d].Variable
	}

	r.nodes[idx] = n
	return idx, nil
}

func checkValues(item *PlanItem, path string) error {
	count := item.valueFields()
	if !item.Atomic() {
		if count > 0 {
			return ierr.NewErrorf("bundle %q defines its own amount or percent", path).
				WithHint("Bundles take their value from their items").
				WithReportableDetails(map[string]any{"plan_item": path}).
				Mark(ierr.ErrInvalidPlan)
		}
		return nil
	}

	if count == 0 {
		return ierr.NewErrorf("plan item %q defines neither amount nor percent", path).
			WithHint("Atomic items must set one of amount, percent or unitAmount").
			WithReportableDetails(map[string]any{"plan_item": path}).
			Mark(ierr.ErrMissingAmount)
	}
	if count > 1 {
		return ierr.NewErrorf("plan item %q defines more than one of amount, percent and unitAmount", path).
			WithHint("Atomic items must set exactly one of amount, percent or unitAmount").
			WithReportableDetails(map[string]any{"plan_item": path}).
			Mark(ierr.ErrInvalidPlan)
	}
	if item.Percent != nil && (item.Percent.IsNegative() || item.Percent.GreaterThan(maxPercent)) {
		return ierr.NewErrorf("plan item %q has percent %s outside 0..100", path, item.Percent.String()).
			WithHint("Percent must be between 0 and 100").
			WithReportableDetails(map[string]any{
				"plan_item": path,
				"percent":   item.Percent.String(),
			}).
			Mark(ierr.ErrInvalidPlan)
	}
	return nil
}

func recurrence(item *PlanItem, path string) (*types.Recurrence, error) {
	if item.RecurringChargePeriodType == "" && item.RecurringChargePeriodLength == nil {
		return nil, nil
	}
	rec := types.Recurrence{
		Unit:   item.RecurringChargePeriodType,
		Length: lo.FromPtrOr(item.RecurringChargePeriodLength, 1),
	}
	if err := rec.Validate(); err != nil {
		return nil, wrapItemError(err, path)
	}
	return &rec, nil
}

func referencePeriod(keyword string, fallback *types.ReferencePeriod, path string) (*types.ReferencePeriod, error) {
	if keyword == "" {
		return fallback, nil
	}
	rp, err := types.ParseReferencePeriod(keyword)
	if err != nil {
		return nil, wrapItemError(err, path)
	}
	return &rp, nil
}

// childItems picks the bundle items and the nested discount that are valid
// for an item of the given kind
func childItems(item *PlanItem, kind types.PlanItemKind, path string) ([]*PlanItem, *PlanItem, error) {
	misplaced := func(field string) error {
		return ierr.NewErrorf("plan item %q must not define %s", path, field).
			WithHintf("A %s %s cannot hold %s", lo.Ternary(item.IsBundle, "bundle", "atomic"), kind, field).
			WithReportableDetails(map[string]any{"plan_item": path}).
			Mark(ierr.ErrInvalidPlan)
	}

	switch kind {
	case types.PlanItemKindPrice:
		if len(item.Discounts) > 0 {
			return nil, nil, misplaced("discounts")
		}
		if item.Atomic() && len(item.Prices) > 0 {
			return nil, nil, misplaced("prices")
		}
		return lo.Compact(item.Prices), item.Discount, nil
	default:
		if len(item.Prices) > 0 {
			return nil, nil, misplaced("prices")
		}
		if item.Discount != nil {
			return nil, nil, misplaced("discount")
		}
		if item.Atomic() && len(item.Discounts) > 0 {
			return nil, nil, misplaced("discounts")
		}
		return lo.Compact(item.Discounts), nil, nil
	}
}

func wrapItemError(err error, path string) error {
	return ierr.WithError(err).
		WithMessagef("plan item %q", path).
		WithReportableDetails(map[string]any{"plan_item": path}).
		Mark(ierr.ErrInvalidPlan)
}

package testutil

import (
	"time"

	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ItemBuilder assembles plan items for tests
type ItemBuilder struct {
	kind types.PlanItemKind
	item *plan.PlanItem
}

// Price starts a price item
func Price(name string) *ItemBuilder {
	return &ItemBuilder{kind: types.PlanItemKindPrice, item: &plan.PlanItem{Name: name}}
}

// Discount starts a discount item
func Discount(name string) *ItemBuilder {
	return &ItemBuilder{kind: types.PlanItemKindDiscount, item: &plan.PlanItem{Name: name}}
}

func (b *ItemBuilder) Amount(v string) *ItemBuilder {
	b.item.Amount = DecPtr(v)
	return b
}

func (b *ItemBuilder) Percent(v string) *ItemBuilder {
	b.item.Percent = DecPtr(v)
	return b
}

func (b *ItemBuilder) UnitAmount(v string) *ItemBuilder {
	b.item.UnitAmount = DecPtr(v)
	return b
}

func (b *ItemBuilder) Currency(c string) *ItemBuilder {
	b.item.Currency = c
	return b
}

// Charged sets the price type and recurrence
func (b *ItemBuilder) Charged(t types.PriceType, unit types.RecurringPeriod, length int) *ItemBuilder {
	b.item.Type = t
	b.item.RecurringChargePeriodType = unit
	b.item.RecurringChargePeriodLength = lo.ToPtr(length)
	return b
}

// MonthlyPrepaid is Charged(RECURRING_PREPAID, MONTH, 1)
func (b *ItemBuilder) MonthlyPrepaid() *ItemBuilder {
	return b.Charged(types.PriceTypeRecurringPrepaid, types.RecurringPeriodMonth, 1)
}

// MonthlyPostpaid is Charged(RECURRING_POSTPAID, MONTH, 1)
func (b *ItemBuilder) MonthlyPostpaid() *ItemBuilder {
	return b.Charged(types.PriceTypeRecurringPostpaid, types.RecurringPeriodMonth, 1)
}

// OneTime makes the item a one time prepaid price
func (b *ItemBuilder) OneTime() *ItemBuilder {
	b.item.Type = types.PriceTypeOneTimePrepaid
	return b
}

// ComputedOn sets the computation base and its reference period
func (b *ItemBuilder) ComputedOn(base, referencePeriod string) *ItemBuilder {
	b.item.ComputationBase = base
	b.item.ComputationBaseReferencePeriod = referencePeriod
	return b
}

// ApplicableWhen gates the item on base falling in r over referencePeriod
func (b *ItemBuilder) ApplicableWhen(base, referencePeriod string, r *types.Range) *ItemBuilder {
	b.item.ApplicableBase = base
	b.item.ApplicableBaseReferencePeriod = referencePeriod
	b.item.ApplicableBaseRange = r
	return b
}

func (b *ItemBuilder) ApplicableFrom(t time.Time) *ItemBuilder {
	b.item.ApplicableFrom = lo.ToPtr(t)
	return b
}

func (b *ItemBuilder) IgnorePeriod(keyword string) *ItemBuilder {
	b.item.IgnorePeriod = keyword
	return b
}

func (b *ItemBuilder) ValidPeriod(keyword string) *ItemBuilder {
	b.item.ValidPeriod = keyword
	return b
}

func (b *ItemBuilder) Ignore(flag string) *ItemBuilder {
	b.item.Ignore = flag
	return b
}

func (b *ItemBuilder) ResultingRange(r *types.Range) *ItemBuilder {
	b.item.ResultingAmountRange = r
	return b
}

func (b *ItemBuilder) SkipIfZero() *ItemBuilder {
	b.item.SkipIfZero = true
	return b
}

func (b *ItemBuilder) Collapse() *ItemBuilder {
	b.item.Collapse = true
	return b
}

// Bundle turns the item into a bundle of children combined with op
func (b *ItemBuilder) Bundle(op types.BundleOperator, children ...*ItemBuilder) *ItemBuilder {
	b.item.IsBundle = true
	b.item.BundleOp = string(op)
	for _, c := range children {
		if b.kind == types.PlanItemKindPrice {
			b.item.Prices = append(b.item.Prices, c.Build())
		} else {
			b.item.Discounts = append(b.item.Discounts, c.Build())
		}
	}
	return b
}

// ForEach turns the item into a FOREACH bundle iterating over metric
func (b *ItemBuilder) ForEach(metric string, children ...*ItemBuilder) *ItemBuilder {
	b.item.ForEachMetric = metric
	return b.Bundle(types.BundleOperatorForEach, children...)
}

// WithDiscount nests d under a price
func (b *ItemBuilder) WithDiscount(d *ItemBuilder) *ItemBuilder {
	b.item.Discount = d.Build()
	return b
}

func (b *ItemBuilder) Build() *plan.PlanItem {
	return b.item
}

// NewPlan wraps root into a plan
func NewPlan(id, name string, root *ItemBuilder) *plan.Plan {
	return &plan.Plan{
		ID:    id,
		Name:  name,
		Price: root.Build(),
	}
}

// Dec parses a decimal, panicking on malformed input
func Dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func DecPtr(v string) *decimal.Decimal {
	return lo.ToPtr(Dec(v))
}

// RangeOf builds a range, an empty bound is open
func RangeOf(lower, upper string) *types.Range {
	r := &types.Range{}
	if lower != "" {
		r.Min = DecPtr(lower)
	}
	if upper != "" {
		r.Max = DecPtr(upper)
	}
	return r
}

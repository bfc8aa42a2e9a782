package plan

import (
	"time"

	"github.com/flexprice/revenue/internal/types"
	"github.com/shopspring/decimal"
)

// Plan is a pricing plan as loaded from its definition file
type Plan struct {
	ID              string `json:"id" yaml:"id" validate:"required"`
	Name            string `json:"name" yaml:"name" validate:"required"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
	LifecycleStatus string `json:"lifecycleStatus,omitempty" yaml:"lifecycleStatus,omitempty"`

	// SubscriptionDuration defaults to one year
	SubscriptionDuration *types.Recurrence       `json:"subscriptionDuration,omitempty" yaml:"subscriptionDuration,omitempty"`
	BillCycle            *BillCycleSpecification `json:"billCycleSpecification,omitempty" yaml:"billCycleSpecification,omitempty"`

	Price *PlanItem `json:"price" yaml:"price" validate:"required"`
}

// BillCycleSpecification describes how charges are grouped into bills
type BillCycleSpecification struct {
	BillingPeriodType   types.RecurringPeriod `json:"billingPeriodType" yaml:"billingPeriodType" validate:"required"`
	BillingPeriodLength int                   `json:"billingPeriodLength" yaml:"billingPeriodLength" validate:"gt=0"`
	BillingPeriodEnd    string                `json:"billingPeriodEnd,omitempty" yaml:"billingPeriodEnd,omitempty"`
}

func (b *BillCycleSpecification) Recurrence() types.Recurrence {
	return types.Recurrence{Unit: b.BillingPeriodType, Length: b.BillingPeriodLength}
}

// PlanItem is a raw price or discount node. Unset fields are inherited from
// the nearest ancestor defining them when the plan is resolved.
type PlanItem struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	IsBundle bool   `json:"isBundle,omitempty" yaml:"isBundle,omitempty"`
	BundleOp string `json:"bundleOp,omitempty" yaml:"bundleOp,omitempty"`

	// exactly one of Amount, Percent and UnitAmount is set on atomic items
	Amount     *decimal.Decimal `json:"amount,omitempty" yaml:"amount,omitempty"`
	Percent    *decimal.Decimal `json:"percent,omitempty" yaml:"percent,omitempty"`
	UnitAmount *decimal.Decimal `json:"unitAmount,omitempty" yaml:"unitAmount,omitempty"`
	Currency   string           `json:"currency,omitempty" yaml:"currency,omitempty"`

	// prices only
	Type                        types.PriceType       `json:"type,omitempty" yaml:"type,omitempty"`
	RecurringChargePeriodType   types.RecurringPeriod `json:"recurringChargePeriodType,omitempty" yaml:"recurringChargePeriodType,omitempty"`
	RecurringChargePeriodLength *int                  `json:"recurringChargePeriodLength,omitempty" yaml:"recurringChargePeriodLength,omitempty"`

	ApplicableBase                 string       `json:"applicableBase,omitempty" yaml:"applicableBase,omitempty"`
	ApplicableBaseRange            *types.Range `json:"applicableBaseRange,omitempty" yaml:"applicableBaseRange,omitempty"`
	ApplicableBaseReferencePeriod  string       `json:"applicableBaseReferencePeriod,omitempty" yaml:"applicableBaseReferencePeriod,omitempty"`
	ComputationBase                string       `json:"computationBase,omitempty" yaml:"computationBase,omitempty"`
	ComputationBaseReferencePeriod string       `json:"computationBaseReferencePeriod,omitempty" yaml:"computationBaseReferencePeriod,omitempty"`

	ApplicableFrom *time.Time `json:"applicableFrom,omitempty" yaml:"applicableFrom,omitempty"`
	IgnorePeriod   string     `json:"ignorePeriod,omitempty" yaml:"ignorePeriod,omitempty"`
	ValidPeriod    string     `json:"validPeriod,omitempty" yaml:"validPeriod,omitempty"`
	Ignore         string     `json:"ignore,omitempty" yaml:"ignore,omitempty"`

	ForEachMetric string `json:"forEachMetric,omitempty" yaml:"forEachMetric,omitempty"`

	ResultingAmountRange *types.Range `json:"resultingAmountRange,omitempty" yaml:"resultingAmountRange,omitempty"`
	SkipIfZero           bool         `json:"skipIfZero,omitempty" yaml:"skipIfZero,omitempty"`
	Collapse             bool         `json:"collapse,omitempty" yaml:"collapse,omitempty"`

	Prices    []*PlanItem `json:"prices,omitempty" yaml:"prices,omitempty" validate:"omitempty,dive"`
	Discounts []*PlanItem `json:"discounts,omitempty" yaml:"discounts,omitempty" validate:"omitempty,dive"`
	Discount  *PlanItem   `json:"discount,omitempty" yaml:"discount,omitempty" validate:"omitempty"`
}

// Atomic reports whether the item holds its own value
func (i *PlanItem) Atomic() bool {
	return !i.IsBundle
}

func (i *PlanItem) valueFields() int {
	n := 0
	for _, v := range []*decimal.Decimal{i.Amount, i.Percent, i.UnitAmount} {
		if v != nil {
			n++
		}
	}
	return n
}

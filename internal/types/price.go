package types

import (
	"strings"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/samber/lo"
)

// PriceType decides when a price is charged within its charge period
type PriceType string

const (
	PriceTypeRecurringPrepaid  PriceType = "RECURRING_PREPAID"
	PriceTypeRecurringPostpaid PriceType = "RECURRING_POSTPAID"
	PriceTypeOneTimePrepaid    PriceType = "ONE_TIME_PREPAID"
)

func (p PriceType) String() string {
	return string(p)
}

func (p PriceType) Validate() error {
	allowed := []PriceType{
		PriceTypeRecurringPrepaid,
		PriceTypeRecurringPostpaid,
		PriceTypeOneTimePrepaid,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid price type").
			WithHint("Price type must be one of RECURRING_PREPAID, RECURRING_POSTPAID, ONE_TIME_PREPAID").
			WithReportableDetails(map[string]any{
				"type":          p,
				"allowed_types": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (p PriceType) IsPrepaid() bool {
	return p == PriceTypeRecurringPrepaid || p == PriceTypeOneTimePrepaid
}

func (p PriceType) IsOneTime() bool {
	return p == PriceTypeOneTimePrepaid
}

// BundleOperator is the composition policy of a bundle
type BundleOperator string

const (
	BundleOperatorCumulative        BundleOperator = "CUMULATIVE"
	BundleOperatorAlternativeHigher BundleOperator = "ALTERNATIVE_HIGHER"
	BundleOperatorAlternativeLower  BundleOperator = "ALTERNATIVE_LOWER"
	BundleOperatorForEach           BundleOperator = "FOREACH"
)

// ParseBundleOperator normalizes a bundle operator read from a plan.
// Empty input defaults to CUMULATIVE and FOR_EACH is accepted for FOREACH.
func ParseBundleOperator(s string) (BundleOperator, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "":
		return BundleOperatorCumulative, nil
	case "FOR_EACH":
		return BundleOperatorForEach, nil
	}
	op := BundleOperator(v)
	if err := op.Validate(); err != nil {
		return "", err
	}
	return op, nil
}

func (b BundleOperator) String() string {
	return string(b)
}

func (b BundleOperator) Validate() error {
	allowed := []BundleOperator{
		BundleOperatorCumulative,
		BundleOperatorAlternativeHigher,
		BundleOperatorAlternativeLower,
		BundleOperatorForEach,
	}
	if !lo.Contains(allowed, b) {
		return ierr.NewErrorf("unknown bundle operator %q", string(b)).
			WithHint("Bundle operator must be one of CUMULATIVE, ALTERNATIVE_HIGHER, ALTERNATIVE_LOWER, FOREACH").
			WithReportableDetails(map[string]any{
				"bundle_op":         b,
				"allowed_operators": allowed,
			}).
			Mark(ierr.ErrUnknownBundleOperator)
	}
	return nil
}

func (b BundleOperator) IsAlternative() bool {
	return b == BundleOperatorAlternativeHigher || b == BundleOperatorAlternativeLower
}

// PlanItemKind discriminates prices from discounts
type PlanItemKind string

const (
	PlanItemKindPrice    PlanItemKind = "price"
	PlanItemKindDiscount PlanItemKind = "discount"
)

func (k PlanItemKind) String() string {
	return string(k)
}

func (k PlanItemKind) Validate() error {
	allowed := []PlanItemKind{PlanItemKindPrice, PlanItemKindDiscount}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid plan item kind").
			WithHint("Plan item kind must be price or discount").
			WithReportableDetails(map[string]any{
				"kind": k,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ParentPriceBase is the computation base that reads the value of the
// enclosing price instead of a metric
const ParentPriceBase = "parent-price"

// Iteration keys understood by FOREACH bundles
const (
	IterationActiveSellersBehindMarketplace = "activeSellersBehindMarketplace"
	IterationBilledSellersBehindMarketplace = "billedSellersBehindMarketplace"
)

var SupportedIterationKeys = []string{
	IterationActiveSellersBehindMarketplace,
	IterationBilledSellersBehindMarketplace,
}

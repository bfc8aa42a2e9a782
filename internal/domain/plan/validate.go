package plan

import (
	"fmt"

	"github.com/flexprice/revenue/internal/types"
	"github.com/samber/lo"
)

type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Issue is a single finding of the plan validator
type Issue struct {
	Severity Severity `json:"severity"`
	PlanItem string   `json:"plan_item,omitempty"`
	Message  string   `json:"message"`
}

// ValidationReport collects the issues found in a plan definition
type ValidationReport struct {
	PlanID string   `json:"plan_id"`
	Issues []*Issue `json:"issues"`
}

func (r *ValidationReport) add(severity Severity, item, format string, args ...any) {
	r.Issues = append(r.Issues, &Issue{
		Severity: severity,
		PlanItem: item,
		Message:  fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether the plan cannot be evaluated
func (r *ValidationReport) HasErrors() bool {
	return lo.SomeBy(r.Issues, func(i *Issue) bool { return i.Severity == SeverityError })
}

// BySeverity returns the issues of the given severity
func (r *ValidationReport) BySeverity(s Severity) []*Issue {
	return lo.Filter(r.Issues, func(i *Issue, _ int) bool { return i.Severity == s })
}

// Validate inspects a plan definition without evaluating it. Errors that
// would abort a computation are reported with SeverityError, together with
// softer findings that only deserve attention.
func Validate(p *Plan) *ValidationReport {
	report := &ValidationReport{}
	if p == nil {
		report.add(SeverityError, "", "plan is empty")
		return report
	}
	report.PlanID = p.ID

	if p.Name == "" {
		report.add(SeverityWarning, "", "the plan must have a name")
	}
	if p.Description == "" {
		report.add(SeverityWarning, "", "the plan must include a description")
	}
	if p.LifecycleStatus == "" {
		report.add(SeverityError, "", "the plan must include a lifecycle status")
	}
	if p.SubscriptionDuration == nil {
		report.add(SeverityInfo, "", "no subscription duration, defaulting to %d %s", types.DefaultSubscriptionDuration.Length, types.DefaultSubscriptionDuration.Unit)
	}

	if p.BillCycle == nil {
		report.add(SeverityWarning, "", "the plan has no bill cycle specification")
	} else {
		if p.BillCycle.BillingPeriodLength <= 0 {
			report.add(SeverityError, "", "billingPeriodLength must be > 0")
		}
		if p.BillCycle.BillingPeriodType == "" {
			report.add(SeverityError, "", "the plan must include a billingPeriodType (i.e. YEAR, MONTH, WEEK, DAY)")
		}
		if p.BillCycle.BillingPeriodEnd == "" {
			report.add(SeverityWarning, "", "the plan does not provide a billingPeriodEnd")
		}
	}

	if p.Price == nil {
		report.add(SeverityError, "", "the plan has no price")
		return report
	}

	validateItem(report, p.Price, types.PlanItemKindPrice, "")

	// anything the resolver rejects aborts every computation of the plan
	if _, err := Resolve(p); err != nil {
		report.add(SeverityError, "", "%s", err.Error())
	}
	return report
}

func validateItem(report *ValidationReport, item *PlanItem, kind types.PlanItemKind, parentPath string) {
	path := item.Name
	if parentPath != "" {
		path = parentPath + " / " + item.Name
	}

	if item.Name == "" {
		report.add(SeverityWarning, path, "plan item must have a name")
	}
	if item.ApplicableBaseRange != nil && item.ApplicableBase == "" {
		report.add(SeverityInfo, path, "applicableBaseRange set without applicableBase, relying on an ancestor")
	}
	if item.ApplicableBase != "" && item.ApplicableBaseRange == nil {
		report.add(SeverityWarning, path, "applicableBase %q has no range, the item always applies", item.ApplicableBase)
	}
	if item.Amount != nil && item.Amount.IsNegative() {
		report.add(SeverityError, path, "%s amount must be >= 0", kind)
	}
	if item.ForEachMetric != "" && (!item.IsBundle || item.BundleOp == "" || item.BundleOp == string(types.BundleOperatorCumulative)) {
		report.add(SeverityWarning, path, "forEachMetric is defined but bundleOp is not FOREACH")
	}
	if item.IsBundle && item.BundleOp == "" {
		report.add(SeverityInfo, path, "bundle has no bundleOp, defaulting to CUMULATIVE")
	}
	if item.IsBundle && len(item.Prices) == 0 && len(item.Discounts) == 0 {
		report.add(SeverityWarning, path, "bundle has no items")
	}

	switch kind {
	case types.PlanItemKindPrice:
		if item.Currency == "" && parentPath == "" {
			report.add(SeverityError, path, "price must have a currency")
		}
		if item.Currency != "" && !types.IsKnownCurrency(item.Currency) {
			report.add(SeverityWarning, path, "unknown currency %q", item.Currency)
		}
		if item.Type == "" && parentPath == "" {
			report.add(SeverityWarning, path, "root price has no type, atomic prices must define one")
		}
	case types.PlanItemKindDiscount:
		if item.Type != "" || item.RecurringChargePeriodType != "" || item.RecurringChargePeriodLength != nil {
			report.add(SeverityWarning, path, "discounts take type and recurrence from their price, the ones set here are ignored")
		}
	}

	for _, child := range item.Prices {
		if child != nil {
			validateItem(report, child, types.PlanItemKindPrice, path)
		}
	}
	for _, child := range item.Discounts {
		if child != nil {
			validateItem(report, child, types.PlanItemKindDiscount, path)
		}
	}
	if item.Discount != nil {
		validateItem(report, item.Discount, types.PlanItemKindDiscount, path)
	}
}

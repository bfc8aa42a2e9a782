package period

import (
	"github.com/flexprice/revenue/internal/domain/plan"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/types"
)

// BillingPeriods splits the first subscription period into bill periods.
// Each period end is moved by the bill cycle modifier and the next period
// starts where the previous one ended.
func BillingPeriods(subscription Calendar, bill *plan.BillCycleSpecification) ([]types.TimePeriod, error) {
	if bill == nil {
		return nil, ierr.NewError("plan has no bill cycle specification").
			WithHint("Billing periods need a billCycleSpecification on the plan").
			Mark(ierr.ErrInvalidOperation)
	}

	rec := bill.Recurrence()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	modifier, err := types.ParseBillPeriodModifier(bill.BillingPeriodEnd)
	if err != nil {
		return nil, err
	}

	first, err := subscription.First()
	if err != nil {
		return nil, err
	}

	var out []types.TimePeriod
	start := first.Start
	for start.Before(first.End) {
		if len(out) >= subscription.maxPeriods() {
			return nil, ierr.NewErrorf("more than %d billing periods in a subscription period", subscription.maxPeriods()).
				Mark(ierr.ErrInvalidRecurrenceSpec)
		}
		end, err := rec.Add(start, 1)
		if err != nil {
			return nil, err
		}
		if modified := modifier.Apply(end); modified.After(start) {
			end = modified
		}
		out = append(out, types.NewTimePeriod(start, end))
		start = end
	}
	return out, nil
}

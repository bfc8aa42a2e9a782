package period

import (
	"sort"
	"time"

	"github.com/flexprice/revenue/internal/domain/plan"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/types"
	"github.com/samber/lo"
)

// ChargeTime is the instant a charge over p is attributed to: the start for
// prepaid and one-time prices, the end for postpaid ones. It is nil for an
// unknown price type.
func ChargeTime(p types.TimePeriod, priceType types.PriceType) *time.Time {
	switch priceType {
	case types.PriceTypeRecurringPrepaid, types.PriceTypeOneTimePrepaid:
		return lo.ToPtr(p.Start)
	case types.PriceTypeRecurringPostpaid:
		return lo.ToPtr(p.End)
	}
	return nil
}

// ChargeCalendar is the calendar of a node's reference price, nil when the
// node has no recurrence
func ChargeCalendar(n *plan.Node, start time.Time, maxPeriods int) *Calendar {
	if n.Recurrence == nil {
		return nil
	}
	cal := NewCalendar(start, *n.Recurrence).WithMaxPeriods(maxPeriods)
	return &cal
}

// ChargePeriodAt returns the charge period of n containing t. One-time
// prices only have a charge period within the first subscription period.
func ChargePeriodAt(n *plan.Node, subscription Calendar, t time.Time) (*types.TimePeriod, error) {
	if n.PriceType.IsOneTime() {
		sp, err := subscription.PeriodAt(t)
		if err != nil || sp == nil {
			return nil, err
		}
		if !sp.Start.Equal(subscription.Start) {
			return nil, nil
		}
		return sp, nil
	}

	if n.PriceType == "" {
		return nil, nil
	}
	cal := ChargeCalendar(n, subscription.Start, subscription.MaxPeriods)
	if cal == nil {
		return nil, nil
	}
	return cal.PeriodAt(t)
}

// ChargePeriods lists the charge periods of every atomic price of the plan,
// from the subscription start while periods start before now+lookahead.
// One-time prices contribute the first subscription period only. The result
// is deduplicated and ordered by start, then end.
func ChargePeriods(rp *plan.ResolvedPlan, subscription Calendar, now time.Time, lookahead time.Duration) ([]types.TimePeriod, error) {
	horizon := now.Add(lookahead)
	seen := make(map[[2]int64]struct{})
	var out []types.TimePeriod

	add := func(p types.TimePeriod) {
		key := [2]int64{p.Start.UnixNano(), p.End.UnixNano()}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}

	for _, n := range rp.AtomicPrices() {
		if n.PriceType.IsOneTime() {
			first, err := subscription.First()
			if err != nil {
				return nil, err
			}
			add(first)
			continue
		}

		cal := ChargeCalendar(n, subscription.Start, subscription.MaxPeriods)
		if cal == nil || n.PriceType == "" {
			continue
		}

		for k := 0; ; k++ {
			if k >= cal.maxPeriods() {
				return nil, ierr.NewErrorf("price %q has more than %d charge periods before %s", n.Path, cal.maxPeriods(), types.FormatTime(horizon)).
					WithHint("Reduce the lookahead or use a longer recurrence").
					WithReportableDetails(map[string]any{"plan_item": n.Path}).
					Mark(ierr.ErrInvalidRecurrenceSpec)
			}
			p, err := cal.Period(k)
			if err != nil {
				return nil, ierr.WithError(err).
					WithReportableDetails(map[string]any{"plan_item": n.Path}).
					Mark(ierr.ErrInvalidPlan)
			}
			if !p.Start.Before(horizon) {
				break
			}
			add(p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

package period

import (
	"time"

	"github.com/flexprice/revenue/internal/types"
)

// Windows groups the calendars a reference period can be resolved against.
// Charge is nil for items without a recurring charge.
type Windows struct {
	Charge       *Calendar
	Subscription Calendar
}

// CustomPeriod resolves a reference period keyword at time t. It returns nil
// when the window does not exist, ex the previous period of the first one.
// FIRST, LAST and PREVIOUS windows that would start before the subscription
// are clamped to the first charge period.
func (w Windows) CustomPeriod(t time.Time, rp types.ReferencePeriod) (*types.TimePeriod, error) {
	switch rp.Kind {
	case types.ReferencePeriodCurrentSubscription:
		return w.Subscription.PeriodAt(t)
	case types.ReferencePeriodPreviousSubscription:
		return w.Subscription.Previous(t)
	}

	if w.Charge == nil {
		return nil, nil
	}
	charge := *w.Charge

	var (
		start, end *types.TimePeriod
		err        error
	)
	switch rp.Kind {
	case types.ReferencePeriodCurrentCharge:
		return charge.PeriodAt(t)
	case types.ReferencePeriodPreviousCharge:
		return charge.Previous(t)
	case types.ReferencePeriodLastN:
		if start, err = charge.PeriodByOffset(t, -rp.N+1); err != nil {
			return nil, err
		}
		if end, err = charge.PeriodAt(t); err != nil {
			return nil, err
		}
	case types.ReferencePeriodPreviousN:
		if start, err = charge.PeriodByOffset(t, -rp.N); err != nil {
			return nil, err
		}
		if end, err = charge.Previous(t); err != nil {
			return nil, err
		}
	case types.ReferencePeriodFirstN:
		first, err := charge.First()
		if err != nil {
			return nil, err
		}
		start = &first
		if end, err = charge.PeriodByOffset(first.Start, rp.N-1); err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}

	if start == nil {
		first, err := charge.First()
		if err != nil {
			return nil, err
		}
		start = &first
	}
	if end == nil {
		return nil, nil
	}

	p := types.NewTimePeriod(start.Start, end.End)
	return &p, nil
}

// Package period implements the calendar arithmetic of subscriptions: charge
// periods, subscription periods, reference windows and billing periods.
package period

import (
	"time"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/types"
)

// DefaultMaxPeriods bounds every walk over a calendar
const DefaultMaxPeriods = 10000

// average length of one recurrence unit, only used to guess where a walk starts
var approxUnit = map[types.RecurringPeriod]time.Duration{
	types.RecurringPeriodDay:   24 * time.Hour,
	types.RecurringPeriodWeek:  7 * 24 * time.Hour,
	types.RecurringPeriodMonth: 730 * time.Hour,
	types.RecurringPeriodYear:  8766 * time.Hour,
}

// Calendar is a sequence of back to back periods anchored at Start. Period k
// is [Roll(Start, k), Roll(Start, k+1)), so month ends stay anchored to the
// start date instead of drifting.
type Calendar struct {
	Start      time.Time
	Recurrence types.Recurrence
	MaxPeriods int
}

func NewCalendar(start time.Time, recurrence types.Recurrence) Calendar {
	return Calendar{Start: start, Recurrence: recurrence, MaxPeriods: DefaultMaxPeriods}
}

// WithMaxPeriods returns a copy of the calendar with a different walk limit
func (c Calendar) WithMaxPeriods(n int) Calendar {
	if n > 0 {
		c.MaxPeriods = n
	}
	return c
}

func (c Calendar) maxPeriods() int {
	if c.MaxPeriods <= 0 {
		return DefaultMaxPeriods
	}
	return c.MaxPeriods
}

// Roll moves t by steps recurrences
func (c Calendar) Roll(t time.Time, steps int) (time.Time, error) {
	return c.Recurrence.Add(t, steps)
}

// Period returns the k-th period of the calendar, starting at 0
func (c Calendar) Period(k int) (types.TimePeriod, error) {
	start, err := c.Roll(c.Start, k)
	if err != nil {
		return types.TimePeriod{}, err
	}
	end, err := c.Roll(c.Start, k+1)
	if err != nil {
		return types.TimePeriod{}, err
	}
	if !end.After(start) {
		return types.TimePeriod{}, ierr.NewErrorf("recurrence %d %s does not advance time", c.Recurrence.Length, c.Recurrence.Unit).
			WithHint("Recurrence length must be a positive integer").
			Mark(ierr.ErrInvalidRecurrenceSpec)
	}
	return types.NewTimePeriod(start, end), nil
}

// PeriodAt returns the period containing t, nil when t precedes Start
func (c Calendar) PeriodAt(t time.Time) (*types.TimePeriod, error) {
	k, p, err := c.indexAt(t)
	if err != nil || k < 0 {
		return nil, err
	}
	return &p, nil
}

// indexAt returns the index of the period containing t and the period
// itself. The index is -1 when t precedes Start.
func (c Calendar) indexAt(t time.Time) (int, types.TimePeriod, error) {
	if err := c.Recurrence.Validate(); err != nil {
		return -1, types.TimePeriod{}, err
	}
	if t.Before(c.Start) {
		return -1, types.TimePeriod{}, nil
	}

	k := c.guess(t)
	for walked := 0; walked < c.maxPeriods(); walked++ {
		p, err := c.Period(k)
		if err != nil {
			return -1, types.TimePeriod{}, err
		}
		if p.Contains(t) {
			return k, p, nil
		}
		if t.Before(p.Start) {
			// the guess overshot, k never goes below zero since t >= Start
			k--
			continue
		}
		k++
	}

	return -1, types.TimePeriod{}, ierr.NewErrorf("no period found within %d steps of %s", c.maxPeriods(), types.FormatTime(c.Start)).
		WithHint("The requested time is too far from the subscription start for this recurrence").
		WithReportableDetails(map[string]any{
			"start": types.FormatTime(c.Start),
			"at":    types.FormatTime(t),
		}).
		Mark(ierr.ErrInvalidRecurrenceSpec)
}

// guess estimates the index of the period containing t, erring low
func (c Calendar) guess(t time.Time) int {
	unit, ok := approxUnit[c.Recurrence.Unit]
	if !ok || c.Recurrence.Length <= 0 {
		return 0
	}
	k := int(t.Sub(c.Start)/(unit*time.Duration(c.Recurrence.Length))) - 1
	if k < 0 {
		return 0
	}
	return k
}

// PeriodByOffset returns the period n periods away from the one containing
// t. Offsets count calendar periods, so clamped month ends stay anchored to
// Start. It is nil when t or the target precedes Start.
func (c Calendar) PeriodByOffset(t time.Time, n int) (*types.TimePeriod, error) {
	k, _, err := c.indexAt(t)
	if err != nil || k < 0 || k+n < 0 {
		return nil, err
	}
	p, err := c.Period(k + n)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c Calendar) Previous(t time.Time) (*types.TimePeriod, error) {
	return c.PeriodByOffset(t, -1)
}

func (c Calendar) Next(t time.Time) (*types.TimePeriod, error) {
	return c.PeriodByOffset(t, 1)
}

// First is the period starting at Start
func (c Calendar) First() (types.TimePeriod, error) {
	return c.Period(0)
}

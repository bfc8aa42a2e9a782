package types

import (
	"time"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/samber/lo"
)

// RecurringPeriod is the unit of a recurrence ex DAY, MONTH
type RecurringPeriod string

const (
	RecurringPeriodDay   RecurringPeriod = "DAY"
	RecurringPeriodWeek  RecurringPeriod = "WEEK"
	RecurringPeriodMonth RecurringPeriod = "MONTH"
	RecurringPeriodYear  RecurringPeriod = "YEAR"
)

func (p RecurringPeriod) String() string {
	return string(p)
}

func (p RecurringPeriod) Validate() error {
	allowed := []RecurringPeriod{
		RecurringPeriodDay,
		RecurringPeriodWeek,
		RecurringPeriodMonth,
		RecurringPeriodYear,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewErrorf("unsupported recurrence unit %q", string(p)).
			WithHint("Recurrence unit must be one of DAY, WEEK, MONTH, YEAR").
			WithReportableDetails(map[string]any{
				"unit":          p,
				"allowed_units": allowed,
			}).
			Mark(ierr.ErrUnsupportedRecurrenceUnit)
	}
	return nil
}

// Recurrence is a length and a unit, ex 3 MONTH
type Recurrence struct {
	Unit   RecurringPeriod `json:"unit" yaml:"unit"`
	Length int             `json:"length" yaml:"length"`
}

// DefaultSubscriptionDuration is used when a plan does not state its duration
var DefaultSubscriptionDuration = Recurrence{Unit: RecurringPeriodYear, Length: 1}

func (r Recurrence) Validate() error {
	if err := r.Unit.Validate(); err != nil {
		return err
	}
	if r.Length <= 0 {
		return ierr.NewErrorf("recurrence length must be a positive integer, got %d", r.Length).
			WithHint("Recurrence length must be greater than zero").
			Mark(ierr.ErrInvalidRecurrenceSpec)
	}
	return nil
}

func (r Recurrence) IsZero() bool {
	return r.Unit == "" && r.Length == 0
}

// Add moves t by steps recurrences. Negative steps move backwards.
// Months and years clamp to the last valid day of the target month,
// days and weeks are plain calendar arithmetic.
func (r Recurrence) Add(t time.Time, steps int) (time.Time, error) {
	if err := r.Validate(); err != nil {
		return t, err
	}

	n := r.Length * steps
	switch r.Unit {
	case RecurringPeriodDay:
		return t.AddDate(0, 0, n), nil
	case RecurringPeriodWeek:
		return t.AddDate(0, 0, 7*n), nil
	case RecurringPeriodMonth:
		return AddClampedDate(t, 0, n), nil
	case RecurringPeriodYear:
		return AddClampedDate(t, n, 0), nil
	}
	// unreachable, Validate rejects unknown units
	return t, ierr.NewErrorf("unsupported recurrence unit %q", string(r.Unit)).
		Mark(ierr.ErrUnsupportedRecurrenceUnit)
}

// AddClampedDate adds years and months to t keeping the time of day. If the
// day does not exist in the target month it is clamped to the last valid day,
// ex Jan 31 + 1 month = Feb 28 (or 29).
func AddClampedDate(t time.Time, years, months int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	// Calculate the proposed year and month
	newY := y + years
	newM := time.Month(int(m) + months)

	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Find the last valid day of the new month
	lastDay := time.Date(newY, newM+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}

	return time.Date(newY, newM, d, h, min, sec, t.Nanosecond(), t.Location())
}

package types

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ReferencePeriodKind selects the window a metric is read over
type ReferencePeriodKind string

const (
	ReferencePeriodCurrentCharge        ReferencePeriodKind = "CURRENT_CHARGE_PERIOD"
	ReferencePeriodPreviousCharge       ReferencePeriodKind = "PREVIOUS_CHARGE_PERIOD"
	ReferencePeriodCurrentSubscription  ReferencePeriodKind = "CURRENT_SUBSCRIPTION_PERIOD"
	ReferencePeriodPreviousSubscription ReferencePeriodKind = "PREVIOUS_SUBSCRIPTION_PERIOD"
	// ReferencePeriodFirstN covers the first N charge periods of the subscription
	ReferencePeriodFirstN ReferencePeriodKind = "FIRST_N_CHARGE_PERIODS"
	// ReferencePeriodLastN covers the N charge periods ending with the current one
	ReferencePeriodLastN ReferencePeriodKind = "LAST_N_CHARGE_PERIODS"
	// ReferencePeriodPreviousN covers the N charge periods before the current one
	ReferencePeriodPreviousN ReferencePeriodKind = "PREVIOUS_N_CHARGE_PERIODS"
)

var windowKeywordPattern = regexp.MustCompile(`^(FIRST|LAST|PREVIOUS)_(\d+)_CHARGE_PERIODS?$`)

// ReferencePeriod is a parsed reference period keyword
type ReferencePeriod struct {
	Kind ReferencePeriodKind
	// N is the window size for the FIRST/LAST/PREVIOUS kinds
	N int
	// Keyword is the text the period was parsed from
	Keyword string
}

// ParseReferencePeriod parses keywords such as CURRENT_SUBSCRIPTION_PERIOD
// or PREVIOUS_3_CHARGE_PERIODS.
func ParseReferencePeriod(keyword string) (ReferencePeriod, error) {
	kw := strings.ToUpper(strings.TrimSpace(keyword))
	fixed := []ReferencePeriodKind{
		ReferencePeriodCurrentCharge,
		ReferencePeriodPreviousCharge,
		ReferencePeriodCurrentSubscription,
		ReferencePeriodPreviousSubscription,
	}
	if lo.Contains(fixed, ReferencePeriodKind(kw)) {
		return ReferencePeriod{Kind: ReferencePeriodKind(kw), Keyword: kw}, nil
	}

	m := windowKeywordPattern.FindStringSubmatch(kw)
	if m == nil {
		return ReferencePeriod{}, ierr.NewErrorf("unknown reference period %q", keyword).
			WithHint("Reference period must be a CURRENT/PREVIOUS charge or subscription period, or a FIRST/LAST/PREVIOUS_<N>_CHARGE_PERIODS window").
			Mark(ierr.ErrInvalidPlan)
	}

	n, err := strconv.Atoi(m[2])
	if err != nil || n <= 0 {
		return ReferencePeriod{}, ierr.NewErrorf("invalid window size in reference period %q", keyword).
			WithHint("Window size must be a positive integer").
			Mark(ierr.ErrInvalidPlan)
	}

	rp := ReferencePeriod{N: n, Keyword: kw}
	switch m[1] {
	case "FIRST":
		rp.Kind = ReferencePeriodFirstN
	case "LAST":
		rp.Kind = ReferencePeriodLastN
	default:
		rp.Kind = ReferencePeriodPreviousN
	}
	return rp, nil
}

func (r ReferencePeriod) String() string {
	return r.Keyword
}

// BillPeriodModifierKind adjusts the end of a billing period
type BillPeriodModifierKind string

const (
	BillPeriodModifierNone                   BillPeriodModifierKind = ""
	BillPeriodModifierLastDayOfCalendarMonth BillPeriodModifierKind = "LAST_DAY_OF_CALENDAR_MONTH"
	BillPeriodModifierFollowingWeekday       BillPeriodModifierKind = "FOLLOWING_WEEKDAY"
	BillPeriodModifierDayOfCalendarMonth     BillPeriodModifierKind = "DAY_OF_CALENDAR_MONTH"
	BillPeriodModifierComputedDay            BillPeriodModifierKind = "COMPUTED_DAY"
)

var (
	followingPattern  = regexp.MustCompile(`^FOLLOWING_(SUNDAY|MONDAY|TUESDAY|WEDNESDAY|THURSDAY|FRIDAY|SATURDAY)$`)
	dayOfMonthPattern = regexp.MustCompile(`^(\d+)_OF_CALENDAR_MONTH$`)

	weekdays = map[string]time.Weekday{
		"SUNDAY":    time.Sunday,
		"MONDAY":    time.Monday,
		"TUESDAY":   time.Tuesday,
		"WEDNESDAY": time.Wednesday,
		"THURSDAY":  time.Thursday,
		"FRIDAY":    time.Friday,
		"SATURDAY":  time.Saturday,
	}
)

// BillPeriodModifier is a parsed billing period end modifier
type BillPeriodModifier struct {
	Kind    BillPeriodModifierKind
	Weekday time.Weekday
	Day     int
}

// ParseBillPeriodModifier parses LAST_DAY_OF_CALENDAR_MONTH,
// FOLLOWING_<WEEKDAY>, <N>_OF_CALENDAR_MONTH and COMPUTED_DAY. An empty
// string yields the no-op modifier.
func ParseBillPeriodModifier(s string) (BillPeriodModifier, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "":
		return BillPeriodModifier{Kind: BillPeriodModifierNone}, nil
	case string(BillPeriodModifierLastDayOfCalendarMonth):
		return BillPeriodModifier{Kind: BillPeriodModifierLastDayOfCalendarMonth}, nil
	case string(BillPeriodModifierComputedDay):
		return BillPeriodModifier{Kind: BillPeriodModifierComputedDay}, nil
	}

	if m := followingPattern.FindStringSubmatch(v); m != nil {
		return BillPeriodModifier{Kind: BillPeriodModifierFollowingWeekday, Weekday: weekdays[m[1]]}, nil
	}
	if m := dayOfMonthPattern.FindStringSubmatch(v); m != nil {
		day, err := strconv.Atoi(m[1])
		if err == nil && day >= 1 && day <= 31 {
			return BillPeriodModifier{Kind: BillPeriodModifierDayOfCalendarMonth, Day: day}, nil
		}
	}

	return BillPeriodModifier{}, ierr.NewErrorf("unsupported billing period modifier %q", s).
		WithHint("Use LAST_DAY_OF_CALENDAR_MONTH, FOLLOWING_<WEEKDAY>, <N>_OF_CALENDAR_MONTH or COMPUTED_DAY").
		Mark(ierr.ErrValidation)
}

// Apply moves the exclusive end of a billing period according to the modifier
func (m BillPeriodModifier) Apply(end time.Time) time.Time {
	switch m.Kind {
	case BillPeriodModifierLastDayOfCalendarMonth:
		// the period must include the last day of the month its final instant lies in
		last := end.Add(-time.Nanosecond)
		return time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, end.Location()).AddDate(0, 1, 0)
	case BillPeriodModifierFollowingWeekday:
		next := end
		for next.Weekday() != m.Weekday {
			next = next.AddDate(0, 0, 1)
		}
		return next
	case BillPeriodModifierDayOfCalendarMonth:
		next := end
		// a day that does not exist in every month is reached within two months
		for i := 0; i < 62 && next.Day() != m.Day; i++ {
			next = next.AddDate(0, 0, 1)
		}
		if next.Day() != m.Day {
			return end
		}
		return next
	}
	return end
}

// Range is an inclusive interval of decimals, either bound may be open
type Range struct {
	Min *decimal.Decimal `json:"min,omitempty" yaml:"min,omitempty"`
	Max *decimal.Decimal `json:"max,omitempty" yaml:"max,omitempty"`
}

// InRange reports whether min <= v <= max
func (r Range) InRange(v decimal.Decimal) bool {
	if r.Min != nil && v.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && v.GreaterThan(*r.Max) {
		return false
	}
	return true
}

// Clamp bounds v to the range
func (r Range) Clamp(v decimal.Decimal) decimal.Decimal {
	if r.Min != nil && v.LessThan(*r.Min) {
		return *r.Min
	}
	if r.Max != nil && v.GreaterThan(*r.Max) {
		return *r.Max
	}
	return v
}

// Negate mirrors the range around zero, [a, b] becomes [-b, -a]
func (r Range) Negate() Range {
	out := Range{}
	if r.Max != nil {
		out.Min = lo.ToPtr(r.Max.Neg())
	}
	if r.Min != nil {
		out.Max = lo.ToPtr(r.Min.Neg())
	}
	return out
}

func (r Range) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

func (r Range) Validate() error {
	if r.Min != nil && r.Max != nil && r.Min.GreaterThan(*r.Max) {
		return ierr.NewError("range minimum is greater than maximum").
			WithHint("Range min must not exceed max").
			WithReportableDetails(map[string]any{
				"min": r.Min.String(),
				"max": r.Max.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

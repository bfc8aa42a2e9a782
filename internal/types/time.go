package types

import (
	"fmt"
	"time"
)

func ParseTime(t string) (time.Time, error) {
	return time.Parse(time.RFC3339, t)
}

func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// FormatDate renders the calendar date of t, ex 2025-01-31
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// TimePeriod is the half-open interval [Start, End)
type TimePeriod struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

func NewTimePeriod(start, end time.Time) TimePeriod {
	return TimePeriod{Start: start, End: end}
}

// Contains reports whether t falls in [Start, End)
func (p TimePeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Equal compares instants, ignoring locations
func (p TimePeriod) Equal(other TimePeriod) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

func (p TimePeriod) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// Before orders periods by start, then by end
func (p TimePeriod) Before(other TimePeriod) bool {
	if !p.Start.Equal(other.Start) {
		return p.Start.Before(other.Start)
	}
	return p.End.Before(other.End)
}

func (p TimePeriod) String() string {
	return fmt.Sprintf("[%s, %s)", FormatTime(p.Start), FormatTime(p.End))
}

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimePeriodContains(t *testing.T) {
	p := NewTimePeriod(
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
	)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "start is inclusive", at: p.Start, want: true},
		{name: "end is exclusive", at: p.End, want: false},
		{name: "inside", at: time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC), want: true},
		{name: "before", at: p.Start.Add(-time.Second), want: false},
		{name: "other zone same instant", at: p.Start.In(ist), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Contains(tt.at))
		})
	}
}

func TestTimePeriodOrdering(t *testing.T) {
	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, NewTimePeriod(jan, feb).Before(NewTimePeriod(feb, mar)))
	assert.True(t, NewTimePeriod(jan, feb).Before(NewTimePeriod(jan, mar)))
	assert.False(t, NewTimePeriod(jan, feb).Before(NewTimePeriod(jan, feb)))
	assert.True(t, NewTimePeriod(jan, feb).Equal(NewTimePeriod(jan.In(ist), feb.In(ist))))
	assert.True(t, TimePeriod{}.IsZero())
	assert.Equal(t, "2025-01-01", FormatDate(jan))
}

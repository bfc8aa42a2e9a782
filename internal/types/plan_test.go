package types

import (
	"testing"
	"time"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReferencePeriod(t *testing.T) {
	tests := []struct {
		keyword  string
		wantKind ReferencePeriodKind
		wantN    int
		wantErr  bool
	}{
		{keyword: "CURRENT_CHARGE_PERIOD", wantKind: ReferencePeriodCurrentCharge},
		{keyword: "previous_subscription_period", wantKind: ReferencePeriodPreviousSubscription},
		{keyword: "PREVIOUS_3_CHARGE_PERIODS", wantKind: ReferencePeriodPreviousN, wantN: 3},
		{keyword: "LAST_1_CHARGE_PERIOD", wantKind: ReferencePeriodLastN, wantN: 1},
		{keyword: "FIRST_12_CHARGE_PERIODS", wantKind: ReferencePeriodFirstN, wantN: 12},
		{keyword: "FIRST_0_CHARGE_PERIODS", wantErr: true},
		{keyword: "NEXT_CHARGE_PERIOD", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			got, err := ParseReferencePeriod(tt.keyword)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsInvalidPlan(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantN, got.N)
		})
	}
}

func TestBillPeriodModifierApply(t *testing.T) {
	// 2025-03-13 is a Thursday
	end := time.Date(2025, time.March, 13, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		modifier string
		want     time.Time
	}{
		{modifier: "", want: end},
		{modifier: "COMPUTED_DAY", want: end},
		{modifier: "LAST_DAY_OF_CALENDAR_MONTH", want: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)},
		{modifier: "FOLLOWING_MONDAY", want: time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC)},
		{modifier: "FOLLOWING_THURSDAY", want: end},
		{modifier: "5_OF_CALENDAR_MONTH", want: time.Date(2025, time.April, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.modifier, func(t *testing.T) {
			m, err := ParseBillPeriodModifier(tt.modifier)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Apply(end))
		})
	}

	_, err := ParseBillPeriodModifier("32_OF_CALENDAR_MONTH")
	assert.Error(t, err)
}

func TestRange(t *testing.T) {
	r := Range{Min: lo.ToPtr(decimal.NewFromInt(10)), Max: lo.ToPtr(decimal.NewFromInt(100))}

	assert.True(t, r.InRange(decimal.NewFromInt(10)))
	assert.True(t, r.InRange(decimal.NewFromInt(100)))
	assert.False(t, r.InRange(decimal.NewFromFloat(100.01)))
	assert.False(t, r.InRange(decimal.NewFromInt(9)))
	assert.True(t, Range{}.InRange(decimal.NewFromInt(-1000)))

	assert.True(t, decimal.NewFromInt(100).Equal(r.Clamp(decimal.NewFromInt(250))))
	assert.True(t, decimal.NewFromInt(10).Equal(r.Clamp(decimal.NewFromInt(1))))

	neg := r.Negate()
	assert.True(t, decimal.NewFromInt(-100).Equal(*neg.Min))
	assert.True(t, decimal.NewFromInt(-10).Equal(*neg.Max))

	assert.Error(t, Range{Min: r.Max, Max: r.Min}.Validate())
}

func TestParseBundleOperator(t *testing.T) {
	op, err := ParseBundleOperator("for_each")
	require.NoError(t, err)
	assert.Equal(t, BundleOperatorForEach, op)

	op, err = ParseBundleOperator("")
	require.NoError(t, err)
	assert.Equal(t, BundleOperatorCumulative, op)

	_, err = ParseBundleOperator("AVERAGE")
	assert.True(t, ierr.Is(err, ierr.ErrUnknownBundleOperator), "%v", err)
}

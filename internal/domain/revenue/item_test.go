package revenue

import (
	"testing"
	"time"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func bundle(t *testing.T, op types.BundleOperator, values ...int64) *Item {
	t.Helper()
	b := NewItem("bundle", "EUR")
	b.BundleOp = op
	for _, v := range values {
		require.NoError(t, b.AddItem(NewValueItem("child", d(v), "EUR")))
	}
	return b
}

func TestOverallValue(t *testing.T) {
	tests := []struct {
		name   string
		op     types.BundleOperator
		own    *int64
		values []int64
		want   int64
	}{
		{name: "cumulative sums", op: types.BundleOperatorCumulative, values: []int64{5, 12, 3}, want: 20},
		{name: "cumulative with own value", op: types.BundleOperatorCumulative, own: ptr(-2), values: []int64{5, 12, 3}, want: 18},
		{name: "foreach sums", op: types.BundleOperatorForEach, values: []int64{1, 2}, want: 3},
		{name: "higher keeps greatest", op: types.BundleOperatorAlternativeHigher, values: []int64{5, 12, 3}, want: 12},
		{name: "lower keeps smallest", op: types.BundleOperatorAlternativeLower, values: []int64{5, 12, 3}, want: 3},
		{name: "higher on discounts keeps largest discount", op: types.BundleOperatorAlternativeHigher, values: []int64{-5, -12, -3}, want: -12},
		{name: "lower on discounts keeps smallest discount", op: types.BundleOperatorAlternativeLower, values: []int64{-5, -12, -3}, want: -3},
		{name: "no children", op: types.BundleOperatorAlternativeHigher, own: ptr(7), want: 7},
		{name: "empty", op: types.BundleOperatorCumulative, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bundle(t, tt.op, tt.values...)
			if tt.own != nil {
				b.Value = decimalPtr(*tt.own)
			}
			assert.True(t, d(tt.want).Equal(b.OverallValue()), "want %d got %s", tt.want, b.OverallValue())
		})
	}
}

func TestCumulativeOverallIsOwnPlusChildren(t *testing.T) {
	inner := bundle(t, types.BundleOperatorAlternativeHigher, 4, 9)
	outer := bundle(t, types.BundleOperatorCumulative, 1, 2)
	require.NoError(t, outer.AddItem(inner))
	outer.Value = decimalPtr(10)

	sum := outer.OwnValue()
	for _, c := range outer.Items {
		sum = sum.Add(c.OverallValue())
	}
	assert.True(t, sum.Equal(outer.OverallValue()))
	assert.True(t, d(22).Equal(outer.OverallValue()))
}

func TestPickAlternativeTiesKeepFirst(t *testing.T) {
	assert.Equal(t, 0, PickAlternative(types.BundleOperatorAlternativeHigher, []decimal.Decimal{d(5), d(-5), d(5)}))
	assert.Equal(t, 1, PickAlternative(types.BundleOperatorAlternativeLower, []decimal.Decimal{d(5), d(2), d(-2)}))
	assert.Equal(t, -1, PickAlternative(types.BundleOperatorAlternativeLower, nil))
}

func TestAddItemCurrencyMismatch(t *testing.T) {
	parent := NewItem("parent", "EUR")
	err := parent.AddItem(NewValueItem("child", d(1), "USD"))
	require.Error(t, err)
	assert.True(t, ierr.IsCurrencyMismatch(err))
	assert.Empty(t, parent.Items)

	adopt := NewItem("parent", "")
	require.NoError(t, adopt.AddItem(NewValueItem("child", d(1), "USD")))
	assert.Equal(t, "USD", adopt.Currency)
}

func TestZeroAmountsKeepsShape(t *testing.T) {
	b := bundle(t, types.BundleOperatorCumulative, 3, 4)
	require.NoError(t, b.AddItem(NewItem("empty", "EUR")))
	before := b.Clone()

	b.ZeroAmounts()

	require.Len(t, b.Items, 3)
	assert.True(t, b.OverallValue().IsZero())
	assert.True(t, b.Items[0].Value.IsZero())
	assert.Nil(t, b.Items[2].Value)
	assert.True(t, d(7).Equal(before.OverallValue()), "clone is independent")
}

func TestCollapse(t *testing.T) {
	b := bundle(t, types.BundleOperatorCumulative, 3, 4)
	b.Collapse()
	assert.Empty(t, b.Items)
	assert.True(t, d(7).Equal(*b.Value))
}

func TestSplitByChargeTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	root := NewItem("root", "EUR")
	prepaid := NewValueItem("prepaid", d(100), "EUR")
	prepaid.SetChargeTime(&start)
	postpaid := NewValueItem("postpaid", d(30), "EUR")
	postpaid.SetChargeTime(&end)
	untimed := NewValueItem("untimed", d(1), "EUR")
	require.NoError(t, root.AddItem(prepaid))
	require.NoError(t, root.AddItem(postpaid))
	require.NoError(t, root.AddItem(untimed))

	assert.Equal(t, []time.Time{start, end}, root.ChargeTimes())

	parts := root.SplitByChargeTime()
	require.Len(t, parts, 2)
	assert.True(t, d(101).Equal(parts[0].OverallValue()))
	assert.Equal(t, start, *parts[0].ChargeTime)
	assert.True(t, d(30).Equal(parts[1].OverallValue()))
	assert.Equal(t, end, *parts[1].ChargeTime)

	total := parts[0].OverallValue().Add(parts[1].OverallValue())
	assert.True(t, total.Equal(root.OverallValue()))

	single := NewValueItem("single", d(5), "EUR")
	assert.Equal(t, []*Item{single}, single.SplitByChargeTime())
}

func TestClusterByChargeTime(t *testing.T) {
	early := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 1, 0)

	a := NewValueItem("late", d(1), "EUR")
	a.SetChargeTime(&late)
	b := NewValueItem("early", d(2), "EUR")
	b.SetChargeTime(&early)

	out := ClusterByChargeTime([]*Item{a, b})
	require.Len(t, out, 2)
	assert.Equal(t, "early", out[0].Name)
	assert.Equal(t, "late", out[1].Name)
}

func ptr(v int64) *int64 {
	return &v
}

func decimalPtr(v int64) *decimal.Decimal {
	x := decimal.NewFromInt(v)
	return &x
}

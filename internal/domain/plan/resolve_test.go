package plan

import (
	"testing"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const marketplacePlanYAML = `
id: plan-marketplace
name: Marketplace
description: Marketplace fees
lifecycleStatus: active
subscriptionDuration:
  unit: YEAR
  length: 1
billCycleSpecification:
  billingPeriodType: MONTH
  billingPeriodLength: 1
  billingPeriodEnd: LAST_DAY_OF_CALENDAR_MONTH
price:
  name: Marketplace fees
  isBundle: true
  bundleOp: CUMULATIVE
  currency: EUR
  type: RECURRING_POSTPAID
  recurringChargePeriodType: MONTH
  recurringChargePeriodLength: 1
  computationBase: transactionVolume
  computationBaseReferencePeriod: CURRENT_CHARGE_PERIOD
  prices:
    - name: Subscription fee for ${subscription.name}
      type: RECURRING_PREPAID
      amount: 100
    - name: Transaction fee
      percent: 2.5
      discount:
        name: Loyalty discount
        percent: 10
        computationBase: parent-price
    - name: Best of
      isBundle: true
      bundleOp: alternative_higher
      prices:
        - name: Low
          amount: 5
        - name: Tiered
          applicableBase: activeSellers
          applicableBaseRange:
            min: 10
          amount: 12
`

type ResolveSuite struct {
	suite.Suite
	plan *Plan
}

func TestResolve(t *testing.T) {
	suite.Run(t, new(ResolveSuite))
}

func (s *ResolveSuite) SetupTest() {
	p, err := Decode([]byte(marketplacePlanYAML), FormatYAML)
	s.Require().NoError(err)
	s.plan = p
}

func (s *ResolveSuite) TestArenaLayout() {
	rp, err := Resolve(s.plan)
	s.Require().NoError(err)

	s.Len(rp.Nodes, 7)
	s.Equal(0, rp.Root)

	root := rp.RootNode()
	s.True(root.IsBundle)
	s.Equal(types.BundleOperatorCumulative, root.BundleOp)
	s.Len(root.Children, 3)
	s.Equal(NoNode, root.Parent)

	for i, n := range rp.Nodes {
		s.Equal(i, n.Index)
		for _, c := range n.Children {
			s.Greater(c, i, "children follow their parent")
			s.Equal(i, rp.Node(c).Parent)
		}
	}
}

func (s *ResolveSuite) TestInheritance() {
	rp, err := Resolve(s.plan)
	s.Require().NoError(err)

	root := rp.RootNode()
	fee := rp.Node(root.Children[0])
	s.Equal("EUR", fee.Currency)
	s.Equal(types.PriceTypeRecurringPrepaid, fee.PriceType, "own type wins")
	s.Require().NotNil(fee.Recurrence)
	s.Equal(types.RecurringPeriodMonth, fee.Recurrence.Unit)
	s.False(fee.Variable)

	tx := rp.Node(root.Children[1])
	s.Equal(types.PriceTypeRecurringPostpaid, tx.PriceType)
	s.Equal("transactionVolume", tx.ComputationBase)
	s.Require().NotNil(tx.ComputationBaseReferencePeriod)
	s.Equal(types.ReferencePeriodCurrentCharge, tx.ComputationBaseReferencePeriod.Kind)
	s.True(tx.Variable)
	s.True(tx.HasDiscount())

	discount := rp.Node(tx.Discount)
	s.True(discount.IsDiscount())
	s.True(discount.UsesParentPrice())
	s.Equal(tx.Index, discount.ReferencePrice)
	s.Equal(types.PriceTypeRecurringPostpaid, discount.PriceType)
	s.Equal("Marketplace fees / Transaction fee / Loyalty discount", discount.Path)

	best := rp.Node(root.Children[2])
	s.Equal(types.BundleOperatorAlternativeHigher, best.BundleOp)
	s.True(best.Variable, "conditional child makes the bundle variable")
	tiered := rp.Node(best.Children[1])
	s.Equal("activeSellers", tiered.ApplicableBase)
	s.True(root.Variable)
}

func (s *ResolveSuite) TestAtomicPrices() {
	rp, err := Resolve(s.plan)
	s.Require().NoError(err)

	names := []string{}
	for _, n := range rp.AtomicPrices() {
		names = append(names, n.RawName())
	}
	s.Equal([]string{"Subscription fee for ${subscription.name}", "Transaction fee", "Low", "Tiered"}, names)
}

func (s *ResolveSuite) TestDefaultSubscriptionDuration() {
	s.plan.SubscriptionDuration = nil
	rp, err := Resolve(s.plan)
	s.Require().NoError(err)
	s.Equal(types.DefaultSubscriptionDuration, rp.SubscriptionDuration)
}

func TestResolveConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Plan)
		wantErr error
	}{
		{
			name:    "unknown bundle operator",
			mutate:  func(p *Plan) { p.Price.BundleOp = "AVERAGE" },
			wantErr: ierr.ErrUnknownBundleOperator,
		},
		{
			name: "atomic without amount",
			mutate: func(p *Plan) {
				p.Price.Prices[0].Amount = nil
			},
			wantErr: ierr.ErrMissingAmount,
		},
		{
			name: "unknown recurrence unit",
			mutate: func(p *Plan) {
				p.Price.RecurringChargePeriodType = "FORTNIGHT"
			},
			wantErr: ierr.ErrUnsupportedRecurrenceUnit,
		},
		{
			name: "zero recurrence length",
			mutate: func(p *Plan) {
				zero := 0
				p.Price.RecurringChargePeriodLength = &zero
			},
			wantErr: ierr.ErrInvalidRecurrenceSpec,
		},
		{
			name: "foreach without metric",
			mutate: func(p *Plan) {
				p.Price.Prices[2].BundleOp = "FOR_EACH"
			},
			wantErr: ierr.ErrInvalidPlan,
		},
		{
			name: "foreach over unsupported metric",
			mutate: func(p *Plan) {
				p.Price.Prices[2].BundleOp = "FOREACH"
				p.Price.Prices[2].ForEachMetric = "buyers"
			},
			wantErr: ierr.ErrUnsupportedIterationMetric,
		},
		{
			name: "percent without computation base",
			mutate: func(p *Plan) {
				p.Price.ComputationBase = ""
			},
			wantErr: ierr.ErrInvalidPlan,
		},
		{
			name: "bad reference period",
			mutate: func(p *Plan) {
				p.Price.Prices[1].ComputationBaseReferencePeriod = "NEXT_CHARGE_PERIOD"
			},
			wantErr: ierr.ErrInvalidPlan,
		},
		{
			name: "price on parent price",
			mutate: func(p *Plan) {
				p.Price.Prices[1].ComputationBase = types.ParentPriceBase
			},
			wantErr: ierr.ErrInvalidPlan,
		},
		{
			name: "bundle with amount",
			mutate: func(p *Plan) {
				p.Price.Prices[2].Amount = p.Price.Prices[0].Amount
			},
			wantErr: ierr.ErrInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode([]byte(marketplacePlanYAML), FormatYAML)
			require.NoError(t, err)
			tt.mutate(p)

			_, err = Resolve(p)
			require.Error(t, err)
			assert.True(t, ierr.Is(err, tt.wantErr), "%v", err)
			assert.True(t, ierr.IsInvalidPlan(err))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	data := []byte(`{
		"id": "p1",
		"name": "Flat",
		"price": {"name": "Flat fee", "amount": 49.90, "currency": "EUR", "type": "ONE_TIME_PREPAID"}
	}`)

	p, err := Decode(data, FormatJSON)
	require.NoError(t, err)
	require.NotNil(t, p.Price.Amount)
	assert.Equal(t, "49.9", p.Price.Amount.String())
	assert.Equal(t, FormatYAML, FormatFromPath("plans/flat.yml"))
	assert.Equal(t, FormatJSON, FormatFromPath("plans/flat.json"))

	_, err = Decode([]byte(`{"id": "p1", "name": "No price"}`), FormatJSON)
	assert.True(t, ierr.IsValidation(err))
}

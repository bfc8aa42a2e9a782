package calculator

import (
	"testing"
	"time"

	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/domain/revenue"
	"github.com/flexprice/revenue/internal/domain/subscription"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/logger"
	"github.com/flexprice/revenue/internal/testutil"
	"github.com/flexprice/revenue/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type EngineSuite struct {
	testutil.BaseEngineTestSuite
	engine *Engine
	sub    *subscription.Subscription
	start  time.Time
	march  types.TimePeriod
}

func TestEngine(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.BaseEngineTestSuite.SetupTest()
	s.engine = NewEngine(s.GetProvider(), s.GetLogger(), WithClock(s.Clock))
	s.start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s.sub = s.NewSubscription("sub-1", "plan-1", s.start)
	s.march = testutil.Month(2025, time.March)
}

func (s *EngineSuite) compute(root *testutil.ItemBuilder, p types.TimePeriod) (*revenue.Item, error) {
	rp := s.Resolve(testutil.NewPlan("plan-1", "Marketplace plan", root))
	return s.engine.Compute(s.GetContext(), Request{Subscription: s.sub, Plan: rp, Period: p})
}

func (s *EngineSuite) mustCompute(root *testutil.ItemBuilder, p types.TimePeriod) *revenue.Item {
	item, err := s.compute(root, p)
	s.Require().NoError(err)
	return item
}

func (s *EngineSuite) assertDecimal(want string, got revenue.Item) {
	s.True(testutil.Dec(want).Equal(got.OverallValue()), "%s: want %s, got %s", got.Name, want, got.OverallValue())
}

func (s *EngineSuite) TestCumulativeSumsChildren() {
	root := testutil.Price("Marketplace fees").MonthlyPrepaid().Currency("EUR").Bundle(types.BundleOperatorCumulative,
		testutil.Price("Base").Amount("10"),
		testutil.Price("Support").Amount("5"),
	)

	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.Len(item.Items, 2)
	s.Equal(types.BundleOperatorCumulative, item.BundleOp)
	s.Equal("EUR", item.Currency)
	s.Equal("EUR", item.Items[0].Currency)
	s.assertDecimal("15", *item)

	children := lo.Map(item.Items, func(c *revenue.Item, _ int) string { return c.OverallValue().String() })
	s.Equal([]string{"10", "5"}, children)
	s.Equal(item.OwnValue().Add(item.Items[0].OverallValue()).Add(item.Items[1].OverallValue()), item.OverallValue())

	s.Require().NotNil(item.ChargeTime)
	s.True(item.ChargeTime.Equal(s.march.Start))
	s.Equal(types.PriceTypeRecurringPrepaid, item.Type)
	s.False(item.Estimated)
}

func (s *EngineSuite) TestAlternativePicksByMagnitude() {
	children := func() []*testutil.ItemBuilder {
		return []*testutil.ItemBuilder{
			testutil.Price("A").Amount("5"),
			testutil.Price("B").Amount("12"),
			testutil.Price("C").Amount("3"),
		}
	}

	tests := []struct {
		name   string
		op     types.BundleOperator
		winner string
		value  string
	}{
		{name: "higher", op: types.BundleOperatorAlternativeHigher, winner: "B", value: "12"},
		{name: "lower", op: types.BundleOperatorAlternativeLower, winner: "C", value: "3"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			root := testutil.Price("Best offer").MonthlyPrepaid().Bundle(tt.op, children()...)
			item := s.mustCompute(root, s.march)
			s.Require().NotNil(item)
			s.Require().Len(item.Items, 1)
			s.Equal(tt.winner, item.Items[0].Name)
			s.assertDecimal(tt.value, *item)
		})
	}
}

func (s *EngineSuite) TestAlternativeWithoutCandidates() {
	root := testutil.Price("Best offer").MonthlyPrepaid().Bundle(types.BundleOperatorAlternativeHigher,
		testutil.Price("Commission").Percent("2").ComputedOn("volume", ""),
	)
	item := s.mustCompute(root, s.march)
	s.Nil(item)
}

func (s *EngineSuite) TestAlternativeAppliesNestedDiscount() {
	root := testutil.Price("Best offer").MonthlyPrepaid().Bundle(types.BundleOperatorAlternativeHigher,
		testutil.Price("A").Amount("50"),
		testutil.Price("B").Amount("80"),
	).WithDiscount(testutil.Discount("Launch").Percent("25").ComputedOn(types.ParentPriceBase, ""))

	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.Require().Len(item.Items, 2)
	s.Equal("B", item.Items[0].Name)
	s.Equal("Launch", item.Items[1].Name)
	s.assertDecimal("-20", *item.Items[1])
	s.assertDecimal("60", *item)
}

func (s *EngineSuite) TestDeterministic() {
	provider := s.GetProvider()
	provider.SetEntities(types.IterationActiveSellersBehindMarketplace, s.sub.SubscriberID, "s-1", "s-2", "s-3")
	for i, id := range []string{"s-1", "s-2", "s-3"} {
		provider.SetMetric("sales", id, s.march, testutil.Dec("1000").Mul(testutil.Dec(string(rune('1'+i)))))
	}

	root := testutil.Price("Marketplace").MonthlyPrepaid().Currency("EUR").ForEach(types.IterationActiveSellersBehindMarketplace,
		testutil.Price("Seller fee").Percent("1.5").ComputedOn("sales", ""),
	)
	rp := s.Resolve(testutil.NewPlan("plan-1", "Marketplace plan", root))
	req := Request{Subscription: s.sub, Plan: rp, Period: s.march}

	first, err := s.engine.Compute(s.GetContext(), req)
	s.Require().NoError(err)
	second, err := s.engine.Compute(s.GetContext(), req)
	s.Require().NoError(err)

	concurrent := NewEngine(provider, s.GetLogger(), WithClock(s.Clock), WithForEachConcurrency(3))
	third, err := concurrent.Compute(s.GetContext(), req)
	s.Require().NoError(err)

	a, err := jsoniter.Marshal(first)
	s.Require().NoError(err)
	b, err := jsoniter.Marshal(second)
	s.Require().NoError(err)
	c, err := jsoniter.Marshal(third)
	s.Require().NoError(err)
	s.Equal(string(a), string(b))
	s.Equal(string(a), string(c))
	s.assertDecimal("90", *first)
}

func (s *EngineSuite) TestApplicableFromKeepsShape() {
	root := testutil.Price("Plan").MonthlyPrepaid().Bundle(types.BundleOperatorCumulative,
		testutil.Price("Base").Amount("10").
			ApplicableFrom(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)).
			WithDiscount(testutil.Discount("Promo").Amount("2")),
		testutil.Price("Support").Amount("5").
			ApplicableFrom(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)),
	)

	march := s.mustCompute(root, s.march)
	april := s.mustCompute(root, testutil.Month(2025, time.April))
	s.Require().NotNil(march)
	s.Require().NotNil(april)

	s.Equal(shape(april), shape(march))
	s.True(march.OverallValue().IsZero())
	s.Require().Len(march.Items[0].Items, 1)
	s.True(march.Items[0].Items[0].OverallValue().IsZero())
	s.assertDecimal("13", *april)
}

func (s *EngineSuite) TestParentPriceDiscount() {
	root := testutil.Price("Listing").MonthlyPrepaid().Amount("200").
		WithDiscount(testutil.Discount("Loyalty").Percent("10").ComputedOn(types.ParentPriceBase, ""))

	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.Require().Len(item.Items, 1)
	s.Equal("Loyalty", item.Items[0].Name)
	s.assertDecimal("-20", *item.Items[0])
	s.assertDecimal("180", *item)
}

func (s *EngineSuite) TestNestedDiscountBundle() {
	tests := []struct {
		name     string
		op       types.BundleOperator
		total    string
		selected []string
	}{
		{name: "cumulative applies every discount", op: types.BundleOperatorCumulative, total: "85", selected: []string{"Loyalty", "Welcome"}},
		{name: "alternative keeps the largest discount", op: types.BundleOperatorAlternativeHigher, total: "70", selected: []string{"Launch"}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			var discounts []*testutil.ItemBuilder
			if tt.op == types.BundleOperatorCumulative {
				discounts = []*testutil.ItemBuilder{
					testutil.Discount("Loyalty").Percent("10").ComputedOn(types.ParentPriceBase, ""),
					testutil.Discount("Welcome").Amount("5"),
				}
			} else {
				discounts = []*testutil.ItemBuilder{
					testutil.Discount("Loyalty").Percent("10").ComputedOn(types.ParentPriceBase, ""),
					testutil.Discount("Launch").Percent("30").ComputedOn(types.ParentPriceBase, ""),
				}
			}
			root := testutil.Price("Listing").MonthlyPrepaid().Amount("100").
				WithDiscount(testutil.Discount("Promotions").Bundle(tt.op, discounts...))

			item := s.mustCompute(root, s.march)
			s.Require().NotNil(item)
			s.Require().Len(item.Items, 1)
			promotions := item.Items[0]
			s.Equal("Promotions", promotions.Name)
			s.Equal(tt.selected, lo.Map(promotions.Items, func(i *revenue.Item, _ int) string { return i.Name }))
			s.True(promotions.OverallValue().IsNegative())
			s.assertDecimal(tt.total, *item)
		})
	}
}

func (s *EngineSuite) TestAbsentMetricIsOmitted() {
	root := testutil.Price("Plan").MonthlyPrepaid().Bundle(types.BundleOperatorCumulative,
		testutil.Price("Commission").Percent("2").ComputedOn("volume", ""),
		testutil.Price("Base").Amount("10"),
	)

	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.Require().Len(item.Items, 1)
	s.Equal("Base", item.Items[0].Name)
	s.EqualValues(1, s.GetProvider().MetricCalls())

	s.GetProvider().SetMetric("volume", s.sub.SubscriberID, s.march, testutil.Dec("1000"))
	item = s.mustCompute(root, s.march)
	s.Require().Len(item.Items, 2)
	s.Equal("Commission", item.Items[0].Name)
	s.assertDecimal("20", *item.Items[0])
}

func (s *EngineSuite) TestProviderFailureIsAbsent() {
	s.GetProvider().Err = ierr.NewError("metrics service unavailable").Mark(ierr.ErrHTTPClient)
	root := testutil.Price("Commission").MonthlyPrepaid().Percent("2").ComputedOn("volume", "")

	item, err := s.compute(root, s.march)
	s.NoError(err)
	s.Nil(item)
}

func (s *EngineSuite) TestUnitAmount() {
	s.GetProvider().SetMetric("orders", s.sub.SubscriberID, s.march, testutil.Dec("40"))
	root := testutil.Price("Per order").MonthlyPostpaid().UnitAmount("0.25").ComputedOn("orders", "")

	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.assertDecimal("10", *item)
	s.Require().NotNil(item.ChargeTime)
	s.True(item.ChargeTime.Equal(s.march.End))
	s.Equal(types.PriceTypeRecurringPostpaid, item.Type)
}

func (s *EngineSuite) TestForEachSellers() {
	provider := s.GetProvider()
	provider.SetEntities(types.IterationActiveSellersBehindMarketplace, s.sub.SubscriberID, "s-1", "s-2")
	provider.SetName("s-1", "Blue Shop")
	provider.SetName("s-2", "Red Shop")
	provider.SetMetric("sales", "s-1", s.march, testutil.Dec("1000"))
	provider.SetMetric("sales", "s-2", s.march, testutil.Dec("500"))

	root := testutil.Price("Marketplace").MonthlyPrepaid().Currency("EUR").ForEach(types.IterationActiveSellersBehindMarketplace,
		testutil.Price("Fee of ${seller.tradingName}").Percent("1").ComputedOn("sales", ""),
	)

	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.Equal(types.BundleOperatorForEach, item.BundleOp)
	s.Require().Len(item.Items, 2)
	s.Equal("Marketplace for Blue Shop", item.Items[0].Name)
	s.Equal("Marketplace for Red Shop", item.Items[1].Name)
	s.Require().Len(item.Items[0].Items, 1)
	s.Equal("Fee of Blue Shop", item.Items[0].Items[0].Name)
	s.assertDecimal("10", *item.Items[0])
	s.assertDecimal("5", *item.Items[1])
	s.assertDecimal("15", *item)
}

func (s *EngineSuite) TestForEachWithoutEntities() {
	root := testutil.Price("Marketplace").MonthlyPrepaid().ForEach(types.IterationBilledSellersBehindMarketplace,
		testutil.Price("Fee").Amount("1"),
	)
	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.Empty(item.Items)
}

func (s *EngineSuite) TestPeriodAlignment() {
	root := testutil.Price("Quarterly").Charged(types.PriceTypeRecurringPrepaid, types.RecurringPeriodMonth, 3).Amount("30")

	item := s.mustCompute(root, testutil.Month(2025, time.February))
	s.Nil(item)

	quarter := types.NewTimePeriod(s.start, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	item = s.mustCompute(root, quarter)
	s.Require().NotNil(item)
	s.assertDecimal("30", *item)
}

func (s *EngineSuite) TestOneTimePrice() {
	root := testutil.Price("Plan").MonthlyPrepaid().Bundle(types.BundleOperatorCumulative,
		testutil.Price("Setup").OneTime().Amount("100"),
		testutil.Price("Base").Amount("10"),
	)

	year := types.NewTimePeriod(s.start, s.start.AddDate(1, 0, 0))
	item := s.mustCompute(root, year)
	s.Require().NotNil(item)
	s.Require().Len(item.Items, 1)
	s.Equal("Setup", item.Items[0].Name)
	s.Equal(types.PriceTypeOneTimePrepaid, item.Items[0].Type)
	s.Require().NotNil(item.Items[0].ChargeTime)
	s.True(item.Items[0].ChargeTime.Equal(s.start))
	s.Nil(item.ChargeTime)

	item = s.mustCompute(root, testutil.Month(2025, time.January))
	s.Require().Len(item.Items, 1)
	s.Equal("Base", item.Items[0].Name)
}

func (s *EngineSuite) TestIgnoreFlag() {
	root := testutil.Price("Fee").MonthlyPrepaid().Amount("10").Ignore("${subscription.characteristic.exempt}")

	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)

	s.sub.Characteristics = map[string]string{"exempt": "TRUE"}
	item = s.mustCompute(root, s.march)
	s.Nil(item)

	negated := testutil.Price("Fee").MonthlyPrepaid().Amount("10").Ignore("!${subscription.characteristic.exempt}")
	item = s.mustCompute(negated, s.march)
	s.NotNil(item)
}

func (s *EngineSuite) TestIgnoreAndValidPeriods() {
	ignored := testutil.Price("Fee").MonthlyPrepaid().Amount("10").IgnorePeriod("FIRST_2_CHARGE_PERIODS")
	feb := s.mustCompute(ignored, testutil.Month(2025, time.February))
	s.Require().NotNil(feb)
	s.True(feb.OverallValue().IsZero())
	s.assertDecimal("10", *s.mustCompute(ignored, s.march))

	intro := testutil.Price("Intro").MonthlyPrepaid().Amount("5").ValidPeriod("FIRST_2_CHARGE_PERIODS")
	feb = s.mustCompute(intro, testutil.Month(2025, time.February))
	s.Require().NotNil(feb)
	s.assertDecimal("5", *feb)
	s.Nil(s.mustCompute(intro, s.march))
}

func (s *EngineSuite) TestApplicability() {
	root := testutil.Price("Tier").MonthlyPrepaid().Amount("50").
		ApplicableWhen("volume", "PREVIOUS_CHARGE_PERIOD", testutil.RangeOf("1000", ""))
	feb := testutil.Month(2025, time.February)
	provider := s.GetProvider()

	s.Nil(s.mustCompute(root, s.march), "absent base")

	provider.SetMetric("volume", s.sub.SubscriberID, feb, testutil.Dec("500"))
	s.Nil(s.mustCompute(root, s.march), "below range")

	provider.SetMetric("volume", s.sub.SubscriberID, feb, testutil.Dec("1500"))
	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.assertDecimal("50", *item)
	s.Nil(s.mustCompute(root, feb), "january volume is absent")
}

func (s *EngineSuite) TestResultingAmountRange() {
	provider := s.GetProvider()
	root := testutil.Price("Commission").MonthlyPrepaid().Percent("10").ComputedOn("volume", "").
		ResultingRange(testutil.RangeOf("5", "50"))

	provider.SetMetric("volume", s.sub.SubscriberID, s.march, testutil.Dec("1000"))
	s.assertDecimal("50", *s.mustCompute(root, s.march))

	provider.SetMetric("volume", s.sub.SubscriberID, s.march, testutil.Dec("20"))
	s.assertDecimal("5", *s.mustCompute(root, s.march))

	capped := testutil.Price("Fee").MonthlyPrepaid().Amount("100").
		WithDiscount(testutil.Discount("Cap").Percent("50").ComputedOn(types.ParentPriceBase, "").
			ResultingRange(testutil.RangeOf("", "20")))
	item := s.mustCompute(capped, s.march)
	s.Require().NotNil(item)
	s.assertDecimal("-20", *item.Items[0])
	s.assertDecimal("80", *item)
}

func (s *EngineSuite) TestSkipIfZero() {
	root := testutil.Price("Fee").MonthlyPrepaid().Amount("0").SkipIfZero()
	s.Nil(s.mustCompute(root, s.march))
}

func (s *EngineSuite) TestEstimated() {
	july := testutil.Month(2025, time.July)
	s.GetProvider().SetMetric("volume", s.sub.SubscriberID, july, testutil.Dec("100"))
	s.GetProvider().SetMetric("volume", s.sub.SubscriberID, s.march, testutil.Dec("100"))

	variable := testutil.Price("Commission").MonthlyPrepaid().Percent("10").ComputedOn("volume", "")
	fixed := testutil.Price("Base").MonthlyPrepaid().Amount("10")

	s.True(s.mustCompute(variable, july).Estimated)
	s.False(s.mustCompute(variable, s.march).Estimated)
	s.False(s.mustCompute(fixed, july).Estimated)

	s.SetNow(july.End)
	s.True(s.GetNow().Equal(july.End))
	s.False(s.mustCompute(variable, july).Estimated)
}

func (s *EngineSuite) TestCollapse() {
	root := testutil.Price("Plan").MonthlyPrepaid().Collapse().Bundle(types.BundleOperatorCumulative,
		testutil.Price("Base").Amount("10"),
		testutil.Price("Support").Amount("5"),
	)
	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.Empty(item.Items)
	s.Require().NotNil(item.Value)
	s.assertDecimal("15", *item)
}

func (s *EngineSuite) TestNameTokens() {
	root := testutil.Price("Fee for ${subscription.name} by ${seller.tradingName}${unknown.x}").MonthlyPrepaid().Amount("10")
	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.Equal("Fee for Subscription sub-1 by Acme", item.Name)
}

func (s *EngineSuite) TestComputedDateTokens() {
	root := testutil.Price("Fee ${computed.chargeTime} | ${chargetime} | ${chargePeriod.startDate} - ${chargePeriod.endDate}").MonthlyPrepaid().Amount("10")
	item := s.mustCompute(root, s.march)
	s.Require().NotNil(item)
	s.Equal("Fee 2025-03-01 | 2025-03-01 | 2025-03-01 - 2025-04-01", item.Name)
}

func (s *EngineSuite) TestCurrencyMismatch() {
	root := testutil.Price("Plan").MonthlyPrepaid().Currency("EUR").Bundle(types.BundleOperatorCumulative,
		testutil.Price("Base").Amount("10"),
		testutil.Price("Imported").Amount("5").Currency("USD"),
	)
	_, err := s.compute(root, s.march)
	s.Require().Error(err)
	s.True(ierr.IsCurrencyMismatch(err))
}

func (s *EngineSuite) TestInvalidRequest() {
	_, err := s.engine.Compute(s.GetContext(), Request{Subscription: s.sub, Period: s.march})
	s.True(ierr.IsValidation(err))

	rp := s.Resolve(testutil.NewPlan("plan-1", "Plan", testutil.Price("Fee").MonthlyPrepaid().Amount("1")))
	_, err = s.engine.Compute(s.GetContext(), Request{Subscription: s.sub, Plan: rp})
	s.True(ierr.IsValidation(err))
}

func TestStrategyTableCoversResolvedNodes(t *testing.T) {
	e := NewEngine(testutil.NewInMemoryMetricsProvider(), logger.NewNopLogger())
	ops := []types.BundleOperator{
		types.BundleOperatorCumulative,
		types.BundleOperatorAlternativeHigher,
		types.BundleOperatorAlternativeLower,
		types.BundleOperatorForEach,
	}
	for _, kind := range []types.PlanItemKind{types.PlanItemKindPrice, types.PlanItemKindDiscount} {
		if _, err := e.strategyFor(&plan.Node{Kind: kind}); err != nil {
			t.Errorf("atomic %s: %v", kind, err)
		}
		for _, op := range ops {
			if _, err := e.strategyFor(&plan.Node{Kind: kind, IsBundle: true, BundleOp: op}); err != nil {
				t.Errorf("%s bundle %s: %v", kind, op, err)
			}
		}
	}

	_, err := e.strategyFor(&plan.Node{Kind: types.PlanItemKindPrice, IsBundle: true, BundleOp: "SOMETIMES"})
	if !ierr.IsInvalidPlan(err) {
		t.Errorf("expected an invalid plan error, got %v", err)
	}
}

type itemShape struct {
	Name  string
	Items []itemShape
}

func shape(i *revenue.Item) itemShape {
	out := itemShape{Name: i.Name}
	for _, c := range i.Items {
		out.Items = append(out.Items, shape(c))
	}
	return out
}

func (s *EngineSuite) TestPreviousPeriodAnchoredAtMonthEnd() {
	jan31 := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	s.sub = s.NewSubscription("sub-31", "plan-1", jan31)

	feb := types.NewTimePeriod(time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC))
	mar := types.NewTimePeriod(feb.End, time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC))
	apr := types.NewTimePeriod(mar.End, time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC))
	s.GetProvider().SetMetric("volume", s.sub.SubscriberID, feb, testutil.Dec("99.9"))
	s.GetProvider().SetMetric("volume", s.sub.SubscriberID, mar, testutil.Dec("10"))

	root := testutil.Price("Commission").MonthlyPostpaid().Percent("10").ComputedOn("volume", "PREVIOUS_CHARGE_PERIOD")
	item := s.mustCompute(root, apr)
	s.Require().NotNil(item)
	s.assertDecimal("1", *item)
}

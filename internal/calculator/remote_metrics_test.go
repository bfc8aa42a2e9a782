package calculator

import (
	"time"

	"github.com/flexprice/revenue/internal/cache"
	"github.com/flexprice/revenue/internal/metrics"
	"github.com/flexprice/revenue/internal/testutil"
	"github.com/flexprice/revenue/internal/types"
)

func (s *EngineSuite) TestForEachOverRemoteMetrics() {
	client := testutil.NewMockHTTPClient()
	client.RegisterJSONResponse("/entities/"+types.IterationActiveSellersBehindMarketplace, `{"ids": ["s-1", "s-2"]}`)
	client.RegisterJSONResponse("/entities/s-1/name", `{"name": "Blue Shop"}`)
	client.RegisterJSONResponse("/metrics/sales?entity=s-1", `{"value": "1000"}`)
	client.RegisterJSONResponse("/metrics/sales?entity=s-2", `{"value": "500"}`)

	remote := metrics.NewHTTPProvider("http://metrics.local", client, s.GetLogger())
	provider := metrics.NewCachedProvider(remote, cache.NewInMemoryCache(time.Minute), time.Minute)
	engine := NewEngine(provider, s.GetLogger(), WithClock(s.Clock))

	root := testutil.Price("Marketplace").MonthlyPrepaid().ForEach(types.IterationActiveSellersBehindMarketplace,
		testutil.Price("Fee").Percent("1").ComputedOn("sales", ""),
	)
	rp := s.Resolve(testutil.NewPlan("plan-1", "Marketplace plan", root))
	req := Request{Subscription: s.sub, Plan: rp, Period: s.march}

	item, err := engine.Compute(s.GetContext(), req)
	s.Require().NoError(err)
	s.Require().NotNil(item)
	s.Require().Len(item.Items, 2)
	s.Equal("Marketplace for Blue Shop", item.Items[0].Name)
	// unknown entities are labelled with their id
	s.Equal("Marketplace for s-2", item.Items[1].Name)
	s.assertDecimal("15", *item)

	sent := len(client.Requests())
	s.NotZero(sent)

	// memoized calls never reach the service again
	client.Clear()
	again, err := engine.Compute(s.GetContext(), req)
	s.Require().NoError(err)
	s.Empty(client.Requests())
	s.assertDecimal("15", *again)
}

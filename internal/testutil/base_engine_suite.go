package testutil

import (
	"context"
	"time"

	"github.com/flexprice/revenue/internal/config"
	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/domain/subscription"
	"github.com/flexprice/revenue/internal/logger"
	"github.com/flexprice/revenue/internal/types"
	"github.com/flexprice/revenue/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the repositories used by tests
type Stores struct {
	PlanRepo         *InMemoryPlanStore
	SubscriptionRepo *InMemorySubscriptionStore
}

// BaseEngineTestSuite provides common functionality for engine and service
// test suites: a logger, a fixed clock, an in-memory metrics provider and
// in-memory stores
type BaseEngineTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	provider *InMemoryMetricsProvider
	logger   *logger.Logger
	config   *config.Configuration
	now      time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseEngineTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseEngineTestSuite) SetupTest() {
	s.ctx = SetupContext(s.T().Cleanup)
	s.stores = Stores{
		PlanRepo:         NewInMemoryPlanStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
	}
	s.provider = NewInMemoryMetricsProvider()
	s.now = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
}

// TearDownTest is called after each test
func (s *BaseEngineTestSuite) TearDownTest() {
	s.stores.PlanRepo.Clear()
	s.stores.SubscriptionRepo.Clear()
	s.provider.Clear()
}

// GetContext returns the test context
func (s *BaseEngineTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseEngineTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetLogger returns the test logger
func (s *BaseEngineTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetStores returns all test repositories
func (s *BaseEngineTestSuite) GetStores() Stores {
	return s.stores
}

// GetProvider returns the metrics provider of the current test
func (s *BaseEngineTestSuite) GetProvider() *InMemoryMetricsProvider {
	return s.provider
}

// GetNow returns the fixed current time of the suite
func (s *BaseEngineTestSuite) GetNow() time.Time {
	return s.now
}

// Clock returns the fixed current time, usable as an engine clock
func (s *BaseEngineTestSuite) Clock() time.Time {
	return s.now
}

// SetNow moves the suite clock
func (s *BaseEngineTestSuite) SetNow(t time.Time) {
	s.now = t
}

// Resolve resolves p, failing the test on error
func (s *BaseEngineTestSuite) Resolve(p *plan.Plan) *plan.ResolvedPlan {
	rp, err := plan.Resolve(p)
	s.Require().NoError(err)
	return rp
}

// NewSubscription creates and stores a subscription to planID
func (s *BaseEngineTestSuite) NewSubscription(id, planID string, start time.Time) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:           id,
		Name:         "Subscription " + id,
		Status:       "active",
		StartDate:    start,
		SubscriberID: "org-" + id,
		Plan:         subscription.PlanRef{ID: planID},
		RelatedParties: []subscription.RelatedParty{
			{ID: "org-" + id, Role: subscription.PartyRoleSeller, Name: "Acme"},
		},
	}
	s.Require().NoError(s.stores.SubscriptionRepo.CreateSubscription(s.ctx, sub))
	return sub
}

// Month returns the calendar month starting on the first of m
func Month(year int, m time.Month) types.TimePeriod {
	start := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
	return types.NewTimePeriod(start, start.AddDate(0, 1, 0))
}

// Package calculator evaluates resolved plans into revenue item trees.
package calculator

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/revenue/internal/config"
	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/domain/revenue"
	"github.com/flexprice/revenue/internal/domain/subscription"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/logger"
	"github.com/flexprice/revenue/internal/metrics"
	"github.com/flexprice/revenue/internal/period"
	"github.com/flexprice/revenue/internal/tokens"
	"github.com/flexprice/revenue/internal/types"
)

// Clock returns the current time, it decides which items are estimated
type Clock func() time.Time

// Engine computes revenue items. It holds no per computation state and is
// safe for concurrent use.
type Engine struct {
	provider           metrics.Provider
	logger             *logger.Logger
	clock              Clock
	foreachConcurrency int
	maxPeriods         int
	strategies         map[strategyKey]strategy
}

type Option func(*Engine)

// WithClock overrides time.Now
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithForEachConcurrency evaluates the entities of for-each bundles on up
// to n goroutines. Results keep the entity order.
func WithForEachConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.foreachConcurrency = n
		}
	}
}

// WithMaxPeriods bounds every calendar walk
func WithMaxPeriods(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPeriods = n
		}
	}
}

func NewEngine(provider metrics.Provider, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		provider:           provider,
		logger:             log,
		clock:              time.Now,
		foreachConcurrency: 1,
		maxPeriods:         period.DefaultMaxPeriods,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.strategies = newStrategyTable()
	return e
}

// NewEngineFromConfig builds an engine with the limits of the engine config.
// opts are applied after the config.
func NewEngineFromConfig(cfg *config.Configuration, provider metrics.Provider, log *logger.Logger, opts ...Option) *Engine {
	return NewEngine(provider, log, append([]Option{
		WithForEachConcurrency(cfg.Engine.ForEachConcurrency),
		WithMaxPeriods(cfg.Engine.MaxPeriods),
	}, opts...)...)
}

// Now is the engine's view of the current time
func (e *Engine) Now() time.Time {
	return e.clock()
}

// MaxPeriods is the walk limit applied to calendars
func (e *Engine) MaxPeriods() int {
	return e.maxPeriods
}

// Request is one evaluation of a plan for a subscription over a period
type Request struct {
	Subscription *subscription.Subscription
	Plan         *plan.ResolvedPlan
	Period       types.TimePeriod
}

func (r Request) Validate() error {
	if r.Subscription == nil || r.Plan == nil {
		return ierr.NewError("subscription and plan are required").
			WithHint("A computation needs a subscription and a resolved plan").
			Mark(ierr.ErrValidation)
	}
	if err := r.Subscription.Validate(); err != nil {
		return err
	}
	if !r.Period.End.After(r.Period.Start) {
		return ierr.NewErrorf("period %s is empty", r.Period).
			WithHint("Period end must be after its start").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Compute evaluates the root of the plan over the request period with an
// empty context. It returns nil when nothing is owed for the period.
func (e *Engine) Compute(ctx context.Context, req Request) (*revenue.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ev := e.newEvaluation(req)
	e.logger.Debugw("computing revenue",
		"subscription_id", req.Subscription.ID,
		"plan_id", req.Plan.ID,
		"period", req.Period.String(),
		"root_item", req.Plan.RootNode().Path,
	)
	return ev.evaluate(ctx, req.Plan.Root, Context{})
}

// evaluation is the state shared by the nodes of a single computation
type evaluation struct {
	engine       *Engine
	plan         *plan.ResolvedPlan
	sub          *subscription.Subscription
	period       types.TimePeriod
	subscription period.Calendar
	now          time.Time
	baseScope    tokens.Scope

	sellerNames sync.Map
}

func (e *Engine) newEvaluation(req Request) *evaluation {
	sub := req.Subscription
	rp := req.Plan
	return &evaluation{
		engine:       e,
		plan:         rp,
		sub:          sub,
		period:       req.Period,
		subscription: period.NewCalendar(sub.StartDate, rp.SubscriptionDuration).WithMaxPeriods(e.maxPeriods),
		now:          e.clock(),
		baseScope: tokens.Scope{
			Subscription: &tokens.SubscriptionScope{
				ID:              sub.ID,
				Name:            sub.Name,
				StartDate:       sub.StartDate,
				Characteristics: sub.Characteristics,
			},
			Plan: &tokens.PlanScope{
				ID:          rp.ID,
				Name:        rp.Name,
				Description: rp.Description,
			},
		},
	}
}

func (ev *evaluation) log() *logger.Logger {
	return ev.engine.logger
}

// entity is the id metrics are read for
func (ev *evaluation) entity(cc Context) string {
	if cc.SellerID != "" {
		return cc.SellerID
	}
	return ev.sub.SubscriberID
}

// windows returns the calendars reference periods of n resolve against
func (ev *evaluation) windows(n *plan.Node) period.Windows {
	return period.Windows{
		Charge:       period.ChargeCalendar(n, ev.sub.StartDate, ev.engine.maxPeriods),
		Subscription: ev.subscription,
	}
}

package service

import (
	"context"

	"github.com/flexprice/revenue/internal/calculator"
	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/domain/revenue"
	"github.com/flexprice/revenue/internal/domain/subscription"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/period"
	"github.com/flexprice/revenue/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/iter"
)

// StatementService turns subscriptions into revenue statements, one per
// charge period with something owed
type StatementService interface {
	// StatementsForSubscription computes the statements of sub under rp,
	// ordered by period. Any error aborts the computation of sub.
	StatementsForSubscription(ctx context.Context, sub *subscription.Subscription, rp *plan.ResolvedPlan) ([]*revenue.Statement, error)

	// StatementsForSubscriptionID loads the subscription and its plan
	// from the repositories first
	StatementsForSubscriptionID(ctx context.Context, id string) ([]*revenue.Statement, error)

	// StatementsForSubscriptions computes every subscription independently.
	// A failing subscription is reported in its result and does not affect
	// the others.
	StatementsForSubscriptions(ctx context.Context, subs []*subscription.Subscription) []*SubscriptionStatements

	ItemsForSubscription(ctx context.Context, sub *subscription.Subscription, rp *plan.ResolvedPlan) ([]*revenue.Item, error)

	// BillingPeriods splits the first subscription period by the plan bill cycle
	BillingPeriods(ctx context.Context, sub *subscription.Subscription, rp *plan.ResolvedPlan) ([]types.TimePeriod, error)

	// BillsForSubscription groups the statement items of sub into one bill
	// per billing period, empty bills included
	BillsForSubscription(ctx context.Context, sub *subscription.Subscription, rp *plan.ResolvedPlan) ([]*revenue.Bill, error)
}

// SubscriptionStatements is the outcome of one subscription in a batch
type SubscriptionStatements struct {
	SubscriptionID string               `json:"subscription_id"`
	Statements     []*revenue.Statement `json:"statements,omitempty"`
	Err            error                `json:"-"`
}

type statementService struct {
	ServiceParams
}

func NewStatementService(params ServiceParams) StatementService {
	return &statementService{
		ServiceParams: params,
	}
}

func (s *statementService) subscriptionCalendar(sub *subscription.Subscription, rp *plan.ResolvedPlan) period.Calendar {
	return period.NewCalendar(sub.StartDate, rp.SubscriptionDuration).WithMaxPeriods(s.Engine.MaxPeriods())
}

func (s *statementService) StatementsForSubscription(ctx context.Context, sub *subscription.Subscription, rp *plan.ResolvedPlan) ([]*revenue.Statement, error) {
	if sub == nil || rp == nil {
		return nil, ierr.NewError("subscription and plan are required").
			WithHint("Statements need a subscription and its plan").
			Mark(ierr.ErrValidation)
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	log := s.Logger.With("subscription_id", sub.ID, "plan_id", rp.ID)

	periods, err := period.ChargePeriods(rp, s.subscriptionCalendar(sub, rp), s.Engine.Now(), s.Config.Engine.Lookahead)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not enumerate the charge periods of subscription %s", sub.ID).
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"plan_id":         rp.ID,
			}).
			Mark(ierr.ErrInvalidPlan)
	}

	statements := make([]*revenue.Statement, 0, len(periods))
	for _, p := range periods {
		item, err := s.Engine.Compute(ctx, calculator.Request{
			Subscription: sub,
			Plan:         rp,
			Period:       p,
		})
		if err != nil {
			log.Errorw("revenue computation failed", "period", p.String(), "error", err)
			return nil, ierr.WithError(err).
				WithReportableDetails(map[string]any{
					"subscription_id": sub.ID,
					"period":          p.String(),
				}).
				Mark(ierr.ErrInvalidOperation)
		}
		if item == nil || item.IsEmpty() {
			continue
		}

		stmt := revenue.NewStatement(sub.ID, rp.ID, rp.Name, p)
		stmt.Items = []*revenue.Item{item}
		stmt.ClusterItems()
		statements = append(statements, stmt)
	}

	log.Infow("statements computed",
		"charge_periods", len(periods),
		"statements", len(statements),
	)
	return statements, nil
}

func (s *statementService) StatementsForSubscriptionID(ctx context.Context, id string) ([]*revenue.Statement, error) {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rp, err := s.PlanRepo.GetResolved(ctx, sub.Plan.ID)
	if err != nil {
		return nil, err
	}
	return s.StatementsForSubscription(ctx, sub, rp)
}

func (s *statementService) StatementsForSubscriptions(ctx context.Context, subs []*subscription.Subscription) []*SubscriptionStatements {
	mapper := iter.Mapper[*subscription.Subscription, *SubscriptionStatements]{
		MaxGoroutines: s.Config.Engine.SubscriptionConcurrency,
	}
	results := mapper.Map(subs, func(sub **subscription.Subscription) *SubscriptionStatements {
		out := &SubscriptionStatements{SubscriptionID: (*sub).ID}
		rp, err := s.PlanRepo.GetResolved(ctx, (*sub).Plan.ID)
		if err != nil {
			out.Err = err
			return out
		}
		out.Statements, out.Err = s.StatementsForSubscription(ctx, *sub, rp)
		return out
	})

	failed := lo.CountBy(results, func(r *SubscriptionStatements) bool { return r.Err != nil })
	if failed > 0 {
		s.Logger.Warnw("some subscriptions could not be computed",
			"failed", failed,
			"total", len(subs),
		)
	}
	return results
}

func (s *statementService) ItemsForSubscription(ctx context.Context, sub *subscription.Subscription, rp *plan.ResolvedPlan) ([]*revenue.Item, error) {
	statements, err := s.StatementsForSubscription(ctx, sub, rp)
	if err != nil {
		return nil, err
	}
	return lo.FlatMap(statements, func(st *revenue.Statement, _ int) []*revenue.Item {
		return st.Items
	}), nil
}

func (s *statementService) BillingPeriods(_ context.Context, sub *subscription.Subscription, rp *plan.ResolvedPlan) ([]types.TimePeriod, error) {
	if sub == nil || rp == nil {
		return nil, ierr.NewError("subscription and plan are required").
			WithHint("Billing periods need a subscription and its plan").
			Mark(ierr.ErrValidation)
	}
	return period.BillingPeriods(s.subscriptionCalendar(sub, rp), rp.BillCycle)
}

func (s *statementService) BillsForSubscription(ctx context.Context, sub *subscription.Subscription, rp *plan.ResolvedPlan) ([]*revenue.Bill, error) {
	periods, err := s.BillingPeriods(ctx, sub, rp)
	if err != nil {
		return nil, err
	}
	items, err := s.ItemsForSubscription(ctx, sub, rp)
	if err != nil {
		return nil, err
	}

	bills := revenue.GroupIntoBills(sub.ID, rp.ID, periods, items)
	s.Logger.Debugw("bills computed",
		"subscription_id", sub.ID,
		"bills", len(bills),
		"items", len(items),
	)
	return bills, nil
}

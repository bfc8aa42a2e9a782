package service

import (
	"context"

	"github.com/flexprice/revenue/internal/domain/plan"
)

type PlanService interface {
	// Validate inspects p without evaluating it
	Validate(ctx context.Context, p *plan.Plan) *plan.ValidationReport
	ValidatePlan(ctx context.Context, id string) (*plan.ValidationReport, error)
	ValidateAll(ctx context.Context) ([]*plan.ValidationReport, error)
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{
		ServiceParams: params,
	}
}

func (s *planService) Validate(_ context.Context, p *plan.Plan) *plan.ValidationReport {
	report := plan.Validate(p)
	if report.HasErrors() {
		s.Logger.Warnw("plan has errors",
			"plan_id", report.PlanID,
			"errors", len(report.BySeverity(plan.SeverityError)),
		)
	}
	return report
}

func (s *planService) ValidatePlan(ctx context.Context, id string) (*plan.ValidationReport, error) {
	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Validate(ctx, p), nil
}

func (s *planService) ValidateAll(ctx context.Context) ([]*plan.ValidationReport, error) {
	plans, err := s.PlanRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]*plan.ValidationReport, 0, len(plans))
	for _, p := range plans {
		reports = append(reports, s.Validate(ctx, p))
	}
	return reports, nil
}

package service

import (
	"github.com/flexprice/revenue/internal/calculator"
	"github.com/flexprice/revenue/internal/config"
	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/domain/subscription"
	"github.com/flexprice/revenue/internal/logger"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Engine *calculator.Engine

	// Repositories
	PlanRepo plan.Repository
	SubRepo  subscription.Repository
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	engine *calculator.Engine,
	planRepo plan.Repository,
	subRepo subscription.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:   logger,
		Config:   config,
		Engine:   engine,
		PlanRepo: planRepo,
		SubRepo:  subRepo,
	}
}

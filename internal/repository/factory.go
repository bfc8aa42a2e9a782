package repository

import (
	"github.com/flexprice/revenue/internal/config"
	"github.com/flexprice/revenue/internal/logger"
	"github.com/flexprice/revenue/internal/repository/file"
)

func NewPlanRepository(cfg *config.Configuration, logger *logger.Logger) (*file.PlanRepository, error) {
	return file.NewPlanRepository(cfg.Catalog.PlansDir, cfg.Catalog.CacheSize, cfg.Catalog.CacheTTL, logger)
}

func NewSubscriptionRepository(cfg *config.Configuration, logger *logger.Logger) (*file.SubscriptionRepository, error) {
	return file.NewSubscriptionRepository(cfg.Catalog.SubscriptionsDir, logger)
}

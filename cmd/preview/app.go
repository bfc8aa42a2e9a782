package main

import (
	"time"

	"github.com/flexprice/revenue/internal/calculator"
	"github.com/flexprice/revenue/internal/config"
	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/domain/subscription"
	"github.com/flexprice/revenue/internal/logger"
	"github.com/flexprice/revenue/internal/metrics"
	"github.com/flexprice/revenue/internal/repository"
	"github.com/flexprice/revenue/internal/service"
	"github.com/flexprice/revenue/internal/types"
	"github.com/flexprice/revenue/internal/validator"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

// provideConfig loads the configuration and applies the command line
// overrides. Plans and subscriptions only come from the files named on the
// command line.
func provideConfig(c *cli.Context) func() (*config.Configuration, error) {
	return func() (*config.Configuration, error) {
		cfg, err := config.NewConfig()
		if err != nil {
			return nil, err
		}

		if c.Bool("debug") {
			cfg.Logging.Level = types.LogLevelDebug
		}
		switch {
		case c.IsSet("metrics"):
			cfg.Metrics.Provider = types.MetricsProviderStatic
			cfg.Metrics.FixturePath = c.String("metrics")
		case !hasFlag(c.Command, "metrics"):
			// commands that never read metrics get an empty static provider
			cfg.Metrics.Provider = types.MetricsProviderStatic
			cfg.Metrics.FixturePath = ""
		}
		cfg.Catalog.PlansDir = ""
		cfg.Catalog.SubscriptionsDir = ""
		if c.IsSet("lookahead") {
			cfg.Engine.Lookahead = c.Duration("lookahead")
		}
		return cfg, nil
	}
}

func hasFlag(cmd *cli.Command, name string) bool {
	if cmd == nil {
		return false
	}
	return lo.ContainsBy(cmd.Flags, func(f cli.Flag) bool {
		return lo.Contains(f.Names(), name)
	})
}

// provideEngine pins the engine clock when --now is given
func provideEngine(c *cli.Context) func(*config.Configuration, metrics.Provider, *logger.Logger) (*calculator.Engine, error) {
	return func(cfg *config.Configuration, provider metrics.Provider, log *logger.Logger) (*calculator.Engine, error) {
		if !c.IsSet("now") {
			return calculator.NewEngineFromConfig(cfg, provider, log), nil
		}
		now, err := types.ParseTime(c.String("now"))
		if err != nil {
			return nil, err
		}
		return calculator.NewEngineFromConfig(cfg, provider, log,
			calculator.WithClock(func() time.Time { return now }),
		), nil
	}
}

// newApp builds the dependency graph of a command and fills targets
func newApp(c *cli.Context, targets ...any) error {
	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			provideConfig(c),
			logger.NewLogger,

			metrics.NewProvider,
			provideEngine(c),

			fx.Annotate(repository.NewPlanRepository, fx.As(fx.Self()), fx.As(new(plan.Repository))),
			fx.Annotate(repository.NewSubscriptionRepository, fx.As(fx.Self()), fx.As(new(subscription.Repository))),

			service.NewServiceParams,
			service.NewStatementService,
			service.NewPlanService,
		),
		fx.Invoke(validator.NewValidator),
		fx.Populate(targets...),
	)
	return app.Err()
}

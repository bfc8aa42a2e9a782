package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/flexprice/revenue/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Engine     EngineConfig     `validate:"required"`
	Metrics    MetricsConfig    `validate:"required"`
	Catalog    CatalogConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

// EngineConfig bounds the work a single computation may do
type EngineConfig struct {
	// Lookahead caps charge period enumeration at now + Lookahead
	Lookahead time.Duration `mapstructure:"lookahead" validate:"gt=0"`
	// ForEachConcurrency > 1 fans out for-each bundles over that many goroutines
	ForEachConcurrency int `mapstructure:"foreach_concurrency" validate:"gte=1"`
	// SubscriptionConcurrency bounds the subscriptions computed at once in a batch
	SubscriptionConcurrency int `mapstructure:"subscription_concurrency" validate:"gte=1"`
	// MaxPeriods is a hard cap on the number of steps of any period walk
	MaxPeriods int `mapstructure:"max_periods" validate:"gt=0"`
}

type MetricsConfig struct {
	Provider types.MetricsProviderType `mapstructure:"provider" validate:"required"`
	BaseURL  string                    `mapstructure:"base_url" validate:"required_if=Provider http"`
	// FixturePath is read by the static provider
	FixturePath string        `mapstructure:"fixture_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RetryMax    int           `mapstructure:"retry_max" validate:"gte=0"`
	// RateLimit in requests per second, zero means unlimited
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	// CacheTTL of zero disables memoization of provider calls
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type CatalogConfig struct {
	PlansDir         string        `mapstructure:"plans_dir"`
	SubscriptionsDir string        `mapstructure:"subscriptions_dir"`
	CacheSize        int           `mapstructure:"cache_size" validate:"gte=0"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/revenue")

	v.SetEnvPrefix("REVENUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("engine.lookahead", d.Engine.Lookahead)
	v.SetDefault("engine.foreach_concurrency", d.Engine.ForEachConcurrency)
	v.SetDefault("engine.subscription_concurrency", d.Engine.SubscriptionConcurrency)
	v.SetDefault("engine.max_periods", d.Engine.MaxPeriods)
	v.SetDefault("metrics.provider", d.Metrics.Provider)
	v.SetDefault("metrics.timeout", d.Metrics.Timeout)
	v.SetDefault("metrics.retry_max", d.Metrics.RetryMax)
	v.SetDefault("catalog.cache_size", d.Catalog.CacheSize)
	v.SetDefault("catalog.cache_ttl", d.Catalog.CacheTTL)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts, tests and the preview tool
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Engine: EngineConfig{
			Lookahead:               365 * 24 * time.Hour,
			ForEachConcurrency:      1,
			SubscriptionConcurrency: 4,
			MaxPeriods:              10000,
		},
		Metrics: MetricsConfig{
			Provider: types.MetricsProviderStatic,
			Timeout:  30 * time.Second,
			RetryMax: 3,
		},
		Catalog: CatalogConfig{
			CacheSize: 128,
			CacheTTL:  30 * time.Minute,
		},
	}
}

package config

import (
	"testing"
	"time"

	"github.com/flexprice/revenue/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 365*24*time.Hour, cfg.Engine.Lookahead)
	assert.Equal(t, 1, cfg.Engine.ForEachConcurrency)
	assert.Equal(t, 4, cfg.Engine.SubscriptionConcurrency)
}

func TestValidateRejectsHTTPProviderWithoutURL(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Provider = types.MetricsProviderHTTP
	assert.Error(t, cfg.Validate())

	cfg.Metrics.BaseURL = "http://metrics.local"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsZeroConcurrency(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Engine.ForEachConcurrency = 0
	assert.Error(t, cfg.Validate())

	cfg = GetDefaultConfig()
	cfg.Engine.SubscriptionConcurrency = 0
	assert.Error(t, cfg.Validate())
}

func TestConcurrencySettingsAreIndependent(t *testing.T) {
	t.Setenv("REVENUE_ENGINE_SUBSCRIPTION_CONCURRENCY", "8")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Engine.SubscriptionConcurrency)
	assert.Equal(t, 1, cfg.Engine.ForEachConcurrency)
}

func TestValidateRejectsNegativeRateLimit(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.RateLimit = -1
	assert.Error(t, cfg.Validate())

	cfg.Metrics.RateLimit = 20
	assert.NoError(t, cfg.Validate())
}

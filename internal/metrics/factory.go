package metrics

import (
	"github.com/flexprice/revenue/internal/cache"
	"github.com/flexprice/revenue/internal/config"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/httpclient"
	"github.com/flexprice/revenue/internal/logger"
	"github.com/flexprice/revenue/internal/types"
)

// NewProvider builds the provider selected by the configuration, memoized
// when a cache TTL is set
func NewProvider(cfg *config.Configuration, log *logger.Logger) (Provider, error) {
	if err := cfg.Metrics.Provider.Validate(); err != nil {
		return nil, err
	}

	var provider Provider
	switch cfg.Metrics.Provider {
	case types.MetricsProviderStatic:
		if cfg.Metrics.FixturePath == "" {
			provider = NewStaticProvider()
			break
		}
		static, err := LoadStaticProvider(cfg.Metrics.FixturePath)
		if err != nil {
			return nil, err
		}
		provider = static
	case types.MetricsProviderHTTP:
		if cfg.Metrics.BaseURL == "" {
			return nil, ierr.NewError("metrics base url is required").
				WithHint("Set metrics.base_url when using the http provider").
				Mark(ierr.ErrValidation)
		}
		clientCfg := httpclient.DefaultClientConfig()
		if cfg.Metrics.Timeout > 0 {
			clientCfg.Timeout = cfg.Metrics.Timeout
		}
		clientCfg.RetryMax = cfg.Metrics.RetryMax
		provider = NewHTTPProvider(cfg.Metrics.BaseURL, httpclient.NewDefaultClient(clientCfg, log), log).
			WithRateLimit(cfg.Metrics.RateLimit)
	}

	if cfg.Metrics.CacheTTL <= 0 {
		return provider, nil
	}

	log.Debugw("memoizing metrics provider", "provider", cfg.Metrics.Provider, "ttl", cfg.Metrics.CacheTTL)
	return NewCachedProvider(provider, cache.NewInMemoryCache(cfg.Metrics.CacheTTL), cfg.Metrics.CacheTTL), nil
}

package metrics

import (
	"context"
	"time"

	"github.com/flexprice/revenue/internal/cache"
	"github.com/flexprice/revenue/internal/types"
	"github.com/shopspring/decimal"
)

// absent marks a memoized lookup that returned no value
type absent struct{}

// CachedProvider memoizes the calls of another provider. Absent values are
// cached too so repeated lookups of missing data stay cheap.
type CachedProvider struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedProvider(next Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: c, ttl: ttl}
}

func (p *CachedProvider) MetricValue(ctx context.Context, key, entityID string, period types.TimePeriod) (*decimal.Decimal, error) {
	cacheKey := cache.GenerateKey(cache.PrefixMetricValue, key, entityID, period.Start.UnixNano(), period.End.UnixNano())
	if v, ok := p.cache.Get(ctx, cacheKey); ok {
		switch val := v.(type) {
		case decimal.Decimal:
			return &val, nil
		case absent:
			return nil, nil
		}
	}

	value, err := p.next.MetricValue(ctx, key, entityID, period)
	if err != nil {
		return nil, err
	}
	if value == nil {
		p.cache.Set(ctx, cacheKey, absent{}, p.ttl)
		return nil, nil
	}
	p.cache.Set(ctx, cacheKey, *value, p.ttl)
	return value, nil
}

func (p *CachedProvider) DistinctEntities(ctx context.Context, iterationKey, anchorEntityID string, period types.TimePeriod) ([]string, error) {
	cacheKey := cache.GenerateKey(cache.PrefixEntities, iterationKey, anchorEntityID, period.Start.UnixNano(), period.End.UnixNano())
	if v, ok := p.cache.Get(ctx, cacheKey); ok {
		if ids, ok := v.([]string); ok {
			return append([]string(nil), ids...), nil
		}
	}

	ids, err := p.next.DistinctEntities(ctx, iterationKey, anchorEntityID, period)
	if err != nil {
		return nil, err
	}
	p.cache.Set(ctx, cacheKey, append([]string(nil), ids...), p.ttl)
	return ids, nil
}

func (p *CachedProvider) EntityDisplayName(ctx context.Context, entityID string) (string, error) {
	cacheKey := cache.GenerateKey(cache.PrefixEntityName, entityID)
	if v, ok := p.cache.Get(ctx, cacheKey); ok {
		if name, ok := v.(string); ok {
			return name, nil
		}
	}

	name, err := p.next.EntityDisplayName(ctx, entityID)
	if err != nil {
		return "", err
	}
	p.cache.Set(ctx, cacheKey, name, p.ttl)
	return name, nil
}

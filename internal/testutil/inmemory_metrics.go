package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/flexprice/revenue/internal/types"
	"github.com/shopspring/decimal"
)

type metricKey struct {
	key    string
	entity string
	start  int64
	end    int64
}

type entitiesKey struct {
	key    string
	anchor string
}

// InMemoryMetricsProvider answers metric lookups for exact periods only,
// which makes the windows an engine asks for visible to tests
type InMemoryMetricsProvider struct {
	mu       sync.RWMutex
	values   map[metricKey]decimal.Decimal
	entities map[entitiesKey][]string
	names    map[string]string

	// Err, when set, is returned by every call
	Err error

	metricCalls atomic.Int64
}

func NewInMemoryMetricsProvider() *InMemoryMetricsProvider {
	return &InMemoryMetricsProvider{
		values:   make(map[metricKey]decimal.Decimal),
		entities: make(map[entitiesKey][]string),
		names:    make(map[string]string),
	}
}

// SetMetric records value for key and entity over exactly period
func (p *InMemoryMetricsProvider) SetMetric(key, entity string, period types.TimePeriod, value decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[metricKey{key, entity, period.Start.UnixNano(), period.End.UnixNano()}] = value
}

// SetEntities records the entities behind anchor for key, in every period
func (p *InMemoryMetricsProvider) SetEntities(key, anchor string, ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entities[entitiesKey{key, anchor}] = ids
}

func (p *InMemoryMetricsProvider) SetName(entity, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names[entity] = name
}

// MetricCalls is the number of MetricValue calls served
func (p *InMemoryMetricsProvider) MetricCalls() int64 {
	return p.metricCalls.Load()
}

func (p *InMemoryMetricsProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = make(map[metricKey]decimal.Decimal)
	p.entities = make(map[entitiesKey][]string)
	p.names = make(map[string]string)
	p.Err = nil
	p.metricCalls.Store(0)
}

func (p *InMemoryMetricsProvider) MetricValue(_ context.Context, key, entityID string, period types.TimePeriod) (*decimal.Decimal, error) {
	p.metricCalls.Add(1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.Err != nil {
		return nil, p.Err
	}

	v, ok := p.values[metricKey{key, entityID, period.Start.UnixNano(), period.End.UnixNano()}]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (p *InMemoryMetricsProvider) DistinctEntities(_ context.Context, iterationKey, anchorEntityID string, _ types.TimePeriod) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.Err != nil {
		return nil, p.Err
	}
	return append([]string(nil), p.entities[entitiesKey{iterationKey, anchorEntityID}]...), nil
}

func (p *InMemoryMetricsProvider) EntityDisplayName(_ context.Context, entityID string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if name, ok := p.names[entityID]; ok {
		return name, nil
	}
	return entityID, nil
}

package metrics

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MetricEntry is one recorded value of a metric for an entity over [From, To)
type MetricEntry struct {
	Key    string          `json:"key" yaml:"key" validate:"required"`
	Entity string          `json:"entity" yaml:"entity" validate:"required"`
	From   string          `json:"from" yaml:"from" validate:"required"`
	To     string          `json:"to" yaml:"to" validate:"required"`
	Value  decimal.Decimal `json:"value" yaml:"value"`
}

// EntityEntry lists the entities behind an anchor for an iteration key
type EntityEntry struct {
	Key    string   `json:"key" yaml:"key" validate:"required"`
	Anchor string   `json:"anchor" yaml:"anchor" validate:"required"`
	From   string   `json:"from,omitempty" yaml:"from,omitempty"`
	To     string   `json:"to,omitempty" yaml:"to,omitempty"`
	IDs    []string `json:"ids" yaml:"ids"`
}

// Fixture is the file format read by the static provider
type Fixture struct {
	Metrics  []MetricEntry     `json:"metrics" yaml:"metrics"`
	Entities []EntityEntry     `json:"entities" yaml:"entities"`
	Names    map[string]string `json:"names" yaml:"names"`
}

type metricRecord struct {
	key    string
	entity string
	period types.TimePeriod
	value  decimal.Decimal
}

type entityRecord struct {
	key    string
	anchor string
	period *types.TimePeriod
	ids    []string
}

// StaticProvider serves metrics from memory. A metric value is the sum of
// every recorded entry whose window lies inside the requested period; the
// value is absent when no entry does.
type StaticProvider struct {
	mu       sync.RWMutex
	metrics  []metricRecord
	entities []entityRecord
	names    map[string]string
}

// NewStaticProvider creates an empty static provider
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{names: make(map[string]string)}
}

// NewStaticProviderFromFixture loads a fixture into a new provider
func NewStaticProviderFromFixture(f *Fixture) (*StaticProvider, error) {
	p := NewStaticProvider()
	if f == nil {
		return p, nil
	}

	for _, m := range f.Metrics {
		period, err := parseWindow(m.From, m.To)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHintf("Invalid window for metric %s of %s", m.Key, m.Entity).
				Mark(ierr.ErrValidation)
		}
		p.AddMetric(m.Key, m.Entity, period, m.Value)
	}

	for _, e := range f.Entities {
		var period *types.TimePeriod
		if e.From != "" || e.To != "" {
			w, err := parseWindow(e.From, e.To)
			if err != nil {
				return nil, ierr.WithError(err).
					WithHintf("Invalid window for entities %s of %s", e.Key, e.Anchor).
					Mark(ierr.ErrValidation)
			}
			period = &w
		}
		p.addEntities(e.Key, e.Anchor, period, e.IDs)
	}

	for id, name := range f.Names {
		p.SetName(id, name)
	}
	return p, nil
}

// LoadStaticProvider reads a YAML or JSON fixture file
func LoadStaticProvider(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not read metrics fixture %s", path).
			Mark(ierr.ErrNotFound)
	}

	var f Fixture
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not parse metrics fixture %s", path).
			Mark(ierr.ErrValidation)
	}
	return NewStaticProviderFromFixture(&f)
}

func parseWindow(from, to string) (types.TimePeriod, error) {
	start, err := types.ParseTime(from)
	if err != nil {
		return types.TimePeriod{}, err
	}
	end, err := types.ParseTime(to)
	if err != nil {
		return types.TimePeriod{}, err
	}
	if !end.After(start) {
		return types.TimePeriod{}, ierr.NewErrorf("window %s to %s is empty", from, to).
			Mark(ierr.ErrValidation)
	}
	return types.NewTimePeriod(start, end), nil
}

// AddMetric records a value of key for entity over period
func (p *StaticProvider) AddMetric(key, entity string, period types.TimePeriod, value decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = append(p.metrics, metricRecord{key: key, entity: entity, period: period, value: value})
}

// AddEntities records the entities behind anchor for key, valid in any period
func (p *StaticProvider) AddEntities(key, anchor string, ids ...string) {
	p.addEntities(key, anchor, nil, ids)
}

func (p *StaticProvider) addEntities(key, anchor string, period *types.TimePeriod, ids []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entities = append(p.entities, entityRecord{key: key, anchor: anchor, period: period, ids: ids})
}

// SetName records the display name of an entity
func (p *StaticProvider) SetName(entity, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names[entity] = name
}

func (p *StaticProvider) MetricValue(_ context.Context, key, entityID string, period types.TimePeriod) (*decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var (
		sum   decimal.Decimal
		found bool
	)
	for _, m := range p.metrics {
		if m.key != key || m.entity != entityID || !within(m.period, period) {
			continue
		}
		sum = sum.Add(m.value)
		found = true
	}
	if !found {
		return nil, nil
	}
	return &sum, nil
}

func (p *StaticProvider) DistinctEntities(_ context.Context, iterationKey, anchorEntityID string, period types.TimePeriod) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var ids []string
	for _, e := range p.entities {
		if e.key != iterationKey || e.anchor != anchorEntityID {
			continue
		}
		if e.period != nil && !overlaps(*e.period, period) {
			continue
		}
		ids = append(ids, e.ids...)
	}

	ids = lo.Uniq(ids)
	sort.Strings(ids)
	return ids, nil
}

func (p *StaticProvider) EntityDisplayName(_ context.Context, entityID string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if name, ok := p.names[entityID]; ok && name != "" {
		return name, nil
	}
	return entityID, nil
}

// within reports whether inner lies inside outer
func within(inner, outer types.TimePeriod) bool {
	return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
}

func overlaps(a, b types.TimePeriod) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

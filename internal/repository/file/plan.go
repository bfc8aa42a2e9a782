package file

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flexprice/revenue/internal/domain/plan"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/logger"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/samber/lo"
)

const defaultResolvedCacheSize = 128

type planEntry struct {
	plan *plan.Plan
	path string
}

// PlanRepository serves plan definitions read from files. Resolved plans are
// kept in an expirable LRU so repeated computations skip resolution.
type PlanRepository struct {
	mu       sync.RWMutex
	plans    map[string]planEntry
	resolved *lru.LRU[string, *plan.ResolvedPlan]
	logger   *logger.Logger
}

// NewPlanRepository loads every plan definition found in dir. A cacheTTL of
// zero keeps resolved plans until they are evicted by size.
func NewPlanRepository(dir string, cacheSize int, cacheTTL time.Duration, log *logger.Logger) (*PlanRepository, error) {
	if cacheSize <= 0 {
		cacheSize = defaultResolvedCacheSize
	}
	r := &PlanRepository{
		plans:    make(map[string]planEntry),
		resolved: lru.NewLRU[string, *plan.ResolvedPlan](cacheSize, nil, cacheTTL),
		logger:   log,
	}

	paths, err := definitionFiles(dir)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		if _, err := r.LoadFile(path); err != nil {
			return nil, err
		}
	}
	r.logger.Debugw("plan definitions loaded", "dir", dir, "count", len(r.plans))
	return r, nil
}

// LoadFile decodes the plan at path and adds it to the repository. Loading
// the same file again replaces the plan.
func (r *PlanRepository) LoadFile(path string) (*plan.Plan, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	p, err := plan.Decode(data, plan.FormatFromPath(path))
	if err != nil {
		return nil, ierr.WithError(err).
			WithReportableDetails(map[string]any{
				"path": path,
			}).
			Mark(ierr.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.plans[p.ID]; ok && existing.path != path {
		return nil, duplicateError("plan", p.ID, existing.path, path)
	}
	r.plans[p.ID] = planEntry{plan: p, path: path}
	r.resolved.Remove(p.ID)
	return p, nil
}

func (r *PlanRepository) Get(_ context.Context, id string) (*plan.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.plans[id]
	if !ok {
		return nil, ierr.NewErrorf("plan %s not found", id).
			WithHintf("No plan definition with id %q was loaded", id).
			WithReportableDetails(map[string]any{
				"plan_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return e.plan, nil
}

// GetResolved resolves the plan on first use. Resolution errors are not
// cached.
func (r *PlanRepository) GetResolved(ctx context.Context, id string) (*plan.ResolvedPlan, error) {
	if rp, ok := r.resolved.Get(id); ok {
		return rp, nil
	}

	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rp, err := plan.Resolve(p)
	if err != nil {
		return nil, err
	}
	r.resolved.Add(id, rp)
	return rp, nil
}

// List returns the plans ordered by id
func (r *PlanRepository) List(_ context.Context) ([]*plan.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plans := lo.MapToSlice(r.plans, func(_ string, e planEntry) *plan.Plan { return e.plan })
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, nil
}

// CachedResolved is the number of resolved plans held in the cache
func (r *PlanRepository) CachedResolved() int {
	return r.resolved.Len()
}

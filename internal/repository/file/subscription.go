package file

import (
	"context"
	"sort"
	"sync"

	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/domain/subscription"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/logger"
	"github.com/flexprice/revenue/internal/validator"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type subscriptionEntry struct {
	sub  *subscription.Subscription
	path string
}

// SubscriptionRepository serves subscriptions read from files
type SubscriptionRepository struct {
	mu     sync.RWMutex
	subs   map[string]subscriptionEntry
	logger *logger.Logger
}

// NewSubscriptionRepository loads every subscription found in dir
func NewSubscriptionRepository(dir string, log *logger.Logger) (*SubscriptionRepository, error) {
	r := &SubscriptionRepository{
		subs:   make(map[string]subscriptionEntry),
		logger: log,
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
	r.logger.Debugw("subscriptions loaded", "dir", dir, "count", len(r.subs))
	return r, nil
}

// DecodeSubscription parses and validates a subscription definition
func DecodeSubscription(data []byte, format plan.Format) (*subscription.Subscription, error) {
	var sub subscription.Subscription

	var err error
	switch format {
	case plan.FormatYAML:
		err = yaml.Unmarshal(data, &sub)
	default:
		err = json.Unmarshal(data, &sub)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Subscription definition could not be parsed").
			WithReportableDetails(map[string]any{
				"format": format,
			}).
			Mark(ierr.ErrValidation)
	}

	if err := validator.ValidateRequest(&sub); err != nil {
		return nil, err
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return &sub, nil
}

// LoadFile decodes the subscription at path and adds it to the repository
func (r *SubscriptionRepository) LoadFile(path string) (*subscription.Subscription, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	sub, err := DecodeSubscription(data, plan.FormatFromPath(path))
	if err != nil {
		return nil, ierr.WithError(err).
			WithReportableDetails(map[string]any{
				"path": path,
			}).
			Mark(ierr.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.subs[sub.ID]; ok && existing.path != path {
		return nil, duplicateError("subscription", sub.ID, existing.path, path)
	}
	r.subs[sub.ID] = subscriptionEntry{sub: sub, path: path}
	return sub, nil
}

func (r *SubscriptionRepository) Get(_ context.Context, id string) (*subscription.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.subs[id]
	if !ok {
		return nil, ierr.NewErrorf("subscription %s not found", id).
			WithHintf("No subscription with id %q was loaded", id).
			WithReportableDetails(map[string]any{
				"subscription_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return e.sub, nil
}

// List returns the subscriptions ordered by start date, then id
func (r *SubscriptionRepository) List(_ context.Context) ([]*subscription.Subscription, error) {
	return r.filter(func(*subscription.Subscription) bool { return true }), nil
}

func (r *SubscriptionRepository) ListByPlan(_ context.Context, planID string) ([]*subscription.Subscription, error) {
	return r.filter(func(s *subscription.Subscription) bool { return s.Plan.ID == planID }), nil
}

func (r *SubscriptionRepository) filter(keep func(*subscription.Subscription) bool) []*subscription.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*subscription.Subscription
	for _, e := range r.subs {
		if keep(e.sub) {
			out = append(out, e.sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return lo.Ternary(out == nil, []*subscription.Subscription{}, out)
}

package tokens

import (
	"strings"
	"time"

	"github.com/flexprice/revenue/internal/types"
)

// ScopeKind is the closed set of namespaces a token can read from
type ScopeKind string

const (
	ScopeSubscription ScopeKind = "subscription"
	ScopePlan         ScopeKind = "plan"
	ScopeSeller       ScopeKind = "seller"
	ScopeComputed     ScopeKind = "computed"
	ScopeUnknown      ScopeKind = ""
)

func parseScopeKind(s string) ScopeKind {
	switch ScopeKind(strings.ToLower(s)) {
	case ScopeSubscription:
		return ScopeSubscription
	case ScopePlan:
		return ScopePlan
	case ScopeSeller:
		return ScopeSeller
	case ScopeComputed:
		return ScopeComputed
	}
	return ScopeUnknown
}

// Computed value keys filled in by the engine
const (
	ComputedChargeTime        = "chargeTime"
	ComputedChargePeriodStart = "chargePeriod.startDate"
	ComputedChargePeriodEnd   = "chargePeriod.endDate"
	ComputedParentPrice       = types.ParentPriceBase
)

// computedAliases lets templates name computed values without a scope, ex
// ${chargetime} or ${chargePeriod.startDate}. Keys are lower case.
var computedAliases = map[string]string{
	"chargetime":             ComputedChargeTime,
	"chargeperiod.startdate": ComputedChargePeriodStart,
	"chargeperiod.enddate":   ComputedChargePeriodEnd,
}

const characteristicFieldPrefix = "characteristic."

type SubscriptionScope struct {
	ID              string
	Name            string
	StartDate       time.Time
	Characteristics map[string]string
}

type PlanScope struct {
	ID          string
	Name        string
	Description string
}

type SellerScope struct {
	ID          string
	TradingName string
}

// Scope carries the values a template can be rendered against. Nil scopes
// leave their tokens unresolved.
type Scope struct {
	Subscription *SubscriptionScope
	Plan         *PlanScope
	Seller       *SellerScope
	Computed     map[string]string
}

// WithComputed returns a copy of the scope with key set to value
func (s Scope) WithComputed(key, value string) Scope {
	computed := make(map[string]string, len(s.Computed)+1)
	for k, v := range s.Computed {
		computed[k] = v
	}
	computed[key] = value
	s.Computed = computed
	return s
}

// Lookup resolves a single token. Field names are case-insensitive except
// for computed keys and subscription characteristics.
func (s Scope) Lookup(tok Token) (string, bool) {
	switch tok.Scope {
	case ScopeSubscription:
		return s.lookupSubscription(tok.Field)
	case ScopePlan:
		if s.Plan == nil {
			return "", false
		}
		switch strings.ToLower(tok.Field) {
		case "id":
			return s.Plan.ID, true
		case "name":
			return s.Plan.Name, true
		case "description":
			return s.Plan.Description, true
		}
	case ScopeSeller:
		if s.Seller == nil {
			return "", false
		}
		switch strings.ToLower(tok.Field) {
		case "id":
			return s.Seller.ID, true
		case "tradingname", "name":
			return s.Seller.TradingName, true
		}
	case ScopeComputed:
		v, ok := s.Computed[tok.Field]
		return v, ok
	}
	return "", false
}

func (s Scope) lookupSubscription(field string) (string, bool) {
	if s.Subscription == nil {
		return "", false
	}
	if name, ok := strings.CutPrefix(field, characteristicFieldPrefix); ok {
		v, found := s.Subscription.Characteristics[name]
		return v, found
	}
	switch strings.ToLower(field) {
	case "id":
		return s.Subscription.ID, true
	case "name":
		return s.Subscription.Name, true
	case "startdate":
		if s.Subscription.StartDate.IsZero() {
			return "", false
		}
		return types.FormatDate(s.Subscription.StartDate), true
	}
	return "", false
}

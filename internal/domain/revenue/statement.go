package revenue

import (
	"fmt"
	"sort"
	"time"

	"github.com/flexprice/revenue/internal/types"
	"github.com/shopspring/decimal"
)

// Statement holds the items computed for one charge period of a subscription
type Statement struct {
	ID             string           `json:"id"`
	Reference      string           `json:"reference"`
	SubscriptionID string           `json:"subscription_id"`
	PlanID         string           `json:"plan_id"`
	Description    string           `json:"description"`
	Period         types.TimePeriod `json:"period"`
	Items          []*Item          `json:"items"`
}

func NewStatement(subscriptionID, planID, planName string, period types.TimePeriod) *Statement {
	return &Statement{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_STATEMENT),
		Reference:      types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_STATEMENT),
		SubscriptionID: subscriptionID,
		PlanID:         planID,
		Description: fmt.Sprintf("Revenue statement for subscription %s, plan %s from %s to %s",
			subscriptionID, planName, types.FormatDate(period.Start), types.FormatDate(period.End)),
		Period: period,
	}
}

// Total is the sum of the overall values of the statement items
func (s *Statement) Total() decimal.Decimal {
	total := decimal.Zero
	for _, i := range s.Items {
		total = total.Add(i.OverallValue())
	}
	return total
}

// ClusterItems splits the items by charge time and orders them
func (s *Statement) ClusterItems() {
	s.Items = ClusterByChargeTime(s.Items)
}

// ClusterByChargeTime splits every tree by charge time and orders the result
// by charge time, keeping the input order for equal times
func ClusterByChargeTime(items []*Item) []*Item {
	var out []*Item
	for _, i := range items {
		out = append(out, i.SplitByChargeTime()...)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return chargeTimeOf(out[a]).Before(chargeTimeOf(out[b]))
	})
	return out
}

func chargeTimeOf(i *Item) time.Time {
	if i.ChargeTime == nil {
		return time.Time{}
	}
	return *i.ChargeTime
}

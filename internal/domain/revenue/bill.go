package revenue

import (
	"fmt"
	"time"

	"github.com/flexprice/revenue/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// BillTimeOffset is how long after the end of its period a bill is issued
const BillTimeOffset = 72 * time.Hour

// Bill groups the revenue items charged within one billing period
type Bill struct {
	ID             string           `json:"id"`
	SubscriptionID string           `json:"subscription_id"`
	PlanID         string           `json:"plan_id"`
	Period         types.TimePeriod `json:"period"`
	Items          []*Item          `json:"items"`
}

// NewBill creates an empty bill. The id is derived from the subscription and
// the period start so that recomputing a bill yields the same id.
func NewBill(subscriptionID, planID string, period types.TimePeriod) *Bill {
	return &Bill{
		ID:             fmt.Sprintf("%s_%s_%s", types.UUID_PREFIX_BILL, subscriptionID, period.Start.Format("20060102")),
		SubscriptionID: subscriptionID,
		PlanID:         planID,
		Period:         period,
		Items:          []*Item{},
	}
}

// Includes reports whether item is charged within the bill period. Postpaid
// items are charged at the end of their charge period, so a bill includes
// them up to and including its end. Other items use the half-open period.
func (b *Bill) Includes(item *Item) bool {
	if item == nil || item.ChargeTime == nil {
		return false
	}
	t := *item.ChargeTime
	if item.Type == types.PriceTypeRecurringPostpaid {
		return t.After(b.Period.Start) && !t.After(b.Period.End)
	}
	return b.Period.Contains(t)
}

// AddItem appends item when the bill includes it
func (b *Bill) AddItem(item *Item) bool {
	if !b.Includes(item) {
		return false
	}
	b.Items = append(b.Items, item)
	return true
}

// Total is the sum of the overall values of the bill items
func (b *Bill) Total() decimal.Decimal {
	return lo.Reduce(b.Items, func(acc decimal.Decimal, i *Item, _ int) decimal.Decimal {
		return acc.Add(i.OverallValue())
	}, decimal.Zero)
}

// Estimated is true when any item of the bill, at any depth, is still an
// estimate
func (b *Bill) Estimated() bool {
	estimated := false
	for _, i := range b.Items {
		i.walk(func(n *Item) { estimated = estimated || n.Estimated })
	}
	return estimated
}

func (b *Bill) BillTime() time.Time {
	return b.Period.End.Add(BillTimeOffset)
}

// GroupIntoBills creates one bill per period, in period order, and assigns
// every item to the bill including it. Trees mixing postpaid and other prices
// are split first so each part is billed by its own rule. Items outside every
// period are dropped.
func GroupIntoBills(subscriptionID, planID string, periods []types.TimePeriod, items []*Item) []*Bill {
	bills := lo.Map(periods, func(p types.TimePeriod, _ int) *Bill {
		return NewBill(subscriptionID, planID, p)
	})
	for _, item := range items {
		for _, part := range splitPostpaid(item) {
			for _, b := range bills {
				if b.AddItem(part) {
					break
				}
			}
		}
	}
	return bills
}

func splitPostpaid(i *Item) []*Item {
	if i == nil {
		return nil
	}
	postpaid := i.filterPostpaid(true, false)
	if postpaid == nil {
		return []*Item{i}
	}
	postpaid.Type = types.PriceTypeRecurringPostpaid
	if other := i.filterPostpaid(false, false); other != nil {
		return []*Item{postpaid, other}
	}
	return []*Item{postpaid}
}

// filterPostpaid keeps the values whose price type, own or inherited from the
// nearest typed ancestor, is postpaid when want is true and anything else
// otherwise
func (i *Item) filterPostpaid(want, inherited bool) *Item {
	effective := inherited
	if i.Type != "" {
		effective = i.Type == types.PriceTypeRecurringPostpaid
	}
	own := effective == want && i.Value != nil

	var kids []*Item
	for _, child := range i.Items {
		if k := child.filterPostpaid(want, effective); k != nil {
			kids = append(kids, k)
		}
	}
	if !own && len(kids) == 0 {
		return nil
	}

	c := *i
	c.Items = kids
	if own {
		c.Value = lo.ToPtr(*i.Value)
	} else {
		c.Value = nil
	}
	if i.ChargeTime != nil {
		c.ChargeTime = lo.ToPtr(*i.ChargeTime)
	}
	return &c
}

package revenue

import (
	"sort"
	"time"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Item is a computed contribution. Its overall value combines its own value
// with the overall values of its children according to BundleOp.
type Item struct {
	Name       string               `json:"name"`
	Value      *decimal.Decimal     `json:"value,omitempty"`
	Currency   string               `json:"currency,omitempty"`
	Items      []*Item              `json:"items,omitempty"`
	BundleOp   types.BundleOperator `json:"bundleOp,omitempty"`
	ChargeTime *time.Time           `json:"chargeTime,omitempty"`
	Type       types.PriceType      `json:"type,omitempty"`
	Estimated  bool                 `json:"estimated"`
}

func NewItem(name, currency string) *Item {
	return &Item{
		Name:     name,
		Currency: currency,
		BundleOp: types.BundleOperatorCumulative,
	}
}

// NewValueItem creates a leaf holding value
func NewValueItem(name string, value decimal.Decimal, currency string) *Item {
	item := NewItem(name, currency)
	item.Value = &value
	return item
}

// OwnValue is the value of the item itself, zero when unset
func (i *Item) OwnValue() decimal.Decimal {
	if i.Value == nil {
		return decimal.Zero
	}
	return *i.Value
}

// OverallValue is the own value plus the sum of the children for CUMULATIVE
// and FOREACH items, or plus the child picked by PickAlternative for the
// ALTERNATIVE operators.
func (i *Item) OverallValue() decimal.Decimal {
	total := i.OwnValue()
	if len(i.Items) == 0 {
		return total
	}

	values := lo.Map(i.Items, func(c *Item, _ int) decimal.Decimal { return c.OverallValue() })
	if i.BundleOp.IsAlternative() {
		return total.Add(values[PickAlternative(i.BundleOp, values)])
	}
	return total.Add(decimal.Sum(decimal.Zero, values...))
}

// PickAlternative returns the index of the candidate an ALTERNATIVE bundle
// keeps. HIGHER keeps the greatest magnitude and LOWER the smallest, so
// that for discounts, whose values are negative, HIGHER keeps the largest
// discount. Ties keep the first candidate. It returns -1 for no candidates.
func PickAlternative(op types.BundleOperator, candidates []decimal.Decimal) int {
	if len(candidates) == 0 {
		return -1
	}
	best := 0
	for idx := 1; idx < len(candidates); idx++ {
		c, b := candidates[idx].Abs(), candidates[best].Abs()
		switch op {
		case types.BundleOperatorAlternativeLower:
			if c.LessThan(b) {
				best = idx
			}
		default:
			if c.GreaterThan(b) {
				best = idx
			}
		}
	}
	return best
}

// AddItem appends child. Children must share the currency of the item, an
// item without currency takes the one of its first child.
func (i *Item) AddItem(child *Item) error {
	if child == nil {
		return nil
	}
	if child.Currency != "" && i.Currency != "" && child.Currency != i.Currency {
		return ierr.NewErrorf("cannot add %q in %s to %q in %s", child.Name, child.Currency, i.Name, i.Currency).
			WithHint("Items of a plan must share the same currency, no conversion is applied").
			WithReportableDetails(map[string]any{
				"item":           i.Name,
				"currency":       i.Currency,
				"child":          child.Name,
				"child_currency": child.Currency,
			}).
			Mark(ierr.ErrCurrencyMismatch)
	}
	if i.Currency == "" {
		i.Currency = child.Currency
	}
	i.Items = append(i.Items, child)
	return nil
}

// IsEmpty reports whether the item carries neither a value nor children
func (i *Item) IsEmpty() bool {
	return i.Value == nil && len(i.Items) == 0
}

// ZeroAmounts sets every value in the tree to zero, keeping its shape
func (i *Item) ZeroAmounts() {
	if i.Value != nil {
		i.Value = lo.ToPtr(decimal.Zero)
	}
	for _, c := range i.Items {
		c.ZeroAmounts()
	}
}

// SetChargeTime sets the charge time of the item
func (i *Item) SetChargeTime(t *time.Time) {
	if t == nil {
		i.ChargeTime = nil
		return
	}
	i.ChargeTime = lo.ToPtr(*t)
}

// Collapse replaces the children with their contribution
func (i *Item) Collapse() {
	v := i.OverallValue()
	i.Value = &v
	i.Items = nil
}

// ChargeTimes lists the distinct charge times found in the tree, in order
func (i *Item) ChargeTimes() []time.Time {
	seen := map[int64]time.Time{}
	i.walk(func(it *Item) {
		if it.ChargeTime != nil {
			seen[it.ChargeTime.UnixNano()] = *it.ChargeTime
		}
	})
	out := lo.Values(seen)
	sort.Slice(out, func(a, b int) bool { return out[a].Before(out[b]) })
	return out
}

// Clone returns a deep copy of the tree
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.Value != nil {
		c.Value = lo.ToPtr(*i.Value)
	}
	if i.ChargeTime != nil {
		c.ChargeTime = lo.ToPtr(*i.ChargeTime)
	}
	if i.Items != nil {
		c.Items = make([]*Item, len(i.Items))
		for idx, child := range i.Items {
			c.Items[idx] = child.Clone()
		}
	}
	return &c
}

// SplitByChargeTime returns one tree per charge time, each holding the
// values charged at that time. Items without a charge time take the one of
// their nearest ancestor, or the earliest charge time of the tree.
func (i *Item) SplitByChargeTime() []*Item {
	times := i.ChargeTimes()
	if len(times) <= 1 {
		return []*Item{i}
	}

	out := make([]*Item, 0, len(times))
	for _, t := range times {
		if c := i.filterChargeTime(t, times[0]); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (i *Item) filterChargeTime(t, inherited time.Time) *Item {
	effective := inherited
	if i.ChargeTime != nil {
		effective = *i.ChargeTime
	}
	own := effective.Equal(t)

	var kids []*Item
	for _, child := range i.Items {
		if k := child.filterChargeTime(t, effective); k != nil {
			kids = append(kids, k)
		}
	}
	if !own && len(kids) == 0 {
		return nil
	}

	c := *i
	c.Items = kids
	c.ChargeTime = lo.ToPtr(t)
	if own && i.Value != nil {
		c.Value = lo.ToPtr(*i.Value)
	} else {
		c.Value = nil
	}
	return &c
}

func (i *Item) walk(fn func(*Item)) {
	fn(i)
	for _, c := range i.Items {
		c.walk(fn)
	}
}

package plan

import (
	"time"

	"github.com/flexprice/revenue/internal/tokens"
	"github.com/flexprice/revenue/internal/types"
	"github.com/shopspring/decimal"
)

// NoNode marks an absent node reference in the arena
const NoNode = -1

// Node is a plan item with every inherited attribute materialized. Nodes
// are immutable once the plan is resolved and reference each other by
// their index in ResolvedPlan.Nodes.
type Node struct {
	Index  int
	Parent int
	// Path is the chain of names from the root, used in logs and errors
	Path string

	Name     *tokens.Template
	Kind     types.PlanItemKind
	IsBundle bool
	BundleOp types.BundleOperator

	Amount     *decimal.Decimal
	Percent    *decimal.Decimal
	UnitAmount *decimal.Decimal
	Currency   string

	// PriceType and Recurrence come from the reference price
	PriceType  types.PriceType
	Recurrence *types.Recurrence

	ApplicableBase                 string
	ApplicableBaseRange            *types.Range
	ApplicableBaseReferencePeriod  *types.ReferencePeriod
	ComputationBase                string
	ComputationBaseReferencePeriod *types.ReferencePeriod

	ApplicableFrom *time.Time
	IgnorePeriod   *types.ReferencePeriod
	ValidPeriod    *types.ReferencePeriod
	Ignore         *tokens.Template

	ForEachMetric string

	ResultingAmountRange *types.Range
	SkipIfZero           bool
	Collapse             bool

	// Children are the bundle items in definition order
	Children []int
	// Discount is the nested discount of a price, NoNode if none
	Discount int
	// ReferencePrice is the nearest price at or above this node
	ReferencePrice int

	// Variable is set when the value of this node or any node below it
	// depends on metrics
	Variable bool
}

func (n *Node) IsPrice() bool {
	return n.Kind == types.PlanItemKindPrice
}

func (n *Node) IsDiscount() bool {
	return n.Kind == types.PlanItemKindDiscount
}

// UsesParentPrice reports whether the node computes against the enclosing price
func (n *Node) UsesParentPrice() bool {
	return n.ComputationBase == types.ParentPriceBase
}

func (n *Node) HasDiscount() bool {
	return n.Discount != NoNode
}

// RawName is the name as written in the plan
func (n *Node) RawName() string {
	return n.Name.Source()
}

// ResolvedPlan is the immutable, evaluation ready form of a plan. It is safe
// to share between goroutines.
type ResolvedPlan struct {
	ID                   string
	Name                 string
	Description          string
	SubscriptionDuration types.Recurrence
	BillCycle            *BillCycleSpecification

	Nodes []Node
	Root  int
}

// Node returns the node at index i
func (p *ResolvedPlan) Node(i int) *Node {
	return &p.Nodes[i]
}

func (p *ResolvedPlan) RootNode() *Node {
	return &p.Nodes[p.Root]
}

// AtomicPrices lists the non bundle prices in depth-first order
func (p *ResolvedPlan) AtomicPrices() []*Node {
	var out []*Node
	var walk func(i int)
	walk = func(i int) {
		n := p.Node(i)
		if !n.IsPrice() {
			return
		}
		if !n.IsBundle {
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(p.Root)
	return out
}

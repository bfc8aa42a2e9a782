package calculator

import (
	"github.com/shopspring/decimal"
)

// Context carries what a node receives from the node that evaluates it.
// It is passed by value and never modified in place.
type Context struct {
	// ParentPrice is the value a nested discount computes against
	ParentPrice *decimal.Decimal
	// SellerID overrides the subscriber as the entity metrics are read for
	SellerID string
}

// WithParentPrice returns a copy of the context with the parent price set
func (c Context) WithParentPrice(v decimal.Decimal) Context {
	c.ParentPrice = &v
	return c
}

// WithSeller returns a copy of the context evaluating on behalf of sellerID
func (c Context) WithSeller(sellerID string) Context {
	c.SellerID = sellerID
	return c
}

package domain

import "time"

// CartLine is one immutable input row of a calculation. The engine never
// mutates lines; all per-line bookkeeping happens on copies.
type CartLine struct {
	VariantID     string
	ProductID     string
	UnitPrice     int64
	Quantity      int
	ProductTags   []string
	CollectionIDs []string
}

// LineTotal is the undiscounted extended price of the line.
func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// HasTag reports membership in the line's product tag set.
func (l CartLine) HasTag(tag string) bool {
	for _, t := range l.ProductTags {
		if t == tag {
			return true
		}
	}
	return false
}

// InCollection reports membership in the line's collection set.
func (l CartLine) InCollection(collectionID string) bool {
	for _, id := range l.CollectionIDs {
		if id == collectionID {
			return true
		}
	}
	return false
}

// ShippingCandidate is the shipping rate selected for the calculation.
type ShippingCandidate struct {
	RateID string
	Price  int64
}

// CustomerContext feeds eligibility checks only; it never participates in
// discount arithmetic.
type CustomerContext struct {
	CustomerID          string
	Segment             CustomerSegment
	LifetimeOrdersCount int
	LifetimeValue       int64
}

// DiscountEffect is one applied discount in a calculation result.
// AmountOff never exceeds the portion of the cart the discount matched.
type DiscountEffect struct {
	DiscountID   string
	Source       DiscountSource
	Kind         DiscountKind
	Description  string
	AmountOff    int64
	FreeShipping bool
}

// CalculationResult is a pure projection recomputed on every call; it is
// never persisted.
type CalculationResult struct {
	Subtotal               int64
	ItemsDiscount          int64
	ShippingBeforeDiscount int64
	ShippingAfterDiscount  int64
	Total                  int64
	Discounts              []DiscountEffect
	IsValid                bool
	Errors                 []string
	Warnings               []string
}

// SessionCart is the session-persisted cart snapshot read from storage,
// including a previously entered discount code when the shopper saved one.
type SessionCart struct {
	ID          string
	StoreID     string
	Lines       []CartLine
	EnteredCode string
	UpdatedAt   time.Time
}

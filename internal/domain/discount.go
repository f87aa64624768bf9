package domain

import (
	"time"
)

// DiscountKind enumerates the supported discount mechanics.
type DiscountKind string

const (
	// DiscountKindPercentage removes a percentage of the matching lines total.
	DiscountKindPercentage DiscountKind = "percentage"
	// DiscountKindFixedAmount removes a fixed amount, clamped to the matching total.
	DiscountKindFixedAmount DiscountKind = "fixed_amount"
	// DiscountKindFreeShipping zeroes the shipping line.
	DiscountKindFreeShipping DiscountKind = "free_shipping"
	// DiscountKindBOGO discounts the cheapest units of complete buy+get groups.
	DiscountKindBOGO DiscountKind = "bogo"
	// DiscountKindBundle discounts the whole matching total once a product-count threshold is met.
	DiscountKindBundle DiscountKind = "bundle"
	// DiscountKindVolume applies the highest quantity tier reached.
	DiscountKindVolume DiscountKind = "volume"
	// DiscountKindFixedPrice reprices a fixed number of units to a set total.
	DiscountKindFixedPrice DiscountKind = "fixed_price"
	// DiscountKindSpendXPayY reprices the matching total to a set amount above a spend threshold.
	DiscountKindSpendXPayY DiscountKind = "spend_x_pay_y"
)

// DiscountSource distinguishes store-wide automatic discounts from
// customer-entered code discounts.
type DiscountSource string

const (
	// SourceAutomatic marks discounts applied without a code.
	SourceAutomatic DiscountSource = "automatic"
	// SourceCode marks discounts requiring an entered code string.
	SourceCode DiscountSource = "code"
)

// CustomerSegment buckets customers for eligibility checks.
type CustomerSegment string

const (
	// SegmentVIP marks manually flagged high-value customers.
	SegmentVIP CustomerSegment = "vip"
	// SegmentNewCustomer marks customers with no prior orders.
	SegmentNewCustomer CustomerSegment = "new_customer"
	// SegmentReturningCustomer marks customers with at least one prior order.
	SegmentReturningCustomer CustomerSegment = "returning_customer"
	// SegmentNone is the default bucket.
	SegmentNone CustomerSegment = "none"
)

// ValueType selects between percentage and fixed-amount arithmetic for
// payloads that support both.
type ValueType string

const (
	// ValuePercentage interprets the payload value as basis points.
	ValuePercentage ValueType = "percentage"
	// ValueFixedAmount interprets the payload value as minor units.
	ValueFixedAmount ValueType = "fixed_amount"
)

// BOGORewardType selects the treatment applied to the "get" units of a
// buy-X-get-Y group.
type BOGORewardType string

const (
	// BOGORewardFree makes the get units free.
	BOGORewardFree BOGORewardType = "free"
	// BOGORewardPercentage discounts the get units by a percentage.
	BOGORewardPercentage BOGORewardType = "percentage"
	// BOGORewardFixedAmount discounts each get unit by a fixed amount.
	BOGORewardFixedAmount BOGORewardType = "fixed_amount"
)

// PercentagePayload discounts the matching total by Value basis points.
type PercentagePayload struct {
	BasisPoints int64
}

// FixedAmountPayload removes Value minor units from the matching total.
type FixedAmountPayload struct {
	Value int64
}

// BOGOPayload describes a buy-X-get-Y rule.
type BOGOPayload struct {
	BuyQuantity int
	GetQuantity int
	RewardType  BOGORewardType
	// RewardValue holds basis points for percentage rewards and minor
	// units per unit for fixed-amount rewards. Unused for free rewards.
	RewardValue int64
}

// BundlePayload discounts the whole matching total once MinProducts
// matching units are in the cart.
type BundlePayload struct {
	MinProducts  int
	DiscountType ValueType
	Value        int64
}

// VolumeTier is one step of a quantity ladder. Tiers are stored sorted by
// ascending MinQuantity with strictly increasing thresholds.
type VolumeTier struct {
	MinQuantity  int
	DiscountType ValueType
	Value        int64
}

// VolumePayload applies the highest tier whose MinQuantity is reached.
type VolumePayload struct {
	Tiers []VolumeTier
}

// FixedPricePayload reprices exactly Quantity units (the most expensive
// ones) to TotalPrice.
type FixedPricePayload struct {
	Quantity   int
	TotalPrice int64
}

// SpendXPayYPayload reprices the matching total to PayAmount once it
// reaches SpendAmount.
type SpendXPayYPayload struct {
	SpendAmount int64
	PayAmount   int64
}

// DiscountDefinition is the engine's read-only snapshot of a discount
// row. Kind tags which payload pointer is populated; exactly one payload
// is set except for free_shipping, which carries none.
type DiscountDefinition struct {
	ID          string
	StoreID     string
	Kind        DiscountKind
	Source      DiscountSource
	Name        string
	Description string

	IsActive bool
	// Priority orders resolution; lower runs first, ties break by ID.
	Priority int

	StartsAt *time.Time
	EndsAt   *time.Time
	// DaysOfWeek restricts eligibility to these weekdays in the store's
	// time zone. Empty means every day.
	DaysOfWeek []time.Weekday
	HourStart  *int
	HourEnd    *int

	MinQuantity *int
	MaxQuantity *int

	CustomerSegment  *CustomerSegment
	MinOrdersCount   *int
	MinLifetimeValue *int64

	// Scope sets; all empty means store-wide.
	ScopedProductIDs    []string
	ScopedCollectionIDs []string
	ScopedTags          []string

	// Code-source fields; zero-valued for automatic discounts.
	CodeString               string
	UsageLimit               *int
	UsageCount               int
	CanCombineWithAutomatic  bool
	CanCombineWithOtherCodes bool
	MaxCombinedDiscounts     *int

	Percentage  *PercentagePayload
	FixedAmount *FixedAmountPayload
	BOGO        *BOGOPayload
	Bundle      *BundlePayload
	Volume      *VolumePayload
	FixedPrice  *FixedPricePayload
	SpendXPayY  *SpendXPayYPayload
}

// IsScoped reports whether the discount restricts the cart lines it may
// affect.
func (d DiscountDefinition) IsScoped() bool {
	return len(d.ScopedProductIDs) > 0 || len(d.ScopedCollectionIDs) > 0 || len(d.ScopedTags) > 0
}

// DisplayName returns the customer-facing label for effect descriptions.
func (d DiscountDefinition) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Source == SourceCode && d.CodeString != "" {
		return d.CodeString
	}
	return string(d.Kind)
}

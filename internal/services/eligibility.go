package services

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
)

// matchingLineIndexes returns the cart line indexes the discount is
// allowed to affect. Store-wide discounts match every line; scoped
// discounts match by product id, collection membership, or tag.
func matchingLineIndexes(d domain.DiscountDefinition, lines []domain.CartLine) []int {
	matched := make([]int, 0, len(lines))
	if !d.IsScoped() {
		for i := range lines {
			matched = append(matched, i)
		}
		return matched
	}
	for i, line := range lines {
		if lineInScope(d, line) {
			matched = append(matched, i)
		}
	}
	return matched
}

func lineInScope(d domain.DiscountDefinition, line domain.CartLine) bool {
	for _, id := range d.ScopedProductIDs {
		if id == line.ProductID {
			return true
		}
	}
	for _, id := range d.ScopedCollectionIDs {
		if line.InCollection(id) {
			return true
		}
	}
	for _, tag := range d.ScopedTags {
		if line.HasTag(tag) {
			return true
		}
	}
	return false
}

// isEligible decides whether a discount definition applies to the input
// at the given instant. Checks run in a fixed order and short-circuit on
// the first failure so the returned reason is stable for identical
// inputs. The predicate is pure: usage counters are read, never written.
func isEligible(d domain.DiscountDefinition, input CalculationInput, nowUTC time.Time, loc *time.Location) (bool, string) {
	if !d.IsActive {
		return false, "discount is not active"
	}
	if d.StartsAt != nil && nowUTC.Before(*d.StartsAt) {
		return false, "discount has not started yet"
	}
	if d.EndsAt != nil && nowUTC.After(*d.EndsAt) {
		return false, "discount has expired"
	}

	if loc == nil {
		loc = time.UTC
	}
	local := nowUTC.In(loc)
	if len(d.DaysOfWeek) > 0 && !weekdayAllowed(d.DaysOfWeek, local.Weekday()) {
		return false, "discount is not available today"
	}
	if d.HourStart != nil && d.HourEnd != nil {
		// Overnight windows are not supported; an inverted range never
		// matches and is reported upstream as a data warning.
		if *d.HourStart > *d.HourEnd {
			return false, "discount hour window is inverted"
		}
		hour := local.Hour()
		if hour < *d.HourStart || hour > *d.HourEnd {
			return false, "discount is not available at this hour"
		}
	}

	matched := matchingLineIndexes(d, input.Lines)
	if d.IsScoped() && len(matched) == 0 {
		return false, "no cart items match the discount scope"
	}

	quantity := 0
	if d.IsScoped() {
		for _, idx := range matched {
			quantity += input.Lines[idx].Quantity
		}
	} else {
		for _, line := range input.Lines {
			quantity += line.Quantity
		}
	}
	if d.MinQuantity != nil && quantity < *d.MinQuantity {
		return false, fmt.Sprintf("requires at least %d items", *d.MinQuantity)
	}
	if d.MaxQuantity != nil && quantity > *d.MaxQuantity {
		return false, fmt.Sprintf("limited to at most %d items", *d.MaxQuantity)
	}

	if d.CustomerSegment != nil && *d.CustomerSegment != input.Customer.Segment {
		return false, "customer is not in the eligible segment"
	}
	if d.MinOrdersCount != nil && input.Customer.LifetimeOrdersCount < *d.MinOrdersCount {
		return false, fmt.Sprintf("requires at least %d previous orders", *d.MinOrdersCount)
	}
	if d.MinLifetimeValue != nil && input.Customer.LifetimeValue < *d.MinLifetimeValue {
		return false, "customer lifetime value is below the minimum"
	}

	if d.Source == domain.SourceCode {
		if !strings.EqualFold(strings.TrimSpace(d.CodeString), strings.TrimSpace(input.EnteredCode)) {
			return false, "code does not match"
		}
		if d.UsageLimit != nil && d.UsageCount >= *d.UsageLimit {
			return false, "code usage limit reached"
		}
	}

	return true, ""
}

func weekdayAllowed(days []time.Weekday, day time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// hasInvertedHourWindow flags the data error surfaced as a calculation
// warning rather than an eligibility reason.
func hasInvertedHourWindow(d domain.DiscountDefinition) bool {
	return d.HourStart != nil && d.HourEnd != nil && *d.HourStart > *d.HourEnd
}

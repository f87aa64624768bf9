package services

import (
	"fmt"
	"sort"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
)

// lineState tracks the still-discountable value of each cart line while
// discounts stack. Every applied discount is computed against the
// post-previous-discounts total of its matching lines and then consumes
// that value, so a 10%-then-10% stack yields 19%, not 20%.
type lineState struct {
	lines     []domain.CartLine
	remaining []int64
}

func newLineState(lines []domain.CartLine) *lineState {
	remaining := make([]int64, len(lines))
	for i, line := range lines {
		total := line.LineTotal()
		if total < 0 {
			total = 0
		}
		remaining[i] = total
	}
	return &lineState{lines: lines, remaining: remaining}
}

// matchingRemaining sums the discountable value of the given line indexes.
func (s *lineState) matchingRemaining(matched []int) int64 {
	var total int64
	for _, idx := range matched {
		total += s.remaining[idx]
	}
	return total
}

// consume reduces the matched lines' discountable value by amount,
// spread proportionally so later scoped discounts see a consistent view.
func (s *lineState) consume(matched []int, amount int64) {
	if amount <= 0 || len(matched) == 0 {
		return
	}
	weights := make([]int64, len(matched))
	for i, idx := range matched {
		weights[i] = s.remaining[idx]
	}
	alloc := allocateByWeight(amount, weights)
	for i, idx := range matched {
		s.remaining[idx] -= alloc[i]
		if s.remaining[idx] < 0 {
			s.remaining[idx] = 0
		}
	}
}

// computeEffect runs the calculator for the discount's kind against the
// matched lines and returns the item amount off and whether shipping
// becomes free. Malformed definitions return an error and never panic the
// whole calculation.
func computeEffect(d domain.DiscountDefinition, state *lineState, matched []int) (int64, bool, error) {
	available := state.matchingRemaining(matched)

	switch d.Kind {
	case domain.DiscountKindPercentage:
		if d.Percentage == nil {
			return 0, false, fmt.Errorf("discount %s: missing percentage payload", d.ID)
		}
		return domain.PercentAmount(available, d.Percentage.BasisPoints), false, nil

	case domain.DiscountKindFixedAmount:
		if d.FixedAmount == nil {
			return 0, false, fmt.Errorf("discount %s: missing fixed amount payload", d.ID)
		}
		return clampAmount(d.FixedAmount.Value, available), false, nil

	case domain.DiscountKindFreeShipping:
		return 0, true, nil

	case domain.DiscountKindBOGO:
		return computeBOGO(d, state, matched, available)

	case domain.DiscountKindBundle:
		return computeBundle(d, state, matched, available)

	case domain.DiscountKindVolume:
		return computeVolume(d, state, matched, available)

	case domain.DiscountKindFixedPrice:
		return computeFixedPrice(d, state, matched, available)

	case domain.DiscountKindSpendXPayY:
		if d.SpendXPayY == nil {
			return 0, false, fmt.Errorf("discount %s: missing spend payload", d.ID)
		}
		if d.SpendXPayY.SpendAmount <= 0 {
			return 0, false, fmt.Errorf("discount %s: spend threshold must be positive", d.ID)
		}
		if available < d.SpendXPayY.SpendAmount {
			return 0, false, nil
		}
		amount := available - d.SpendXPayY.PayAmount
		if amount < 0 {
			amount = 0
		}
		return amount, false, nil
	}

	return 0, false, fmt.Errorf("discount %s: unknown kind %q", d.ID, d.Kind)
}

func computeBOGO(d domain.DiscountDefinition, state *lineState, matched []int, available int64) (int64, bool, error) {
	payload := d.BOGO
	if payload == nil {
		return 0, false, fmt.Errorf("discount %s: missing bogo payload", d.ID)
	}
	if payload.BuyQuantity <= 0 || payload.GetQuantity <= 0 {
		return 0, false, fmt.Errorf("discount %s: bogo quantities must be positive", d.ID)
	}

	groupSize := payload.BuyQuantity + payload.GetQuantity
	totalQty := 0
	for _, idx := range matched {
		totalQty += state.lines[idx].Quantity
	}
	groups := totalQty / groupSize
	if groups == 0 {
		return 0, false, nil
	}
	rewarded := groups * payload.GetQuantity

	// The cheapest units receive the reward.
	units := expandUnitPrices(state, matched)
	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })
	if rewarded > len(units) {
		rewarded = len(units)
	}

	var amount int64
	for _, price := range units[:rewarded] {
		switch payload.RewardType {
		case domain.BOGORewardFree:
			amount += price
		case domain.BOGORewardPercentage:
			amount += domain.PercentAmount(price, payload.RewardValue)
		case domain.BOGORewardFixedAmount:
			amount += clampAmount(payload.RewardValue, price)
		default:
			return 0, false, fmt.Errorf("discount %s: unknown bogo reward %q", d.ID, payload.RewardType)
		}
	}
	return clampAmount(amount, available), false, nil
}

func computeBundle(d domain.DiscountDefinition, state *lineState, matched []int, available int64) (int64, bool, error) {
	payload := d.Bundle
	if payload == nil {
		return 0, false, fmt.Errorf("discount %s: missing bundle payload", d.ID)
	}
	if payload.MinProducts <= 0 {
		return 0, false, fmt.Errorf("discount %s: bundle size must be positive", d.ID)
	}
	totalQty := 0
	for _, idx := range matched {
		totalQty += state.lines[idx].Quantity
	}
	if totalQty < payload.MinProducts {
		return 0, false, nil
	}
	return applyValue(payload.DiscountType, payload.Value, available, d.ID)
}

func computeVolume(d domain.DiscountDefinition, state *lineState, matched []int, available int64) (int64, bool, error) {
	payload := d.Volume
	if payload == nil || len(payload.Tiers) == 0 {
		return 0, false, fmt.Errorf("discount %s: missing volume tiers", d.ID)
	}
	for i, tier := range payload.Tiers {
		if tier.MinQuantity <= 0 {
			return 0, false, fmt.Errorf("discount %s: tier %d threshold must be positive", d.ID, i)
		}
		if i > 0 && tier.MinQuantity <= payload.Tiers[i-1].MinQuantity {
			return 0, false, fmt.Errorf("discount %s: tiers must strictly increase", d.ID)
		}
	}

	totalQty := 0
	for _, idx := range matched {
		totalQty += state.lines[idx].Quantity
	}

	selected := -1
	for i, tier := range payload.Tiers {
		if totalQty >= tier.MinQuantity {
			selected = i
		}
	}
	if selected < 0 {
		return 0, false, nil
	}
	tier := payload.Tiers[selected]
	return applyValue(tier.DiscountType, tier.Value, available, d.ID)
}

func computeFixedPrice(d domain.DiscountDefinition, state *lineState, matched []int, available int64) (int64, bool, error) {
	payload := d.FixedPrice
	if payload == nil {
		return 0, false, fmt.Errorf("discount %s: missing fixed price payload", d.ID)
	}
	if payload.Quantity <= 0 {
		return 0, false, fmt.Errorf("discount %s: fixed price quantity must be positive", d.ID)
	}

	totalQty := 0
	for _, idx := range matched {
		totalQty += state.lines[idx].Quantity
	}
	if totalQty < payload.Quantity {
		return 0, false, nil
	}

	// The most expensive units are repriced, favouring the customer.
	units := expandUnitPrices(state, matched)
	sort.Slice(units, func(i, j int) bool { return units[i] > units[j] })
	var original int64
	for _, price := range units[:payload.Quantity] {
		original += price
	}
	amount := original - payload.TotalPrice
	if amount < 0 {
		amount = 0
	}
	return clampAmount(amount, available), false, nil
}

func applyValue(valueType domain.ValueType, value, available int64, discountID string) (int64, bool, error) {
	switch valueType {
	case domain.ValuePercentage:
		return domain.PercentAmount(available, value), false, nil
	case domain.ValueFixedAmount:
		return clampAmount(value, available), false, nil
	}
	return 0, false, fmt.Errorf("discount %s: unknown value type %q", discountID, valueType)
}

func expandUnitPrices(state *lineState, matched []int) []int64 {
	var units []int64
	for _, idx := range matched {
		line := state.lines[idx]
		for q := 0; q < line.Quantity; q++ {
			units = append(units, line.UnitPrice)
		}
	}
	return units
}

func clampAmount(amount, limit int64) int64 {
	if amount < 0 {
		return 0
	}
	if amount > limit {
		return limit
	}
	return amount
}

// allocateByWeight splits amount across weights using largest-remainder
// rounding with index tie-breaks, so the split is deterministic for any
// iteration order upstream.
func allocateByWeight(amount int64, weights []int64) []int64 {
	if len(weights) == 0 {
		return nil
	}
	allocations := make([]int64, len(weights))
	if amount == 0 {
		return allocations
	}
	totalWeight := int64(0)
	for _, w := range weights {
		if w > 0 {
			totalWeight += w
		}
	}
	if totalWeight == 0 {
		base := amount / int64(len(weights))
		remainder := amount % int64(len(weights))
		for i := range weights {
			allocations[i] = base
			if remainder > 0 {
				allocations[i]++
				remainder--
			}
		}
		return allocations
	}

	remainderPairs := make([]struct {
		idx       int
		remainder int64
	}, len(weights))

	distributed := int64(0)
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		share := (amount * w) / totalWeight
		allocations[i] = share
		distributed += share
		remainderPairs[i] = struct {
			idx       int
			remainder int64
		}{idx: i, remainder: (amount * w) % totalWeight}
	}

	remainder := amount - distributed
	if remainder <= 0 {
		return allocations
	}

	sort.SliceStable(remainderPairs, func(i, j int) bool {
		if remainderPairs[i].remainder == remainderPairs[j].remainder {
			return remainderPairs[i].idx < remainderPairs[j].idx
		}
		return remainderPairs[i].remainder > remainderPairs[j].remainder
	})

	for _, entry := range remainderPairs {
		if remainder == 0 {
			break
		}
		allocations[entry.idx]++
		remainder--
	}

	return allocations
}

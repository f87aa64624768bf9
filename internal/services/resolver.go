package services

import (
	"fmt"
	"sort"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
)

// codeConflictWarning is surfaced when an entered code cannot join the
// automatic discounts already applied to the cart.
const codeConflictWarning = "discount code cannot be combined with active automatic discounts"

// resolution is the resolver's contribution to a calculation result.
type resolution struct {
	Effects       []domain.DiscountEffect
	ItemsDiscount int64
	FreeShipping  bool
	Warnings      []string
}

// sortByPriority orders candidates by ascending priority with ties broken
// by id. The sort is load-bearing: sequential stacking makes later
// discounts see smaller matching totals, so order changes amounts.
func sortByPriority(defs []domain.DiscountDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Priority == defs[j].Priority {
			return defs[i].ID < defs[j].ID
		}
		return defs[i].Priority < defs[j].Priority
	})
}

// resolveCombinations picks the applying subset of the eligible discounts
// and computes their cumulative effects. automatics and codeEntry are
// already eligibility-filtered; codeEntry holds every definition sharing
// the single entered code string (one logical code entry).
func resolveCombinations(automatics, codeEntry []domain.DiscountDefinition, lines []domain.CartLine) resolution {
	var res resolution
	state := newLineState(lines)

	sortByPriority(automatics)
	sortByPriority(codeEntry)

	appliedAutomatic := 0
	combinedCap := -1 // -1 means no applied discount declared a cap

	for _, candidate := range automatics {
		if combinedCap >= 0 && appliedAutomatic >= combinedCap {
			break
		}
		// Mutual exclusion is one-directional: a non-combinable candidate
		// cannot join once something applied, but it never evicts an
		// earlier discount.
		if !candidate.CanCombineWithAutomatic && appliedAutomatic > 0 {
			continue
		}

		effect, ok := applyCandidate(candidate, state, &res)
		if !ok {
			continue
		}

		res.Effects = append(res.Effects, effect)
		res.ItemsDiscount += effect.AmountOff
		if effect.FreeShipping {
			res.FreeShipping = true
		}
		appliedAutomatic++
		if candidate.MaxCombinedDiscounts != nil {
			cap := *candidate.MaxCombinedDiscounts
			if combinedCap < 0 || cap < combinedCap {
				combinedCap = cap
			}
		}
	}

	if len(codeEntry) == 0 {
		return res
	}

	// Only one code per cart is supported, so CanCombineWithOtherCodes
	// never blocks; the automatic-combination flag decides. A multi-row
	// code entry combines only when every row allows it.
	combinable := true
	for _, def := range codeEntry {
		if !def.CanCombineWithAutomatic {
			combinable = false
			break
		}
	}
	if !combinable && appliedAutomatic > 0 {
		res.Warnings = append(res.Warnings, codeConflictWarning)
		return res
	}

	for _, candidate := range codeEntry {
		effect, ok := applyCandidate(candidate, state, &res)
		if !ok {
			continue
		}
		res.Effects = append(res.Effects, effect)
		res.ItemsDiscount += effect.AmountOff
		if effect.FreeShipping {
			res.FreeShipping = true
		}
	}

	return res
}

// applyCandidate computes and consumes a single discount's effect. Zero
// item amounts are dropped from the output unless the discount grants
// free shipping; dropped discounts do not block later ones.
func applyCandidate(candidate domain.DiscountDefinition, state *lineState, res *resolution) (domain.DiscountEffect, bool) {
	matched := matchingLineIndexes(candidate, state.lines)
	amount, freeShipping, err := safeComputeEffect(candidate, state, matched)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("discount %s skipped: %v", candidate.ID, err))
		return domain.DiscountEffect{}, false
	}
	if amount == 0 && !freeShipping {
		return domain.DiscountEffect{}, false
	}

	state.consume(matched, amount)
	return domain.DiscountEffect{
		DiscountID:   candidate.ID,
		Source:       candidate.Source,
		Kind:         candidate.Kind,
		Description:  candidate.DisplayName(),
		AmountOff:    amount,
		FreeShipping: freeShipping,
	}, true
}

// safeComputeEffect shields the calculation from a panic in a single
// calculator; one malformed definition must never fail the whole cart.
func safeComputeEffect(d domain.DiscountDefinition, state *lineState, matched []int) (amount int64, freeShipping bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			amount = 0
			freeShipping = false
			err = fmt.Errorf("calculator panic: %v", rec)
		}
	}()
	return computeEffect(d, state, matched)
}

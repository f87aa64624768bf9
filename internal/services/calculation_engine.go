package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
	"github.com/itadmit/quickshop3-sub007/internal/repositories"
)

// CalculationEngine is the public entry point for cart pricing. Each call
// operates on its own input snapshot; the engine holds no mutable state
// and is safe for concurrent use.
type CalculationEngine struct {
	discounts repositories.DiscountRepository
	carts     repositories.CartRepository
	location  *time.Location
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// CalculationEngineDeps bundles the engine's collaborators.
type CalculationEngineDeps struct {
	Discounts repositories.DiscountRepository
	// Carts is optional; without it session code fallback is disabled.
	Carts repositories.CartRepository
	// Location is the store time zone used for weekday/hour eligibility.
	Location *time.Location
	Now      func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

// NewCalculationEngine validates dependencies and constructs the engine.
func NewCalculationEngine(deps CalculationEngineDeps) (*CalculationEngine, error) {
	if deps.Discounts == nil {
		return nil, ErrDiscountRepositoryMissing
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &CalculationEngine{
		discounts: deps.Discounts,
		carts:     deps.Carts,
		location:  location,
		now:       func() time.Time { return now().UTC() },
		logger:    logger,
	}, nil
}

// Calculate prices the cart. Input errors mark the result invalid but
// still produce displayable best-effort totals with no discounts;
// catalog or definition problems degrade to warnings, never to a failed
// calculation.
func (e *CalculationEngine) Calculate(ctx context.Context, input CalculationInput) (domain.CalculationResult, error) {
	result := domain.CalculationResult{IsValid: true}
	nowUTC := e.now()

	subtotal := int64(0)
	for i, line := range input.Lines {
		if line.Quantity <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: quantity must be positive", i))
			continue
		}
		if line.UnitPrice < 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: unit price cannot be negative", i))
			continue
		}
		subtotal += line.LineTotal()
	}
	if len(input.Lines) == 0 {
		result.Errors = append(result.Errors, "cart is empty")
	}
	result.Subtotal = subtotal

	if input.Shipping != nil && input.Shipping.Price > 0 {
		result.ShippingBeforeDiscount = input.Shipping.Price
	}
	result.ShippingAfterDiscount = result.ShippingBeforeDiscount

	if len(result.Errors) > 0 {
		result.IsValid = false
		result.Total = floorZero(subtotal + result.ShippingAfterDiscount)
		return result, nil
	}

	enteredCode := e.resolveEnteredCode(ctx, &input, &result)

	automatics, codeEntry := e.fetchCandidates(ctx, input.StoreID, enteredCode, nowUTC, &result)

	eligibleAutomatics := make([]domain.DiscountDefinition, 0, len(automatics))
	sortByPriority(automatics)
	for _, d := range automatics {
		if hasInvertedHourWindow(d) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("discount %s has an inverted hour window and never applies", d.ID))
			continue
		}
		if ok, _ := isEligible(d, input, nowUTC, e.location); ok {
			eligibleAutomatics = append(eligibleAutomatics, d)
		}
	}

	eligibleCode := make([]domain.DiscountDefinition, 0, len(codeEntry))
	codeRejection := ""
	for _, d := range codeEntry {
		if hasInvertedHourWindow(d) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("discount %s has an inverted hour window and never applies", d.ID))
			continue
		}
		ok, reason := isEligible(d, input, nowUTC, e.location)
		if ok {
			eligibleCode = append(eligibleCode, d)
		} else if codeRejection == "" {
			codeRejection = reason
		}
	}
	if enteredCode != "" && len(codeEntry) > 0 && len(eligibleCode) == 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("discount code %s does not apply: %s", enteredCode, codeRejection))
	}

	resolved := resolveCombinations(eligibleAutomatics, eligibleCode, input.Lines)
	result.Warnings = append(result.Warnings, resolved.Warnings...)
	result.Discounts = resolved.Effects

	itemsDiscount := resolved.ItemsDiscount
	if itemsDiscount > subtotal {
		e.logger(ctx, "calculation_discount_clamped", map[string]any{
			"storeId":  input.StoreID,
			"subtotal": subtotal,
			"discount": itemsDiscount,
		})
		itemsDiscount = subtotal
	}
	result.ItemsDiscount = itemsDiscount

	if resolved.FreeShipping {
		result.ShippingAfterDiscount = 0
	}

	result.Total = floorZero(subtotal - itemsDiscount + result.ShippingAfterDiscount)
	return result, nil
}

// resolveEnteredCode normalises the request code, falling back to the
// code stored on the session cart when the request carries none. The
// resolved code is written back to the input so eligibility sees the
// session code exactly as if the request had carried it.
func (e *CalculationEngine) resolveEnteredCode(ctx context.Context, input *CalculationInput, result *domain.CalculationResult) string {
	code := strings.ToUpper(strings.TrimSpace(input.EnteredCode))
	if code != "" {
		input.EnteredCode = code
		return code
	}
	if e.carts == nil || strings.TrimSpace(input.SessionID) == "" {
		return ""
	}

	session, err := e.carts.GetSession(ctx, input.StoreID, input.SessionID)
	if err != nil {
		if repoErr, ok := asRepositoryError(err); ok && repoErr.IsNotFound() {
			return ""
		}
		result.Warnings = append(result.Warnings, "stored cart session could not be read")
		e.logger(ctx, "calculation_session_read_failed", map[string]any{"storeId": input.StoreID, "error": err.Error()})
		return ""
	}
	code = strings.ToUpper(strings.TrimSpace(session.EnteredCode))
	input.EnteredCode = code
	return code
}

// fetchCandidates pulls automatic definitions and, when a code was
// entered, the definitions sharing that code string. Catalog outages
// degrade to warnings: the worst case is a cart priced without
// discounts, never a failed checkout.
func (e *CalculationEngine) fetchCandidates(ctx context.Context, storeID, enteredCode string, now time.Time, result *domain.CalculationResult) ([]domain.DiscountDefinition, []domain.DiscountDefinition) {
	automatics, err := e.discounts.ListActive(ctx, storeID, now)
	if err != nil {
		result.Warnings = append(result.Warnings, "discount catalog is unavailable; no automatic discounts applied")
		e.logger(ctx, "calculation_catalog_unavailable", map[string]any{"storeId": storeID, "error": err.Error()})
		automatics = nil
	}
	filtered := automatics[:0]
	for _, d := range automatics {
		if d.Source == domain.SourceAutomatic {
			filtered = append(filtered, d)
		}
	}

	if enteredCode == "" {
		return filtered, nil
	}

	codeDefs, err := e.discounts.FindByCode(ctx, storeID, enteredCode)
	if err != nil {
		if repoErr, ok := asRepositoryError(err); ok && repoErr.IsNotFound() {
			result.Warnings = append(result.Warnings, fmt.Sprintf("discount code %s is not valid", enteredCode))
			return filtered, nil
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf("discount code %s could not be checked", enteredCode))
		e.logger(ctx, "calculation_code_lookup_failed", map[string]any{"storeId": storeID, "error": err.Error()})
		return filtered, nil
	}
	if len(codeDefs) == 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("discount code %s is not valid", enteredCode))
		return filtered, nil
	}

	codeEntry := codeDefs[:0]
	for _, d := range codeDefs {
		if d.Source == domain.SourceCode {
			codeEntry = append(codeEntry, d)
		}
	}
	return filtered, codeEntry
}

func asRepositoryError(err error) (repositories.RepositoryError, bool) {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr, true
	}
	return nil, false
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

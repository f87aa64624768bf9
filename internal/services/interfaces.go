package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
)

var (
	// ErrDiscountRepositoryMissing indicates the discount catalog dependency was not wired.
	ErrDiscountRepositoryMissing = errors.New("discounts: repository is required")
	// ErrDiscountInvalidCode signals an empty or malformed code string.
	ErrDiscountInvalidCode = errors.New("discounts: invalid code")
	// ErrDiscountNotFound is returned when no definition matches a code.
	ErrDiscountNotFound = errors.New("discounts: code not found")
	// ErrDiscountUnavailable is returned when a code exists but is not exposed publicly.
	ErrDiscountUnavailable = errors.New("discounts: code unavailable")
	// ErrUsageRecorderMissing indicates the usage recorder dependency was not wired.
	ErrUsageRecorderMissing = errors.New("checkout: usage recorder is required")
	// ErrCheckoutInvalidInput signals missing store/order identifiers on confirmation.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
)

// CalculationInput is the full snapshot a single calculation operates on.
type CalculationInput struct {
	StoreID string
	Lines   []domain.CartLine
	// Shipping is the selected rate; nil means no shipping line.
	Shipping *domain.ShippingCandidate
	// EnteredCode is the code typed during this request. When empty and
	// SessionID is set, the engine falls back to the code stored on the
	// session cart.
	EnteredCode string
	SessionID   string
	Customer    domain.CustomerContext
}

// CartCalculator prices a cart. Implementations are pure: no I/O beyond
// reading discount definitions and the session cart, no mutation of
// shared state, and identical inputs (including the clock) produce
// identical results.
type CartCalculator interface {
	Calculate(ctx context.Context, input CalculationInput) (domain.CalculationResult, error)
}

// DiscountPublic is the storefront-safe view of a code discount.
type DiscountPublic struct {
	Code        string
	Description string
	Kind        domain.DiscountKind
	IsAvailable bool
	StartsAt    time.Time
	EndsAt      time.Time
}

// DiscountLookup resolves entered codes for presentation before checkout.
type DiscountLookup interface {
	GetPublicDiscount(ctx context.Context, storeID string, code string) (DiscountPublic, error)
}

// ConfirmOrderDiscountsCommand commits code usage for a confirmed order.
type ConfirmOrderDiscountsCommand struct {
	StoreID string
	OrderID string
	// DiscountIDs lists the code-sourced discounts applied to the order.
	DiscountIDs []string
	Code        string
}

// ConfirmOrderDiscountsResult reports which usages were recorded.
type ConfirmOrderDiscountsResult struct {
	Recorded []string
	// LimitReached lists discounts whose usage limit blocked recording;
	// the order itself is not failed, the race is surfaced to operators.
	LimitReached []string
}

// CheckoutConfirmer owns the post-order write path for usage counters.
type CheckoutConfirmer interface {
	ConfirmOrderDiscounts(ctx context.Context, cmd ConfirmOrderDiscountsCommand) (ConfirmOrderDiscountsResult, error)
}

// RedemptionEvent is published after usage is committed so downstream
// webhook/analytics consumers can react; delivery is out of process.
type RedemptionEvent struct {
	EventID    string
	StoreID    string
	OrderID    string
	DiscountID string
	Code       string
	OccurredAt time.Time
}

// RedemptionPublisher publishes redemption events.
type RedemptionPublisher interface {
	PublishRedemption(ctx context.Context, event RedemptionEvent) (string, error)
}

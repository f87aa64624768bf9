package repositories

import (
	"context"
	"time"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// DiscountRepository reads discount definitions for a store. Upstream may
// pre-filter by activity and date window, but callers re-validate; the
// listing is treated as candidates, never as a final answer.
type DiscountRepository interface {
	// ListActive returns the automatic discount definitions that could
	// apply at the given instant.
	ListActive(ctx context.Context, storeID string, now time.Time) ([]domain.DiscountDefinition, error)
	// FindByCode returns every definition sharing the normalised code
	// string. Multiple rows form one logical code entry for stacking.
	FindByCode(ctx context.Context, storeID string, code string) ([]domain.DiscountDefinition, error)
}

// CartRepository reads session-persisted carts, including a previously
// entered discount code.
type CartRepository interface {
	GetSession(ctx context.Context, storeID string, sessionID string) (domain.SessionCart, error)
}

// UsageRecorder commits discount code redemptions after a successful
// order. The calculation engine never calls this; it only reads the
// usage counters already present on discount definitions.
type UsageRecorder interface {
	// IncrementUsage atomically bumps the usage counter for the discount
	// unless the usage limit is already reached. The orderID keys an
	// idempotency marker so re-confirming an order does not double-count.
	// Returns false without error when the limit blocked the increment.
	IncrementUsage(ctx context.Context, storeID string, discountID string, orderID string) (bool, error)
}

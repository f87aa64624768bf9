package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/itadmit/quickshop3-sub007/internal/repositories"
)

// CheckoutServiceDeps bundles the confirmation path's collaborators.
type CheckoutServiceDeps struct {
	Usage repositories.UsageRecorder
	// Publisher is optional; without it redemption events are skipped.
	Publisher RedemptionPublisher
	Clock     func() time.Time
	Logger    func(context.Context, string, map[string]any)
}

type checkoutService struct {
	usage     repositories.UsageRecorder
	publisher RedemptionPublisher
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewCheckoutService wires the order-confirmation usage commit path. This
// is the only place usage counters are written; the calculation engine
// never increments them.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutConfirmer, error) {
	if deps.Usage == nil {
		return nil, ErrUsageRecorderMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &checkoutService{
		usage:     deps.Usage,
		publisher: deps.Publisher,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

// ConfirmOrderDiscounts atomically records usage for each code discount
// applied to the order. The recorder keys an idempotency marker on the
// order id, so re-running a confirmation is a no-op. A usage limit hit
// here means two checkouts raced past the same eligibility check; the
// order stands and the overshoot is reported, not retried.
func (s *checkoutService) ConfirmOrderDiscounts(ctx context.Context, cmd ConfirmOrderDiscountsCommand) (ConfirmOrderDiscountsResult, error) {
	storeID := strings.TrimSpace(cmd.StoreID)
	orderID := strings.TrimSpace(cmd.OrderID)
	if storeID == "" || orderID == "" {
		return ConfirmOrderDiscountsResult{}, fmt.Errorf("%w: store and order ids are required", ErrCheckoutInvalidInput)
	}

	var result ConfirmOrderDiscountsResult
	for _, discountID := range cmd.DiscountIDs {
		id := strings.TrimSpace(discountID)
		if id == "" {
			continue
		}
		recorded, err := s.usage.IncrementUsage(ctx, storeID, id, orderID)
		if err != nil {
			return result, fmt.Errorf("record usage for discount %s: %w", id, err)
		}
		if !recorded {
			result.LimitReached = append(result.LimitReached, id)
			s.logger(ctx, "discount_usage_limit_exceeded", map[string]any{
				"storeId":    storeID,
				"orderId":    orderID,
				"discountId": id,
			})
			continue
		}
		result.Recorded = append(result.Recorded, id)
		s.publishRedemption(ctx, storeID, orderID, id, cmd.Code)
	}
	return result, nil
}

func (s *checkoutService) publishRedemption(ctx context.Context, storeID, orderID, discountID, code string) {
	if s.publisher == nil {
		return
	}
	event := RedemptionEvent{
		EventID:    ulid.MustNew(ulid.Timestamp(s.clock()), rand.Reader).String(),
		StoreID:    storeID,
		OrderID:    orderID,
		DiscountID: discountID,
		Code:       code,
		OccurredAt: s.clock(),
	}
	if _, err := s.publisher.PublishRedemption(ctx, event); err != nil {
		// Event delivery is best-effort; the usage commit already stuck.
		s.logger(ctx, "redemption_publish_failed", map[string]any{
			"storeId":    storeID,
			"orderId":    orderID,
			"discountId": discountID,
			"error":      err.Error(),
		})
	}
}

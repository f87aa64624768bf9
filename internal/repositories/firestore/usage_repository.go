package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/itadmit/quickshop3-sub007/internal/platform/firestore"
)

const redemptionsSubcollection = "redemptions"

// errUsageLimitReached flows out of the transaction closure to signal a
// blocked increment without aborting the caller.
var errUsageLimitReached = errors.New("usage limit reached")

type redemptionMarker struct {
	StoreID    string    `firestore:"storeId"`
	OrderID    string    `firestore:"orderId"`
	RecordedAt time.Time `firestore:"recordedAt"`
}

// UsageRepository commits discount redemptions with Firestore
// transactions. The counter lives on the discount document itself so the
// calculation read path sees it without a join; the per-order marker in a
// subcollection makes re-confirmation a no-op.
type UsageRepository struct {
	provider  *pfirestore.Provider
	discounts *pfirestore.BaseRepository[discountDocument]
	now       func() time.Time
}

// NewUsageRepository constructs a Firestore-backed usage recorder.
func NewUsageRepository(provider *pfirestore.Provider) (*UsageRepository, error) {
	if provider == nil {
		return nil, errors.New("usage repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[discountDocument](provider, discountsCollection, nil)
	return &UsageRepository{
		provider:  provider,
		discounts: base,
		now:       time.Now,
	}, nil
}

// IncrementUsage atomically bumps the discount's usage counter unless the
// limit is already reached. A marker keyed by order id makes the write
// idempotent: a repeated confirmation reads the marker and returns
// recorded without touching the counter again.
func (r *UsageRepository) IncrementUsage(ctx context.Context, storeID string, discountID string, orderID string) (bool, error) {
	if r == nil || r.provider == nil {
		return false, errors.New("usage repository not initialised")
	}
	store := strings.TrimSpace(storeID)
	discount := strings.TrimSpace(discountID)
	order := strings.TrimSpace(orderID)
	if store == "" || discount == "" || order == "" {
		return false, errors.New("usage repository: store, discount and order ids are required")
	}

	now := r.now().UTC()

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.discounts.DocumentRef(ctx, discount)
		if err != nil {
			return err
		}
		markerRef := ref.Collection(redemptionsSubcollection).Doc(order)

		snapshot, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc discountDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return fmt.Errorf("firestore discounts decode %s: %w", discount, err)
		}
		if doc.StoreID != store {
			return status.Error(codes.NotFound, "discount does not belong to store")
		}

		if _, err := tx.Get(markerRef); err == nil {
			// Already recorded for this order.
			return nil
		} else if status.Code(err) != codes.NotFound {
			return err
		}

		if doc.UsageLimit != nil && doc.UsageCount >= *doc.UsageLimit {
			return errUsageLimitReached
		}

		if err := tx.Update(ref, []firestore.Update{
			{Path: "usageCount", Value: firestore.Increment(1)},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		return tx.Create(markerRef, redemptionMarker{
			StoreID:    store,
			OrderID:    order,
			RecordedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, errUsageLimitReached) {
			return false, nil
		}
		return false, pfirestore.WrapError("discounts.increment_usage", err)
	}
	return true, nil
}

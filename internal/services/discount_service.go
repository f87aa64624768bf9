package services

import (
	"context"
	"strings"
	"time"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
	"github.com/itadmit/quickshop3-sub007/internal/repositories"
)

// DiscountServiceDeps bundles dependencies for the public code lookup.
type DiscountServiceDeps struct {
	Discounts repositories.DiscountRepository
	Clock     func() time.Time
}

type discountService struct {
	repo  repositories.DiscountRepository
	clock func() time.Time
}

// NewDiscountService wires a DiscountLookup backed by the discount catalog.
func NewDiscountService(deps DiscountServiceDeps) (DiscountLookup, error) {
	if deps.Discounts == nil {
		return nil, ErrDiscountRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &discountService{
		repo:  deps.Discounts,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// GetPublicDiscount resolves an entered code to its storefront-safe view.
// Availability reflects only activity and the date window; cart-dependent
// eligibility is left to the calculation call.
func (s *discountService) GetPublicDiscount(ctx context.Context, storeID string, code string) (DiscountPublic, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return DiscountPublic{}, ErrDiscountInvalidCode
	}

	defs, err := s.repo.FindByCode(ctx, storeID, normalized)
	if err != nil {
		if repoErr, ok := asRepositoryError(err); ok {
			switch {
			case repoErr.IsNotFound():
				return DiscountPublic{}, ErrDiscountNotFound
			case repoErr.IsUnavailable():
				return DiscountPublic{}, ErrDiscountUnavailable
			}
		}
		return DiscountPublic{}, err
	}

	var primary *domain.DiscountDefinition
	for i := range defs {
		if defs[i].Source != domain.SourceCode {
			continue
		}
		if primary == nil || defs[i].Priority < primary.Priority ||
			(defs[i].Priority == primary.Priority && defs[i].ID < primary.ID) {
			primary = &defs[i]
		}
	}
	if primary == nil {
		return DiscountPublic{}, ErrDiscountNotFound
	}

	now := s.clock()
	available := primary.IsActive
	if primary.StartsAt != nil && now.Before(*primary.StartsAt) {
		available = false
	}
	if primary.EndsAt != nil && now.After(*primary.EndsAt) {
		available = false
	}
	if primary.UsageLimit != nil && primary.UsageCount >= *primary.UsageLimit {
		available = false
	}

	public := DiscountPublic{
		Code:        primary.CodeString,
		Description: strings.TrimSpace(primary.Description),
		Kind:        primary.Kind,
		IsAvailable: available,
	}
	if primary.StartsAt != nil {
		public.StartsAt = primary.StartsAt.UTC()
	}
	if primary.EndsAt != nil {
		public.EndsAt = primary.EndsAt.UTC()
	}
	return public, nil
}

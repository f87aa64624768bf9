package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
	pfirestore "github.com/itadmit/quickshop3-sub007/internal/platform/firestore"
)

const discountsCollection = "discounts"

// discountDocument is the wide persistence shape of a discount row. Every
// kind shares the document layout; payload fields are optional and only
// the ones for the row's kind are set.
type discountDocument struct {
	StoreID     string `firestore:"storeId"`
	Kind        string `firestore:"kind"`
	Source      string `firestore:"source"`
	Name        string `firestore:"name,omitempty"`
	Description string `firestore:"description,omitempty"`

	IsActive bool `firestore:"isActive"`
	Priority int  `firestore:"priority"`

	StartsAt   *time.Time `firestore:"startsAt,omitempty"`
	EndsAt     *time.Time `firestore:"endsAt,omitempty"`
	DaysOfWeek []int      `firestore:"daysOfWeek,omitempty"`
	HourStart  *int       `firestore:"hourStart,omitempty"`
	HourEnd    *int       `firestore:"hourEnd,omitempty"`

	MinQuantity *int `firestore:"minQuantity,omitempty"`
	MaxQuantity *int `firestore:"maxQuantity,omitempty"`

	CustomerSegment  *string `firestore:"customerSegment,omitempty"`
	MinOrdersCount   *int    `firestore:"minOrdersCount,omitempty"`
	MinLifetimeValue *int64  `firestore:"minLifetimeValue,omitempty"`

	ProductIDs    []string `firestore:"productIds,omitempty"`
	CollectionIDs []string `firestore:"collectionIds,omitempty"`
	Tags          []string `firestore:"tags,omitempty"`

	Code                     string `firestore:"code,omitempty"`
	UsageLimit               *int   `firestore:"usageLimit,omitempty"`
	UsageCount               int    `firestore:"usageCount"`
	CanCombineWithAutomatic  bool   `firestore:"canCombineWithAutomatic"`
	CanCombineWithOtherCodes bool   `firestore:"canCombineWithOtherCodes"`
	MaxCombinedDiscounts     *int   `firestore:"maxCombinedDiscounts,omitempty"`

	PercentBasisPoints *int64               `firestore:"percentBasisPoints,omitempty"`
	FixedAmountValue   *int64               `firestore:"fixedAmountValue,omitempty"`
	BogoBuyQuantity    *int                 `firestore:"bogoBuyQuantity,omitempty"`
	BogoGetQuantity    *int                 `firestore:"bogoGetQuantity,omitempty"`
	BogoRewardType     *string              `firestore:"bogoRewardType,omitempty"`
	BogoRewardValue    *int64               `firestore:"bogoRewardValue,omitempty"`
	BundleMinProducts  *int                 `firestore:"bundleMinProducts,omitempty"`
	BundleValueType    *string              `firestore:"bundleValueType,omitempty"`
	BundleValue        *int64               `firestore:"bundleValue,omitempty"`
	VolumeTiers        []volumeTierDocument `firestore:"volumeTiers,omitempty"`
	FixedPriceQuantity *int                 `firestore:"fixedPriceQuantity,omitempty"`
	FixedPriceTotal    *int64               `firestore:"fixedPriceTotal,omitempty"`
	SpendAmount        *int64               `firestore:"spendAmount,omitempty"`
	PayAmount          *int64               `firestore:"payAmount,omitempty"`

	UpdatedAt time.Time `firestore:"updatedAt"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type volumeTierDocument struct {
	MinQuantity int    `firestore:"minQuantity"`
	ValueType   string `firestore:"valueType"`
	Value       int64  `firestore:"value"`
}

// DiscountRepository reads discount definitions from Firestore.
type DiscountRepository struct {
	base *pfirestore.BaseRepository[discountDocument]
}

// NewDiscountRepository constructs a Firestore-backed discount catalog.
func NewDiscountRepository(provider *pfirestore.Provider) (*DiscountRepository, error) {
	if provider == nil {
		return nil, errors.New("discount repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[discountDocument](provider, discountsCollection, nil)
	return &DiscountRepository{base: base}, nil
}

// ListActive returns the store's active automatic definitions. The date
// window is filtered in memory so the query needs no composite range
// index; eligibility re-validates everything anyway.
func (r *DiscountRepository) ListActive(ctx context.Context, storeID string, now time.Time) ([]domain.DiscountDefinition, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("discount repository not initialised")
	}
	store := strings.TrimSpace(storeID)
	if store == "" {
		return nil, errors.New("discount repository: store id is required")
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.
			Where("storeId", "==", store).
			Where("source", "==", string(domain.SourceAutomatic)).
			Where("isActive", "==", true)
	})
	if err != nil {
		return nil, err
	}

	nowUTC := now.UTC()
	defs := make([]domain.DiscountDefinition, 0, len(docs))
	for _, doc := range docs {
		if doc.Data.StartsAt != nil && nowUTC.Before(doc.Data.StartsAt.UTC()) {
			continue
		}
		if doc.Data.EndsAt != nil && nowUTC.After(doc.Data.EndsAt.UTC()) {
			continue
		}
		defs = append(defs, toDefinition(doc.ID, doc.Data))
	}
	return defs, nil
}

// FindByCode returns every definition sharing the normalised code string.
func (r *DiscountRepository) FindByCode(ctx context.Context, storeID string, code string) ([]domain.DiscountDefinition, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("discount repository not initialised")
	}
	store := strings.TrimSpace(storeID)
	if store == "" {
		return nil, errors.New("discount repository: store id is required")
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.
			Where("storeId", "==", store).
			Where("code", "==", normalized)
	})
	if err != nil {
		return nil, err
	}

	defs := make([]domain.DiscountDefinition, 0, len(docs))
	for _, doc := range docs {
		defs = append(defs, toDefinition(doc.ID, doc.Data))
	}
	return defs, nil
}

func toDefinition(id string, doc discountDocument) domain.DiscountDefinition {
	def := domain.DiscountDefinition{
		ID:          id,
		StoreID:     doc.StoreID,
		Kind:        domain.DiscountKind(doc.Kind),
		Source:      domain.DiscountSource(doc.Source),
		Name:        doc.Name,
		Description: doc.Description,
		IsActive:    doc.IsActive,
		Priority:    doc.Priority,

		HourStart: doc.HourStart,
		HourEnd:   doc.HourEnd,

		MinQuantity: doc.MinQuantity,
		MaxQuantity: doc.MaxQuantity,

		MinOrdersCount:   doc.MinOrdersCount,
		MinLifetimeValue: doc.MinLifetimeValue,

		ScopedProductIDs:    doc.ProductIDs,
		ScopedCollectionIDs: doc.CollectionIDs,
		ScopedTags:          doc.Tags,

		CodeString:               doc.Code,
		UsageLimit:               doc.UsageLimit,
		UsageCount:               doc.UsageCount,
		CanCombineWithAutomatic:  doc.CanCombineWithAutomatic,
		CanCombineWithOtherCodes: doc.CanCombineWithOtherCodes,
		MaxCombinedDiscounts:     doc.MaxCombinedDiscounts,
	}

	if doc.StartsAt != nil {
		t := doc.StartsAt.UTC()
		def.StartsAt = &t
	}
	if doc.EndsAt != nil {
		t := doc.EndsAt.UTC()
		def.EndsAt = &t
	}
	for _, day := range doc.DaysOfWeek {
		if day >= 0 && day <= 6 {
			def.DaysOfWeek = append(def.DaysOfWeek, time.Weekday(day))
		}
	}
	if doc.CustomerSegment != nil {
		segment := domain.CustomerSegment(*doc.CustomerSegment)
		def.CustomerSegment = &segment
	}

	switch def.Kind {
	case domain.DiscountKindPercentage:
		if doc.PercentBasisPoints != nil {
			def.Percentage = &domain.PercentagePayload{BasisPoints: *doc.PercentBasisPoints}
		}
	case domain.DiscountKindFixedAmount:
		if doc.FixedAmountValue != nil {
			def.FixedAmount = &domain.FixedAmountPayload{Value: *doc.FixedAmountValue}
		}
	case domain.DiscountKindBOGO:
		if doc.BogoBuyQuantity != nil && doc.BogoGetQuantity != nil && doc.BogoRewardType != nil {
			payload := &domain.BOGOPayload{
				BuyQuantity: *doc.BogoBuyQuantity,
				GetQuantity: *doc.BogoGetQuantity,
				RewardType:  domain.BOGORewardType(*doc.BogoRewardType),
			}
			if doc.BogoRewardValue != nil {
				payload.RewardValue = *doc.BogoRewardValue
			}
			def.BOGO = payload
		}
	case domain.DiscountKindBundle:
		if doc.BundleMinProducts != nil && doc.BundleValueType != nil && doc.BundleValue != nil {
			def.Bundle = &domain.BundlePayload{
				MinProducts:  *doc.BundleMinProducts,
				DiscountType: domain.ValueType(*doc.BundleValueType),
				Value:        *doc.BundleValue,
			}
		}
	case domain.DiscountKindVolume:
		if len(doc.VolumeTiers) > 0 {
			payload := &domain.VolumePayload{Tiers: make([]domain.VolumeTier, 0, len(doc.VolumeTiers))}
			for _, tier := range doc.VolumeTiers {
				payload.Tiers = append(payload.Tiers, domain.VolumeTier{
					MinQuantity:  tier.MinQuantity,
					DiscountType: domain.ValueType(tier.ValueType),
					Value:        tier.Value,
				})
			}
			def.Volume = payload
		}
	case domain.DiscountKindFixedPrice:
		if doc.FixedPriceQuantity != nil && doc.FixedPriceTotal != nil {
			def.FixedPrice = &domain.FixedPricePayload{
				Quantity:   *doc.FixedPriceQuantity,
				TotalPrice: *doc.FixedPriceTotal,
			}
		}
	case domain.DiscountKindSpendXPayY:
		if doc.SpendAmount != nil && doc.PayAmount != nil {
			def.SpendXPayY = &domain.SpendXPayYPayload{
				SpendAmount: *doc.SpendAmount,
				PayAmount:   *doc.PayAmount,
			}
		}
	}

	return def
}

package services

import (
	"testing"
	"time"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
)

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func segPtr(s domain.CustomerSegment) *domain.CustomerSegment { return &s }

func baseInput(lines ...domain.CartLine) CalculationInput {
	return CalculationInput{StoreID: "store_1", Lines: lines}
}

func activeDiscount(id string) domain.DiscountDefinition {
	return domain.DiscountDefinition{
		ID:         id,
		StoreID:    "store_1",
		Kind:       domain.DiscountKindPercentage,
		Source:     domain.SourceAutomatic,
		IsActive:   true,
		Percentage: &domain.PercentagePayload{BasisPoints: 1000},
	}
}

func TestIsEligible_Schedule(t *testing.T) {
	now := time.Date(2025, 6, 18, 14, 30, 0, 0, time.UTC) // Wednesday

	line := domain.CartLine{VariantID: "v1", ProductID: "p1", UnitPrice: 1000, Quantity: 1}
	input := baseInput(line)

	t.Run("inactive", func(t *testing.T) {
		d := activeDiscount("d1")
		d.IsActive = false
		if ok, reason := isEligible(d, input, now, time.UTC); ok || reason == "" {
			t.Fatalf("expected inactive discount to be rejected, got ok=%v reason=%q", ok, reason)
		}
	})

	t.Run("not started", func(t *testing.T) {
		d := activeDiscount("d1")
		d.StartsAt = timePtr(now.Add(time.Hour))
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected future discount to be rejected")
		}
	})

	t.Run("expired", func(t *testing.T) {
		d := activeDiscount("d1")
		d.EndsAt = timePtr(now.Add(-time.Minute))
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected expired discount to be rejected")
		}
	})

	t.Run("unbounded window passes", func(t *testing.T) {
		d := activeDiscount("d1")
		if ok, reason := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected eligibility, got reason %q", reason)
		}
	})

	t.Run("weekday in store zone", func(t *testing.T) {
		d := activeDiscount("d1")
		d.DaysOfWeek = []time.Weekday{time.Wednesday}
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected Wednesday discount to apply on Wednesday")
		}
		d.DaysOfWeek = []time.Weekday{time.Saturday}
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected Saturday-only discount to be rejected on Wednesday")
		}
	})

	t.Run("hour window", func(t *testing.T) {
		d := activeDiscount("d1")
		d.HourStart = intPtr(9)
		d.HourEnd = intPtr(17)
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected 14:30 to fall within 9..17")
		}
		d.HourStart = intPtr(18)
		d.HourEnd = intPtr(22)
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected 14:30 to fall outside 18..22")
		}
	})

	t.Run("inverted hour window never matches", func(t *testing.T) {
		d := activeDiscount("d1")
		d.HourStart = intPtr(22)
		d.HourEnd = intPtr(6)
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected inverted hour window to be never-eligible")
		}
		if !hasInvertedHourWindow(d) {
			t.Fatalf("expected inverted window to be flagged")
		}
	})

	t.Run("time zone shifts the weekday", func(t *testing.T) {
		// 2025-06-18 23:30 UTC is already Thursday in Asia/Jerusalem.
		lateNow := time.Date(2025, 6, 18, 23, 30, 0, 0, time.UTC)
		loc, err := time.LoadLocation("Asia/Jerusalem")
		if err != nil {
			t.Skipf("tzdata unavailable: %v", err)
		}
		d := activeDiscount("d1")
		d.DaysOfWeek = []time.Weekday{time.Thursday}
		if ok, _ := isEligible(d, input, lateNow, loc); !ok {
			t.Fatalf("expected Thursday in store zone to be eligible")
		}
		if ok, _ := isEligible(d, input, lateNow, time.UTC); ok {
			t.Fatalf("expected Wednesday UTC to be rejected")
		}
	})
}

func TestIsEligible_ScopeAndQuantity(t *testing.T) {
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	shirt := domain.CartLine{VariantID: "v1", ProductID: "p_shirt", UnitPrice: 2000, Quantity: 2, ProductTags: []string{"summer"}}
	mug := domain.CartLine{VariantID: "v2", ProductID: "p_mug", UnitPrice: 500, Quantity: 3, CollectionIDs: []string{"c_kitchen"}}
	input := baseInput(shirt, mug)

	t.Run("store-wide always scope-eligible", func(t *testing.T) {
		d := activeDiscount("d1")
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected store-wide discount to pass scope check")
		}
	})

	t.Run("product scope", func(t *testing.T) {
		d := activeDiscount("d1")
		d.ScopedProductIDs = []string{"p_shirt"}
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected product-scoped discount to match the shirt line")
		}
		d.ScopedProductIDs = []string{"p_hat"}
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected unmatched product scope to be rejected")
		}
	})

	t.Run("collection and tag scope", func(t *testing.T) {
		d := activeDiscount("d1")
		d.ScopedCollectionIDs = []string{"c_kitchen"}
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected collection scope to match the mug line")
		}
		d = activeDiscount("d1")
		d.ScopedTags = []string{"summer"}
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected tag scope to match the shirt line")
		}
	})

	t.Run("scoped quantity bounds count scoped lines only", func(t *testing.T) {
		d := activeDiscount("d1")
		d.ScopedProductIDs = []string{"p_mug"}
		d.MinQuantity = intPtr(3)
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected 3 scoped mugs to satisfy minQuantity 3")
		}
		d.MinQuantity = intPtr(4)
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected 3 scoped mugs to fail minQuantity 4")
		}
	})

	t.Run("unscoped code counts all lines", func(t *testing.T) {
		d := activeDiscount("d1")
		d.Source = domain.SourceCode
		d.CodeString = "SAVE"
		d.MinQuantity = intPtr(5)
		in := input
		in.EnteredCode = "save"
		if ok, reason := isEligible(d, in, now, time.UTC); !ok {
			t.Fatalf("expected 5 total units to satisfy minQuantity 5, got %q", reason)
		}
	})

	t.Run("max quantity", func(t *testing.T) {
		d := activeDiscount("d1")
		d.MaxQuantity = intPtr(4)
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected 5 units to exceed maxQuantity 4")
		}
	})
}

func TestIsEligible_CustomerAndCode(t *testing.T) {
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	line := domain.CartLine{VariantID: "v1", ProductID: "p1", UnitPrice: 1000, Quantity: 1}

	t.Run("segment", func(t *testing.T) {
		d := activeDiscount("d1")
		d.CustomerSegment = segPtr(domain.SegmentVIP)
		input := baseInput(line)
		input.Customer.Segment = domain.SegmentVIP
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected vip customer to qualify")
		}
		input.Customer.Segment = domain.SegmentNone
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected non-vip customer to be rejected")
		}
	})

	t.Run("orders and lifetime value floors", func(t *testing.T) {
		d := activeDiscount("d1")
		d.MinOrdersCount = intPtr(3)
		d.MinLifetimeValue = int64Ptr(50000)
		input := baseInput(line)
		input.Customer.LifetimeOrdersCount = 3
		input.Customer.LifetimeValue = 50000
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected thresholds met to qualify")
		}
		input.Customer.LifetimeValue = 49999
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected lifetime value below floor to be rejected")
		}
	})

	t.Run("code matches case-insensitively", func(t *testing.T) {
		d := activeDiscount("d1")
		d.Source = domain.SourceCode
		d.CodeString = "Summer10"
		input := baseInput(line)
		input.EnteredCode = "SUMMER10"
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected case-insensitive code match")
		}
		input.EnteredCode = "WINTER"
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected mismatched code to be rejected")
		}
	})

	t.Run("usage limit", func(t *testing.T) {
		d := activeDiscount("d1")
		d.Source = domain.SourceCode
		d.CodeString = "LIMITED"
		d.UsageLimit = intPtr(10)
		d.UsageCount = 9
		input := baseInput(line)
		input.EnteredCode = "LIMITED"
		if ok, _ := isEligible(d, input, now, time.UTC); !ok {
			t.Fatalf("expected usage below limit to qualify")
		}
		d.UsageCount = 10
		if ok, _ := isEligible(d, input, now, time.UTC); ok {
			t.Fatalf("expected exhausted code to be rejected")
		}
	})
}

package services

import (
	"math/rand"
	"reflect"
	"testing"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
)

func percentDiscount(id string, bps int64, priority int) domain.DiscountDefinition {
	d := activeDiscount(id)
	d.Priority = priority
	d.CanCombineWithAutomatic = true
	d.Percentage = &domain.PercentagePayload{BasisPoints: bps}
	return d
}

func TestResolveCombinations_SequentialStacking(t *testing.T) {
	lines := []domain.CartLine{{VariantID: "v1", UnitPrice: 100, Quantity: 1}}
	automatics := []domain.DiscountDefinition{
		percentDiscount("d1", 1000, 1),
		percentDiscount("d2", 1000, 2),
	}

	res := resolveCombinations(automatics, nil, lines)
	// The second 10% applies to the remaining 90, so the stack is 19%.
	if res.ItemsDiscount != 19 {
		t.Fatalf("expected 19 off, got %d", res.ItemsDiscount)
	}
	if len(res.Effects) != 2 {
		t.Fatalf("expected two effects, got %d", len(res.Effects))
	}
	if res.Effects[0].AmountOff != 10 || res.Effects[1].AmountOff != 9 {
		t.Fatalf("unexpected per-discount amounts: %d, %d", res.Effects[0].AmountOff, res.Effects[1].AmountOff)
	}
}

func TestResolveCombinations_PriorityOrder(t *testing.T) {
	lines := []domain.CartLine{{VariantID: "v1", UnitPrice: 10000, Quantity: 1}}
	automatics := []domain.DiscountDefinition{
		percentDiscount("d_late", 1000, 5),
		percentDiscount("d_early", 2000, 1),
	}

	res := resolveCombinations(automatics, nil, lines)
	if len(res.Effects) != 2 {
		t.Fatalf("expected two effects, got %d", len(res.Effects))
	}
	if res.Effects[0].DiscountID != "d_early" || res.Effects[1].DiscountID != "d_late" {
		t.Fatalf("unexpected order: %s, %s", res.Effects[0].DiscountID, res.Effects[1].DiscountID)
	}
	// 20% of 10000 then 10% of the remaining 8000.
	if res.ItemsDiscount != 2800 {
		t.Fatalf("expected 2800 off, got %d", res.ItemsDiscount)
	}
}

func TestResolveCombinations_NonCombinableAutomatic(t *testing.T) {
	lines := []domain.CartLine{{VariantID: "v1", UnitPrice: 10000, Quantity: 1}}

	exclusive := percentDiscount("d_solo", 3000, 2)
	exclusive.CanCombineWithAutomatic = false

	t.Run("skipped after an applied discount", func(t *testing.T) {
		automatics := []domain.DiscountDefinition{percentDiscount("d_first", 1000, 1), exclusive}
		res := resolveCombinations(automatics, nil, lines)
		if len(res.Effects) != 1 || res.Effects[0].DiscountID != "d_first" {
			t.Fatalf("expected only d_first to apply, got %+v", res.Effects)
		}
	})

	t.Run("applies first and blocks nothing before it", func(t *testing.T) {
		first := percentDiscount("a_solo", 3000, 1)
		first.CanCombineWithAutomatic = false
		automatics := []domain.DiscountDefinition{first, percentDiscount("d_second", 1000, 2)}
		res := resolveCombinations(automatics, nil, lines)
		// Exclusion is one-directional: the later combinable discount
		// still joins.
		if len(res.Effects) != 2 {
			t.Fatalf("expected two effects, got %+v", res.Effects)
		}
	})
}

func TestResolveCombinations_MaxCombinedCap(t *testing.T) {
	lines := []domain.CartLine{{VariantID: "v1", UnitPrice: 10000, Quantity: 1}}
	capped := percentDiscount("d1", 1000, 1)
	capped.MaxCombinedDiscounts = intPtr(2)
	automatics := []domain.DiscountDefinition{
		capped,
		percentDiscount("d2", 1000, 2),
		percentDiscount("d3", 1000, 3),
	}

	res := resolveCombinations(automatics, nil, lines)
	if len(res.Effects) != 2 {
		t.Fatalf("expected cap of 2 applied discounts, got %d", len(res.Effects))
	}

	// The lowest declared cap among applied discounts wins.
	tighter := percentDiscount("d2", 1000, 2)
	tighter.MaxCombinedDiscounts = intPtr(1)
	looser := percentDiscount("d1", 1000, 1)
	looser.MaxCombinedDiscounts = intPtr(3)
	res = resolveCombinations([]domain.DiscountDefinition{looser, tighter, percentDiscount("d3", 1000, 3)}, nil, lines)
	if len(res.Effects) != 2 {
		t.Fatalf("expected the tighter cap to stop at 2 applied, got %d", len(res.Effects))
	}
}

func TestResolveCombinations_CodeConflict(t *testing.T) {
	lines := []domain.CartLine{{VariantID: "v1", UnitPrice: 10000, Quantity: 1}}
	automatic := percentDiscount("d_auto", 1000, 1)

	code := percentDiscount("d_code", 2000, 1)
	code.Source = domain.SourceCode
	code.CodeString = "SAVE20"
	code.CanCombineWithAutomatic = false

	res := resolveCombinations([]domain.DiscountDefinition{automatic}, []domain.DiscountDefinition{code}, lines)
	if len(res.Effects) != 1 || res.Effects[0].DiscountID != "d_auto" {
		t.Fatalf("expected the automatic discount to stand, got %+v", res.Effects)
	}
	if res.ItemsDiscount != 1000 {
		t.Fatalf("expected automatic amount unchanged, got %d", res.ItemsDiscount)
	}
	found := false
	for _, w := range res.Warnings {
		if w == codeConflictWarning {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected conflict warning, got %v", res.Warnings)
	}

	// Without automatics the same code applies cleanly.
	res = resolveCombinations(nil, []domain.DiscountDefinition{code}, lines)
	if len(res.Effects) != 1 || res.Effects[0].DiscountID != "d_code" {
		t.Fatalf("expected the code to apply alone, got %+v", res.Effects)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", res.Warnings)
	}
}

func TestResolveCombinations_CombinableCodeStacks(t *testing.T) {
	lines := []domain.CartLine{{VariantID: "v1", UnitPrice: 100, Quantity: 1}}
	automatic := percentDiscount("d_auto", 1000, 1)

	code := percentDiscount("d_code", 1000, 1)
	code.Source = domain.SourceCode
	code.CodeString = "STACK10"

	res := resolveCombinations([]domain.DiscountDefinition{automatic}, []domain.DiscountDefinition{code}, lines)
	if len(res.Effects) != 2 {
		t.Fatalf("expected both discounts, got %+v", res.Effects)
	}
	if res.ItemsDiscount != 19 {
		t.Fatalf("expected sequential 19 off, got %d", res.ItemsDiscount)
	}
}

func TestResolveCombinations_FreeShippingIdempotent(t *testing.T) {
	lines := []domain.CartLine{{VariantID: "v1", UnitPrice: 10000, Quantity: 1}}
	ship1 := activeDiscount("d_ship1")
	ship1.Kind = domain.DiscountKindFreeShipping
	ship1.Percentage = nil
	ship1.CanCombineWithAutomatic = true
	ship2 := activeDiscount("d_ship2")
	ship2.Kind = domain.DiscountKindFreeShipping
	ship2.Percentage = nil
	ship2.CanCombineWithAutomatic = true

	res := resolveCombinations([]domain.DiscountDefinition{ship1, ship2}, nil, lines)
	if !res.FreeShipping {
		t.Fatalf("expected free shipping")
	}
	if res.ItemsDiscount != 0 {
		t.Fatalf("free shipping must not reduce items, got %d", res.ItemsDiscount)
	}
	if len(res.Effects) != 2 {
		t.Fatalf("expected both effects listed, got %d", len(res.Effects))
	}
}

func TestResolveCombinations_MalformedDefinitionDegrades(t *testing.T) {
	lines := []domain.CartLine{{VariantID: "v1", UnitPrice: 10000, Quantity: 1}}
	broken := activeDiscount("d_broken")
	broken.CanCombineWithAutomatic = true
	broken.Percentage = nil // missing payload
	broken.Priority = 1
	healthy := percentDiscount("d_ok", 1000, 2)

	res := resolveCombinations([]domain.DiscountDefinition{broken, healthy}, nil, lines)
	if len(res.Effects) != 1 || res.Effects[0].DiscountID != "d_ok" {
		t.Fatalf("expected only the healthy discount, got %+v", res.Effects)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a skip warning for the malformed definition")
	}
}

func TestResolveCombinations_DeterministicUnderShuffle(t *testing.T) {
	lines := []domain.CartLine{
		{VariantID: "v1", ProductID: "p1", UnitPrice: 2599, Quantity: 3},
		{VariantID: "v2", ProductID: "p2", UnitPrice: 999, Quantity: 2},
	}
	base := []domain.DiscountDefinition{
		percentDiscount("d_a", 1000, 3),
		percentDiscount("d_b", 500, 1),
		percentDiscount("d_c", 1500, 3),
	}

	reference := resolveCombinations(cloneDefs(base), nil, lines)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := cloneDefs(base)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := resolveCombinations(shuffled, nil, lines)
		if !reflect.DeepEqual(reference, got) {
			t.Fatalf("resolution varies with input order: %+v vs %+v", reference, got)
		}
	}
}

func cloneDefs(defs []domain.DiscountDefinition) []domain.DiscountDefinition {
	out := make([]domain.DiscountDefinition, len(defs))
	copy(out, defs)
	return out
}

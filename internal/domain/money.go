package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Money values are carried as int64 minor units (e.g. agorot, cents).
// Decimal strings only exist at the API boundary; every internal
// computation stays in integer space so repeated calculations are
// bit-identical.

const (
	// PercentScale is the fixed-point scale for percentages: 10000 basis
	// points == 100%.
	PercentScale = 10000

	// DefaultCurrencyExponent is the number of fraction digits used when
	// formatting minor units unless the store configures otherwise.
	DefaultCurrencyExponent = 2
)

// ErrInvalidMoney signals a malformed decimal money string at the boundary.
var ErrInvalidMoney = errors.New("money: invalid decimal amount")

// RoundHalfUpDiv divides num by den rounding half away from zero toward
// positive infinity for non-negative inputs. den must be positive.
func RoundHalfUpDiv(num, den int64) int64 {
	if den <= 0 {
		return 0
	}
	if num < 0 {
		return -((-num + den/2) / den)
	}
	return (num + den/2) / den
}

// ClampBasisPoints bounds a percentage expressed in basis points to [0, 100%].
func ClampBasisPoints(bps int64) int64 {
	if bps < 0 {
		return 0
	}
	if bps > PercentScale {
		return PercentScale
	}
	return bps
}

// PercentAmount applies a basis-point percentage to an amount of minor
// units, rounding half up exactly once. Overflow saturates rather than
// wrapping; carts never reach those magnitudes in practice.
func PercentAmount(amount, bps int64) int64 {
	bps = ClampBasisPoints(bps)
	if amount <= 0 || bps == 0 {
		return 0
	}
	if amount > math.MaxInt64/bps {
		return RoundHalfUpDiv(math.MaxInt64, PercentScale)
	}
	return RoundHalfUpDiv(amount*bps, PercentScale)
}

// FormatMoney renders minor units as a decimal string with the given
// number of fraction digits ("1234" with exponent 2 -> "12.34").
func FormatMoney(amount int64, exponent int) string {
	if exponent <= 0 {
		return fmt.Sprintf("%d", amount)
	}
	negative := amount < 0
	if negative {
		amount = -amount
	}
	scale := pow10(exponent)
	whole := amount / scale
	frac := amount % scale
	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%0*d", sign, whole, exponent, frac)
}

// ParseMoney converts a decimal string into minor units. At most
// `exponent` fraction digits are accepted; fewer digits are right-padded
// ("1.5" with exponent 2 -> 150).
func ParseMoney(value string, exponent int) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidMoney)
	}

	negative := false
	switch trimmed[0] {
	case '-':
		negative = true
		trimmed = trimmed[1:]
	case '+':
		trimmed = trimmed[1:]
	}
	if trimmed == "" || trimmed == "." {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, value)
	}

	wholePart := trimmed
	fracPart := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		wholePart = trimmed[:idx]
		fracPart = trimmed[idx+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, value)
		}
	}
	if wholePart == "" {
		wholePart = "0"
	}
	if len(fracPart) > exponent {
		return 0, fmt.Errorf("%w: %q has more than %d fraction digits", ErrInvalidMoney, value, exponent)
	}
	for len(fracPart) < exponent {
		fracPart += "0"
	}

	var amount int64
	for _, digits := range []string{wholePart, fracPart} {
		for _, r := range digits {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, value)
			}
			d := int64(r - '0')
			if amount > (math.MaxInt64-d)/10 {
				return 0, fmt.Errorf("%w: %q overflows", ErrInvalidMoney, value)
			}
			amount = amount*10 + d
		}
	}
	if negative {
		amount = -amount
	}
	return amount, nil
}

func pow10(exp int) int64 {
	result := int64(1)
	for i := 0; i < exp; i++ {
		result *= 10
	}
	return result
}

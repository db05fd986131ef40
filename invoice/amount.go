package invoice

import (
	"fmt"
	"strconv"
	"strings"
)

// AmountKind discriminates the variants of the Amount union.
type AmountKind uint8

const (
	// KindAny accepts payments of any amount, which is useful for
	// donation style invoices.
	KindAny AmountKind = 0

	// KindNormal is an exact amount in atomic units of the asset.
	KindNormal AmountKind = 1

	// KindMilli is an amount carrying a sub-atomic fractional part. It is
	// deliberately not convertible to a single integer.
	KindMilli AmountKind = 2
)

// Amount is the payment amount requested by an invoice: any amount, an exact
// number of atomic units, or an integer plus fractional pair.
type Amount struct {
	// Kind selects the active variant.
	Kind AmountKind

	// Value is the atomic value for KindNormal, or the integer part for
	// KindMilli.
	Value uint64

	// Frac is the fractional part for KindMilli.
	Frac uint16
}

// AnyAmount returns the Amount accepting payments of any size.
func AnyAmount() Amount {
	return Amount{Kind: KindAny}
}

// NormalAmount returns an exact Amount of the given atomic units.
func NormalAmount(value uint64) Amount {
	return Amount{Kind: KindNormal, Value: value}
}

// MilliAmount returns an Amount with an explicit fractional part.
func MilliAmount(integer uint64, frac uint16) Amount {
	return Amount{Kind: KindMilli, Value: integer, Frac: frac}
}

// AtomicValue returns the exact atomic value of the amount. Only KindNormal
// amounts carry one; Any and Milli report false.
func (a Amount) AtomicValue() (uint64, bool) {
	if a.Kind != KindNormal {
		return 0, false
	}

	return a.Value, true
}

// String returns the text grammar form of the amount.
func (a Amount) String() string {
	switch a.Kind {
	case KindNormal:
		return strconv.FormatUint(a.Value, 10)
	case KindMilli:
		return fmt.Sprintf("%d.%d", a.Value, a.Frac)
	default:
		return "any"
	}
}

// ParseAmount parses the text grammar of an amount: "any" in any case, a
// plain integer, or "<int>.<frac>".
func ParseAmount(s string) (Amount, error) {
	if strings.ToLower(strings.TrimSpace(s)) == "any" {
		return AnyAmount(), nil
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	value, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if !hasFrac {
		return NormalAmount(value), nil
	}

	frac, err := strconv.ParseUint(fracPart, 10, 16)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount fraction %q: %w",
			s, err)
	}

	return MilliAmount(value, uint16(frac)), nil
}

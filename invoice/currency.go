package invoice

import "fmt"

// CurrencyCode is a three-letter ISO-4217 currency code.
type CurrencyCode [3]byte

// String returns the code as a string.
func (c CurrencyCode) String() string {
	return string(c[:])
}

// ParseCurrencyCode parses a three-letter currency code.
func ParseCurrencyCode(s string) (CurrencyCode, error) {
	if len(s) != 3 {
		return CurrencyCode{}, fmt.Errorf("wrong length %d for "+
			"ISO-4217 currency code", len(s))
	}

	var code CurrencyCode
	copy(code[:], s)

	return code, nil
}

// CurrencyRequirement is a fiat floor-price gate: if the price reported by
// the provider drops below the given value the merchant will not accept the
// payment and the invoice is to be treated as expired.
type CurrencyRequirement struct {
	// Currency is the fiat currency of the floor price.
	Currency CurrencyCode

	// Coins is the integer part of the floor price.
	Coins uint32

	// Fractions is the fractional part of the floor price.
	Fractions uint8

	// PriceProvider locates the fiat price oracle, typically a URL.
	PriceProvider string
}

// String returns the human readable form of the requirement.
func (c CurrencyRequirement) String() string {
	return fmt.Sprintf("%d.%d %v", c.Coins, c.Fractions, c.Currency)
}

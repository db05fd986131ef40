package invoice

import "fmt"

// Quantity expresses how many items the invoice charges for. Min bounds the
// acceptable quantity from below, Max from above with zero meaning unbounded,
// and Default is the quantity used when the payer does not choose one.
type Quantity struct {
	// Min is the smallest acceptable quantity.
	Min uint32

	// Max is the largest acceptable quantity. Zero means no upper bound.
	Max uint32

	// Default is the suggested quantity.
	Default uint32
}

// DefaultQuantity returns the single-item quantity {0, unbounded, 1}.
func DefaultQuantity() Quantity {
	return Quantity{Min: 0, Max: 0, Default: 1}
}

// String returns the human readable form of the quantity.
func (q Quantity) String() string {
	s := fmt.Sprintf("%d items", q.Default)
	switch {
	case q.Min == 0 && q.Max != 0:
		return s + fmt.Sprintf(" (or any amount up to %d)", q.Max)
	case q.Min == 0:
		return s
	case q.Max != 0:
		return s + fmt.Sprintf(" (or from %d to %d)", q.Min, q.Max)
	default:
		return s + fmt.Sprintf(" (or any amount above %d)", q.Min)
	}
}

package invoice

import (
	"fmt"
	"strconv"
	"strings"
)

// RecurrenceKind discriminates the variants of the Recurrence union.
type RecurrenceKind uint8

const (
	// RecurNone marks a one-off, non-recurrent invoice.
	RecurNone RecurrenceKind = 0

	// RecurSeconds repeats the payment every N seconds.
	RecurSeconds RecurrenceKind = 1

	// RecurMonths repeats the payment every N months.
	RecurMonths RecurrenceKind = 2

	// RecurYears repeats the payment every N years.
	RecurYears RecurrenceKind = 3
)

// Recurrence describes the repeat interval of a subscription style invoice.
// The zero value is non-recurrent.
type Recurrence struct {
	// Kind selects the active variant.
	Kind RecurrenceKind

	// Every is the repeat interval in the unit selected by Kind. Month
	// and year intervals are limited to 255.
	Every uint64
}

// NonRecurrent returns the default one-off recurrence.
func NonRecurrent() Recurrence {
	return Recurrence{Kind: RecurNone}
}

// EverySeconds returns a recurrence repeating every n seconds.
func EverySeconds(n uint64) Recurrence {
	return Recurrence{Kind: RecurSeconds, Every: n}
}

// EveryMonths returns a recurrence repeating every n months.
func EveryMonths(n uint8) Recurrence {
	return Recurrence{Kind: RecurMonths, Every: uint64(n)}
}

// EveryYears returns a recurrence repeating every n years.
func EveryYears(n uint8) Recurrence {
	return Recurrence{Kind: RecurYears, Every: uint64(n)}
}

// String returns the human readable form of the recurrence.
func (r Recurrence) String() string {
	switch r.Kind {
	case RecurSeconds:
		return fmt.Sprintf("each %d seconds", r.Every)
	case RecurMonths:
		return fmt.Sprintf("each %d months", r.Every)
	case RecurYears:
		return fmt.Sprintf("each %d years", r.Every)
	default:
		return "non-recurrent"
	}
}

// ParseRecurrence parses the forms produced by String: "non-recurrent" or
// "each <n> seconds|months|years".
func ParseRecurrence(s string) (Recurrence, error) {
	s = strings.TrimSpace(s)
	if s == "non-recurrent" {
		return NonRecurrent(), nil
	}

	fields := strings.Fields(s)
	if len(fields) != 3 || fields[0] != "each" {
		return Recurrence{}, fmt.Errorf("invalid recurrence %q", s)
	}

	n, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return Recurrence{}, fmt.Errorf("invalid recurrence %q: %w",
			s, err)
	}

	switch fields[2] {
	case "seconds":
		return EverySeconds(n), nil
	case "months", "years":
		if n > 255 {
			return Recurrence{}, fmt.Errorf("recurrence interval "+
				"%d out of range", n)
		}
		if fields[2] == "months" {
			return EveryMonths(uint8(n)), nil
		}
		return EveryYears(uint8(n)), nil
	default:
		return Recurrence{}, fmt.Errorf("invalid recurrence %q", s)
	}
}

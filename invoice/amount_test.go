package invoice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Amount
		valid bool
	}{
		{input: "any", want: AnyAmount(), valid: true},
		{input: "ANY", want: AnyAmount(), valid: true},
		{input: " Any ", want: AnyAmount(), valid: true},
		{input: "0", want: NormalAmount(0), valid: true},
		{input: "1000", want: NormalAmount(1000), valid: true},
		{input: "0.5", want: MilliAmount(0, 5), valid: true},
		{input: "21.999", want: MilliAmount(21, 999), valid: true},
		{input: "", valid: false},
		{input: "abc", valid: false},
		{input: "-5", valid: false},
		{input: "1.", valid: false},
		{input: "1.x", valid: false},
		{input: "1.70000", valid: false},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			amount, err := ParseAmount(test.input)
			if !test.valid {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, amount)
		})
	}
}

func TestAmountString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "any", AnyAmount().String())
	require.Equal(t, "1000", NormalAmount(1000).String())
	require.Equal(t, "1.5", MilliAmount(1, 5).String())
}

func TestAtomicValue(t *testing.T) {
	t.Parallel()

	value, ok := NormalAmount(42).AtomicValue()
	require.True(t, ok)
	require.EqualValues(t, 42, value)

	_, ok = AnyAmount().AtomicValue()
	require.False(t, ok)
	_, ok = MilliAmount(1, 2).AtomicValue()
	require.False(t, ok)
}

func TestParseRecurrence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Recurrence
		valid bool
	}{
		{input: "non-recurrent", want: NonRecurrent(), valid: true},
		{input: "each 60 seconds", want: EverySeconds(60), valid: true},
		{input: "each 3 months", want: EveryMonths(3), valid: true},
		{input: "each 1 years", want: EveryYears(1), valid: true},
		{input: "each 300 months", valid: false},
		{input: "every 3 months", valid: false},
		{input: "each x months", valid: false},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			recurrence, err := ParseRecurrence(test.input)
			if !test.valid {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, recurrence)

			// Display and grammar agree.
			roundTrip, err := ParseRecurrence(recurrence.String())
			require.NoError(t, err)
			require.Equal(t, recurrence, roundTrip)
		})
	}
}

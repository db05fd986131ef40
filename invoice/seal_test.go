package invoice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testOutpointStr = "5a9f6f4cb3fc0e5b42eb397f2e68f0d63b1bd5ce7d4a0c4cf" +
	"0a4cc2760a35a29:1"

func TestParseOutPoint(t *testing.T) {
	t.Parallel()

	op, err := ParseOutPoint(testOutpointStr)
	require.NoError(t, err)
	require.EqualValues(t, 1, op.Index)
	require.Equal(t, testOutpointStr, op.String())

	_, err = ParseOutPoint("nonsense")
	require.ErrorIs(t, err, ErrInvalidSeal)
	_, err = ParseOutPoint("deadbeef:0")
	require.ErrorIs(t, err, ErrInvalidSeal)
	_, err = ParseOutPoint(testOutpointStr + ":2")
	require.ErrorIs(t, err, ErrInvalidSeal)
}

func TestRevealedSealRoundTrip(t *testing.T) {
	t.Parallel()

	op, err := ParseOutPoint(testOutpointStr)
	require.NoError(t, err)

	seal := RevealedSeal{OutPoint: op, Blinding: 0x1234567890abcdef}
	parsed, err := ParseRevealedSeal(seal.String())
	require.NoError(t, err)
	require.Equal(t, seal, parsed)

	_, err = ParseRevealedSeal(testOutpointStr)
	require.ErrorIs(t, err, ErrInvalidSeal)
}

func TestConcealDeterministic(t *testing.T) {
	t.Parallel()

	op, err := ParseOutPoint(testOutpointStr)
	require.NoError(t, err)

	sealA := RevealedSeal{OutPoint: op, Blinding: 1}
	sealB := RevealedSeal{OutPoint: op, Blinding: 2}

	require.Equal(t, sealA.Conceal(), sealA.Conceal())

	// Different blinding factors hide the same outpoint behind different
	// hashes.
	require.NotEqual(t, sealA.Conceal(), sealB.Conceal())
}

func TestConcealedSealTextForm(t *testing.T) {
	t.Parallel()

	seal := testSeal(t)
	text := seal.String()
	require.True(t, strings.HasPrefix(text, "utxob1"))

	parsed, err := ParseConcealedSeal(text)
	require.NoError(t, err)
	require.Equal(t, seal, parsed)

	parsed, err = ParseConcealedSeal(strings.ToUpper(text))
	require.NoError(t, err)
	require.Equal(t, seal, parsed)

	_, err = ParseConcealedSeal("rgb1qqqqqq")
	require.ErrorIs(t, err, ErrInvalidSeal)
}

func TestNewRevealedSealRandomizes(t *testing.T) {
	t.Parallel()

	op, err := ParseOutPoint(testOutpointStr)
	require.NoError(t, err)

	sealA, err := NewRevealedSeal(op)
	require.NoError(t, err)
	sealB, err := NewRevealedSeal(op)
	require.NoError(t, err)

	require.NotEqual(t, sealA.Blinding, sealB.Blinding)
}

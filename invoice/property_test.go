package invoice

import (
	"bytes"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/tlv"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lnp-bp/invoice/chains"
)

// TestBinaryRoundTripProperty generates random invoices and checks that the
// canonical binary encoding is stable across a decode/encode cycle.
func TestBinaryRoundTripProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		inv := New(&Address{Addr: testRustyAddr}, nil, nil)

		switch rapid.IntRange(0, 2).Draw(rt, "amountKind") {
		case 1:
			inv.SetAmount(NormalAmount(
				rapid.Uint64().Draw(rt, "amount"),
			))
		case 2:
			inv.SetAmount(MilliAmount(
				rapid.Uint64().Draw(rt, "integer"),
				rapid.Uint16().Draw(rt, "frac"),
			))
		}

		if rapid.Bool().Draw(rt, "hasAsset") {
			var asset chains.AssetID
			copy(asset[:], rapid.SliceOfN(
				rapid.Byte(), 32, 32,
			).Draw(rt, "asset"))
			inv.SetAsset(asset)
		}

		if rapid.Bool().Draw(rt, "hasExpiry") {
			inv.SetExpiry(time.Unix(rapid.Int64Range(
				0, 1<<40,
			).Draw(rt, "expiry"), 0))
		}

		switch rapid.IntRange(0, 3).Draw(rt, "recurrence") {
		case 1:
			inv.SetRecurrence(EverySeconds(
				rapid.Uint64().Draw(rt, "seconds"),
			))
		case 2:
			inv.SetRecurrence(EveryMonths(
				rapid.Uint8().Draw(rt, "months"),
			))
		case 3:
			inv.SetRecurrence(EveryYears(
				rapid.Uint8().Draw(rt, "years"),
			))
		}

		if merchant := rapid.StringN(0, 64, -1).Draw(
			rt, "merchant",
		); merchant != "" {
			inv.SetMerchant(merchant)
		}
		if purpose := rapid.StringN(0, 64, -1).Draw(
			rt, "purpose",
		); purpose != "" {
			inv.SetPurpose(purpose)
		}

		if rapid.Bool().Draw(rt, "hasQuantity") {
			inv.SetQuantity(Quantity{
				Min:     rapid.Uint32().Draw(rt, "min"),
				Max:     rapid.Uint32().Draw(rt, "max"),
				Default: rapid.Uint32().Draw(rt, "default"),
			})
		}

		if rapid.Bool().Draw(rt, "hasExtension") {
			err := inv.AddExtension(ExtensionField{
				Type: tlv.Type(rapid.Uint64Range(
					0x0c, 0xffff,
				).Draw(rt, "extType")),
				Value: rapid.SliceOfN(
					rapid.Byte(), 0, 64,
				).Draw(rt, "extValue"),
			})
			require.NoError(rt, err)
		}

		encoded := inv.MustEncode()
		decoded, err := DecodeBinary(bytes.NewReader(encoded))
		require.NoError(rt, err)
		require.Equal(rt, encoded, decoded.MustEncode())

		// The text form decodes to the same canonical bytes.
		text, err := inv.ToText()
		require.NoError(rt, err)
		parsed, err := ParseText(text)
		require.NoError(rt, err)
		require.Equal(rt, encoded, parsed.MustEncode())
	})
}

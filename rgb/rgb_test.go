package rgb

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/lnp-bp/invoice/chains"
	"github.com/lnp-bp/invoice/invoice"
)

var testAddr, _ = btcutil.DecodeAddress(
	"1RustyRX2oai4EYYDpQGWvEL62BBGqN9T", &chaincfg.MainNetParams,
)

var testContract = ContractID{
	0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04,
	0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c,
	0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14,
	0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c,
}

func TestContractIDTextForms(t *testing.T) {
	t.Parallel()

	text := testContract.String()
	require.True(t, strings.HasPrefix(text, "rgb1"))

	parsed, err := ParseContractID(text)
	require.NoError(t, err)
	require.Equal(t, testContract, parsed)

	parsed, err = ParseContractID(testContract.Hex())
	require.NoError(t, err)
	require.Equal(t, testContract, parsed)

	_, err = ParseContractID("utxob1qqqqqq")
	require.ErrorIs(t, err, ErrInvalidContractID)
	_, err = ParseContractID("deadbeef")
	require.ErrorIs(t, err, ErrInvalidContractID)
}

func TestFromAsset(t *testing.T) {
	t.Parallel()

	id, ok := FromAsset(testContract.AssetID())
	require.True(t, ok)
	require.Equal(t, testContract, id)

	// Native asset ids of registry chains never name a contract.
	for _, chain := range chains.Known() {
		_, ok := FromAsset(chain.NativeAsset())
		require.False(t, ok, chain.String())
	}
}

// TestInvoiceTruthTable walks the contract extraction table: no asset and
// native assets yield no contract, everything else does.
func TestInvoiceTruthTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		asset    *chains.AssetID
		contract bool
	}{{
		name:     "no explicit asset",
		asset:    nil,
		contract: false,
	}, {
		name: "native asset",
		asset: func() *chains.AssetID {
			id := chains.Mainnet.NativeAsset()
			return &id
		}(),
		contract: false,
	}, {
		name: "contract asset",
		asset: func() *chains.AssetID {
			id := testContract.AssetID()
			return &id
		}(),
		contract: true,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			inv := invoice.New(
				&invoice.Address{Addr: testAddr}, nil,
				test.asset,
			)

			id, ok := ContractFromInvoice(inv)
			require.Equal(t, test.contract, ok)

			if test.contract {
				require.Equal(t, testContract, id)

				got, err := Contract(inv)
				require.NoError(t, err)
				require.Equal(t, testContract, got)
				require.False(t, IsRGB(inv))
			} else {
				_, err := Contract(inv)
				require.ErrorIs(t, err, ErrNotRGB)
				require.True(t, IsRGB(inv))
			}
		})
	}
}

package chains

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func TestChainNames(t *testing.T) {
	t.Parallel()

	for _, chain := range []Chain{
		Mainnet, Testnet3, Regtest, Signet, LiquidV1,
	} {
		parsed, err := ParseChain(chain.String())
		require.NoError(t, err)
		require.Equal(t, chain, parsed)
	}

	// Aliases.
	parsed, err := ParseChain("bitcoin")
	require.NoError(t, err)
	require.Equal(t, Mainnet, parsed)
	parsed, err = ParseChain("testnet")
	require.NoError(t, err)
	require.Equal(t, Testnet3, parsed)

	_, err = ParseChain("dogecoin")
	require.ErrorIs(t, err, ErrUnknownChain)
}

func TestNativeAssetMatchesGenesis(t *testing.T) {
	t.Parallel()

	mainnet := Mainnet.NativeAsset()
	require.Equal(t, chaincfg.MainNetParams.GenesisHash[:], mainnet[:])

	testnet := Testnet3.NativeAsset()
	require.Equal(t, chaincfg.TestNet3Params.GenesisHash[:], testnet[:])

	// LiquidV1 has no chaincfg parameters but still a pinned genesis.
	require.NotEqual(t, AssetID{}, LiquidV1.NativeAsset())
}

// TestNativeAssetRegistry checks the membership of the classification
// registry: regtest is excluded, every other chain resolves back to itself.
func TestNativeAssetRegistry(t *testing.T) {
	t.Parallel()

	require.ElementsMatch(t,
		[]Chain{Mainnet, Signet, LiquidV1, Testnet3}, Known())

	for _, chain := range Known() {
		resolved, ok := NativeAssetChain(chain.NativeAsset())
		require.True(t, ok)
		require.Equal(t, chain, resolved)
	}

	_, ok := NativeAssetChain(Regtest.NativeAsset())
	require.False(t, ok)
	_, ok = NativeAssetChain(AssetID{0x01})
	require.False(t, ok)
}

func TestParams(t *testing.T) {
	t.Parallel()

	params, ok := Mainnet.Params()
	require.True(t, ok)
	require.Equal(t, &chaincfg.MainNetParams, params)

	_, ok = LiquidV1.Params()
	require.False(t, ok)

	chain, ok := BitcoinParams(&chaincfg.SigNetParams)
	require.True(t, ok)
	require.Equal(t, Signet, chain)
}

func TestAssetIDParsing(t *testing.T) {
	t.Parallel()

	id := Mainnet.NativeAsset()
	parsed, err := ParseAssetID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = ParseAssetID("deadbeef")
	require.Error(t, err)
	_, err = ParseAssetID("zz")
	require.Error(t, err)
}

// Package chains holds the small fixed registry of blockchains known to the
// universal invoice format, together with the native asset id of each chain.
// Native asset ids are derived from the genesis block hash of the chain, which
// makes them unique per chain by construction.
package chains

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// AssetIDSize is the length in bytes of an asset identifier.
const AssetIDSize = 32

// ErrUnknownChain is returned when a chain name or id does not match any
// chain known to the registry.
var ErrUnknownChain = errors.New("chain is not known to the registry")

// AssetID is a 32-byte asset identifier. For the native asset of a known
// chain this is the genesis block hash of that chain; any other value
// identifies a client-validated (contract) asset.
type AssetID [AssetIDSize]byte

// String returns the hexadecimal form of the asset id.
func (a AssetID) String() string {
	return hex.EncodeToString(a[:])
}

// NewAssetID constructs an AssetID from a byte slice. An error is returned if
// the slice is not exactly AssetIDSize bytes.
func NewAssetID(b []byte) (AssetID, error) {
	if len(b) != AssetIDSize {
		return AssetID{}, fmt.Errorf("invalid asset id length %v, "+
			"want %v", len(b), AssetIDSize)
	}

	var id AssetID
	copy(id[:], b)

	return id, nil
}

// ParseAssetID parses the hexadecimal form of an asset id.
func ParseAssetID(s string) (AssetID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return AssetID{}, fmt.Errorf("invalid asset id: %w", err)
	}

	return NewAssetID(b)
}

// Chain enumerates the networks known to the invoice format.
type Chain uint8

const (
	// Mainnet is the Bitcoin main network.
	Mainnet Chain = 0

	// Testnet3 is version 3 of the Bitcoin test network.
	Testnet3 Chain = 1

	// Regtest is the local Bitcoin regression test network.
	Regtest Chain = 2

	// Signet is the default Bitcoin signet network.
	Signet Chain = 3

	// LiquidV1 is the Liquid sidechain by Blockstream.
	LiquidV1 Chain = 4
)

// liquidV1Genesis is the genesis block hash of the Liquid v1 sidechain. The
// chain has no chaincfg parameters, so the hash is pinned here.
var liquidV1Genesis = mustHashFromStr(
	"1466275836220db2944ca059a3a10ef6fd2ea684b0688d2c379296888a206003",
)

// nativeAssetRegistry is the fixed set of chains whose native asset ids
// participate in asset classification. Note that Regtest is deliberately
// absent: a regtest genesis hash carries no cross-instance meaning.
var nativeAssetRegistry = []Chain{Mainnet, Signet, LiquidV1, Testnet3}

// String returns the lowercase name of the chain.
func (c Chain) String() string {
	switch c {
	case Mainnet:
		return "mainnet"
	case Testnet3:
		return "testnet3"
	case Regtest:
		return "regtest"
	case Signet:
		return "signet"
	case LiquidV1:
		return "liquidv1"
	default:
		return fmt.Sprintf("unknown<%d>", uint8(c))
	}
}

// ParseChain maps a chain name to its Chain value.
func ParseChain(s string) (Chain, error) {
	switch s {
	case "mainnet", "bitcoin":
		return Mainnet, nil
	case "testnet3", "testnet":
		return Testnet3, nil
	case "regtest":
		return Regtest, nil
	case "signet":
		return Signet, nil
	case "liquidv1", "liquid":
		return LiquidV1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChain, s)
	}
}

// Valid reports whether c is a member of the registry.
func (c Chain) Valid() bool {
	return c <= LiquidV1
}

// Params returns the chaincfg parameters of the chain, or false for chains
// that are not Bitcoin networks.
func (c Chain) Params() (*chaincfg.Params, bool) {
	switch c {
	case Mainnet:
		return &chaincfg.MainNetParams, true
	case Testnet3:
		return &chaincfg.TestNet3Params, true
	case Regtest:
		return &chaincfg.RegressionNetParams, true
	case Signet:
		return &chaincfg.SigNetParams, true
	default:
		return nil, false
	}
}

// NativeAsset returns the native asset id of the chain.
func (c Chain) NativeAsset() AssetID {
	var genesis *chainhash.Hash
	switch c {
	case LiquidV1:
		genesis = liquidV1Genesis
	default:
		params, ok := c.Params()
		if !ok {
			// All registry members either have chaincfg params or
			// a pinned genesis hash above.
			panic(fmt.Sprintf("no genesis hash for chain %v", c))
		}
		genesis = params.GenesisHash
	}

	var id AssetID
	copy(id[:], genesis[:])

	return id
}

// Known returns the chains whose native asset ids participate in asset
// classification, in registry order.
func Known() []Chain {
	registry := make([]Chain, len(nativeAssetRegistry))
	copy(registry, nativeAssetRegistry)

	return registry
}

// NativeAssetChain reports which registry chain, if any, has the given id as
// its native asset.
func NativeAssetChain(id AssetID) (Chain, bool) {
	for _, chain := range nativeAssetRegistry {
		if chain.NativeAsset() == id {
			return chain, true
		}
	}

	return 0, false
}

// BitcoinParams maps chaincfg parameters back to the registry chain using
// them. It is the inverse of Params for Bitcoin networks.
func BitcoinParams(params *chaincfg.Params) (Chain, bool) {
	for _, chain := range []Chain{Mainnet, Testnet3, Regtest, Signet} {
		p, _ := chain.Params()
		if p.Net == params.Net {
			return chain, true
		}
	}

	return 0, false
}

func mustHashFromStr(s string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}

	return hash
}

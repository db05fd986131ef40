// Package invoice implements the universal payment-request record: a
// self-describing value naming a beneficiary, an amount and optional payment
// metadata, together with its canonical binary encoding, a bech32 text
// encoding for human transcription, and a detachable signature over the
// canonical content.
package invoice

import (
	"iter"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lnp-bp/invoice/chains"
)

// Version is the only encoding format version currently defined.
const Version uint8 = 0

// Signature is a detached attestation over the canonical encoding of an
// invoice with the signature field cleared.
type Signature struct {
	// PubKey is the key the signature verifies under.
	PubKey *btcec.PublicKey

	// Sig is a BIP-340 schnorr signature over SignatureHash.
	Sig *schnorr.Signature
}

// Invoice is the aggregate payment-request record. Fields are unexported
// since every change to signed content must clear the signature; use the
// mutators, which enforce that invariant and report whether a change
// happened.
//
// An Invoice is a plain in-memory value: no operation blocks or does I/O,
// and nothing is shared between invoices. Callers mutating a single invoice
// from several goroutines must serialize those mutations themselves.
type Invoice struct {
	version     uint8
	amount      Amount
	beneficiary Beneficiary
	altBenefs   []Beneficiary
	asset       *chains.AssetID
	expiry      *time.Time
	recurrence  Recurrence
	quantity    *Quantity
	currencyReq *CurrencyRequirement
	merchant    string
	purpose     string
	details     *Details
	signature   *Signature
	endpoints   []Endpoint
	network     *chains.Chain
	extensions  ExtensionFields
}

// New builds a version-0 invoice with the given primary beneficiary. A nil
// amount means any amount is accepted; a nil asset implies the native asset
// of the default chain.
func New(beneficiary Beneficiary, amount *uint64,
	asset *chains.AssetID) *Invoice {

	inv := &Invoice{
		version:     Version,
		amount:      AnyAmount(),
		beneficiary: beneficiary,
	}
	if amount != nil {
		inv.amount = NormalAmount(*amount)
	}
	if asset != nil {
		id := *asset
		inv.asset = &id
	}

	return inv
}

// WithAddress builds an invoice paying to an on-chain address. The asset is
// derived from the address network: mainnet addresses leave it implicit,
// any other network pins its native asset explicitly.
func WithAddress(addr btcutil.Address, amount *uint64) *Invoice {
	var asset *chains.AssetID
	mainnet, _ := chains.Mainnet.Params()
	if !addr.IsForNet(mainnet) {
		for _, chain := range []chains.Chain{
			chains.Testnet3, chains.Signet, chains.Regtest,
		} {
			params, _ := chain.Params()
			if addr.IsForNet(params) {
				id := chain.NativeAsset()
				asset = &id
				break
			}
		}
	}

	return New(&Address{Addr: addr}, amount, asset)
}

// WithDescriptor builds an invoice paying to a descriptor template on the
// given chain. As in WithAddress, the default chain keeps the asset
// implicit.
func WithDescriptor(template string, amount *uint64,
	chain chains.Chain) *Invoice {

	var asset *chains.AssetID
	if chain != chains.Mainnet {
		id := chain.NativeAsset()
		asset = &id
	}

	return New(&Descriptor{Template: template}, amount, asset)
}

// Version returns the encoding format version of the invoice.
func (inv *Invoice) Version() uint8 {
	return inv.version
}

// Amount returns the requested amount, a price per item when a quantity is
// set.
func (inv *Invoice) Amount() Amount {
	return inv.amount
}

// Beneficiary returns the primary beneficiary. Keeping the primary in a
// standalone field guarantees every invoice has at least one beneficiary.
func (inv *Invoice) Beneficiary() Beneficiary {
	return inv.beneficiary
}

// AltBeneficiaries returns a copy of the alternate beneficiaries, most
// desirable first.
func (inv *Invoice) AltBeneficiaries() []Beneficiary {
	alts := make([]Beneficiary, len(inv.altBenefs))
	copy(alts, inv.altBenefs)

	return alts
}

// Beneficiaries returns a restartable sequence over all beneficiaries: the
// primary first, then each alternate in stored order. Ranging over the
// sequence does not mutate the invoice, and ranging again starts over.
func (inv *Invoice) Beneficiaries() iter.Seq[Beneficiary] {
	return func(yield func(Beneficiary) bool) {
		if !yield(inv.beneficiary) {
			return
		}
		for _, alt := range inv.altBenefs {
			if !yield(alt) {
				return
			}
		}
	}
}

// Asset returns the explicit asset id of the invoice. When absent, the
// native asset of the default chain is implied.
func (inv *Invoice) Asset() (chains.AssetID, bool) {
	if inv.asset == nil {
		return chains.AssetID{}, false
	}

	return *inv.asset, true
}

// Expiry returns the absolute expiry of the invoice. Absent means the
// invoice never expires.
func (inv *Invoice) Expiry() (time.Time, bool) {
	if inv.expiry == nil {
		return time.Time{}, false
	}

	return *inv.expiry, true
}

// Recurrence returns the repeat interval of the invoice.
func (inv *Invoice) Recurrence() Recurrence {
	return inv.recurrence
}

// Quantity returns the item quantity constraints. Absent means single-item
// semantics.
func (inv *Invoice) Quantity() (Quantity, bool) {
	if inv.quantity == nil {
		return Quantity{}, false
	}

	return *inv.quantity, true
}

// CurrencyRequirement returns the fiat floor-price gate, if any.
func (inv *Invoice) CurrencyRequirement() (CurrencyRequirement, bool) {
	if inv.currencyReq == nil {
		return CurrencyRequirement{}, false
	}

	return *inv.currencyReq, true
}

// Merchant returns the merchant name, if set.
func (inv *Invoice) Merchant() (string, bool) {
	return inv.merchant, inv.merchant != ""
}

// Purpose returns the payment purpose, if set.
func (inv *Invoice) Purpose() (string, bool) {
	return inv.purpose, inv.purpose != ""
}

// Details returns the document commitment, if set.
func (inv *Invoice) Details() (Details, bool) {
	if inv.details == nil {
		return Details{}, false
	}

	return *inv.details, true
}

// Signature returns the detached signature, if one is attached.
func (inv *Invoice) Signature() (Signature, bool) {
	if inv.signature == nil {
		return Signature{}, false
	}

	return *inv.signature, true
}

// ConsignmentEndpoints returns a copy of the consignment delivery endpoints.
func (inv *Invoice) ConsignmentEndpoints() []Endpoint {
	endpoints := make([]Endpoint, len(inv.endpoints))
	copy(endpoints, inv.endpoints)

	return endpoints
}

// Network returns the chain the invoice expects to be paid on, if declared.
func (inv *Invoice) Network() (chains.Chain, bool) {
	if inv.network == nil {
		return 0, false
	}

	return *inv.network, true
}

// Extensions returns a copy of the retained unrecognized records.
func (inv *Invoice) Extensions() ExtensionFields {
	return inv.extensions.copy()
}

// SetBeneficiary replaces the primary beneficiary.
func (inv *Invoice) SetBeneficiary(b Beneficiary) bool {
	if beneficiaryEqual(inv.beneficiary, b) {
		return false
	}
	inv.beneficiary = b
	inv.signature = nil

	return true
}

// AddAltBeneficiary appends an alternate beneficiary. Adding a beneficiary
// already on the list is a no-op.
func (inv *Invoice) AddAltBeneficiary(b Beneficiary) bool {
	for _, alt := range inv.altBenefs {
		if beneficiaryEqual(alt, b) {
			return false
		}
	}
	inv.altBenefs = append(inv.altBenefs, b)
	inv.signature = nil

	return true
}

// SetAmount replaces the requested amount.
func (inv *Invoice) SetAmount(amount Amount) bool {
	if inv.amount == amount {
		return false
	}
	inv.amount = amount
	inv.signature = nil

	return true
}

// SetAsset pins an explicit asset id.
func (inv *Invoice) SetAsset(asset chains.AssetID) bool {
	if inv.asset != nil && *inv.asset == asset {
		return false
	}
	inv.asset = &asset
	inv.signature = nil

	return true
}

// RemoveAsset clears the explicit asset id, reverting to the implied native
// asset of the default chain.
func (inv *Invoice) RemoveAsset() bool {
	if inv.asset == nil {
		return false
	}
	inv.asset = nil
	inv.signature = nil

	return true
}

// SetRecurrence replaces the repeat interval.
func (inv *Invoice) SetRecurrence(r Recurrence) bool {
	if inv.recurrence == r {
		return false
	}
	inv.recurrence = r
	inv.signature = nil

	return true
}

// SetExpiry sets an absolute expiry, truncated to whole seconds in UTC to
// match the wire resolution.
func (inv *Invoice) SetExpiry(expiry time.Time) bool {
	normalized := expiry.UTC().Truncate(time.Second)
	if inv.expiry != nil && inv.expiry.Equal(normalized) {
		return false
	}
	inv.expiry = &normalized
	inv.signature = nil

	return true
}

// SetNoExpiry clears the expiry, making the invoice valid forever.
func (inv *Invoice) SetNoExpiry() bool {
	if inv.expiry == nil {
		return false
	}
	inv.expiry = nil
	inv.signature = nil

	return true
}

// SetQuantity replaces the item quantity constraints.
func (inv *Invoice) SetQuantity(q Quantity) bool {
	if inv.quantity != nil && *inv.quantity == q {
		return false
	}
	inv.quantity = &q
	inv.signature = nil

	return true
}

// RemoveQuantity clears the quantity, reverting to single-item semantics.
func (inv *Invoice) RemoveQuantity() bool {
	if inv.quantity == nil {
		return false
	}
	inv.quantity = nil
	inv.signature = nil

	return true
}

// SetCurrencyRequirement replaces the fiat floor-price gate.
func (inv *Invoice) SetCurrencyRequirement(c CurrencyRequirement) bool {
	if inv.currencyReq != nil && *inv.currencyReq == c {
		return false
	}
	inv.currencyReq = &c
	inv.signature = nil

	return true
}

// RemoveCurrencyRequirement clears the fiat floor-price gate.
func (inv *Invoice) RemoveCurrencyRequirement() bool {
	if inv.currencyReq == nil {
		return false
	}
	inv.currencyReq = nil
	inv.signature = nil

	return true
}

// SetMerchant replaces the merchant name. The empty string is normalized to
// absent.
func (inv *Invoice) SetMerchant(merchant string) bool {
	if inv.merchant == merchant {
		return false
	}
	inv.merchant = merchant
	inv.signature = nil

	return true
}

// RemoveMerchant clears the merchant name.
func (inv *Invoice) RemoveMerchant() bool {
	return inv.SetMerchant("")
}

// SetPurpose replaces the payment purpose. The empty string is normalized to
// absent.
func (inv *Invoice) SetPurpose(purpose string) bool {
	if inv.purpose == purpose {
		return false
	}
	inv.purpose = purpose
	inv.signature = nil

	return true
}

// RemovePurpose clears the payment purpose.
func (inv *Invoice) RemovePurpose() bool {
	return inv.SetPurpose("")
}

// SetDetails replaces the document commitment.
func (inv *Invoice) SetDetails(details Details) bool {
	if inv.details != nil && *inv.details == details {
		return false
	}
	inv.details = &details
	inv.signature = nil

	return true
}

// RemoveDetails clears the document commitment.
func (inv *Invoice) RemoveDetails() bool {
	if inv.details == nil {
		return false
	}
	inv.details = nil
	inv.signature = nil

	return true
}

// AddConsignmentEndpoint appends a consignment delivery endpoint, deduping
// against the existing list.
//
// NOTE: endpoints are part of the canonically encoded content, yet this
// mutator historically does not clear an attached signature. Kept as is
// pending product clarification.
func (inv *Invoice) AddConsignmentEndpoint(e Endpoint) bool {
	for _, existing := range inv.endpoints {
		if existing == e {
			return false
		}
	}
	inv.endpoints = append(inv.endpoints, e)

	return true
}

// SetNetwork declares the chain the invoice expects to be paid on.
//
// NOTE: like AddConsignmentEndpoint, this mutator historically does not
// clear an attached signature even though the network participates in the
// signed content. Kept as is pending product clarification.
func (inv *Invoice) SetNetwork(network chains.Chain) bool {
	if inv.network != nil && *inv.network == network {
		return false
	}
	inv.network = &network

	return true
}

// AddExtension retains an unrecognized tagged record so that it survives
// re-encoding. Tags of the recognized registry are rejected.
func (inv *Invoice) AddExtension(field ExtensionField) error {
	ext, err := inv.extensions.add(field)
	if err != nil {
		return err
	}
	inv.extensions = ext
	inv.signature = nil

	return nil
}

// SignatureHash returns the double-SHA256 digest of the canonical encoding
// of the invoice with the signature field cleared. External signers and
// verifiers operate on this digest.
func (inv *Invoice) SignatureHash() chainhash.Hash {
	unsigned := *inv
	unsigned.signature = nil

	return chainhash.DoubleHashH(unsigned.MustEncode())
}

// SetSignature attaches a signature produced over SignatureHash. Unlike the
// field mutators it manages the signature itself and never clears it.
func (inv *Invoice) SetSignature(pubKey *btcec.PublicKey,
	sig *schnorr.Signature) {

	inv.signature = &Signature{PubKey: pubKey, Sig: sig}
}

// RemoveSignature detaches the signature.
func (inv *Invoice) RemoveSignature() {
	inv.signature = nil
}

// AssetClass is the result of classifying the invoice asset against a target
// chain.
type AssetClass uint8

const (
	// ClassNative means the invoice pays in the native asset of the
	// target chain.
	ClassNative AssetClass = 0

	// ClassInvalidOnChain means the invoice cannot be paid on the target
	// chain: either it implies a native asset of a different chain, or
	// it names no asset outside the default chain.
	ClassInvalidOnChain AssetClass = 1

	// ClassNonNativeAsset means the invoice pays in a client-validated
	// contract asset living outside any chain's native unit.
	ClassNonNativeAsset AssetClass = 2
)

// AssetClassification couples an AssetClass with the contract asset id for
// ClassNonNativeAsset results.
type AssetClassification struct {
	// Class is the classification outcome.
	Class AssetClass

	// Asset is the contract asset id, set only for ClassNonNativeAsset.
	Asset chains.AssetID
}

// ClassifyAsset classifies the invoice asset against the target chain, per
// the fixed native-asset registry. Native-asset ids are unique per chain, so
// the order of registry checks cannot change the result.
func (inv *Invoice) ClassifyAsset(
	target chains.Chain) AssetClassification {

	if inv.asset == nil {
		if target == chains.Mainnet {
			return AssetClassification{Class: ClassNative}
		}
		return AssetClassification{Class: ClassInvalidOnChain}
	}

	asset := *inv.asset
	if asset == target.NativeAsset() {
		return AssetClassification{Class: ClassNative}
	}
	if _, ok := chains.NativeAssetChain(asset); ok {
		return AssetClassification{Class: ClassInvalidOnChain}
	}

	return AssetClassification{
		Class: ClassNonNativeAsset,
		Asset: asset,
	}
}

// String returns the canonical text encoding of the invoice. A constructed
// invoice always encodes; failure to do so is an internal invariant break
// and panics.
func (inv *Invoice) String() string {
	text, err := inv.ToText()
	if err != nil {
		panic("invoice data are inconsistent for canonical " +
			"encoding: " + err.Error())
	}

	return text
}

// Compare orders two invoices by lexicographic comparison of their canonical
// text encodings. This yields a cheap, stable total order for sorting and
// deduplication; it deliberately does not order by semantic amount or date.
func (inv *Invoice) Compare(other *Invoice) int {
	return strings.Compare(inv.String(), other.String())
}

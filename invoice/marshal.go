package invoice

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/tlv"
	"github.com/lnp-bp/invoice/chains"
	"gopkg.in/yaml.v3"
)

// rawBeneficiaryPrefix marks beneficiary variants that have no one-line text
// grammar; the rest of the string is the hex of the binary payload.
const rawBeneficiaryPrefix = "raw:"

// invoiceView is the structured document form of an invoice shared by the
// JSON and YAML codecs.
type invoiceView struct {
	Version              uint8            `json:"version" yaml:"version"`
	Amount               string           `json:"amount" yaml:"amount"`
	Beneficiary          string           `json:"beneficiary" yaml:"beneficiary"`
	AltBeneficiaries     []string         `json:"altBeneficiaries,omitempty" yaml:"altBeneficiaries,omitempty"`
	Asset                string           `json:"asset,omitempty" yaml:"asset,omitempty"`
	Expiry               string           `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	Recurrence           string           `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`
	Quantity             *quantityView    `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	CurrencyRequirement  *currencyView    `json:"currencyRequirement,omitempty" yaml:"currencyRequirement,omitempty"`
	Merchant             string           `json:"merchant,omitempty" yaml:"merchant,omitempty"`
	Purpose              string           `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	Details              *detailsView     `json:"details,omitempty" yaml:"details,omitempty"`
	Signature            *signatureView   `json:"signature,omitempty" yaml:"signature,omitempty"`
	ConsignmentEndpoints []string         `json:"consignmentEndpoints,omitempty" yaml:"consignmentEndpoints,omitempty"`
	Network              string           `json:"network,omitempty" yaml:"network,omitempty"`
	Extensions           []extensionView  `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

type quantityView struct {
	Min     uint32 `json:"min" yaml:"min"`
	Max     uint32 `json:"max" yaml:"max"`
	Default uint32 `json:"default" yaml:"default"`
}

type currencyView struct {
	Currency      string `json:"currency" yaml:"currency"`
	Coins         uint32 `json:"coins" yaml:"coins"`
	Fractions     uint8  `json:"fractions" yaml:"fractions"`
	PriceProvider string `json:"priceProvider" yaml:"priceProvider"`
}

type detailsView struct {
	Commitment string `json:"commitment" yaml:"commitment"`
	Source     string `json:"source" yaml:"source"`
}

type signatureView struct {
	PubKey    string `json:"pubKey" yaml:"pubKey"`
	Signature string `json:"signature" yaml:"signature"`
}

type extensionView struct {
	Type  uint64 `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// view builds the document form of the invoice.
func (inv *Invoice) view() (*invoiceView, error) {
	beneficiary, err := beneficiaryText(inv.beneficiary)
	if err != nil {
		return nil, err
	}

	v := &invoiceView{
		Version:     inv.version,
		Amount:      inv.amount.String(),
		Beneficiary: beneficiary,
		Merchant:    inv.merchant,
		Purpose:     inv.purpose,
	}

	for _, alt := range inv.altBenefs {
		text, err := beneficiaryText(alt)
		if err != nil {
			return nil, err
		}
		v.AltBeneficiaries = append(v.AltBeneficiaries, text)
	}

	if inv.asset != nil {
		v.Asset = inv.asset.String()
	}
	if inv.expiry != nil {
		v.Expiry = inv.expiry.Format(time.RFC3339)
	}
	if inv.recurrence.Kind != RecurNone {
		v.Recurrence = inv.recurrence.String()
	}
	if inv.quantity != nil {
		v.Quantity = &quantityView{
			Min:     inv.quantity.Min,
			Max:     inv.quantity.Max,
			Default: inv.quantity.Default,
		}
	}
	if inv.currencyReq != nil {
		v.CurrencyRequirement = &currencyView{
			Currency:      inv.currencyReq.Currency.String(),
			Coins:         inv.currencyReq.Coins,
			Fractions:     inv.currencyReq.Fractions,
			PriceProvider: inv.currencyReq.PriceProvider,
		}
	}
	if inv.details != nil {
		v.Details = &detailsView{
			Commitment: inv.details.Commitment.String(),
			Source:     inv.details.Source,
		}
	}
	if inv.signature != nil {
		v.Signature = &signatureView{
			PubKey: hex.EncodeToString(
				inv.signature.PubKey.SerializeCompressed(),
			),
			Signature: hex.EncodeToString(
				inv.signature.Sig.Serialize(),
			),
		}
	}
	for _, endpoint := range inv.endpoints {
		v.ConsignmentEndpoints = append(
			v.ConsignmentEndpoints, endpoint.String(),
		)
	}
	if inv.network != nil {
		v.Network = inv.network.String()
	}
	for _, ext := range inv.extensions {
		v.Extensions = append(v.Extensions, extensionView{
			Type:  uint64(ext.Type),
			Value: hex.EncodeToString(ext.Value),
		})
	}

	return v, nil
}

// fromView rebuilds the invoice from its document form.
func (inv *Invoice) fromView(v *invoiceView) error {
	if v.Version != Version {
		return fmt.Errorf("unsupported invoice version %d", v.Version)
	}

	amount, err := ParseAmount(v.Amount)
	if err != nil {
		return err
	}

	beneficiary, err := parseBeneficiaryText(v.Beneficiary)
	if err != nil {
		return err
	}

	*inv = Invoice{
		version:     v.Version,
		amount:      amount,
		beneficiary: beneficiary,
		merchant:    v.Merchant,
		purpose:     v.Purpose,
	}

	for _, text := range v.AltBeneficiaries {
		alt, err := parseBeneficiaryText(text)
		if err != nil {
			return err
		}
		inv.altBenefs = append(inv.altBenefs, alt)
	}

	if v.Asset != "" {
		asset, err := chains.ParseAssetID(v.Asset)
		if err != nil {
			return err
		}
		inv.asset = &asset
	}
	if v.Expiry != "" {
		expiry, err := time.Parse(time.RFC3339, v.Expiry)
		if err != nil {
			return err
		}
		expiry = expiry.UTC()
		inv.expiry = &expiry
	}
	if v.Recurrence != "" {
		recurrence, err := ParseRecurrence(v.Recurrence)
		if err != nil {
			return err
		}
		inv.recurrence = recurrence
	}
	if v.Quantity != nil {
		inv.quantity = &Quantity{
			Min:     v.Quantity.Min,
			Max:     v.Quantity.Max,
			Default: v.Quantity.Default,
		}
	}
	if v.CurrencyRequirement != nil {
		currency, err := ParseCurrencyCode(
			v.CurrencyRequirement.Currency,
		)
		if err != nil {
			return err
		}
		inv.currencyReq = &CurrencyRequirement{
			Currency:      currency,
			Coins:         v.CurrencyRequirement.Coins,
			Fractions:     v.CurrencyRequirement.Fractions,
			PriceProvider: v.CurrencyRequirement.PriceProvider,
		}
	}
	if v.Details != nil {
		commitment, err := chainhash.NewHashFromStr(
			v.Details.Commitment,
		)
		if err != nil {
			return err
		}
		inv.details = &Details{
			Commitment: *commitment,
			Source:     v.Details.Source,
		}
	}
	if v.Signature != nil {
		rawKey, err := hex.DecodeString(v.Signature.PubKey)
		if err != nil {
			return err
		}
		pubKey, err := btcec.ParsePubKey(rawKey)
		if err != nil {
			return err
		}
		rawSig, err := hex.DecodeString(v.Signature.Signature)
		if err != nil {
			return err
		}
		sig, err := schnorr.ParseSignature(rawSig)
		if err != nil {
			return err
		}
		inv.signature = &Signature{PubKey: pubKey, Sig: sig}
	}
	for _, text := range v.ConsignmentEndpoints {
		endpoint, err := ParseEndpoint(text)
		if err != nil {
			return err
		}
		inv.endpoints = append(inv.endpoints, endpoint)
	}
	if v.Network != "" {
		network, err := chains.ParseChain(v.Network)
		if err != nil {
			return err
		}
		inv.network = &network
	}
	for _, ext := range v.Extensions {
		value, err := hex.DecodeString(ext.Value)
		if err != nil {
			return err
		}
		inv.extensions, err = inv.extensions.add(ExtensionField{
			Type:  tlv.Type(ext.Type),
			Value: value,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// MarshalJSON encodes the invoice as a structured JSON document.
func (inv *Invoice) MarshalJSON() ([]byte, error) {
	v, err := inv.view()
	if err != nil {
		return nil, err
	}

	return json.Marshal(v)
}

// UnmarshalJSON decodes the structured JSON document form of an invoice.
func (inv *Invoice) UnmarshalJSON(data []byte) error {
	var v invoiceView
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	return inv.fromView(&v)
}

// MarshalYAML encodes the invoice as a structured YAML document.
func (inv *Invoice) MarshalYAML() (interface{}, error) {
	return inv.view()
}

// UnmarshalYAML decodes the structured YAML document form of an invoice.
func (inv *Invoice) UnmarshalYAML(node *yaml.Node) error {
	var v invoiceView
	if err := node.Decode(&v); err != nil {
		return err
	}

	return inv.fromView(&v)
}

// beneficiaryText renders a beneficiary for the document form: the text
// grammar when one exists, otherwise the hex of the binary payload behind
// the raw prefix.
func beneficiaryText(b Beneficiary) (string, error) {
	switch b.(type) {
	case *Address, *BlindUTXO, *Descriptor:
		return b.String(), nil
	}

	payload, err := marshalBeneficiary(b)
	if err != nil {
		return "", err
	}

	return rawBeneficiaryPrefix + hex.EncodeToString(payload), nil
}

// parseBeneficiaryText is the inverse of beneficiaryText.
func parseBeneficiaryText(s string) (Beneficiary, error) {
	if raw, ok := strings.CutPrefix(s, rawBeneficiaryPrefix); ok {
		payload, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v",
				ErrInvalidBeneficiary, err)
		}

		return unmarshalBeneficiary(payload)
	}

	return ParseBeneficiary(s)
}

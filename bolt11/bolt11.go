// Package bolt11 converts universal invoices into BOLT11 lightning payment
// requests. Only invoices paying to a lightning node can be converted; the
// metadata of the enclosing universal invoice is mapped onto the matching
// BOLT11 tagged fields.
package bolt11

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lnp-bp/invoice/chains"
	"github.com/lnp-bp/invoice/invoice"
)

// DefaultMinFinalCLTVExpiry is the final hop timelock delta used when the
// universal invoice does not carry one, per BOLT11.
const DefaultMinFinalCLTVExpiry = 18

var (
	// ErrUnsupportedBeneficiary is returned when the invoice beneficiary
	// is not a lightning node.
	ErrUnsupportedBeneficiary = errors.New(
		"invoice beneficiary is not compatible",
	)

	// ErrUnsupportedChain is returned when the target chain has no
	// lightning network.
	ErrUnsupportedChain = errors.New("invoice chain is not compatible")

	// ErrMissingPaymentHash is returned when the beneficiary carries no
	// payment hash.
	ErrMissingPaymentHash = errors.New(
		"invoice cannot miss the payment hash field",
	)

	// ErrInvoiceTooLarge is returned when the encoded payment request
	// exceeds the BOLT11 length limit.
	ErrInvoiceTooLarge = errors.New("encoded invoice is too large")
)

// MessageSigner signs the payment request digest with the private key of the
// destination node, producing a compact signature with a recovery ID header
// byte.
type MessageSigner struct {
	// SignCompact signs the passed message.
	SignCompact func(msg []byte) ([]byte, error)
}

// Invoice is a BOLT11 payment request ready for encoding.
type Invoice struct {
	// Net selects the chain parameters determining the encoding prefix.
	Net *chaincfg.Params

	// MilliSat is the payment amount. Nil leaves the amount open.
	MilliSat *lnwire.MilliSatoshi

	// Timestamp is the creation time of the payment request.
	Timestamp time.Time

	// PaymentHash locks the payment.
	PaymentHash [32]byte

	// PaymentAddr authenticates the payer.
	PaymentAddr [32]byte

	// Destination is the public key of the receiving node.
	Destination *btcec.PublicKey

	// Description is the free-form payment description.
	Description string

	// Expiry is the validity window counted from Timestamp. Nil applies
	// the BOLT11 default of one hour.
	Expiry *time.Duration

	// MinFinalCLTVExpiry is the timelock delta of the final hop.
	MinFinalCLTVExpiry uint64

	// RouteHints are the partial routes towards the destination, one
	// tagged field each.
	RouteHints [][]invoice.HopHint

	// Features are the feature bits required for the payment.
	Features *lnwire.RawFeatureVector
}

// FromUniversal maps a universal invoice paying to a lightning node onto a
// BOLT11 payment request for the target chain. The creation timestamp is set
// to the current time; an absolute expiry of the universal invoice becomes a
// validity window relative to it. A missing payment secret is replaced by a
// random one so that the result is always payable.
func FromUniversal(inv *invoice.Invoice,
	target chains.Chain) (*Invoice, error) {

	node, ok := inv.Beneficiary().(*invoice.LightningNode)
	if !ok {
		return nil, ErrUnsupportedBeneficiary
	}

	params, ok := target.Params()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedChain, target)
	}

	if node.PaymentHash == [32]byte{} {
		return nil, ErrMissingPaymentHash
	}

	result := &Invoice{
		Net:                params,
		Timestamp:          time.Now().UTC().Truncate(time.Second),
		PaymentHash:        node.PaymentHash,
		Destination:        node.NodeID,
		MinFinalCLTVExpiry: DefaultMinFinalCLTVExpiry,
		Features:           node.Features,
	}
	if result.Features == nil {
		result.Features = lnwire.NewRawFeatureVector()
	}

	if msat, ok := inv.Amount().AtomicValue(); ok {
		amount := lnwire.MilliSatoshi(msat)
		result.MilliSat = &amount
	}

	if purpose, ok := inv.Purpose(); ok {
		result.Description = purpose
	}

	if expiry, ok := inv.Expiry(); ok {
		window := expiry.Sub(result.Timestamp)
		if window <= 0 {
			window = time.Second
		}
		result.Expiry = &window
	}

	if node.MinFinalCLTVExpiry != nil {
		result.MinFinalCLTVExpiry = uint64(*node.MinFinalCLTVExpiry)
	}

	if node.PaymentSecret != nil {
		result.PaymentAddr = *node.PaymentSecret
	} else {
		if _, err := rand.Read(result.PaymentAddr[:]); err != nil {
			return nil, err
		}
	}

	for _, hint := range node.RouteHints {
		result.RouteHints = append(
			result.RouteHints, []invoice.HopHint{hint},
		)
	}

	return result, nil
}

package invoice

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lnp-bp/invoice/chains"
)

// Beneficiary variant discriminants used by the binary encoding. Any
// discriminant outside this set decodes into an Unknown beneficiary and is
// re-encoded unchanged.
const (
	beneficiaryAddress       byte = 0
	beneficiaryBlindUTXO     byte = 1
	beneficiaryDescriptor    byte = 2
	beneficiaryPsbt          byte = 3
	beneficiaryLightningNode byte = 4
)

// hopHintLen is the number of bytes of an encoded route hint hop, matching
// the BOLT11 hop hint layout.
const hopHintLen = 51

// ErrInvalidBeneficiary is returned when a string matches none of the
// beneficiary text grammars.
var ErrInvalidBeneficiary = errors.New("incorrect beneficiary format")

// Beneficiary is the payment destination of an invoice. It is a closed union
// of destination variants plus an Unknown fallback for variants defined by
// future format versions. Values are immutable once constructed; invoice
// mutators replace them wholesale.
type Beneficiary interface {
	fmt.Stringer

	// isBeneficiary seals the union.
	isBeneficiary()
}

// Address pays to an on-chain address. Addresses are useful when the
// beneficiary does not want to leak public key information.
type Address struct {
	// Addr is the decoded on-chain address.
	Addr btcutil.Address
}

func (a *Address) isBeneficiary() {}

// String returns the standard text encoding of the address.
func (a *Address) String() string {
	return a.Addr.EncodeAddress()
}

// BlindUTXO pays to an existing transaction output concealed behind a salted
// hash. Used by protocols that assign client-validated data to UTXOs.
type BlindUTXO struct {
	// Seal is the concealed outpoint.
	Seal ConcealedSeal
}

func (b *BlindUTXO) isBeneficiary() {}

// String returns the bech32 form of the concealed seal.
func (b *BlindUTXO) String() string {
	return b.Seal.String()
}

// Descriptor pays to an output descriptor template, allowing the payer to
// derive fresh payment outputs.
type Descriptor struct {
	// Template is the descriptor string, e.g. "wpkh([fp/84h/0h/0h]xpub/0/*)".
	Template string
}

func (d *Descriptor) isBeneficiary() {}

// String returns the descriptor template.
func (d *Descriptor) String() string {
	return d.Template
}

// PsbtTemplate pays into a full transaction skeleton in PSBT form.
type PsbtTemplate struct {
	// Packet is the partially signed transaction template.
	Packet *psbt.Packet
}

func (p *PsbtTemplate) isBeneficiary() {}

// String returns a fixed marker, since a PSBT has no single-line text form.
func (p *PsbtTemplate) String() string {
	return "PSBT"
}

// HopHint is a partial route towards a lightning node, equal to one hop of
// the "r" tagged field of a BOLT11 invoice.
type HopHint struct {
	// NodeID is the public key of the node at the start of the channel.
	NodeID *btcec.PublicKey

	// ChannelID is the unique identifier of the channel.
	ChannelID uint64

	// FeeBaseMSat is the base fee of the channel in millisatoshis.
	FeeBaseMSat uint32

	// FeeProportionalMillionths is the fee rate in millionths of the
	// transferred amount.
	FeeProportionalMillionths uint32

	// CLTVExpiryDelta is the timelock delta of the channel.
	CLTVExpiryDelta uint16
}

// LightningNode pays to a lightning network node. Unlike a BOLT11 invoice
// most payment metadata lives in the enclosing Invoice; this variant keeps
// only the routing material.
type LightningNode struct {
	// NodeID is the public key of the receiving node.
	NodeID *btcec.PublicKey

	// Features are the feature bits the node requires for the payment.
	Features *lnwire.RawFeatureVector

	// PaymentHash locks the payment until the preimage is revealed. When
	// PTLC payments arrive the same field will be reused with a feature
	// flag signalling the change.
	PaymentHash [32]byte

	// PaymentSecret authenticates the payer against probing, generated
	// randomly by the BOLT11 conversion when absent.
	PaymentSecret *[32]byte

	// MinFinalCLTVExpiry overrides the default final hop timelock delta.
	MinFinalCLTVExpiry *uint16

	// RouteHints lists partial routes towards the node, most desirable
	// first.
	RouteHints []HopHint
}

func (l *LightningNode) isBeneficiary() {}

// String returns the hex encoded node id.
func (l *LightningNode) String() string {
	return fmt.Sprintf("%x", l.NodeID.SerializeCompressed())
}

// Unknown is the fallback beneficiary for variants this implementation does
// not recognize. The payload round-trips byte for byte.
type Unknown struct {
	// Tag is the unrecognized variant discriminant.
	Tag byte

	// Data is the opaque variant payload.
	Data []byte
}

func (u *Unknown) isBeneficiary() {}

// String returns the hex form of the opaque payload.
func (u *Unknown) String() string {
	return fmt.Sprintf("%x", u.Data)
}

// ParseBeneficiary attempts the text grammars of the address, concealed UTXO
// and descriptor variants, in that priority order; the first grammar to
// succeed wins. PsbtTemplate and LightningNode carry structure that does not
// fit a one-line grammar and can only be constructed from the binary form.
func ParseBeneficiary(s string) (Beneficiary, error) {
	if addr, ok := parseAnyNetAddress(s); ok {
		return &Address{Addr: addr}, nil
	}

	if seal, err := ParseConcealedSeal(s); err == nil {
		return &BlindUTXO{Seal: seal}, nil
	}

	if isDescriptor(s) {
		return &Descriptor{Template: s}, nil
	}

	return nil, ErrInvalidBeneficiary
}

// parseAnyNetAddress decodes an address against every known Bitcoin network
// until one accepts it.
func parseAnyNetAddress(s string) (btcutil.Address, bool) {
	for _, chain := range []chains.Chain{
		chains.Mainnet, chains.Testnet3, chains.Signet, chains.Regtest,
	} {
		params, _ := chain.Params()
		addr, err := btcutil.DecodeAddress(s, params)
		if err == nil && addr.IsForNet(params) {
			return addr, true
		}
	}

	return nil, false
}

// descriptorFuncs are the script expressions accepted at the top level of a
// descriptor template.
var descriptorFuncs = []string{
	"pk", "pkh", "wpkh", "sh", "wsh", "tr", "multi", "sortedmulti",
	"combo", "addr", "raw",
}

// isDescriptor reports whether s looks like an output descriptor: a known
// top level script expression with balanced parentheses, optionally followed
// by a "#"-separated checksum.
func isDescriptor(s string) bool {
	body := s
	if idx := strings.LastIndexByte(s, '#'); idx >= 0 {
		if len(s)-idx-1 != 8 {
			return false
		}
		body = s[:idx]
	}

	name, rest, ok := strings.Cut(body, "(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return false
	}

	known := false
	for _, fn := range descriptorFuncs {
		if name == fn {
			known = true
			break
		}
	}
	if !known {
		return false
	}

	depth := 0
	for _, r := range body {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}

	return depth == 0
}

// marshalBeneficiary serializes a beneficiary to its self-contained binary
// payload, discriminant byte first.
func marshalBeneficiary(b Beneficiary) ([]byte, error) {
	var buf bytes.Buffer

	switch v := b.(type) {
	case *Address:
		buf.WriteByte(beneficiaryAddress)
		buf.WriteString(v.Addr.EncodeAddress())

	case *BlindUTXO:
		buf.WriteByte(beneficiaryBlindUTXO)
		buf.Write(v.Seal[:])

	case *Descriptor:
		buf.WriteByte(beneficiaryDescriptor)
		buf.WriteString(v.Template)

	case *PsbtTemplate:
		buf.WriteByte(beneficiaryPsbt)
		if err := v.Packet.Serialize(&buf); err != nil {
			return nil, err
		}

	case *LightningNode:
		buf.WriteByte(beneficiaryLightningNode)
		if err := marshalLightningNode(&buf, v); err != nil {
			return nil, err
		}

	case *Unknown:
		buf.WriteByte(v.Tag)
		buf.Write(v.Data)

	default:
		return nil, fmt.Errorf("unknown beneficiary type %T", b)
	}

	return buf.Bytes(), nil
}

// unmarshalBeneficiary is the inverse of marshalBeneficiary. Unrecognized
// discriminants yield an Unknown beneficiary carrying the raw payload.
func unmarshalBeneficiary(payload []byte) (Beneficiary, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty beneficiary payload")
	}

	tag, data := payload[0], payload[1:]
	switch tag {
	case beneficiaryAddress:
		addr, ok := parseAnyNetAddress(string(data))
		if !ok {
			return nil, fmt.Errorf("%w: undecodable address %q",
				ErrInvalidBeneficiary, data)
		}
		return &Address{Addr: addr}, nil

	case beneficiaryBlindUTXO:
		if len(data) != 32 {
			return nil, fmt.Errorf("%w: seal must be 32 bytes, "+
				"got %d", ErrInvalidBeneficiary, len(data))
		}
		var seal ConcealedSeal
		copy(seal[:], data)
		return &BlindUTXO{Seal: seal}, nil

	case beneficiaryDescriptor:
		template := string(data)
		if !isDescriptor(template) {
			return nil, fmt.Errorf("%w: malformed descriptor %q",
				ErrInvalidBeneficiary, template)
		}
		return &Descriptor{Template: template}, nil

	case beneficiaryPsbt:
		packet, err := psbt.NewFromRawBytes(
			bytes.NewReader(data), false,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v",
				ErrInvalidBeneficiary, err)
		}
		return &PsbtTemplate{Packet: packet}, nil

	case beneficiaryLightningNode:
		return unmarshalLightningNode(bytes.NewReader(data))

	default:
		raw := make([]byte, len(data))
		copy(raw, data)
		return &Unknown{Tag: tag, Data: raw}, nil
	}
}

// Flag bits of the lightning node payload.
const (
	lnFlagCLTVExpiry byte = 1 << 0
	lnFlagSecret     byte = 1 << 1
)

// marshalLightningNode writes the LightningNode payload: node id, feature
// vector, payment hash, optional fields behind a flag byte, then the route
// hints.
func marshalLightningNode(buf *bytes.Buffer, l *LightningNode) error {
	buf.Write(l.NodeID.SerializeCompressed())

	features := l.Features
	if features == nil {
		features = lnwire.NewRawFeatureVector()
	}
	if err := features.Encode(buf); err != nil {
		return err
	}

	buf.Write(l.PaymentHash[:])

	var flags byte
	if l.MinFinalCLTVExpiry != nil {
		flags |= lnFlagCLTVExpiry
	}
	if l.PaymentSecret != nil {
		flags |= lnFlagSecret
	}
	buf.WriteByte(flags)

	if l.MinFinalCLTVExpiry != nil {
		var delta [2]byte
		binary.BigEndian.PutUint16(delta[:], *l.MinFinalCLTVExpiry)
		buf.Write(delta[:])
	}
	if l.PaymentSecret != nil {
		buf.Write(l.PaymentSecret[:])
	}

	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(len(l.RouteHints)))
	buf.Write(count[:])

	for _, hint := range l.RouteHints {
		var hop [hopHintLen]byte
		copy(hop[:33], hint.NodeID.SerializeCompressed())
		binary.BigEndian.PutUint64(hop[33:41], hint.ChannelID)
		binary.BigEndian.PutUint32(hop[41:45], hint.FeeBaseMSat)
		binary.BigEndian.PutUint32(
			hop[45:49], hint.FeeProportionalMillionths,
		)
		binary.BigEndian.PutUint16(hop[49:51], hint.CLTVExpiryDelta)
		buf.Write(hop[:])
	}

	return nil
}

// unmarshalLightningNode is the inverse of marshalLightningNode.
func unmarshalLightningNode(r *bytes.Reader) (*LightningNode, error) {
	var nodeID [33]byte
	if _, err := io.ReadFull(r, nodeID[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBeneficiary, err)
	}
	pubKey, err := btcec.ParsePubKey(nodeID[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBeneficiary, err)
	}

	features := lnwire.NewRawFeatureVector()
	if err := features.Decode(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBeneficiary, err)
	}

	node := &LightningNode{
		NodeID:   pubKey,
		Features: features,
	}
	if _, err := io.ReadFull(r, node.PaymentHash[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBeneficiary, err)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBeneficiary, err)
	}

	if flags&lnFlagCLTVExpiry != 0 {
		var delta [2]byte
		if _, err := io.ReadFull(r, delta[:]); err != nil {
			return nil, fmt.Errorf("%w: %v",
				ErrInvalidBeneficiary, err)
		}
		cltv := binary.BigEndian.Uint16(delta[:])
		node.MinFinalCLTVExpiry = &cltv
	}
	if flags&lnFlagSecret != 0 {
		var secret [32]byte
		if _, err := io.ReadFull(r, secret[:]); err != nil {
			return nil, fmt.Errorf("%w: %v",
				ErrInvalidBeneficiary, err)
		}
		node.PaymentSecret = &secret
	}

	var count [2]byte
	if _, err := io.ReadFull(r, count[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBeneficiary, err)
	}

	numHints := binary.BigEndian.Uint16(count[:])
	for i := uint16(0); i < numHints; i++ {
		var hop [hopHintLen]byte
		if _, err := io.ReadFull(r, hop[:]); err != nil {
			return nil, fmt.Errorf("%w: %v",
				ErrInvalidBeneficiary, err)
		}

		hintKey, err := btcec.ParsePubKey(hop[:33])
		if err != nil {
			return nil, fmt.Errorf("%w: %v",
				ErrInvalidBeneficiary, err)
		}

		node.RouteHints = append(node.RouteHints, HopHint{
			NodeID:    hintKey,
			ChannelID: binary.BigEndian.Uint64(hop[33:41]),
			FeeBaseMSat: binary.BigEndian.Uint32(
				hop[41:45],
			),
			FeeProportionalMillionths: binary.BigEndian.Uint32(
				hop[45:49],
			),
			CLTVExpiryDelta: binary.BigEndian.Uint16(hop[49:51]),
		})
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes",
			ErrInvalidBeneficiary, r.Len())
	}

	return node, nil
}

// beneficiaryEqual compares two beneficiaries by their binary payloads.
func beneficiaryEqual(a, b Beneficiary) bool {
	if a == nil || b == nil {
		return a == b
	}

	rawA, errA := marshalBeneficiary(a)
	rawB, errB := marshalBeneficiary(b)
	if errA != nil || errB != nil {
		return false
	}

	return bytes.Equal(rawA, rawB)
}

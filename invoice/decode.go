package invoice

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/tlv"
	"github.com/lnp-bp/invoice/chains"
)

// ErrInvalidEncoding is returned when binary data does not form a valid
// invoice.
var ErrInvalidEncoding = errors.New("invalid invoice encoding")

// DecodeBinary reads the canonical binary encoding of an invoice. Records
// with unrecognized tags are retained verbatim as extension fields, and
// beneficiaries with unrecognized discriminants are retained as Unknown
// variants, so a re-encode reproduces the input byte for byte.
func DecodeBinary(r io.Reader) (*Invoice, error) {
	inv := &Invoice{}

	var head [2]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	inv.version = head[0]
	if inv.version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d",
			ErrInvalidEncoding, inv.version)
	}

	amount, err := readAmount(r, AmountKind(head[1]))
	if err != nil {
		return nil, err
	}
	inv.amount = amount

	primary, err := readVarBytes(r)
	if err != nil {
		return nil, err
	}
	inv.beneficiary, err = unmarshalBeneficiary(primary)
	if err != nil {
		return nil, err
	}

	if err := inv.decodeOptionalFields(r); err != nil {
		return nil, err
	}

	return inv, nil
}

// decodeOptionalFields consumes the trailing TLV stream of the encoding and
// populates the optional invoice fields from it.
func (inv *Invoice) decodeOptionalFields(r io.Reader) error {
	var (
		signature  []byte
		alts       []byte
		asset      []byte
		expiry     []byte
		recurrence []byte
		merchant   []byte
		quantity   []byte
		purpose    []byte
		currency   []byte
		details    []byte
		endpoints  []byte
		network    []byte
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(tagSignature, &signature),
		tlv.MakePrimitiveRecord(tagAltBeneficiaries, &alts),
		tlv.MakePrimitiveRecord(tagAsset, &asset),
		tlv.MakePrimitiveRecord(tagExpiry, &expiry),
		tlv.MakePrimitiveRecord(tagRecurrence, &recurrence),
		tlv.MakePrimitiveRecord(tagMerchant, &merchant),
		tlv.MakePrimitiveRecord(tagQuantity, &quantity),
		tlv.MakePrimitiveRecord(tagPurpose, &purpose),
		tlv.MakePrimitiveRecord(tagCurrencyReq, &currency),
		tlv.MakePrimitiveRecord(tagDetails, &details),
		tlv.MakePrimitiveRecord(tagEndpoints, &endpoints),
		tlv.MakePrimitiveRecord(tagNetwork, &network),
	)
	if err != nil {
		return err
	}

	parsed, err := stream.DecodeWithParsedTypes(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	if _, ok := parsed[tagSignature]; ok {
		if err := inv.parseSignature(signature); err != nil {
			return err
		}
	}
	if _, ok := parsed[tagAltBeneficiaries]; ok {
		if err := inv.parseAltBeneficiaries(alts); err != nil {
			return err
		}
	}
	if _, ok := parsed[tagAsset]; ok {
		if len(asset) != chainhash.HashSize {
			return fmt.Errorf("%w: asset id must be %d bytes, "+
				"got %d", ErrInvalidEncoding,
				chainhash.HashSize, len(asset))
		}
		var id chains.AssetID
		copy(id[:], asset)
		inv.asset = &id
	}
	if _, ok := parsed[tagExpiry]; ok {
		if len(expiry) != 8 {
			return fmt.Errorf("%w: expiry must be 8 bytes, got %d",
				ErrInvalidEncoding, len(expiry))
		}
		when := time.Unix(
			int64(binary.BigEndian.Uint64(expiry)), 0,
		).UTC()
		inv.expiry = &when
	}
	if _, ok := parsed[tagRecurrence]; ok {
		if err := inv.parseRecurrence(recurrence); err != nil {
			return err
		}
	}
	if _, ok := parsed[tagMerchant]; ok {
		inv.merchant = string(merchant)
	}
	if _, ok := parsed[tagQuantity]; ok {
		if len(quantity) != 12 {
			return fmt.Errorf("%w: quantity must be 12 bytes, "+
				"got %d", ErrInvalidEncoding, len(quantity))
		}
		inv.quantity = &Quantity{
			Min:     binary.BigEndian.Uint32(quantity[0:4]),
			Max:     binary.BigEndian.Uint32(quantity[4:8]),
			Default: binary.BigEndian.Uint32(quantity[8:12]),
		}
	}
	if _, ok := parsed[tagPurpose]; ok {
		inv.purpose = string(purpose)
	}
	if _, ok := parsed[tagCurrencyReq]; ok {
		if len(currency) < 8 {
			return fmt.Errorf("%w: currency requirement must be "+
				"at least 8 bytes, got %d", ErrInvalidEncoding,
				len(currency))
		}
		req := &CurrencyRequirement{
			Coins:         binary.BigEndian.Uint32(currency[3:7]),
			Fractions:     currency[7],
			PriceProvider: string(currency[8:]),
		}
		copy(req.Currency[:], currency[0:3])
		inv.currencyReq = req
	}
	if _, ok := parsed[tagDetails]; ok {
		if len(details) < chainhash.HashSize {
			return fmt.Errorf("%w: details must be at least %d "+
				"bytes, got %d", ErrInvalidEncoding,
				chainhash.HashSize, len(details))
		}
		d := &Details{Source: string(details[chainhash.HashSize:])}
		copy(d.Commitment[:], details[:chainhash.HashSize])
		inv.details = d
	}
	if _, ok := parsed[tagEndpoints]; ok {
		if err := inv.parseEndpoints(endpoints); err != nil {
			return err
		}
	}
	if _, ok := parsed[tagNetwork]; ok {
		if len(network) != 1 {
			return fmt.Errorf("%w: network must be 1 byte, got %d",
				ErrInvalidEncoding, len(network))
		}
		chain := chains.Chain(network[0])
		if !chain.Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidEncoding,
				chains.ErrUnknownChain)
		}
		inv.network = &chain
	}

	// Unrecognized records arrive in the parsed map with their raw value
	// attached; recognized records carry a nil value there.
	for typ, value := range parsed {
		if value == nil {
			continue
		}
		raw := make([]byte, len(value))
		copy(raw, value)
		inv.extensions, err = inv.extensions.add(ExtensionField{
			Type:  typ,
			Value: raw,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
	}

	return nil
}

// parseSignature parses the pubkey-then-signature payload of the signature
// record.
func (inv *Invoice) parseSignature(value []byte) error {
	if len(value) != 33+schnorr.SignatureSize {
		return fmt.Errorf("%w: signature record must be %d bytes, "+
			"got %d", ErrInvalidEncoding, 33+schnorr.SignatureSize,
			len(value))
	}

	pubKey, err := btcec.ParsePubKey(value[:33])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	sig, err := schnorr.ParseSignature(value[33:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	inv.signature = &Signature{PubKey: pubKey, Sig: sig}

	return nil
}

// parseAltBeneficiaries parses the counted list of length-prefixed alternate
// beneficiary payloads.
func (inv *Invoice) parseAltBeneficiaries(value []byte) error {
	r := bytes.NewReader(value)
	var count [2]byte
	if _, err := io.ReadFull(r, count[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	num := binary.BigEndian.Uint16(count[:])
	for i := uint16(0); i < num; i++ {
		payload, err := readVarBytes(r)
		if err != nil {
			return err
		}
		alt, err := unmarshalBeneficiary(payload)
		if err != nil {
			return err
		}
		inv.altBenefs = append(inv.altBenefs, alt)
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing beneficiary bytes",
			ErrInvalidEncoding, r.Len())
	}

	return nil
}

// parseRecurrence parses the kind-discriminated recurrence payload.
func (inv *Invoice) parseRecurrence(value []byte) error {
	if len(value) == 0 {
		return fmt.Errorf("%w: empty recurrence record",
			ErrInvalidEncoding)
	}

	kind := RecurrenceKind(value[0])
	body := value[1:]
	switch kind {
	case RecurSeconds:
		if len(body) != 8 {
			return fmt.Errorf("%w: seconds recurrence must be 8 "+
				"bytes, got %d", ErrInvalidEncoding, len(body))
		}
		inv.recurrence = EverySeconds(binary.BigEndian.Uint64(body))

	case RecurMonths, RecurYears:
		if len(body) != 1 {
			return fmt.Errorf("%w: calendar recurrence must be 1 "+
				"byte, got %d", ErrInvalidEncoding, len(body))
		}
		inv.recurrence = Recurrence{Kind: kind, Every: uint64(body[0])}

	default:
		return fmt.Errorf("%w: unknown recurrence kind %d",
			ErrInvalidEncoding, kind)
	}

	return nil
}

// parseEndpoints parses the counted list of consignment endpoints.
func (inv *Invoice) parseEndpoints(value []byte) error {
	r := bytes.NewReader(value)
	var count [2]byte
	if _, err := io.ReadFull(r, count[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	num := binary.BigEndian.Uint16(count[:])
	for i := uint16(0); i < num; i++ {
		scheme, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
		payload, err := readVarBytes(r)
		if err != nil {
			return err
		}
		inv.endpoints = append(inv.endpoints, Endpoint{
			Scheme:  EndpointScheme(scheme),
			Payload: string(payload),
		})
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing endpoint bytes",
			ErrInvalidEncoding, r.Len())
	}

	return nil
}

// readAmount reads the amount payload selected by the kind byte of the fixed
// head.
func readAmount(r io.Reader, kind AmountKind) (Amount, error) {
	switch kind {
	case KindAny:
		return AnyAmount(), nil

	case KindNormal:
		var value [8]byte
		if _, err := io.ReadFull(r, value[:]); err != nil {
			return Amount{}, fmt.Errorf("%w: %v",
				ErrInvalidEncoding, err)
		}
		return NormalAmount(binary.BigEndian.Uint64(value[:])), nil

	case KindMilli:
		var value [10]byte
		if _, err := io.ReadFull(r, value[:]); err != nil {
			return Amount{}, fmt.Errorf("%w: %v",
				ErrInvalidEncoding, err)
		}
		return MilliAmount(
			binary.BigEndian.Uint64(value[0:8]),
			binary.BigEndian.Uint16(value[8:10]),
		), nil

	default:
		return Amount{}, fmt.Errorf("%w: unknown amount kind %d",
			ErrInvalidEncoding, kind)
	}
}

// readVarBytes reads a 16-bit big endian length prefix followed by that many
// payload bytes.
func readVarBytes(r io.Reader) ([]byte, error) {
	var length [2]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	payload := make([]byte, binary.BigEndian.Uint16(length[:]))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	return payload, nil
}

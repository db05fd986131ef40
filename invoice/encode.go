package invoice

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lightningnetwork/lnd/tlv"
)

// Tags of the recognized optional-field registry. Every tag outside this set
// is treated as an opaque extension record.
const (
	tagSignature        tlv.Type = 0x00
	tagAltBeneficiaries tlv.Type = 0x01
	tagAsset            tlv.Type = 0x02
	tagExpiry           tlv.Type = 0x03
	tagRecurrence       tlv.Type = 0x04
	tagMerchant         tlv.Type = 0x05
	tagQuantity         tlv.Type = 0x06
	tagPurpose          tlv.Type = 0x07
	tagCurrencyReq      tlv.Type = 0x08
	tagDetails          tlv.Type = 0x09
	tagEndpoints        tlv.Type = 0x0a
	tagNetwork          tlv.Type = 0x0b
)

// isKnownTag reports whether the tag belongs to the recognized registry.
func isKnownTag(typ tlv.Type) bool {
	return typ <= tagNetwork
}

// EncodeBinary writes the canonical binary encoding of the invoice: the
// fixed core fields (version, amount, primary beneficiary) followed by one
// TLV stream holding every populated optional field under its registry tag,
// merged with the retained extension records. The stream is sorted by tag,
// so identical logical content always produces identical bytes.
func (inv *Invoice) EncodeBinary(w io.Writer) error {
	if err := writeAmount(w, inv.amount, inv.version); err != nil {
		return err
	}

	primary, err := marshalBeneficiary(inv.beneficiary)
	if err != nil {
		return err
	}
	if err := writeVarBytes(w, primary); err != nil {
		return err
	}

	records, err := inv.optionalRecords()
	if err != nil {
		return err
	}

	stream, err := tlv.NewStream(records...)
	if err != nil {
		return err
	}

	return stream.Encode(w)
}

// MustEncode returns the canonical binary encoding, panicking on failure. A
// fully constructed invoice always encodes; anything else is a data-model
// bug that must fail loudly.
func (inv *Invoice) MustEncode() []byte {
	var buf bytes.Buffer
	if err := inv.EncodeBinary(&buf); err != nil {
		panic("invoice data are inconsistent for canonical " +
			"encoding: " + err.Error())
	}

	return buf.Bytes()
}

// optionalRecords serializes every populated optional field and merges the
// result with the extension records, sorted by tag.
func (inv *Invoice) optionalRecords() ([]tlv.Record, error) {
	var records []tlv.Record
	addRecord := func(typ tlv.Type, value []byte) {
		records = append(records, tlv.MakeStaticRecord(
			typ, nil, uint64(len(value)),
			tlv.StubEncoder(value), nil,
		))
	}

	if inv.signature != nil {
		value := make([]byte, 0, 97)
		value = append(
			value, inv.signature.PubKey.SerializeCompressed()...,
		)
		value = append(value, inv.signature.Sig.Serialize()...)
		addRecord(tagSignature, value)
	}

	if len(inv.altBenefs) > 0 {
		var buf bytes.Buffer
		var count [2]byte
		binary.BigEndian.PutUint16(
			count[:], uint16(len(inv.altBenefs)),
		)
		buf.Write(count[:])
		for _, alt := range inv.altBenefs {
			payload, err := marshalBeneficiary(alt)
			if err != nil {
				return nil, err
			}
			if err := writeVarBytes(&buf, payload); err != nil {
				return nil, err
			}
		}
		addRecord(tagAltBeneficiaries, buf.Bytes())
	}

	if inv.asset != nil {
		addRecord(tagAsset, inv.asset[:])
	}

	if inv.expiry != nil {
		var value [8]byte
		binary.BigEndian.PutUint64(
			value[:], uint64(inv.expiry.Unix()),
		)
		addRecord(tagExpiry, value[:])
	}

	if inv.recurrence.Kind != RecurNone {
		value := []byte{byte(inv.recurrence.Kind)}
		switch inv.recurrence.Kind {
		case RecurSeconds:
			var every [8]byte
			binary.BigEndian.PutUint64(
				every[:], inv.recurrence.Every,
			)
			value = append(value, every[:]...)
		default:
			value = append(value, byte(inv.recurrence.Every))
		}
		addRecord(tagRecurrence, value)
	}

	if inv.merchant != "" {
		addRecord(tagMerchant, []byte(inv.merchant))
	}

	if inv.quantity != nil {
		var value [12]byte
		binary.BigEndian.PutUint32(value[0:4], inv.quantity.Min)
		binary.BigEndian.PutUint32(value[4:8], inv.quantity.Max)
		binary.BigEndian.PutUint32(value[8:12], inv.quantity.Default)
		addRecord(tagQuantity, value[:])
	}

	if inv.purpose != "" {
		addRecord(tagPurpose, []byte(inv.purpose))
	}

	if inv.currencyReq != nil {
		var buf bytes.Buffer
		buf.Write(inv.currencyReq.Currency[:])
		var fixed [5]byte
		binary.BigEndian.PutUint32(fixed[0:4], inv.currencyReq.Coins)
		fixed[4] = inv.currencyReq.Fractions
		buf.Write(fixed[:])
		buf.WriteString(inv.currencyReq.PriceProvider)
		addRecord(tagCurrencyReq, buf.Bytes())
	}

	if inv.details != nil {
		var buf bytes.Buffer
		buf.Write(inv.details.Commitment[:])
		buf.WriteString(inv.details.Source)
		addRecord(tagDetails, buf.Bytes())
	}

	if len(inv.endpoints) > 0 {
		var buf bytes.Buffer
		var count [2]byte
		binary.BigEndian.PutUint16(
			count[:], uint16(len(inv.endpoints)),
		)
		buf.Write(count[:])
		for _, endpoint := range inv.endpoints {
			buf.WriteByte(byte(endpoint.Scheme))
			err := writeVarBytes(&buf, []byte(endpoint.Payload))
			if err != nil {
				return nil, err
			}
		}
		addRecord(tagEndpoints, buf.Bytes())
	}

	if inv.network != nil {
		addRecord(tagNetwork, []byte{byte(*inv.network)})
	}

	for _, ext := range inv.extensions {
		addRecord(ext.Type, ext.Value)
	}

	tlv.SortRecords(records)

	return records, nil
}

// writeAmount writes the fixed head of the encoding: the version byte and
// the amount variant.
func writeAmount(w io.Writer, amount Amount, version uint8) error {
	head := []byte{version, byte(amount.Kind)}
	switch amount.Kind {
	case KindNormal:
		var value [8]byte
		binary.BigEndian.PutUint64(value[:], amount.Value)
		head = append(head, value[:]...)

	case KindMilli:
		var value [10]byte
		binary.BigEndian.PutUint64(value[0:8], amount.Value)
		binary.BigEndian.PutUint16(value[8:10], amount.Frac)
		head = append(head, value[:]...)

	case KindAny:

	default:
		return fmt.Errorf("unknown amount kind %d", amount.Kind)
	}

	_, err := w.Write(head)

	return err
}

// writeVarBytes writes a 16-bit big endian length prefix followed by the
// payload.
func writeVarBytes(w io.Writer, payload []byte) error {
	if len(payload) > 65535 {
		return fmt.Errorf("payload of %d bytes exceeds the 16-bit "+
			"length prefix", len(payload))
	}

	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)

	return err
}

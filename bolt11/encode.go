package bolt11

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lnp-bp/invoice/invoice"
)

const (
	// mSatPerBtc is the number of millisatoshis in 1 BTC.
	mSatPerBtc = 100000000000

	// timestampBase32Len is the number of 5-bit groups needed to encode
	// the 35-bit creation timestamp.
	timestampBase32Len = 7

	// pubKeyBase32Len is the number of 5-bit groups needed to encode a
	// 33-byte compressed public key.
	pubKeyBase32Len = 53

	// hopHintLen is the number of bytes needed to encode one hop of a
	// route hint.
	hopHintLen = 51

	// maxInvoiceLength is the maximum total length a payment request can
	// have.
	maxInvoiceLength = 7089

	// fieldTypeP is the field containing the payment hash.
	fieldTypeP = 1

	// fieldTypeR contains extra routing information.
	fieldTypeR = 3

	// fieldType9 contains the feature bits.
	fieldType9 = 5

	// fieldTypeX contains the expiry in seconds of the payment request.
	fieldTypeX = 6

	// fieldTypeD contains a short description of the payment.
	fieldTypeD = 13

	// fieldTypeS contains the 32-byte payment address.
	fieldTypeS = 16

	// fieldTypeN contains the pubkey of the target node.
	fieldTypeN = 19

	// fieldTypeC contains the requested final CLTV delta.
	fieldTypeC = 24
)

// Encode returns the bech32 payment request string, signed by the node key
// behind the given signer.
func (inv *Invoice) Encode(signer MessageSigner) (string, error) {
	// The data part of the payment request is built in 5-bit groups:
	// a 35-bit timestamp, then the tagged fields, then the signature.
	var bufferBase32 bytes.Buffer

	timestampBase32 := uint64ToBase32(uint64(inv.Timestamp.Unix()))
	if len(timestampBase32) > timestampBase32Len {
		return "", fmt.Errorf("timestamp too big: %d",
			inv.Timestamp.Unix())
	}

	zeroes := make([]byte, timestampBase32Len-len(timestampBase32))
	if _, err := bufferBase32.Write(zeroes); err != nil {
		return "", fmt.Errorf("unable to write to buffer: %w", err)
	}
	if _, err := bufferBase32.Write(timestampBase32); err != nil {
		return "", fmt.Errorf("unable to write to buffer: %w", err)
	}

	if err := inv.writeTaggedFields(&bufferBase32); err != nil {
		return "", err
	}

	// The human-readable part is "ln" + net prefix + optional amount,
	// except for signet which uses "lntbs" to stay distinguishable from
	// testnet3.
	hrp := "ln" + inv.Net.Bech32HRPSegwit
	if inv.Net.Name == chaincfg.SigNetParams.Name {
		hrp = "lntbs"
	}
	if inv.MilliSat != nil {
		am, err := encodeAmount(*inv.MilliSat)
		if err != nil {
			return "", err
		}
		hrp += am
	}

	// The signature covers the hrp plus the data part re-grouped into
	// bytes.
	taggedFieldsBytes, err := bech32.ConvertBits(
		bufferBase32.Bytes(), 5, 8, true,
	)
	if err != nil {
		return "", err
	}

	toSign := append([]byte(hrp), taggedFieldsBytes...)

	// Compact signature format carries the recovery ID in the header
	// byte, letting readers recover the destination pubkey.
	sign, err := signer.SignCompact(toSign)
	if err != nil {
		return "", err
	}
	if len(sign) != 65 {
		return "", fmt.Errorf("wrong compact signature length %d",
			len(sign))
	}
	recoveryID := sign[0] - 27 - 4

	signBase32, err := bech32.ConvertBits(
		append(sign[1:], recoveryID), 8, 5, true,
	)
	if err != nil {
		return "", err
	}
	bufferBase32.Write(signBase32)

	b32, err := bech32.Encode(hrp, bufferBase32.Bytes())
	if err != nil {
		return "", err
	}

	if len(b32) > maxInvoiceLength {
		return "", ErrInvoiceTooLarge
	}

	return b32, nil
}

// writeTaggedFields writes the populated tagged fields of the payment
// request to the base32 buffer.
func (inv *Invoice) writeTaggedFields(bufferBase32 *bytes.Buffer) error {
	err := writeBytes32(bufferBase32, fieldTypeP, inv.PaymentHash)
	if err != nil {
		return err
	}

	// The description field is mandatory in the absence of a description
	// hash, even when empty.
	descBase32, err := bech32.ConvertBits(
		[]byte(inv.Description), 8, 5, true,
	)
	if err != nil {
		return err
	}
	if err := writeTaggedField(
		bufferBase32, fieldTypeD, descBase32,
	); err != nil {
		return err
	}

	finalDelta := uint64ToBase32(inv.MinFinalCLTVExpiry)
	if err := writeTaggedField(
		bufferBase32, fieldTypeC, finalDelta,
	); err != nil {
		return err
	}

	if inv.Expiry != nil {
		seconds := uint64(inv.Expiry.Truncate(time.Second).Seconds())
		expiry := uint64ToBase32(seconds)
		err := writeTaggedField(bufferBase32, fieldTypeX, expiry)
		if err != nil {
			return err
		}
	}

	for _, routeHint := range inv.RouteHints {
		routeHintBase256 := make([]byte, 0, hopHintLen*len(routeHint))
		for _, hopHint := range routeHint {
			routeHintBase256 = append(
				routeHintBase256, encodeHopHint(hopHint)...,
			)
		}

		routeHintBase32, err := bech32.ConvertBits(
			routeHintBase256, 8, 5, true,
		)
		if err != nil {
			return err
		}

		err = writeTaggedField(
			bufferBase32, fieldTypeR, routeHintBase32,
		)
		if err != nil {
			return err
		}
	}

	if inv.Destination != nil {
		pubKeyBase32, err := bech32.ConvertBits(
			inv.Destination.SerializeCompressed(), 8, 5, true,
		)
		if err != nil {
			return err
		}
		if len(pubKeyBase32) != pubKeyBase32Len {
			return fmt.Errorf("invalid pubkey length: %d",
				len(inv.Destination.SerializeCompressed()))
		}

		err = writeTaggedField(bufferBase32, fieldTypeN, pubKeyBase32)
		if err != nil {
			return err
		}
	}

	err = writeBytes32(bufferBase32, fieldTypeS, inv.PaymentAddr)
	if err != nil {
		return err
	}

	if inv.Features.SerializeSize32() > 0 {
		var b bytes.Buffer
		if err := inv.Features.EncodeBase32(&b); err != nil {
			return err
		}

		err = writeTaggedField(bufferBase32, fieldType9, b.Bytes())
		if err != nil {
			return err
		}
	}

	return nil
}

// encodeHopHint serializes one hop of a route hint into its fixed 51-byte
// layout.
func encodeHopHint(hopHint invoice.HopHint) []byte {
	hopHintBase256 := make([]byte, hopHintLen)
	copy(hopHintBase256[:33], hopHint.NodeID.SerializeCompressed())
	binary.BigEndian.PutUint64(
		hopHintBase256[33:41], hopHint.ChannelID,
	)
	binary.BigEndian.PutUint32(
		hopHintBase256[41:45], hopHint.FeeBaseMSat,
	)
	binary.BigEndian.PutUint32(
		hopHintBase256[45:49], hopHint.FeeProportionalMillionths,
	)
	binary.BigEndian.PutUint16(
		hopHintBase256[49:51], hopHint.CLTVExpiryDelta,
	)

	return hopHintBase256
}

// writeBytes32 encodes a 32-byte array as base32 and writes it to
// bufferBase32 under the passed fieldType.
func writeBytes32(bufferBase32 *bytes.Buffer, fieldType byte,
	b [32]byte) error {

	base32, err := bech32.ConvertBits(b[:], 8, 5, true)
	if err != nil {
		return err
	}

	return writeTaggedField(bufferBase32, fieldType, base32)
}

// writeTaggedField takes the type of a tagged data field, and the data of
// the tagged field (encoded in base32), and writes the type, length and data
// to the buffer.
func writeTaggedField(bufferBase32 *bytes.Buffer, dataType byte,
	data []byte) error {

	// Length must be exactly 10 bits, so add a leading zero group if
	// needed.
	lenBase32 := uint64ToBase32(uint64(len(data)))
	for len(lenBase32) < 2 {
		lenBase32 = append([]byte{0}, lenBase32...)
	}
	if len(lenBase32) != 2 {
		return fmt.Errorf("data length too big to fit within 10 "+
			"bits: %d", len(data))
	}

	if err := bufferBase32.WriteByte(dataType); err != nil {
		return fmt.Errorf("unable to write to buffer: %w", err)
	}
	if _, err := bufferBase32.Write(lenBase32); err != nil {
		return fmt.Errorf("unable to write to buffer: %w", err)
	}
	if _, err := bufferBase32.Write(data); err != nil {
		return fmt.Errorf("unable to write to buffer: %w", err)
	}

	return nil
}

// uint64ToBase32 converts a uint64 to a base32 encoded integer encoded using
// as few 5-bit groups as possible.
func uint64ToBase32(num uint64) []byte {
	// Return at least one group.
	if num == 0 {
		return []byte{0}
	}

	// To fit an uint64, we need at most ceil(64 / 5) = 13 groups.
	arr := make([]byte, 13)
	i := 13
	for num > 0 {
		i--
		arr[i] = byte(num & uint64(31))
		num >>= 5
	}

	return arr[i:]
}

// unit multipliers of the amount suffix in the human-readable part.
var fromMSat = map[byte]func(lnwire.MilliSatoshi) (uint64, error){
	'm': mSatToMBtc,
	'u': mSatToUBtc,
	'n': mSatToNBtc,
	'p': mSatToPBtc,
}

// mSatToMBtc converts the given amount in millisatoshis to milliBTC.
func mSatToMBtc(msat lnwire.MilliSatoshi) (uint64, error) {
	if msat%100000000 != 0 {
		return 0, fmt.Errorf("%d msat not expressible in mBTC", msat)
	}

	return uint64(msat / 100000000), nil
}

// mSatToUBtc converts the given amount in millisatoshis to microBTC.
func mSatToUBtc(msat lnwire.MilliSatoshi) (uint64, error) {
	if msat%100000 != 0 {
		return 0, fmt.Errorf("%d msat not expressible in uBTC", msat)
	}

	return uint64(msat / 100000), nil
}

// mSatToNBtc converts the given amount in millisatoshis to nanoBTC.
func mSatToNBtc(msat lnwire.MilliSatoshi) (uint64, error) {
	if msat%100 != 0 {
		return 0, fmt.Errorf("%d msat not expressible in nBTC", msat)
	}

	return uint64(msat / 100), nil
}

// mSatToPBtc converts the given amount in millisatoshis to picoBTC.
func mSatToPBtc(msat lnwire.MilliSatoshi) (uint64, error) {
	return uint64(msat * 10), nil
}

// encodeAmount encodes the provided millisatoshi amount using as few
// characters as possible.
func encodeAmount(msat lnwire.MilliSatoshi) (string, error) {
	// If possible to express in BTC, that will always be the shortest
	// representation.
	if msat%mSatPerBtc == 0 {
		return strconv.FormatInt(int64(msat/mSatPerBtc), 10), nil
	}

	// Should always be expressible in pico BTC.
	pico, err := fromMSat['p'](msat)
	if err != nil {
		return "", fmt.Errorf("unable to express %d msat as pBTC: %w",
			msat, err)
	}
	shortened := strconv.FormatUint(pico, 10) + "p"
	for unit, conv := range fromMSat {
		am, err := conv(msat)
		if err != nil {
			// Not expressible using this unit.
			continue
		}

		// Save the shortest found representation.
		str := strconv.FormatUint(am, 10) + string(unit)
		if len(str) < len(shortened) {
			shortened = str
		}
	}

	return shortened, nil
}

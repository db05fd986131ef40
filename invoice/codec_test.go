package invoice

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lnp-bp/invoice/chains"
)

// testPsbtPacket builds a minimal valid PSBT packet.
func testPsbtPacket(t *testing.T) *psbt.Packet {
	t.Helper()

	prevHash, err := chainhash.NewHashFromStr(
		"5a9f6f4cb3fc0e5b42eb397f2e68f0d63b1bd5ce7d4a0c4cf0a4cc2760" +
			"a35a29",
	)
	require.NoError(t, err)

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(prevHash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(100_000, []byte{
		0x00, 0x14, 0x75, 0x1e, 0x76, 0xe8, 0x19, 0x91, 0x96, 0xd4,
		0x54, 0x94, 0x1c, 0x45, 0xd1, 0xb3, 0xa3, 0x23, 0xf1, 0x43,
		0x3b, 0xd6,
	}))

	packet, err := psbt.NewFromUnsignedTx(tx)
	require.NoError(t, err)

	return packet
}

// fullTestInvoice builds an invoice with every optional field populated.
func fullTestInvoice(t *testing.T) *Invoice {
	t.Helper()

	amount := uint64(100_000)
	inv := New(&Address{Addr: testRustyAddr}, &amount, nil)

	require.True(t, inv.AddAltBeneficiary(
		&Descriptor{Template: testDescriptor},
	))
	require.True(t, inv.AddAltBeneficiary(&BlindUTXO{Seal: testSeal(t)}))
	require.True(t, inv.SetAsset(chains.AssetID{0xde, 0xad, 0xbe, 0xef}))
	require.True(t, inv.SetExpiry(
		time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
	))
	require.True(t, inv.SetRecurrence(EveryMonths(3)))
	require.True(t, inv.SetMerchant("Satoshi Shop"))
	require.True(t, inv.SetQuantity(Quantity{Min: 1, Max: 12, Default: 1}))
	require.True(t, inv.SetPurpose("1 cup coffee"))

	currency, err := ParseCurrencyCode("EUR")
	require.NoError(t, err)
	require.True(t, inv.SetCurrencyRequirement(CurrencyRequirement{
		Currency:      currency,
		Coins:         4,
		Fractions:     50,
		PriceProvider: "https://rate.example.com",
	}))
	require.True(t, inv.SetDetails(NewDetails(
		"https://shop.example.com/order/1", []byte("order document"),
	)))

	endpoint, err := ParseEndpoint(
		"rgbhttpjsonrpc:https://relay.example.com",
	)
	require.NoError(t, err)
	require.True(t, inv.AddConsignmentEndpoint(endpoint))
	require.True(t, inv.SetNetwork(chains.Mainnet))

	signTestInvoice(t, inv)

	return inv
}

// requireBinaryRoundTrip encodes, decodes and re-encodes the invoice,
// checking byte-for-byte stability.
func requireBinaryRoundTrip(t *testing.T, inv *Invoice) *Invoice {
	t.Helper()

	encoded := inv.MustEncode()
	decoded, err := DecodeBinary(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, encoded, decoded.MustEncode())

	return decoded
}

func TestBinaryRoundTripMinimal(t *testing.T) {
	t.Parallel()

	inv := New(&Address{Addr: testRustyAddr}, nil, nil)
	decoded := requireBinaryRoundTrip(t, inv)

	require.Equal(t, AnyAmount(), decoded.Amount())
	require.True(t,
		beneficiaryEqual(inv.Beneficiary(), decoded.Beneficiary()))
}

func TestBinaryRoundTripFull(t *testing.T) {
	t.Parallel()

	inv := fullTestInvoice(t)
	decoded := requireBinaryRoundTrip(t, inv)

	require.Equal(t, inv.Amount(), decoded.Amount())
	require.Len(t, decoded.AltBeneficiaries(), 2)

	expiry, ok := decoded.Expiry()
	require.True(t, ok)
	wantExpiry, _ := inv.Expiry()
	require.True(t, expiry.Equal(wantExpiry))

	merchant, ok := decoded.Merchant()
	require.True(t, ok)
	require.Equal(t, "Satoshi Shop", merchant)

	sig, ok := decoded.Signature()
	require.True(t, ok)
	digest := decoded.SignatureHash()
	require.True(t, sig.Sig.Verify(digest[:], sig.PubKey))

	network, ok := decoded.Network()
	require.True(t, ok)
	require.Equal(t, chains.Mainnet, network)
}

func TestBinaryRoundTripBeneficiaries(t *testing.T) {
	t.Parallel()

	beneficiaries := map[string]Beneficiary{
		"address":    &Address{Addr: testAddrMainnetP2WPKH},
		"blind utxo": &BlindUTXO{Seal: testSeal(t)},
		"descriptor": &Descriptor{Template: testDescriptor},
		"psbt":       &PsbtTemplate{Packet: testPsbtPacket(t)},
		"lightning":  testLightningNode(t),
		"unknown": &Unknown{
			Tag:  0x77,
			Data: []byte{0x01, 0x02, 0x03},
		},
	}

	for name, beneficiary := range beneficiaries {
		t.Run(name, func(t *testing.T) {
			inv := New(beneficiary, nil, nil)
			decoded := requireBinaryRoundTrip(t, inv)
			require.True(t, beneficiaryEqual(
				beneficiary, decoded.Beneficiary(),
			))
		})
	}
}

// TestUnknownBeneficiaryPreserved checks that a discriminant from a future
// format version survives a decode/encode cycle untouched.
func TestUnknownBeneficiaryPreserved(t *testing.T) {
	t.Parallel()

	inv := New(&Unknown{Tag: 0xf0, Data: []byte("future")}, nil, nil)
	decoded := requireBinaryRoundTrip(t, inv)

	unknown, ok := decoded.Beneficiary().(*Unknown)
	require.True(t, ok)
	require.Equal(t, byte(0xf0), unknown.Tag)
	require.Equal(t, []byte("future"), unknown.Data)
}

// TestExtensionFieldsPreserved checks that unrecognized records survive a
// round trip byte for byte and re-encode in canonical tag order.
func TestExtensionFieldsPreserved(t *testing.T) {
	t.Parallel()

	inv := New(&Address{Addr: testRustyAddr}, nil, nil)
	require.NoError(t, inv.AddExtension(ExtensionField{
		Type:  0x42,
		Value: []byte{0xaa, 0xbb},
	}))
	require.NoError(t, inv.AddExtension(ExtensionField{
		Type:  0x17,
		Value: []byte{0xcc},
	}))

	decoded := requireBinaryRoundTrip(t, inv)

	ext := decoded.Extensions()
	require.Len(t, ext, 2)
	require.EqualValues(t, 0x17, ext[0].Type)
	require.Equal(t, []byte{0xcc}, ext[0].Value)
	require.EqualValues(t, 0x42, ext[1].Type)
	require.Equal(t, []byte{0xaa, 0xbb}, ext[1].Value)
}

func TestTextRoundTrip(t *testing.T) {
	t.Parallel()

	for _, inv := range []*Invoice{
		New(&Address{Addr: testRustyAddr}, nil, nil),
		fullTestInvoice(t),
	} {
		text, err := inv.ToText()
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(text, "i1"))

		decoded, err := ParseText(text)
		require.NoError(t, err)
		require.Equal(t, inv.MustEncode(), decoded.MustEncode())

		// Uppercase transcription is accepted.
		decoded, err = ParseText(strings.ToUpper(text))
		require.NoError(t, err)
		require.Equal(t, inv.MustEncode(), decoded.MustEncode())
	}
}

func TestParseTextErrors(t *testing.T) {
	t.Parallel()

	inv := New(&Address{Addr: testRustyAddr}, nil, nil)
	text, err := inv.ToText()
	require.NoError(t, err)

	// Mixed case strings are rejected outright.
	mixed := strings.ToUpper(text[:4]) + text[4:]
	_, err = ParseText(mixed)
	require.ErrorIs(t, err, ErrInvalidText)

	// A corrupted character breaks the checksum.
	corrupt := []byte(text)
	if corrupt[len(corrupt)-1] == 'q' {
		corrupt[len(corrupt)-1] = 'p'
	} else {
		corrupt[len(corrupt)-1] = 'q'
	}
	_, err = ParseText(string(corrupt))
	require.ErrorIs(t, err, ErrInvalidText)

	// A foreign prefix is rejected even with a valid checksum.
	_, err = ParseText(testSeal(t).String())
	require.ErrorIs(t, err, ErrInvalidText)
}

func TestDecodeBinaryErrors(t *testing.T) {
	t.Parallel()

	// Unsupported version byte.
	_, err := DecodeBinary(bytes.NewReader([]byte{0x01, 0x00}))
	require.ErrorIs(t, err, ErrInvalidEncoding)

	// Unknown amount kind.
	_, err = DecodeBinary(bytes.NewReader([]byte{0x00, 0x07}))
	require.ErrorIs(t, err, ErrInvalidEncoding)

	// Truncated input.
	inv := New(&Address{Addr: testRustyAddr}, nil, nil)
	encoded := inv.MustEncode()
	_, err = DecodeBinary(bytes.NewReader(encoded[:5]))
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	inv := fullTestInvoice(t)
	data, err := json.Marshal(inv)
	require.NoError(t, err)
	require.Contains(t, string(data), `"consignmentEndpoints"`)

	var decoded Invoice
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, inv.MustEncode(), decoded.MustEncode())
}

func TestYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	inv := fullTestInvoice(t)
	data, err := yaml.Marshal(inv)
	require.NoError(t, err)

	var decoded Invoice
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.Equal(t, inv.MustEncode(), decoded.MustEncode())
}

// TestDocumentFormRawBeneficiary checks the raw hex fallback used by the
// document forms for beneficiaries without a text grammar.
func TestDocumentFormRawBeneficiary(t *testing.T) {
	t.Parallel()

	inv := New(testLightningNode(t), nil, nil)
	data, err := json.Marshal(inv)
	require.NoError(t, err)
	require.Contains(t, string(data), `"beneficiary":"raw:04`)

	var decoded Invoice
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, inv.MustEncode(), decoded.MustEncode())
}

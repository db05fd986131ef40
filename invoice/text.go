package invoice

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// textHRP is the human readable prefix of the text encoding.
const textHRP = "i"

// ErrInvalidText is returned when a string is not a valid invoice text
// encoding.
var ErrInvalidText = errors.New("invalid invoice text encoding")

// ToText returns the transcription form of the invoice: the canonical binary
// encoding compressed with brotli and wrapped in a checksummed bech32 string
// under the "i" prefix.
func (inv *Invoice) ToText() (string, error) {
	var binBuf bytes.Buffer
	if err := inv.EncodeBinary(&binBuf); err != nil {
		return "", err
	}

	var compressed bytes.Buffer
	writer := brotli.NewWriter(&compressed)
	if _, err := writer.Write(binBuf.Bytes()); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	grouped, err := bech32.ConvertBits(compressed.Bytes(), 8, 5, true)
	if err != nil {
		return "", err
	}

	text, err := bech32.Encode(textHRP, grouped)
	if err != nil {
		return "", err
	}
	log.Tracef("Encoded %d-byte invoice into %d characters of text",
		binBuf.Len(), len(text))

	return text, nil
}

// ParseText decodes the transcription form of an invoice. The checksum
// catches transcription errors before the payload is touched.
func ParseText(text string) (*Invoice, error) {
	if strings.ToLower(text) != text && strings.ToUpper(text) != text {
		return nil, fmt.Errorf("%w: mixed case string",
			ErrInvalidText)
	}

	hrp, grouped, err := bech32.DecodeNoLimit(strings.ToLower(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidText, err)
	}
	if hrp != textHRP {
		return nil, fmt.Errorf("%w: prefix %q, want %q",
			ErrInvalidText, hrp, textHRP)
	}

	compressed, err := bech32.ConvertBits(grouped, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidText, err)
	}

	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidText, err)
	}
	log.Tracef("Decompressed %d-character text into %d-byte invoice",
		len(text), len(raw))

	return DecodeBinary(bytes.NewReader(raw))
}

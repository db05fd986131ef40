package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/davecgh/go-spew/spew"
	"github.com/lnp-bp/invoice/invoice"
	"github.com/lnp-bp/invoice/rgb"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

// format enumerates the invoice data representations the tool can read and
// write.
type format uint8

const (
	// formatDebug dumps the in-memory structure.
	formatDebug format = iota

	// formatBech32 is the canonical transcription form.
	formatBech32

	// formatBase58 wraps the binary encoding in base58.
	formatBase58

	// formatBase64 wraps the binary encoding in base64.
	formatBase64

	// formatYaml is the structured YAML document form.
	formatYaml

	// formatJSON is the structured JSON document form.
	formatJSON

	// formatHex wraps the binary encoding in hexadecimal.
	formatHex

	// formatArray renders the binary encoding as a Go byte slice literal.
	formatArray

	// formatRaw is the plain binary encoding.
	formatRaw
)

// parseFormat maps a format name to its format value.
func parseFormat(s string) (format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return formatDebug, nil
	case "bech32":
		return formatBech32, nil
	case "base58":
		return formatBase58, nil
	case "base64":
		return formatBase64, nil
	case "yaml":
		return formatYaml, nil
	case "json":
		return formatJSON, nil
	case "hex":
		return formatHex, nil
	case "array":
		return formatArray, nil
	case "raw", "bin":
		return formatRaw, nil
	default:
		return 0, fmt.Errorf("unknown format: %s", s)
	}
}

// argOrStdin returns the first command argument, falling back to reading the
// whole standard input.
func argOrStdin(ctx *cli.Context) (string, error) {
	if ctx.NArg() > 0 {
		return ctx.Args().First(), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// readInvoice parses invoice data in the given format.
func readInvoice(data string, f format) (*invoice.Invoice, error) {
	switch f {
	case formatBech32:
		return invoice.ParseText(strings.TrimSpace(data))

	case formatBase58:
		raw := base58.Decode(strings.TrimSpace(data))
		if len(raw) == 0 {
			return nil, fmt.Errorf("incorrect base58 encoding")
		}
		return invoice.DecodeBinary(bytes.NewReader(raw))

	case formatBase64:
		raw, err := base64.StdEncoding.DecodeString(
			strings.TrimSpace(data),
		)
		if err != nil {
			return nil, fmt.Errorf("incorrect base64 "+
				"encoding: %w", err)
		}
		return invoice.DecodeBinary(bytes.NewReader(raw))

	case formatYaml:
		var inv invoice.Invoice
		if err := yaml.Unmarshal([]byte(data), &inv); err != nil {
			return nil, err
		}
		return &inv, nil

	case formatJSON:
		var inv invoice.Invoice
		if err := json.Unmarshal([]byte(data), &inv); err != nil {
			return nil, err
		}
		return &inv, nil

	case formatHex:
		raw, err := hex.DecodeString(strings.TrimSpace(data))
		if err != nil {
			return nil, fmt.Errorf("incorrect hex encoding: %w",
				err)
		}
		return invoice.DecodeBinary(bytes.NewReader(raw))

	case formatRaw:
		return invoice.DecodeBinary(strings.NewReader(data))

	default:
		return nil, fmt.Errorf("can't read invoice data from this " +
			"format")
	}
}

// writeInvoice renders an invoice to the writer in the given format. Nothing
// is written when rendering fails.
func writeInvoice(w io.Writer, inv *invoice.Invoice, f format) error {
	switch f {
	case formatDebug:
		_, err := fmt.Fprint(w, spew.Sdump(inv))
		return err

	case formatBech32:
		text, err := inv.ToText()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, text)
		return err

	case formatBase58:
		_, err := fmt.Fprintln(w, base58.Encode(inv.MustEncode()))
		return err

	case formatBase64:
		_, err := fmt.Fprintln(
			w, base64.StdEncoding.EncodeToString(inv.MustEncode()),
		)
		return err

	case formatYaml:
		out, err := yaml.Marshal(inv)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err

	case formatJSON:
		out, err := json.Marshal(inv)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err

	case formatHex:
		_, err := fmt.Fprintln(
			w, hex.EncodeToString(inv.MustEncode()),
		)
		return err

	case formatArray:
		_, err := fmt.Fprintln(w, byteSliceLiteral(inv.MustEncode()))
		return err

	case formatRaw:
		_, err := w.Write(inv.MustEncode())
		return err

	default:
		return fmt.Errorf("can't write invoice data to this format")
	}
}

// readContractID parses an RGB contract id in the given format.
func readContractID(data string, f format) (rgb.ContractID, error) {
	data = strings.TrimSpace(data)
	switch f {
	case formatBech32, formatHex:
		return rgb.ParseContractID(data)

	case formatBase58:
		raw := base58.Decode(data)
		return contractFromBytes(raw)

	case formatBase64:
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return rgb.ContractID{}, fmt.Errorf("incorrect "+
				"base64 encoding: %w", err)
		}
		return contractFromBytes(raw)

	case formatRaw:
		return contractFromBytes([]byte(data))

	default:
		return rgb.ContractID{}, fmt.Errorf("can't read contract id " +
			"from this format")
	}
}

// writeContractID renders an RGB contract id to the writer in the given
// format.
func writeContractID(w io.Writer, id rgb.ContractID, f format) error {
	switch f {
	case formatDebug:
		_, err := fmt.Fprint(w, spew.Sdump(id))
		return err

	case formatBech32:
		_, err := fmt.Fprintln(w, id.String())
		return err

	case formatBase58:
		_, err := fmt.Fprintln(w, base58.Encode(id[:]))
		return err

	case formatBase64:
		_, err := fmt.Fprintln(
			w, base64.StdEncoding.EncodeToString(id[:]),
		)
		return err

	case formatYaml, formatJSON:
		_, err := fmt.Fprintf(w, "%q\n", id.String())
		return err

	case formatHex:
		_, err := fmt.Fprintln(w, id.Hex())
		return err

	case formatArray:
		_, err := fmt.Fprintln(w, byteSliceLiteral(id[:]))
		return err

	case formatRaw:
		_, err := w.Write(id[:])
		return err

	default:
		return fmt.Errorf("can't write contract id to this format")
	}
}

// contractFromBytes builds a contract id from raw bytes, enforcing length.
func contractFromBytes(raw []byte) (rgb.ContractID, error) {
	if len(raw) != 32 {
		return rgb.ContractID{}, fmt.Errorf("contract id must be 32 "+
			"bytes, got %d", len(raw))
	}

	var id rgb.ContractID
	copy(id[:], raw)

	return id, nil
}

// byteSliceLiteral renders bytes as a Go byte slice literal.
func byteSliceLiteral(data []byte) string {
	var sb strings.Builder
	sb.WriteString("[]byte{")
	for i, b := range data {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "0x%02X", b)
	}
	sb.WriteString("}")

	return sb.String()
}

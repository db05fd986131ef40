package invoice

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Details commits an invoice to an out-of-band document describing the
// purchase: Source locates the document and Commitment is the double-SHA256
// hash of its contents.
type Details struct {
	// Commitment is the hash of the document located by Source.
	Commitment chainhash.Hash

	// Source locates the document, typically a URL.
	Source string
}

// NewDetails builds a Details value committing to the given document bytes.
func NewDetails(source string, document []byte) Details {
	return Details{
		Commitment: chainhash.DoubleHashH(document),
		Source:     source,
	}
}

// String returns the source locator tagged with its commitment.
func (d Details) String() string {
	return fmt.Sprintf("%s#%v", d.Source, d.Commitment)
}

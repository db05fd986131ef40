package invoice

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// concealedSealHRP is the human-readable prefix of the text form of a
// concealed seal.
const concealedSealHRP = "utxob"

// ErrInvalidSeal is returned when a string does not parse as a seal.
var ErrInvalidSeal = errors.New("invalid seal")

// RevealedSeal is a transaction output together with a blinding factor. It is
// the preimage of a ConcealedSeal: protocols that assign client-validated
// state to existing UTXOs share only the concealed form with the payer.
type RevealedSeal struct {
	// OutPoint is the sealed transaction output.
	OutPoint wire.OutPoint

	// Blinding is the salt hiding the outpoint behind the concealed hash.
	Blinding uint64
}

// NewRevealedSeal wraps an outpoint with a cryptographically random blinding
// factor.
func NewRevealedSeal(op wire.OutPoint) (RevealedSeal, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return RevealedSeal{}, err
	}

	return RevealedSeal{
		OutPoint: op,
		Blinding: binary.BigEndian.Uint64(b[:]),
	}, nil
}

// Conceal derives the concealed form of the seal: the double-SHA256 hash of
// the serialized outpoint and blinding factor.
func (r RevealedSeal) Conceal() ConcealedSeal {
	var buf [44]byte
	copy(buf[:32], r.OutPoint.Hash[:])
	binary.BigEndian.PutUint32(buf[32:36], r.OutPoint.Index)
	binary.BigEndian.PutUint64(buf[36:44], r.Blinding)

	return ConcealedSeal(chainhash.DoubleHashH(buf[:]))
}

// String returns "txid:vout#blinding".
func (r RevealedSeal) String() string {
	return fmt.Sprintf("%v#%d", r.OutPoint, r.Blinding)
}

// ParseRevealedSeal parses the "txid:vout#blinding" form.
func ParseRevealedSeal(s string) (RevealedSeal, error) {
	outpoint, blinding, ok := strings.Cut(s, "#")
	if !ok {
		return RevealedSeal{}, fmt.Errorf("%w: missing blinding "+
			"factor", ErrInvalidSeal)
	}

	op, err := ParseOutPoint(outpoint)
	if err != nil {
		return RevealedSeal{}, err
	}

	salt, err := strconv.ParseUint(blinding, 10, 64)
	if err != nil {
		return RevealedSeal{}, fmt.Errorf("%w: %v", ErrInvalidSeal, err)
	}

	return RevealedSeal{OutPoint: op, Blinding: salt}, nil
}

// ParseOutPoint parses the "txid:vout" form of a transaction outpoint.
func ParseOutPoint(s string) (wire.OutPoint, error) {
	txid, vout, ok := strings.Cut(s, ":")
	if !ok {
		return wire.OutPoint{}, fmt.Errorf("%w: malformed outpoint",
			ErrInvalidSeal)
	}

	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return wire.OutPoint{}, fmt.Errorf("%w: %v", ErrInvalidSeal,
			err)
	}

	index, err := strconv.ParseUint(vout, 10, 32)
	if err != nil {
		return wire.OutPoint{}, fmt.Errorf("%w: %v", ErrInvalidSeal,
			err)
	}

	return wire.OutPoint{Hash: *hash, Index: uint32(index)}, nil
}

// ConcealedSeal is the salted hash of a transaction outpoint. Only the party
// that produced the seal can reveal which UTXO it commits to.
type ConcealedSeal [32]byte

// String returns the bech32 "utxob1..." form of the seal.
func (c ConcealedSeal) String() string {
	conv, err := bech32.ConvertBits(c[:], 8, 5, true)
	if err != nil {
		panic(fmt.Sprintf("unable to convert seal bits: %v", err))
	}

	s, err := bech32.Encode(concealedSealHRP, conv)
	if err != nil {
		panic(fmt.Sprintf("unable to encode seal: %v", err))
	}

	return s
}

// ParseConcealedSeal parses the bech32 "utxob1..." form of a seal.
func ParseConcealedSeal(s string) (ConcealedSeal, error) {
	hrp, data, err := bech32.DecodeNoLimit(strings.ToLower(s))
	if err != nil {
		return ConcealedSeal{}, fmt.Errorf("%w: %v", ErrInvalidSeal,
			err)
	}
	if hrp != concealedSealHRP {
		return ConcealedSeal{}, fmt.Errorf("%w: wrong prefix %q",
			ErrInvalidSeal, hrp)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return ConcealedSeal{}, fmt.Errorf("%w: %v", ErrInvalidSeal,
			err)
	}
	if len(raw) != 32 {
		return ConcealedSeal{}, fmt.Errorf("%w: wrong length %d",
			ErrInvalidSeal, len(raw))
	}

	var seal ConcealedSeal
	copy(seal[:], raw)

	return seal, nil
}

// Package wire implements the CBOR envelope the distributed protocol's
// participants exchange (DESIGN.md component C12), grounded on
// pkg/protocol/handler.go's cbor.Marshal/Unmarshal usage around its
// Message.Content field.
package wire

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/sha3"
)

// Round identifies which of the five network rounds an Envelope carries.
type Round int

const (
	RoundZPrime Round = iota + 1
	RoundYPrime
	RoundOPrime
	RoundXTilde
	RoundMacZ
)

// Envelope is one party's broadcast for one round of one job. BigInts is
// CBOR-encoded as a list of decimal strings: encoding/gob and cbor both
// handle math/big.Int awkwardly across versions, and spec.md's §8
// boundary scenarios are expressed as decimal literals, so this module
// keeps the wire form textual rather than relying on any one library's
// big.Int tag support.
type Envelope struct {
	JobID    uint64
	Round    Round
	FromID   int
	BigInts  []string   // Round payload, 1 scalar (rounds 1-3,5) or 3 (round 4)
}

// Bundle is the dealer's per-party, per-job preprocessing shipment
// (DESIGN.md component C10): every field a party.Materials needs that
// isn't itself rederivable, flattened into wire-friendly slices of
// decimal strings.
type Bundle struct {
	JobID  uint64
	Index  int
	SKShares   []string
	RShare     string
	SShare     string
	// SignRows[j] holds party Index's column of the j-th Sign table, one
	// decimal string per row.
	SignRows [][]string
	LTZRows  []string
	MacAlphaShare string
	MacRShares    []string
	// Chi is present only when the dealer runs in ChallengeDealer mode.
	Chi []string
}

func encodeInts(xs []*big.Int) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = x.String()
	}
	return out
}

func decodeInts(xs []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(xs))
	for i, s := range xs {
		x, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("wire: decode: invalid integer %q", s)
		}
		out[i] = x
	}
	return out, nil
}

// NewEnvelope builds an envelope for a round whose payload is a single
// scalar (rounds 1, 2, 3, and 5).
func NewEnvelope(jobID uint64, round Round, fromID int, value *big.Int) *Envelope {
	return &Envelope{JobID: jobID, Round: round, FromID: fromID, BigInts: encodeInts([]*big.Int{value})}
}

// NewRowEnvelope builds the round-4 envelope, whose payload is the
// three-value x̃ row.
func NewRowEnvelope(jobID uint64, fromID int, row []*big.Int) *Envelope {
	return &Envelope{JobID: jobID, Round: RoundXTilde, FromID: fromID, BigInts: encodeInts(row)}
}

// Scalar decodes a single-value envelope's payload.
func (e *Envelope) Scalar() (*big.Int, error) {
	if len(e.BigInts) != 1 {
		return nil, fmt.Errorf("wire: envelope: expected 1 value, got %d", len(e.BigInts))
	}
	ints, err := decodeInts(e.BigInts)
	if err != nil {
		return nil, err
	}
	return ints[0], nil
}

// Row decodes a multi-value envelope's payload.
func (e *Envelope) Row() ([]*big.Int, error) {
	return decodeInts(e.BigInts)
}

// Marshal encodes an envelope to CBOR for transmission.
func Marshal(e *Envelope) ([]byte, error) {
	data, err := cbor.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal envelope: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a CBOR-encoded envelope.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("wire: unmarshal envelope: %w", err)
	}
	return &e, nil
}

// MarshalBundle encodes a dealer bundle to CBOR for persistence or
// transmission to a participant process.
func MarshalBundle(b *Bundle) ([]byte, error) {
	data, err := cbor.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal bundle: %w", err)
	}
	return data, nil
}

// UnmarshalBundle decodes a CBOR-encoded dealer bundle.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("wire: unmarshal bundle: %w", err)
	}
	return &b, nil
}

// BundleChecksum returns the SHA3-256 digest of an encoded bundle. Per
// spec.md §6, persisted bundle files are overwritten on every run and
// never expected to be portable across parameter sets; the checksum lets
// a participant process that reads its file back detect a truncated or
// half-written copy before trusting the preprocessing material inside it.
func BundleChecksum(data []byte) []byte {
	sum := sha3.Sum256(data)
	return sum[:]
}

// VerifyBundleChecksum reports whether data hashes to the given digest.
func VerifyBundleChecksum(data, digest []byte) bool {
	return bytes.Equal(BundleChecksum(data), digest)
}

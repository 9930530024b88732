package mac

import (
	"encoding/binary"
	"io"
	"math/big"

	"github.com/luxfi/lwethreshold/internal/ring"
	"github.com/zeebo/blake3"
)

// ChallengeFunc produces the public challenge vector χ used by a party's
// MAC-check contribution (party.Party.RoundFive), given the revealed x̃
// vector. The centralized BatchCheck does not take a ChallengeFunc; it
// samples its own χ.
type ChallengeFunc func(xTilde []*big.Int) []*big.Int

// DealerChallenge returns a ChallengeFunc that always returns a fixed,
// pre-distributed χ and ignores x̃ (the dealer.ChallengeDealer mode).
func DealerChallenge(chi []*big.Int) ChallengeFunc {
	return func([]*big.Int) []*big.Int {
		return chi
	}
}

// DerivedChallenge returns a ChallengeFunc that derives χ by hashing the
// revealed x̃ vector with blake3, closing the "dealer-chosen challenge"
// gap spec.md §9 flags: no single party (dealer included) picks χ. The
// hash input is the revealed vector (the column sums of the broadcast x̃
// rows); the individual parties' rows are not hashed. It is the default
// in party.Party.RoundFive when Materials.Challenge is nil.
func DerivedChallenge(sBits uint) ChallengeFunc {
	return func(xTilde []*big.Int) []*big.Int {
		return deriveChallenge(xTilde, sBits)
	}
}

func deriveChallenge(xTilde []*big.Int, sBits uint) []*big.Int {
	h := blake3.New()
	for _, x := range xTilde {
		b := x.Bytes()
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
		h.Write(lenBuf[:])
		h.Write(b)
	}

	byteLen := int((sBits + 7) / 8)
	out := make([]*big.Int, len(xTilde))
	digest := h.Digest()
	for j := range xTilde {
		buf := make([]byte, byteLen)
		if _, err := io.ReadFull(digest, buf); err != nil {
			panic("mac: derive challenge: blake3 xof read: " + err.Error())
		}
		out[j] = ring.ModFloor(new(big.Int).SetBytes(buf), sBits)
	}
	return out
}

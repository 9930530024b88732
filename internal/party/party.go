// Package party implements one party's state machine in the distributed
// decryption protocol: five network rounds of local compute followed by a
// broadcast, then a local-only finalize. Grounded on
// original_source/src/mpc/party.rs (DESIGN.md component C8), but see
// SPEC_FULL.md §4.6 for why round 4 is split into two sub-phases here
// rather than following party.rs's execute_step_four/five literally, since
// that pair never completes a working MAC check (step five computes a sum
// and discards it without testing it against zero).
package party

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/lwethreshold/internal/digits"
	"github.com/luxfi/lwethreshold/internal/gate"
	"github.com/luxfi/lwethreshold/internal/lwe"
	"github.com/luxfi/lwethreshold/internal/mac"
	"github.com/luxfi/lwethreshold/internal/params"
	"github.com/luxfi/lwethreshold/internal/ring"
	"github.com/luxfi/lwethreshold/internal/sharing"
)

// ErrInvariantViolated replaces the source's panic/.expect() on a round run
// out of order or run twice, per SPEC_FULL.md §7's REDESIGN: Go callers get
// a recoverable error, not a crash.
var ErrInvariantViolated = errors.New("party: invariant violated")

// Materials is the per-job preprocessing bundle a single party receives
// from the dealer (DESIGN.md component C10): its share of the secret key,
// its shares of the masks r and s, its columns of the Sign and
// LessThanZero gate tables, and its MAC key share, mask row, and
// (optionally) dealer-chosen challenge.
type Materials struct {
	Index     int
	SKShares  []*big.Int // this party's share of sk, one entry per LWE dimension

	RShare *big.Int // share of the z′ mask r
	SShare *big.Int // share of the y′ mask s

	// SignColumns holds one column per digit position (length Params.D),
	// each built from the corresponding digit of r.
	SignColumns []*gate.Column
	// LTZColumn is this party's column of the LessThanZero(y, s) table.
	LTZColumn *gate.Column

	MacAlphaShare *big.Int
	// MacRShares masks the three batched values [z′, y′, o′], in that
	// order.
	MacRShares []*big.Int
	// Challenge selects how χ is obtained in round 5: a fixed
	// mac.DealerChallenge, or nil to derive it from the broadcast x̃ via
	// mac.DerivedChallenge (SPEC_FULL.md §4.5's redesign).
	Challenge mac.ChallengeFunc
}

// Party holds one party's ephemeral state across a single decryption job's
// five rounds.
type Party struct {
	params *params.Params
	mat    *Materials
	mac    *mac.Scheme

	// round outputs retained for later rounds' local compute.
	zShare      *big.Int
	zPrimeShare *big.Int
	zPrimeRevealed *big.Int
	yPrimeShare *big.Int
	oPrimeShare *big.Int
	oPrimeShares []*big.Int
	xTildeRow   []*big.Int
	mTildeRow   []*big.Int

	round int
}

// New constructs a party ready to run round 1 for a single decryption job.
func New(p *params.Params, mat *Materials) *Party {
	return &Party{
		params: p,
		mat:    mat,
		mac:    mac.New(mat.MacAlphaShare, mac.NewParams(0, p.K, p.MacS)),
	}
}

func (pt *Party) expectRound(n int) error {
	if pt.round != n-1 {
		return fmt.Errorf("%w: round %d run out of order (have completed %d)", ErrInvariantViolated, n, pt.round)
	}
	return nil
}

func (pt *Party) yPrimeBits() uint { return uint(pt.params.D) + 1 }

// RoundOne computes this party's share of z = (b + L/2 − ⟨a,sk⟩) mod q,
// where only party index 0 folds in the public ciphertext's b and the
// noise-rounding offset, and emits z′ = (z + r) mod L.
func (pt *Party) RoundOne(ct *lwe.Ciphertext) (*big.Int, error) {
	if err := pt.expectRound(1); err != nil {
		return nil, err
	}
	if len(ct.A) != len(pt.mat.SKShares) {
		return nil, fmt.Errorf("party: round one: ciphertext dimension %d != sk share dimension %d", len(ct.A), len(pt.mat.SKShares))
	}

	dot := big.NewInt(0)
	for i, a := range ct.A {
		dot.Add(dot, new(big.Int).Mul(a, pt.mat.SKShares[i]))
	}
	z := new(big.Int).Neg(dot)
	if pt.mat.Index == 0 {
		offset := new(big.Int).Rsh(pt.params.NoiseModulus, 1) // L/2 = q/(2p)
		z.Add(z, ct.B)
		z.Add(z, offset)
	}
	z = ring.ModFloor(z, pt.params.K)
	pt.zShare = z

	zPrime := ring.ModFloor(new(big.Int).Add(z, pt.mat.RShare), pt.params.L)
	pt.zPrimeShare = zPrime
	pt.round = 1
	return zPrime, nil
}

// RoundTwo reveals z′, decomposes it into Params.D base-Radix digits, looks
// up this party's share of each digit's sign relative to the matching
// digit of r, folds the weighted sum into y, and emits y′ = (y + s) mod
// YPrimeDomain.
func (pt *Party) RoundTwo(zPrimeShares []*big.Int) (*big.Int, error) {
	if err := pt.expectRound(2); err != nil {
		return nil, err
	}

	zPrime := sharing.Reveal(zPrimeShares, pt.params.L)
	pt.zPrimeRevealed = zPrime
	dg := digits.Pad(digits.Decompose(zPrime, pt.params.Radix.Int64()), pt.params.D)
	if len(dg) != len(pt.mat.SignColumns) {
		return nil, fmt.Errorf("party: round two: %d digits != %d sign columns", len(dg), len(pt.mat.SignColumns))
	}

	y := big.NewInt(0)
	for j, digitValue := range dg {
		signShare, err := pt.mat.SignColumns[j].Lookup(int(digitValue))
		if err != nil {
			return nil, fmt.Errorf("party: round two: digit %d: %w", j, err)
		}
		weighted := new(big.Int).Lsh(signShare, uint(j))
		y.Add(y, weighted)
	}
	y = ring.ModFloor(y, pt.yPrimeBits())

	yPrime := ring.ModFloor(new(big.Int).Add(y, pt.mat.SShare), pt.yPrimeBits())
	pt.yPrimeShare = yPrime
	pt.round = 2
	return yPrime, nil
}

// RoundThree reveals y′, looks up this party's share of whether the masked
// comparison went negative, and emits o′ = (z + (−e mod q)) mod q, where e
// folds in z′ (party 0 only), −r, and L·u.
func (pt *Party) RoundThree(yPrimeShares []*big.Int) (*big.Int, error) {
	if err := pt.expectRound(3); err != nil {
		return nil, err
	}
	yPrime := sharing.Reveal(yPrimeShares, pt.yPrimeBits())

	if yPrime.Sign() < 0 || yPrime.Cmp(big.NewInt(int64(len(pt.mat.LTZColumn.Shares)))) >= 0 {
		return nil, fmt.Errorf("party: round three: revealed y′=%s out of LTZ table range", yPrime)
	}
	u, err := pt.mat.LTZColumn.Lookup(int(yPrime.Int64()))
	if err != nil {
		return nil, fmt.Errorf("party: round three: %w", err)
	}

	e := ring.ModFloor(new(big.Int).Neg(pt.mat.RShare), pt.params.K)
	e.Add(e, new(big.Int).Mul(pt.params.NoiseModulus, u))
	if pt.mat.Index == 0 {
		e.Add(e, pt.zPrimeRevealed)
	}
	e = ring.ModFloor(e, pt.params.K)

	oPrime := ring.ModFloor(new(big.Int).Sub(pt.zShare, e), pt.params.K)
	pt.oPrimeShare = oPrime
	pt.round = 3
	return oPrime, nil
}

// RoundFour stores the broadcast o′ shares (needed later to reveal o′ in
// Finalize), masks this party's own row [z′, y′, o′] with its MAC mask
// row, and emits the resulting x̃ row.
func (pt *Party) RoundFour(oPrimeShares []*big.Int) ([]*big.Int, error) {
	if err := pt.expectRound(4); err != nil {
		return nil, err
	}
	pt.oPrimeShares = append([]*big.Int(nil), oPrimeShares...)

	ownRow := []*big.Int{pt.zPrimeShare, pt.yPrimeShare, pt.oPrimeShare}
	xTildeRow, mTildeRow, err := pt.mac.PartyMaskAndMAC(ownRow, pt.mat.MacRShares)
	if err != nil {
		return nil, fmt.Errorf("party: round four: %w", err)
	}
	pt.xTildeRow = xTildeRow
	pt.mTildeRow = mTildeRow
	pt.round = 4
	return xTildeRow, nil
}

// RoundFive reveals the public x̃, obtains the challenge χ (dealer-supplied
// or derived, per Materials.Challenge), and emits this party's MAC-check
// contribution z_i.
func (pt *Party) RoundFive(xTildeRows [][]*big.Int) (*big.Int, error) {
	if err := pt.expectRound(5); err != nil {
		return nil, err
	}
	xTilde, err := mac.RevealBatch(xTildeRows, pt.params.MacKS)
	if err != nil {
		return nil, fmt.Errorf("party: round five: %w", err)
	}

	challengeFn := pt.mat.Challenge
	if challengeFn == nil {
		challengeFn = mac.DerivedChallenge(pt.params.MacS)
	}
	chi := challengeFn(xTilde)

	z, err := pt.mac.PartyCheckContribution(chi, xTilde, pt.mTildeRow)
	if err != nil {
		return nil, fmt.Errorf("party: round five: %w", err)
	}
	pt.round = 5
	return z, nil
}

// Finalize sums the received MAC-check contributions; on acceptance it
// reveals o′ and returns round_div(o′, L) as the plaintext, otherwise
// mac.ErrMACCheckFailed.
func (pt *Party) Finalize(zShares []*big.Int) (*big.Int, error) {
	if err := pt.expectRound(6); err != nil {
		return nil, err
	}
	if !mac.Accept(zShares, pt.params.MacKS) {
		return nil, mac.ErrMACCheckFailed
	}

	oPrime := sharing.Reveal(pt.oPrimeShares, pt.params.K)
	centered := ring.Center(oPrime, pt.params.Q)
	plaintext := ring.RoundDiv(centered, pt.params.NoiseModulus)
	pt.round = 6
	return ring.ModFloor(plaintext, pt.params.M), nil
}

// Package mac implements the information-theoretic MAC scheme of Damgård et
// al. (the two-ring construction): batch_open/batch_check over t batched
// values, and their single-value degenerate forms. Grounded on
// original_source/src/mpc/mac_scheme.rs (DESIGN.md component C7).
package mac

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/luxfi/lwethreshold/internal/ring"
	"github.com/luxfi/lwethreshold/internal/sharing"
)

// Params mirrors original_source's MACSchemeParams: N players, a K-bit
// small ring holding the authenticated values, and an S-bit security
// parameter giving the KS = K+S bit authenticated ring.
type Params struct {
	N  int
	K  uint
	S  uint
	KS uint
}

// NewParams derives KS = K + S.
func NewParams(n int, k, s uint) Params {
	return Params{N: n, K: k, S: s, KS: k + s}
}

// Scheme is one party's view of the MAC: its own share of the global key α.
// The field is named AlphaShare, not Alpha, to make clear that in the
// distributed path no party ever holds the real α (spec.md §9).
type Scheme struct {
	Params     Params
	AlphaShare *big.Int
}

// New constructs a party's Scheme from its share of the global MAC key.
func New(alphaShare *big.Int, p Params) *Scheme {
	return &Scheme{Params: p, AlphaShare: alphaShare}
}

// ShareGlobalKey additively shares the real α in the KS-bit ring. Valid
// only for the centralized benchmark/test path described in spec.md §9;
// the distributed per-party path never reconstructs α.
func ShareGlobalKey(rnd io.Reader, alpha *big.Int, n int, ks uint) ([]*big.Int, error) {
	return sharing.Share(rnd, alpha, n, ks)
}

// PartyMaskAndMAC is the per-party half of batch_open (spec.md §4.5/§8's
// round 4): given this party's shares of t batched values and its
// pre-distributed MAC masks r_mac (one per value), compute this party's
// x̃ shares (x_j + 2^k·r_j) and MAC shares (α_i · x̃_j), both reduced into
// the KS-bit ring.
func (s *Scheme) PartyMaskAndMAC(xShares, rMacShares []*big.Int) (xTildeShares, mTildeShares []*big.Int, err error) {
	if len(xShares) != len(rMacShares) {
		return nil, nil, fmt.Errorf("mac: mask and mac: length mismatch %d != %d", len(xShares), len(rMacShares))
	}
	bigK := ring.Modulus(s.Params.K)
	xTildeShares = make([]*big.Int, len(xShares))
	mTildeShares = make([]*big.Int, len(xShares))
	for j := range xShares {
		xt := new(big.Int).Add(xShares[j], new(big.Int).Mul(bigK, rMacShares[j]))
		xt = ring.ModFloor(xt, s.Params.KS)
		xTildeShares[j] = xt
		mTildeShares[j] = ring.ModFloor(new(big.Int).Mul(s.AlphaShare, xt), s.Params.KS)
	}
	return xTildeShares, mTildeShares, nil
}

// RevealBatch combines every party's x̃-share row into the public x̃
// vector: one reveal per batched column, per spec.md §4.5's "parties
// broadcast x̃-shares; anyone sums per column".
func RevealBatch(sharesByParty [][]*big.Int, e uint) ([]*big.Int, error) {
	if len(sharesByParty) == 0 {
		return nil, errors.New("mac: reveal batch: no parties")
	}
	t := len(sharesByParty[0])
	out := make([]*big.Int, t)
	for j := 0; j < t; j++ {
		col := make([]*big.Int, len(sharesByParty))
		for i := range sharesByParty {
			if len(sharesByParty[i]) != t {
				return nil, fmt.Errorf("mac: reveal batch: ragged party rows")
			}
			col[i] = sharesByParty[i][j]
		}
		out[j] = sharing.Reveal(col, e)
	}
	return out, nil
}

func dot(a, b []*big.Int, e uint) (*big.Int, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("mac: dot: length mismatch %d != %d", len(a), len(b))
	}
	sum := big.NewInt(0)
	for i := range a {
		sum.Add(sum, new(big.Int).Mul(a[i], b[i]))
	}
	return ring.ModFloor(sum, e), nil
}

// PartyCheckContribution is the per-party half of batch_check: given the
// public challenge vector χ, the revealed x̃, and this party's own row of
// m̃ shares, compute z_i = (⟨χ,m̃_i⟩ − α_i·⟨χ,x̃⟩) mod 2^ks.
func (s *Scheme) PartyCheckContribution(chi, xTilde, myMTildeRow []*big.Int) (*big.Int, error) {
	yTilde, err := dot(chi, xTilde, s.Params.KS)
	if err != nil {
		return nil, err
	}
	combined, err := dot(chi, myMTildeRow, s.Params.KS)
	if err != nil {
		return nil, err
	}
	z := new(big.Int).Sub(combined, new(big.Int).Mul(s.AlphaShare, yTilde))
	return ring.ModFloor(z, s.Params.KS), nil
}

// Accept reports whether the parties' combined MAC-check contributions sum
// to zero mod 2^ks, per spec.md §4.5.
func Accept(zShares []*big.Int, ks uint) bool {
	return sharing.Reveal(zShares, ks).Sign() == 0
}

// ErrMACCheckFailed is the recoverable, per-job error raised when a
// batch_check/single_check fails to accept.
var ErrMACCheckFailed = errors.New("mac: check failed")

// ExtractValues reduces the revealed x̃ vector mod 2^k to recover the
// authenticated values, once Accept has returned true.
func ExtractValues(xTilde []*big.Int, k uint) []*big.Int {
	out := make([]*big.Int, len(xTilde))
	for i, x := range xTilde {
		out[i] = ring.ModFloor(x, k)
	}
	return out
}

// BatchOpen is the centralized/single-process form used by the protocol
// orchestrator's post-pass (spec.md §9): given the real α and the full
// N x t matrix of x-shares, sample fresh masks, mask, MAC, and reveal.
func BatchOpen(rnd io.Reader, alpha *big.Int, p Params, xSharesByParty [][]*big.Int) (xTilde []*big.Int, mTildeByParty [][]*big.Int, err error) {
	if len(xSharesByParty) != p.N {
		return nil, nil, fmt.Errorf("mac: batch open: expected %d party rows, got %d", p.N, len(xSharesByParty))
	}
	t := len(xSharesByParty[0])

	rMacSharesByParty := make([][]*big.Int, p.N)
	for i := range rMacSharesByParty {
		rMacSharesByParty[i] = make([]*big.Int, t)
	}
	for j := 0; j < t; j++ {
		r, err := ring.Sample(rnd, p.S)
		if err != nil {
			return nil, nil, fmt.Errorf("mac: batch open: sampling r[%d]: %w", j, err)
		}
		rShares, err := sharing.Share(rnd, r, p.N, p.S)
		if err != nil {
			return nil, nil, fmt.Errorf("mac: batch open: sharing r[%d]: %w", j, err)
		}
		for i := 0; i < p.N; i++ {
			rMacSharesByParty[i][j] = rShares[i]
		}
	}

	mTildeByParty = make([][]*big.Int, p.N)
	xTildeByParty := make([][]*big.Int, p.N)
	for i := 0; i < p.N; i++ {
		scheme := &Scheme{Params: p, AlphaShare: alpha}
		xt, mt, err := scheme.PartyMaskAndMAC(xSharesByParty[i], rMacSharesByParty[i])
		if err != nil {
			return nil, nil, err
		}
		xTildeByParty[i] = xt
		mTildeByParty[i] = mt
	}

	xTilde, err = RevealBatch(xTildeByParty, p.KS)
	if err != nil {
		return nil, nil, err
	}
	return xTilde, mTildeByParty, nil
}

// BatchCheck is the centralized form of batch_check: sample a fresh public
// challenge, combine every party's contribution, and accept/reject.
func BatchCheck(rnd io.Reader, p Params, xTilde []*big.Int, alphaShares []*big.Int, mTildeByParty [][]*big.Int) ([]*big.Int, error) {
	t := len(xTilde)
	chi := make([]*big.Int, t)
	for j := 0; j < t; j++ {
		c, err := ring.Sample(rnd, p.S)
		if err != nil {
			return nil, fmt.Errorf("mac: batch check: sampling chi[%d]: %w", j, err)
		}
		chi[j] = c
	}

	zShares := make([]*big.Int, p.N)
	for i := 0; i < p.N; i++ {
		scheme := &Scheme{Params: p, AlphaShare: alphaShares[i]}
		z, err := scheme.PartyCheckContribution(chi, xTilde, mTildeByParty[i])
		if err != nil {
			return nil, err
		}
		zShares[i] = z
	}

	if !Accept(zShares, p.KS) {
		return nil, ErrMACCheckFailed
	}
	return ExtractValues(xTilde, p.K), nil
}

// SingleOpen is the degenerate t=1 form of batch_open used for sanity
// tests: [y] = [x + 2^k · r].
func SingleOpen(rnd io.Reader, p Params, xShares []*big.Int) ([]*big.Int, error) {
	if len(xShares) != p.N {
		return nil, fmt.Errorf("mac: single open: expected %d shares, got %d", p.N, len(xShares))
	}
	r, err := ring.Sample(rnd, p.S)
	if err != nil {
		return nil, fmt.Errorf("mac: single open: sampling r: %w", err)
	}
	rShares, err := sharing.Share(rnd, r, p.N, p.S)
	if err != nil {
		return nil, fmt.Errorf("mac: single open: sharing r: %w", err)
	}
	bigK := ring.Modulus(p.K)
	y := make([]*big.Int, p.N)
	for i := range xShares {
		v := new(big.Int).Add(xShares[i], new(big.Int).Mul(bigK, rShares[i]))
		y[i] = ring.ModFloor(v, p.KS)
	}
	return y, nil
}

// SingleCheck is the degenerate t=1 form of batch_check: the centralized
// sanity-test path, given the real α, the publicly revealed y, and the
// per-party α shares, freshly shares y·α and verifies.
func SingleCheck(rnd io.Reader, p Params, alpha, y *big.Int, alphaShares []*big.Int) (*big.Int, error) {
	if len(alphaShares) != p.N {
		return nil, fmt.Errorf("mac: single check: expected %d alpha shares, got %d", p.N, len(alphaShares))
	}
	yMac := ring.ModFloor(new(big.Int).Mul(y, alpha), p.KS)
	yMacShares, err := sharing.Share(rnd, yMac, p.N, p.KS)
	if err != nil {
		return nil, fmt.Errorf("mac: single check: sharing y*alpha: %w", err)
	}

	zShares := make([]*big.Int, p.N)
	for i := 0; i < p.N; i++ {
		z := new(big.Int).Sub(yMacShares[i], new(big.Int).Mul(alphaShares[i], y))
		zShares[i] = ring.ModFloor(z, p.KS)
	}
	if !Accept(zShares, p.KS) {
		return nil, ErrMACCheckFailed
	}
	return ring.ModFloor(y, p.K), nil
}

// Package sharing implements additive secret sharing over ℤ/2^e: split a
// secret into N shares that individually reveal nothing, and combine them
// back. Grounded on original_source/src/mpc/additive_sharing.rs (see
// DESIGN.md component C2).
package sharing

import (
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/luxfi/lwethreshold/internal/ring"
)

// Share splits x into n additive shares over ℤ/2^e: the first n-1 shares are
// drawn uniformly from [0, 2^e) using rnd, and the last is set so the shares
// sum to x mod 2^e.
func Share(rnd io.Reader, x *big.Int, n int, e uint) ([]*big.Int, error) {
	if n < 1 {
		return nil, fmt.Errorf("sharing: n must be >= 1, got %d", n)
	}
	shares := make([]*big.Int, n)
	sum := big.NewInt(0)
	for i := 0; i < n-1; i++ {
		s, err := ring.Sample(rnd, e)
		if err != nil {
			return nil, fmt.Errorf("sharing: share %d: %w", i, err)
		}
		shares[i] = s
		sum.Add(sum, s)
	}
	shares[n-1] = ring.ModFloor(new(big.Int).Sub(x, sum), e)
	return shares, nil
}

// Reveal sums the shares and floor-mods by 2^e. Per spec.md §5's debugging
// convention, a sorted copy is summed so repeated runs are reproducible;
// summation order is otherwise irrelevant since addition mod 2^e commutes.
func Reveal(shares []*big.Int, e uint) *big.Int {
	sorted := make([]*big.Int, len(shares))
	copy(sorted, shares)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })

	sum := big.NewInt(0)
	for _, s := range sorted {
		sum.Add(sum, s)
	}
	return ring.ModFloor(sum, e)
}

// ScaleConstant multiplies every share by a public constant c (pointwise),
// a public-coin linear operation every party can perform locally.
func ScaleConstant(shares []*big.Int, c *big.Int, e uint) []*big.Int {
	out := make([]*big.Int, len(shares))
	for i, s := range shares {
		out[i] = ring.ModFloor(new(big.Int).Mul(s, c), e)
	}
	return out
}

// AddConstant folds a public constant into party 0's share only, the
// single-party-absorbs-constants convention (spec.md §9) used to encode
// every affine offset in the protocol.
func AddConstant(shares []*big.Int, c *big.Int, e uint) []*big.Int {
	out := append([]*big.Int(nil), shares...)
	out[0] = ring.ModFloor(new(big.Int).Add(out[0], c), e)
	return out
}

// Add combines two share vectors pointwise.
func Add(a, b []*big.Int, e uint) ([]*big.Int, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("sharing: add: length mismatch %d != %d", len(a), len(b))
	}
	out := make([]*big.Int, len(a))
	for i := range a {
		out[i] = ring.ModFloor(new(big.Int).Add(a[i], b[i]), e)
	}
	return out, nil
}

// Sub subtracts b from a pointwise.
func Sub(a, b []*big.Int, e uint) ([]*big.Int, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("sharing: sub: length mismatch %d != %d", len(a), len(b))
	}
	out := make([]*big.Int, len(a))
	for i := range a {
		out[i] = ring.ModFloor(new(big.Int).Sub(a[i], b[i]), e)
	}
	return out, nil
}

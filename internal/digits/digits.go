// Package digits implements little-endian base-B decomposition of a
// non-negative integer, grounded on
// original_source/src/mpc/base_decomposition.rs (DESIGN.md component C3).
package digits

import "math/big"

// Decompose produces the least-significant-digit-first base-B digits of a
// non-negative x. Decompose(0, base) is the empty slice.
func Decompose(x *big.Int, base int64) []int64 {
	if x.Sign() == 0 {
		return nil
	}
	b := big.NewInt(base)
	rem := new(big.Int).Set(x)
	var out []int64
	for rem.Sign() > 0 {
		q, r := new(big.Int).QuoRem(rem, b, new(big.Int))
		out = append(out, r.Int64())
		rem = q
	}
	return out
}

// Pad zero-extends digits to exactly d entries on the high end, the
// convention the protocol uses so every decomposition has a fixed width d.
func Pad(dg []int64, d int) []int64 {
	out := make([]int64, d)
	copy(out, dg)
	return out
}

// Recompose is the inverse of Decompose/Pad: Σ_j base^j · digits[j].
func Recompose(dg []int64, base int64) *big.Int {
	b := big.NewInt(base)
	sum := big.NewInt(0)
	pow := big.NewInt(1)
	for _, d := range dg {
		term := new(big.Int).Mul(pow, big.NewInt(d))
		sum.Add(sum, term)
		pow.Mul(pow, b)
	}
	return sum
}

// Package ring implements the floor-mod arithmetic over power-of-two rings
// ℤ/2^e that every other component in this module builds on. The spec
// treats an arbitrary-precision integer arena as an externally supplied
// component; this package is the thin adapter onto math/big that realizes
// it (see DESIGN.md, component C0/C1).
package ring

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

var one = big.NewInt(1)

// Modulus returns 2^e.
func Modulus(e uint) *big.Int {
	return new(big.Int).Lsh(one, e)
}

// ModFloor reduces x into [0, 2^e) regardless of the sign of x. This is the
// canonical reduction used throughout: no negative residues are ever stored.
func ModFloor(x *big.Int, e uint) *big.Int {
	m := Modulus(e)
	r := new(big.Int).Mod(x, m)
	if r.Sign() < 0 {
		r.Add(r, m)
	}
	return r
}

// Sample draws a uniform element of [0, 2^e) using rnd as the entropy
// source. e = 0 always yields 0.
func Sample(rnd io.Reader, e uint) (*big.Int, error) {
	if e == 0 {
		return big.NewInt(0), nil
	}
	x, err := rand.Int(rnd, Modulus(e))
	if err != nil {
		return nil, fmt.Errorf("ring: sample: %w", err)
	}
	return x, nil
}

// SampleRange draws a uniform element of [lo, hi).
func SampleRange(rnd io.Reader, lo, hi *big.Int) (*big.Int, error) {
	span := new(big.Int).Sub(hi, lo)
	if span.Sign() <= 0 {
		return nil, fmt.Errorf("ring: sample range: empty range [%s, %s)", lo, hi)
	}
	x, err := rand.Int(rnd, span)
	if err != nil {
		return nil, fmt.Errorf("ring: sample range: %w", err)
	}
	return x.Add(x, lo), nil
}

// RoundDiv returns the integer nearest to x/q, with ties (|2·rem| = |q|)
// broken away from zero, per spec.md §4.7/§8.
func RoundDiv(x, q *big.Int) *big.Int {
	if q.Sign() == 0 {
		panic("ring: round div by zero")
	}
	quo, rem := new(big.Int).QuoRem(x, q, new(big.Int))
	twiceRem := new(big.Int).Lsh(new(big.Int).Abs(rem), 1)
	absQ := new(big.Int).Abs(q)
	if twiceRem.Cmp(absQ) >= 0 {
		if x.Sign() >= 0 {
			quo.Add(quo, one)
		} else {
			quo.Sub(quo, one)
		}
	}
	return quo
}

// Bit returns whether the i-th bit of x is set, after floor-reducing x into
// a non-negative representation.
func Bit(x *big.Int, i uint) bool {
	return x.Bit(int(i)) == 1
}

// Center re-expresses a value x held in its canonical [0, q) representative
// as a signed residue in (-q/2, q/2], the representation round_div expects.
func Center(x, q *big.Int) *big.Int {
	half := new(big.Int).Rsh(q, 1)
	if x.Cmp(half) > 0 {
		return new(big.Int).Sub(x, q)
	}
	return new(big.Int).Set(x)
}

// Package lwe implements the single-ciphertext-scalar Learning-With-Errors
// encryption scheme: keygen, encrypt, and decrypt, grounded on
// original_source/src/mpc/lwe_scheme.rs (DESIGN.md component C4).
package lwe

import (
	"fmt"
	"io"
	"math/big"

	"github.com/luxfi/lwethreshold/internal/params"
	"github.com/luxfi/lwethreshold/internal/ring"
)

// PublicKey is the LWE public matrix/vector pair. It is built by Keygen to
// document the scheme but, per spec.md §3, is not consumed by the rest of
// the system; no other component reads it.
type PublicKey struct {
	A [][]*big.Int // NPk x NLwe, uniform mod q
	B []*big.Int   // NPk, B_i = (-<A_i, sk> + e_i) mod q
}

// Scheme holds the derived parameters and the secret key material needed
// to encrypt/decrypt. Scheme.pk is retained purely for inspection, per
// SPEC_FULL.md §3's supplement over the original's commented-out field.
type Scheme struct {
	Params *params.Params
	sk     []*big.Int
	pk     *PublicKey
}

// Keypair is the output of Keygen: a secret key together with the
// documentation-only public key.
type Keypair struct {
	SK []*big.Int
	PK *PublicKey
}

// Ciphertext is the pair (a, b) described in spec.md §3.
type Ciphertext struct {
	A []*big.Int
	B *big.Int
}

// Keygen samples sk (NLwe uniform elements of ℤ_q), a public matrix A
// (NPk x NLwe), noise e (NPk elements uniform in [-q/2p, q/2p)), and
// b = -A·sk + e mod q.
func Keygen(rnd io.Reader, p *params.Params, nPk int) (*Scheme, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if nPk <= 0 {
		return nil, fmt.Errorf("lwe: keygen: nPk must be > 0")
	}

	sk := make([]*big.Int, p.LweDim)
	for i := range sk {
		x, err := ring.Sample(rnd, p.K)
		if err != nil {
			return nil, fmt.Errorf("lwe: keygen: sampling sk[%d]: %w", i, err)
		}
		sk[i] = x
	}

	noiseBound := noiseBound(p)
	negNoiseBound := new(big.Int).Neg(noiseBound)

	a := make([][]*big.Int, nPk)
	b := make([]*big.Int, nPk)
	for i := 0; i < nPk; i++ {
		row := make([]*big.Int, p.LweDim)
		for j := range row {
			x, err := ring.Sample(rnd, p.K)
			if err != nil {
				return nil, fmt.Errorf("lwe: keygen: sampling A[%d][%d]: %w", i, j, err)
			}
			row[j] = x
		}
		a[i] = row

		e, err := ring.SampleRange(rnd, negNoiseBound, noiseBound)
		if err != nil {
			return nil, fmt.Errorf("lwe: keygen: sampling e[%d]: %w", i, err)
		}

		dot := dotProduct(row, sk, p.K)
		bi := new(big.Int).Neg(dot)
		bi.Add(bi, e)
		b[i] = ring.ModFloor(bi, p.K)
	}

	return &Scheme{
		Params: p,
		sk:     sk,
		pk:     &PublicKey{A: a, B: b},
	}, nil
}

// PublicKey returns the scheme's documentation-only public key.
func (s *Scheme) PublicKey() *PublicKey { return s.pk }

// SecretKey returns the scheme's secret key vector. Exposed so the
// preprocessing dealer (C10) can split it into per-party shares.
func (s *Scheme) SecretKey() []*big.Int { return s.sk }

// noiseBound returns q/(2p) as a *big.Int, the scheme's noise budget.
func noiseBound(p *params.Params) *big.Int {
	// q/(2p) = 2^k / (2 * 2^m) = 2^(k-m-1) = L/2.
	return new(big.Int).Rsh(p.NoiseModulus, 1)
}

func dotProduct(a, b []*big.Int, k uint) *big.Int {
	sum := big.NewInt(0)
	for i := range a {
		sum.Add(sum, new(big.Int).Mul(a[i], b[i]))
	}
	return ring.ModFloor(sum, k)
}

// Encrypt samples a fresh a ∈ ℤ_q^NLwe and error in [0, q/(2p)), returning
// (a, b) with b = (-<a,sk> + e + (q/p)·m) mod q.
func (s *Scheme) Encrypt(rnd io.Reader, m *big.Int) (*Ciphertext, error) {
	p := s.Params
	if m.Sign() < 0 || m.Cmp(p.P) >= 0 {
		return nil, fmt.Errorf("lwe: encrypt: plaintext %s out of range [0, %s)", m, p.P)
	}

	a := make([]*big.Int, p.LweDim)
	for i := range a {
		x, err := ring.Sample(rnd, p.K)
		if err != nil {
			return nil, fmt.Errorf("lwe: encrypt: sampling a[%d]: %w", i, err)
		}
		a[i] = x
	}

	// q/(2p) = 2^(l-1); sampling [0, 2^(l-1)) is exact since l-1 >= 0 whenever
	// l >= 1, which params.New guarantees (l = k - m > 0).
	e, err := ring.Sample(rnd, p.L-1)
	if err != nil {
		return nil, fmt.Errorf("lwe: encrypt: sampling error: %w", err)
	}

	dot := dotProduct(a, s.sk, p.K)
	scale := new(big.Int).Div(p.Q, p.P) // q/p = L
	b := new(big.Int).Neg(dot)
	b.Add(b, e)
	b.Add(b, new(big.Int).Mul(scale, m))
	b = ring.ModFloor(b, p.K)

	return &Ciphertext{A: a, B: b}, nil
}

// Decrypt computes u = <(a,b),(sk,1)> mod q, adds the rounding offset
// q/(2p), and shifts right by (k-m) to recover the plaintext m.
func (s *Scheme) Decrypt(ct *Ciphertext) *big.Int {
	return Decrypt(s.Params, s.sk, ct)
}

// Decrypt is the package-level form, usable with a parameter set and a
// secret key vector without a live Scheme; Scheme.Decrypt delegates to it.
func Decrypt(p *params.Params, sk []*big.Int, ct *Ciphertext) *big.Int {
	dot := dotProduct(ct.A, sk, p.K)
	u := ring.ModFloor(new(big.Int).Add(ct.B, dot), p.K)

	offset := new(big.Int).Rsh(p.NoiseModulus, 1) // q/(2p)
	u = ring.ModFloor(new(big.Int).Add(u, offset), p.K)

	scale := new(big.Int).Div(p.Q, p.P) // q/p = L
	return new(big.Int).Div(u, scale)
}

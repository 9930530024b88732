// Package params derives the public cryptographic sizes shared by every
// component from a small set of CLI-level inputs, grounded on
// original_source/src/mpc/public_params.rs (DESIGN.md component C6). The
// explicit Validate method mirrors the teacher's
// protocols/lss/config/config.go Validate convention.
package params

import (
	"fmt"
	"math/big"

	"github.com/luxfi/lwethreshold/internal/ring"
)

// Params holds every derived size needed by the protocol. All fields are
// immutable after New returns.
type Params struct {
	// K is the ciphertext ring bit-width (q = 2^K).
	K uint
	// M is the plaintext ring bit-width (p = 2^M).
	M uint
	// DigitBits is the digit bit-width b (digit base = 2^b); not to be confused with
	// the derived digit radix, also conventionally called B in spec.md.
	DigitBits uint
	// LweDim is the LWE secret/sample dimension N_lwe.
	LweDim int
	// MacS is the MAC security parameter s, in bits.
	MacS uint

	// L is the noise-budget bit-width, l = k - m.
	L uint
	// D is the digit count, d = ceil(l / digitBits).
	D int
	// Radix is the digit base B = 2^digitBits, also the row count of the
	// Sign gate table, since Sign(i,s) is indexed by digit value.
	Radix *big.Int
	// YPrimeDomain is 2^(d+1): the row count and modulus of the
	// LessThanZero gate table, and the modulus y′ = (y+s) is reduced into
	// during round 2→3.
	YPrimeDomain *big.Int
	// NoiseModulus is L = 2^l: the LWE noise bound (L/2 either side of
	// zero) and the modulus z′ = (z+r) is reduced into during round 1→2.
	NoiseModulus *big.Int
	// Q is the ciphertext modulus 2^k.
	Q *big.Int
	// P is the plaintext modulus 2^m.
	P *big.Int
	// MacKS is the authenticated-ring bit-width, ks = k + s.
	MacKS uint
}

// New derives Params from k (ciphertext bits), m (plaintext bits), digitBits
// (digit bit-width b), lweDim (LWE dimension), and macS (MAC security bits).
func New(k, m, digitBits uint, lweDim int, macS uint) (*Params, error) {
	p := &Params{
		K:         k,
		M:         m,
		DigitBits: digitBits,
		LweDim:    lweDim,
		MacS:      macS,
	}
	if err := p.validateInputs(); err != nil {
		return nil, err
	}

	p.L = k - m
	p.D = int((p.L + digitBits - 1) / digitBits) // ceil(l / b)
	p.Radix = ring.Modulus(digitBits)
	p.YPrimeDomain = ring.Modulus(uint(p.D) + 1)
	p.NoiseModulus = ring.Modulus(p.L)
	p.Q = ring.Modulus(k)
	p.P = ring.Modulus(m)
	p.MacKS = k + macS
	return p, nil
}

func (p *Params) validateInputs() error {
	if p.K == 0 {
		return fmt.Errorf("params: k (ciphertext bits) must be > 0")
	}
	if p.M == 0 || p.M >= p.K {
		return fmt.Errorf("params: m (plaintext bits) must satisfy 0 < m < k, got m=%d k=%d", p.M, p.K)
	}
	if p.DigitBits == 0 {
		return fmt.Errorf("params: digit bit-width must be > 0")
	}
	if p.LweDim <= 0 {
		return fmt.Errorf("params: LWE dimension must be > 0")
	}
	if p.MacS == 0 {
		return fmt.Errorf("params: mac-s must be > 0")
	}
	return nil
}

// Validate re-checks a Params value that may have been decoded off the
// wire, the way protocols/lss/config/config.go's Validate re-checks a
// deserialized Config.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("params: nil")
	}
	if p.Q == nil || p.P == nil || p.Radix == nil || p.NoiseModulus == nil || p.YPrimeDomain == nil {
		return fmt.Errorf("params: missing derived field; was New used to construct this value?")
	}
	if p.L != p.K-p.M {
		return fmt.Errorf("params: inconsistent l: have %d, want %d", p.L, p.K-p.M)
	}
	return nil
}

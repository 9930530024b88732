// Package dealer implements the trusted preprocessing dealer (DESIGN.md
// component C10): it samples the correlated randomness the distributed
// decryption protocol consumes, the masks r and s, the Sign and
// LessThanZero gate tables built from them, the secret-key shares, and the
// MAC key/mask material, and assembles one party.Materials bundle per
// party per decryption job. Grounded on original_source/src/mpc/protocol.rs's
// preprocess/share_sk methods and the teacher's mutex-guarded dealer
// pattern (protocols/lss/dealer/dealer.go).
package dealer

import (
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/luxfi/lwethreshold/internal/digits"
	"github.com/luxfi/lwethreshold/internal/gate"
	"github.com/luxfi/lwethreshold/internal/mac"
	"github.com/luxfi/lwethreshold/internal/params"
	"github.com/luxfi/lwethreshold/internal/party"
	"github.com/luxfi/lwethreshold/internal/ring"
	"github.com/luxfi/lwethreshold/internal/sharing"
)

// Dealer samples and distributes preprocessing material. It is safe for
// concurrent use: PreprocessJob, ShareSecretKey and ShareGlobalMACKey may
// be called from multiple worker goroutines processing different jobs
// (DESIGN.md C11).
type Dealer struct {
	mu     sync.Mutex
	rnd    io.Reader
	params *params.Params
	n      int
}

// New constructs a dealer for a fixed party count and parameter set.
func New(rnd io.Reader, p *params.Params, n int) *Dealer {
	return &Dealer{rnd: rnd, params: p, n: n}
}

// ShareSecretKey additively shares a decrypted scheme's secret key (one
// share vector per party), per original_source's share_sk.
func (d *Dealer) ShareSecretKey(sk []*big.Int) ([][]*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	perParty := make([][]*big.Int, d.n)
	for i := range perParty {
		perParty[i] = make([]*big.Int, len(sk))
	}
	for dim, x := range sk {
		shares, err := sharing.Share(d.rnd, x, d.n, d.params.K)
		if err != nil {
			return nil, fmt.Errorf("dealer: share secret key: dim %d: %w", dim, err)
		}
		for i := 0; i < d.n; i++ {
			perParty[i][dim] = shares[i]
		}
	}
	return perParty, nil
}

// ShareGlobalMACKey samples and shares the MAC scheme's global key α, for
// the centralized benchmark/test path only (spec.md §9); the distributed
// path never reconstructs α, only its per-party shares produced here.
func (d *Dealer) ShareGlobalMACKey() (alpha *big.Int, alphaShares []*big.Int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	alpha, err = ring.Sample(d.rnd, d.params.MacS)
	if err != nil {
		return nil, nil, fmt.Errorf("dealer: share global mac key: %w", err)
	}
	alphaShares, err = sharing.Share(d.rnd, alpha, d.n, d.params.MacKS)
	if err != nil {
		return nil, nil, fmt.Errorf("dealer: share global mac key: %w", err)
	}
	return alpha, alphaShares, nil
}

// ChallengeMode selects how the per-party round 5 obtains its MAC challenge
// χ, per SPEC_FULL.md §4.5.
type ChallengeMode int

const (
	// ChallengeDerived has every party derive χ from the broadcast x̃ via
	// blake3, with no dealer involvement (the redesign default).
	ChallengeDerived ChallengeMode = iota
	// ChallengeDealer has the dealer pick a fixed χ up front and hand it
	// to every party, matching the distributed path's literal source.
	ChallengeDealer
)

// PreprocessJob produces one party.Materials per party for a single
// decryption job: fresh masks r and s, their gate tables, secret-key
// shares (reused verbatim from skShares across jobs), and MAC mask rows
// under alphaShares (likewise reused across jobs, since α is fixed for the
// lifetime of a key).
func (d *Dealer) PreprocessJob(skShares [][]*big.Int, alphaShares []*big.Int, mode ChallengeMode) ([]*party.Materials, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.params

	if len(skShares) != d.n || len(alphaShares) != d.n {
		return nil, fmt.Errorf("dealer: preprocess job: expected %d sk/alpha shares, got %d/%d", d.n, len(skShares), len(alphaShares))
	}

	r, err := ring.Sample(d.rnd, p.L)
	if err != nil {
		return nil, fmt.Errorf("dealer: preprocess job: sampling r: %w", err)
	}
	rShares, err := sharing.Share(d.rnd, r, d.n, p.K)
	if err != nil {
		return nil, fmt.Errorf("dealer: preprocess job: sharing r: %w", err)
	}

	yPrimeBits := uint(p.D) + 1
	s, err := ring.Sample(d.rnd, yPrimeBits)
	if err != nil {
		return nil, fmt.Errorf("dealer: preprocess job: sampling s: %w", err)
	}
	sShares, err := sharing.Share(d.rnd, s, d.n, yPrimeBits)
	if err != nil {
		return nil, fmt.Errorf("dealer: preprocess job: sharing s: %w", err)
	}

	ltzTable, err := gate.Build(d.rnd, gate.LessThanZero(yPrimeBits), s, d.n, int(p.YPrimeDomain.Int64()), p.M)
	if err != nil {
		return nil, fmt.Errorf("dealer: preprocess job: building ltz table: %w", err)
	}

	rDigits := digits.Pad(digits.Decompose(r, p.Radix.Int64()), p.D)
	signTables := make([]*gate.Table, p.D)
	for j, rDigit := range rDigits {
		tbl, err := gate.Build(d.rnd, gate.Sign, big.NewInt(rDigit), d.n, int(p.Radix.Int64()), yPrimeBits)
		if err != nil {
			return nil, fmt.Errorf("dealer: preprocess job: building sign table %d: %w", j, err)
		}
		signTables[j] = tbl
	}

	// Three MAC mask values, one per batched column [z′, y′, o′].
	macRSharesByParty := make([][]*big.Int, d.n)
	for i := range macRSharesByParty {
		macRSharesByParty[i] = make([]*big.Int, 3)
	}
	for col := 0; col < 3; col++ {
		rm, err := ring.Sample(d.rnd, p.MacS)
		if err != nil {
			return nil, fmt.Errorf("dealer: preprocess job: sampling mac r[%d]: %w", col, err)
		}
		rmShares, err := sharing.Share(d.rnd, rm, d.n, p.MacS)
		if err != nil {
			return nil, fmt.Errorf("dealer: preprocess job: sharing mac r[%d]: %w", col, err)
		}
		for i := 0; i < d.n; i++ {
			macRSharesByParty[i][col] = rmShares[i]
		}
	}

	var challengeFn mac.ChallengeFunc
	if mode == ChallengeDealer {
		chi := make([]*big.Int, 3)
		for col := range chi {
			c, err := ring.Sample(d.rnd, p.MacS)
			if err != nil {
				return nil, fmt.Errorf("dealer: preprocess job: sampling chi[%d]: %w", col, err)
			}
			chi[col] = c
		}
		challengeFn = mac.DealerChallenge(chi)
	}

	materials := make([]*party.Materials, d.n)
	for i := 0; i < d.n; i++ {
		signCols := make([]*gate.Column, p.D)
		for j, tbl := range signTables {
			signCols[j] = tbl.PartyColumn(i)
		}
		materials[i] = &party.Materials{
			Index:         i,
			SKShares:      skShares[i],
			RShare:        rShares[i],
			SShare:        sShares[i],
			SignColumns:   signCols,
			LTZColumn:     ltzTable.PartyColumn(i),
			MacAlphaShare: alphaShares[i],
			MacRShares:    macRSharesByParty[i],
			Challenge:     challengeFn,
		}
	}
	return materials, nil
}

// Package protocol implements the single-process orchestrator (DESIGN.md
// component C9): it drives every party.Party in a decryption job through
// its five rounds and the final local accept/extract step, in one
// goroutine, for testing and for the reference/self-check path spec.md §9
// describes. Grounded on original_source/src/mpc/protocol.rs's decrypt,
// mod_l_protocol, lt_r_l_protocol, ltz_protocol and weighted_signs_protocol
// methods, here folded into party.Party's round methods rather than kept
// as a separate coordinator-side state machine, since every one of those
// helpers only ever drives the same five local-compute-then-broadcast
// steps already implemented there.
package protocol

import (
	"context"
	"fmt"
	"math/big"

	"github.com/luxfi/lwethreshold/internal/lwe"
	"github.com/luxfi/lwethreshold/internal/params"
	"github.com/luxfi/lwethreshold/internal/party"
)

// RunJob drives one ciphertext through the full five-round protocol using
// the given per-party materials, returning the recovered plaintext or
// mac.ErrMACCheckFailed if the MAC check rejects. Per spec.md §5, the
// round barriers are the job's only suspension points; ctx is checked at
// each one so a caller (internal/worker's Pool, wired to a peer's
// discovery.Registry context) can abort a job mid-flight on peer
// disconnect without waiting for the whole job to finish.
func RunJob(ctx context.Context, p *params.Params, mats []*party.Materials, ct *lwe.Ciphertext) (*big.Int, error) {
	n := len(mats)
	if n == 0 {
		return nil, fmt.Errorf("protocol: run job: no parties")
	}

	parties := make([]*party.Party, n)
	for i, m := range mats {
		parties[i] = party.New(p, m)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("protocol: run job: %w", err)
	}
	zPrimes := make([]*big.Int, n)
	for i, pt := range parties {
		zp, err := pt.RoundOne(ct)
		if err != nil {
			return nil, fmt.Errorf("protocol: round one: party %d: %w", i, err)
		}
		zPrimes[i] = zp
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("protocol: round one->two barrier: %w", err)
	}
	yPrimes := make([]*big.Int, n)
	for i, pt := range parties {
		yp, err := pt.RoundTwo(zPrimes)
		if err != nil {
			return nil, fmt.Errorf("protocol: round two: party %d: %w", i, err)
		}
		yPrimes[i] = yp
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("protocol: round two->three barrier: %w", err)
	}
	oPrimes := make([]*big.Int, n)
	for i, pt := range parties {
		op, err := pt.RoundThree(yPrimes)
		if err != nil {
			return nil, fmt.Errorf("protocol: round three: party %d: %w", i, err)
		}
		oPrimes[i] = op
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("protocol: round three->four barrier: %w", err)
	}
	xTildeRows := make([][]*big.Int, n)
	for i, pt := range parties {
		xt, err := pt.RoundFour(oPrimes)
		if err != nil {
			return nil, fmt.Errorf("protocol: round four: party %d: %w", i, err)
		}
		xTildeRows[i] = xt
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("protocol: round four->five barrier: %w", err)
	}
	zShares := make([]*big.Int, n)
	for i, pt := range parties {
		z, err := pt.RoundFive(xTildeRows)
		if err != nil {
			return nil, fmt.Errorf("protocol: round five: party %d: %w", i, err)
		}
		zShares[i] = z
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("protocol: round five->finalize barrier: %w", err)
	}
	var result *big.Int
	for i, pt := range parties {
		plaintext, err := pt.Finalize(zShares)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = plaintext
		} else if result.Cmp(plaintext) != 0 {
			return nil, fmt.Errorf("protocol: party %d disagrees with party 0 on recovered plaintext", i)
		}
	}
	return result, nil
}

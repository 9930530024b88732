// Package worker implements a bounded-concurrency pool of decryption jobs
// (DESIGN.md component C11), grounded on
// original_source/src/network/worker.rs's Worker/ctxt_per_job batching,
// realized here with golang.org/x/sync/errgroup and
// golang.org/x/sync/semaphore instead of the source's own bespoke
// steps_bulk_data bucketing map, since Go's round methods (internal/party)
// already return their own round's output rather than needing a
// (step, participant) keyed inbox.
package worker

import (
	"context"
	"fmt"
	"math/big"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/luxfi/lwethreshold/internal/dealer"
	"github.com/luxfi/lwethreshold/internal/lwe"
	"github.com/luxfi/lwethreshold/internal/params"
	"github.com/luxfi/lwethreshold/internal/protocol"
)

// Job is one ciphertext to decrypt, tagged with an opaque ID the caller
// uses to correlate results. PeerCtx, if set, scopes the job to a single
// peer's liveness: spec.md §5's "on peer disconnect the discovery layer
// cancels all jobs" is realized by passing the context a
// discovery.Registry participant got at registration (see
// discovery.Registry.Context), which Registry.Unregister cancels. Leaving
// PeerCtx nil runs the job for as long as the pool-wide ctx passed to
// Run allows.
type Job struct {
	ID         uint64
	Ciphertext *lwe.Ciphertext
	PeerCtx    context.Context
}

// Result pairs a job's ID with either its recovered plaintext or an
// error (e.g. mac.ErrMACCheckFailed); a MAC failure on one job must
// never abort the others in the batch.
type Result struct {
	JobID     uint64
	Plaintext *big.Int
	Err       error
}

// Pool runs decryption jobs with bounded concurrency, each job running
// the full five-round protocol via a freshly preprocessed set of
// materials drawn from the pool's dealer.
type Pool struct {
	params      *params.Params
	dealer      *dealer.Dealer
	skShares    [][]*big.Int
	alphaShares []*big.Int
	mode        dealer.ChallengeMode
	sem         *semaphore.Weighted
}

// New constructs a pool bounded to concurrency simultaneous jobs, sharing
// one dealer's long-lived secret-key and MAC-key shares across every job
// (only the per-job masks r and s, their gate tables, the MAC mask rows
// and, in dealer.ChallengeDealer mode, χ are freshly sampled).
func New(p *params.Params, d *dealer.Dealer, skShares [][]*big.Int, alphaShares []*big.Int, mode dealer.ChallengeMode, concurrency int64) *Pool {
	return &Pool{
		params:      p,
		dealer:      d,
		skShares:    skShares,
		alphaShares: alphaShares,
		mode:        mode,
		sem:         semaphore.NewWeighted(concurrency),
	}
}

// Run decrypts every job, returning one Result per job in the same order
// as the input slice. A MAC failure or protocol error on one job is
// captured in that job's Result.Err; it does not cancel the others. A job
// whose PeerCtx is canceled (its owning peer disconnected, per
// discovery.Registry.Unregister) aborts at its next round barrier and
// reports ctx.Err() in Result.Err, without affecting jobs belonging to
// other peers.
func (p *Pool) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)

	for i, job := range jobs {
		i, job := i, job
		if err := p.sem.Acquire(gctx, 1); err != nil {
			return nil, fmt.Errorf("worker: acquiring slot for job %d: %w", job.ID, err)
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			jobCtx, cancel := scopeToPeer(gctx, job.PeerCtx)
			defer cancel()

			mats, err := p.dealer.PreprocessJob(p.skShares, p.alphaShares, p.mode)
			if err != nil {
				results[i] = Result{JobID: job.ID, Err: fmt.Errorf("worker: preprocess job %d: %w", job.ID, err)}
				return nil
			}
			plaintext, err := protocol.RunJob(jobCtx, p.params, mats, job.Ciphertext)
			results[i] = Result{JobID: job.ID, Plaintext: plaintext, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// scopeToPeer returns a context canceled when either runCtx or peerCtx is
// canceled, so a single peer's disconnect aborts only the jobs tagged with
// its context, leaving the rest of the batch running under runCtx alone.
// When peerCtx is nil, runCtx is returned unchanged and cancel is a no-op.
func scopeToPeer(runCtx, peerCtx context.Context) (context.Context, context.CancelFunc) {
	if peerCtx == nil {
		return runCtx, func() {}
	}
	scoped, cancel := context.WithCancel(runCtx)
	if peerCtx.Err() != nil {
		cancel()
		return scoped, cancel
	}
	stop := make(chan struct{})
	go func() {
		select {
		case <-peerCtx.Done():
			cancel()
		case <-scoped.Done():
		case <-stop:
		}
	}()
	return scoped, func() {
		close(stop)
		cancel()
	}
}

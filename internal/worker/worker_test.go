package worker_test

import (
	"context"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/lwethreshold/internal/dealer"
	"github.com/luxfi/lwethreshold/internal/lwe"
	"github.com/luxfi/lwethreshold/internal/params"
	"github.com/luxfi/lwethreshold/internal/worker"
	"github.com/stretchr/testify/require"
)

func TestPoolRunDecryptsBatchConcurrently(t *testing.T) {
	const n = 4
	p, err := params.New(64, 1, 7, 1024, 80)
	require.NoError(t, err)

	scheme, err := lwe.Keygen(rand.Reader, p, 1)
	require.NoError(t, err)

	d := dealer.New(rand.Reader, p, n)
	skShares, err := d.ShareSecretKey(scheme.SecretKey())
	require.NoError(t, err)
	_, alphaShares, err := d.ShareGlobalMACKey()
	require.NoError(t, err)

	plaintexts := []int64{0, 1, 1, 0, 1}
	jobs := make([]worker.Job, len(plaintexts))
	for i, m := range plaintexts {
		ct, err := scheme.Encrypt(rand.Reader, big.NewInt(m))
		require.NoError(t, err)
		jobs[i] = worker.Job{ID: uint64(i), Ciphertext: ct}
	}

	pool := worker.New(p, d, skShares, alphaShares, dealer.ChallengeDerived, 2)
	results, err := pool.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))

	for i, res := range results {
		require.NoError(t, res.Err)
		require.Equal(t, jobs[i].ID, res.JobID)
		require.Equal(t, big.NewInt(plaintexts[i]), res.Plaintext)
	}
}

func TestPoolRunSingleJobWithConcurrencyOne(t *testing.T) {
	const n = 4
	p, err := params.New(64, 1, 7, 1024, 80)
	require.NoError(t, err)

	scheme, err := lwe.Keygen(rand.Reader, p, 1)
	require.NoError(t, err)

	d := dealer.New(rand.Reader, p, n)
	skShares, err := d.ShareSecretKey(scheme.SecretKey())
	require.NoError(t, err)
	_, alphaShares, err := d.ShareGlobalMACKey()
	require.NoError(t, err)

	ct, err := scheme.Encrypt(rand.Reader, big.NewInt(1))
	require.NoError(t, err)
	jobs := []worker.Job{{ID: 0, Ciphertext: ct}}

	pool := worker.New(p, d, skShares, alphaShares, dealer.ChallengeDerived, 1)
	results, err := pool.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Equal(t, big.NewInt(1), results[0].Plaintext)
}

package protocol_test

import (
	"context"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/lwethreshold/internal/dealer"
	"github.com/luxfi/lwethreshold/internal/lwe"
	"github.com/luxfi/lwethreshold/internal/mac"
	"github.com/luxfi/lwethreshold/internal/params"
	"github.com/luxfi/lwethreshold/internal/party"
	"github.com/luxfi/lwethreshold/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestEndToEndDecrypt(t *testing.T) {
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

	for _, m := range []int64{0, 1} {
		plaintext := big.NewInt(m)
		ct, err := scheme.Encrypt(rand.Reader, plaintext)
		require.NoError(t, err)

		mats, err := d.PreprocessJob(skShares, alphaShares, dealer.ChallengeDerived)
		require.NoError(t, err)

		got, err := protocol.RunJob(context.Background(), p, mats, ct)
		require.NoError(t, err)
		require.Equal(t, plaintext, got)
	}
}

func TestMACCheckRejectsTamperedShare(t *testing.T) {
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

	mats, err := d.PreprocessJob(skShares, alphaShares, dealer.ChallengeDerived)
	require.NoError(t, err)

	// Drive the same five rounds RunJob would, but flip a bit in one
	// party's broadcast x̃ row before round five so the MAC check must
	// reject.
	parties := make([]*party.Party, n)
	for i, m := range mats {
		parties[i] = party.New(p, m)
	}

	zPrimes := make([]*big.Int, n)
	for i, pt := range parties {
		zp, err := pt.RoundOne(ct)
		require.NoError(t, err)
		zPrimes[i] = zp
	}

	yPrimes := make([]*big.Int, n)
	for i, pt := range parties {
		yp, err := pt.RoundTwo(zPrimes)
		require.NoError(t, err)
		yPrimes[i] = yp
	}

	oPrimes := make([]*big.Int, n)
	for i, pt := range parties {
		op, err := pt.RoundThree(yPrimes)
		require.NoError(t, err)
		oPrimes[i] = op
	}

	xTildeRows := make([][]*big.Int, n)
	for i, pt := range parties {
		xt, err := pt.RoundFour(oPrimes)
		require.NoError(t, err)
		xTildeRows[i] = xt
	}

	// Corrupt one party's broadcast x̃ row, the MAC must catch this, the
	// same way TestBatchCheckRejectsTamper does at the mac package level.
	xTildeRows[0][0] = new(big.Int).Xor(xTildeRows[0][0], big.NewInt(1))

	zShares := make([]*big.Int, n)
	for i, pt := range parties {
		z, err := pt.RoundFive(xTildeRows)
		require.NoError(t, err)
		zShares[i] = z
	}

	_, err = parties[0].Finalize(zShares)
	require.ErrorIs(t, err, mac.ErrMACCheckFailed)
}

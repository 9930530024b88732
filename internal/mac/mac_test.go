package mac_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/lwethreshold/internal/mac"
	"github.com/luxfi/lwethreshold/internal/ring"
	"github.com/luxfi/lwethreshold/internal/sharing"
	"github.com/stretchr/testify/require"
)

func TestBatchCheckAccepts(t *testing.T) {
	const n, k, s, tVals = 4, 8, 16, 3
	p := mac.NewParams(n, k, s)

	alpha, err := ring.Sample(rand.Reader, s)
	require.NoError(t, err)
	alphaShares, err := sharing.Share(rand.Reader, alpha, n, p.KS)
	require.NoError(t, err)

	xValues := make([]*big.Int, tVals)
	xSharesByParty := make([][]*big.Int, n)
	for i := range xSharesByParty {
		xSharesByParty[i] = make([]*big.Int, tVals)
	}
	for j := 0; j < tVals; j++ {
		x, err := ring.Sample(rand.Reader, k)
		require.NoError(t, err)
		xValues[j] = x
		xShares, err := sharing.Share(rand.Reader, x, n, p.KS)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			xSharesByParty[i][j] = xShares[i]
		}
	}

	xTilde, mTilde, err := mac.BatchOpen(rand.Reader, alpha, p, xSharesByParty)
	require.NoError(t, err)

	values, err := mac.BatchCheck(rand.Reader, p, xTilde, alphaShares, mTilde)
	require.NoError(t, err)
	require.Equal(t, xValues, values)
}

func TestBatchCheckRejectsTamper(t *testing.T) {
	const n, k, s, tVals = 4, 8, 16, 3
	p := mac.NewParams(n, k, s)

	alpha, err := ring.Sample(rand.Reader, s)
	require.NoError(t, err)
	alphaShares, err := sharing.Share(rand.Reader, alpha, n, p.KS)
	require.NoError(t, err)

	xSharesByParty := make([][]*big.Int, n)
	for i := range xSharesByParty {
		xSharesByParty[i] = make([]*big.Int, tVals)
	}
	for j := 0; j < tVals; j++ {
		x, err := ring.Sample(rand.Reader, k)
		require.NoError(t, err)
		xShares, err := sharing.Share(rand.Reader, x, n, p.KS)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			xSharesByParty[i][j] = xShares[i]
		}
	}

	xTilde, mTilde, err := mac.BatchOpen(rand.Reader, alpha, p, xSharesByParty)
	require.NoError(t, err)

	// Tamper with the revealed x̃ value of the first column.
	xTilde[0] = ring.ModFloor(new(big.Int).Xor(xTilde[0], big.NewInt(1)), p.KS)

	_, err = mac.BatchCheck(rand.Reader, p, xTilde, alphaShares, mTilde)
	require.ErrorIs(t, err, mac.ErrMACCheckFailed)
}

func TestSingleCheckRoundTrip(t *testing.T) {
	const n, k, s = 4, 8, 16
	p := mac.NewParams(n, k, s)

	alpha, err := ring.Sample(rand.Reader, s)
	require.NoError(t, err)
	alphaShares, err := sharing.Share(rand.Reader, alpha, n, p.KS)
	require.NoError(t, err)

	x, err := ring.Sample(rand.Reader, k)
	require.NoError(t, err)
	xShares, err := sharing.Share(rand.Reader, x, n, p.K)
	require.NoError(t, err)

	yShares, err := mac.SingleOpen(rand.Reader, p, xShares)
	require.NoError(t, err)
	y := sharing.Reveal(yShares, p.KS)

	got, err := mac.SingleCheck(rand.Reader, p, alpha, y, alphaShares)
	require.NoError(t, err)
	require.Equal(t, x, got)
}

func TestDerivedChallengeIsDeterministicAndSensitive(t *testing.T) {
	chFunc := mac.DerivedChallenge(16)
	x := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	c1 := chFunc(x)
	c2 := chFunc(x)
	require.Equal(t, c1, c2)

	x2 := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(4)}
	c3 := chFunc(x2)
	require.NotEqual(t, c1, c3)
}

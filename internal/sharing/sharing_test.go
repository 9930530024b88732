package sharing_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/lwethreshold/internal/sharing"
	"github.com/stretchr/testify/require"
)

func TestToySharing(t *testing.T) {
	shares, err := sharing.Share(rand.Reader, big.NewInt(42), 3, 8)
	require.NoError(t, err)
	require.Len(t, shares, 3)
	require.Equal(t, big.NewInt(42), sharing.Reveal(shares, 8))
}

func TestNegativeSecret(t *testing.T) {
	shares, err := sharing.Share(rand.Reader, big.NewInt(-5), 5, 8)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(251), sharing.Reveal(shares, 8))
}

func TestRevealInvariant(t *testing.T) {
	for _, x := range []int64{0, 1, -1, 1000, -1000, 255, 256, -256} {
		shares, err := sharing.Share(rand.Reader, big.NewInt(x), 7, 8)
		require.NoError(t, err)
		want := new(big.Int).Mod(big.NewInt(x), big.NewInt(256))
		if want.Sign() < 0 {
			want.Add(want, big.NewInt(256))
		}
		require.Equal(t, want, sharing.Reveal(shares, 8))
	}
}

func TestScaleAndAddConstant(t *testing.T) {
	shares, err := sharing.Share(rand.Reader, big.NewInt(10), 4, 8)
	require.NoError(t, err)

	scaled := sharing.ScaleConstant(shares, big.NewInt(3), 8)
	require.Equal(t, big.NewInt(30), sharing.Reveal(scaled, 8))

	offset := sharing.AddConstant(shares, big.NewInt(5), 8)
	require.Equal(t, big.NewInt(15), sharing.Reveal(offset, 8))
}

func TestAddSub(t *testing.T) {
	a, err := sharing.Share(rand.Reader, big.NewInt(7), 4, 8)
	require.NoError(t, err)
	b, err := sharing.Share(rand.Reader, big.NewInt(9), 4, 8)
	require.NoError(t, err)

	sum, err := sharing.Add(a, b, 8)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(16), sharing.Reveal(sum, 8))

	diff, err := sharing.Sub(a, b, 8)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(254), sharing.Reveal(diff, 8)) // -2 mod 256
}

func TestAddLengthMismatch(t *testing.T) {
	_, err := sharing.Add([]*big.Int{big.NewInt(1)}, []*big.Int{big.NewInt(1), big.NewInt(2)}, 8)
	require.Error(t, err)
}

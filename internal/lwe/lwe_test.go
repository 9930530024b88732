package lwe_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/luxfi/lwethreshold/internal/lwe"
	"github.com/luxfi/lwethreshold/internal/params"
	"github.com/stretchr/testify/require"
)

func TestSelfTestRoundTrip(t *testing.T) {
	p, err := params.New(32, 1, 7, 1024, 40)
	require.NoError(t, err)

	scheme, err := lwe.Keygen(rand.Reader, p, 4)
	require.NoError(t, err)
	require.NotNil(t, scheme.PublicKey())

	for _, m := range []int64{0, 1} {
		ct, err := scheme.Encrypt(rand.Reader, big.NewInt(m))
		require.NoError(t, err)
		got := scheme.Decrypt(ct)
		require.Equal(t, big.NewInt(m), got, "plaintext %d", m)
	}
}

func TestEncryptRejectsOutOfRangePlaintext(t *testing.T) {
	p, err := params.New(32, 1, 7, 256, 40)
	require.NoError(t, err)
	scheme, err := lwe.Keygen(rand.Reader, p, 2)
	require.NoError(t, err)

	_, err = scheme.Encrypt(rand.Reader, big.NewInt(2))
	require.Error(t, err)
}

package protocol_test

import (
	"context"
	"crypto/rand"
	"math/big"
	"testing/quick"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/lwethreshold/internal/dealer"
	"github.com/luxfi/lwethreshold/internal/lwe"
	"github.com/luxfi/lwethreshold/internal/params"
	"github.com/luxfi/lwethreshold/internal/party"
	"github.com/luxfi/lwethreshold/internal/protocol"
)

// tamperedRun drives the same five rounds protocol.RunJob would, but flips
// a bit in party 0's broadcast x̃ row before round five, see
// TestMACCheckRejectsTamperedShare for the non-ginkgo sibling of this.
func tamperedRun(p *params.Params, mats []*party.Materials, ct *lwe.Ciphertext) (*big.Int, error) {
	n := len(mats)
	parties := make([]*party.Party, n)
	for i, m := range mats {
		parties[i] = party.New(p, m)
	}

	zPrimes := make([]*big.Int, n)
	for i, pt := range parties {
		zp, err := pt.RoundOne(ct)
		if err != nil {
			return nil, err
		}
		zPrimes[i] = zp
	}

	yPrimes := make([]*big.Int, n)
	for i, pt := range parties {
		yp, err := pt.RoundTwo(zPrimes)
		if err != nil {
			return nil, err
		}
		yPrimes[i] = yp
	}

	oPrimes := make([]*big.Int, n)
	for i, pt := range parties {
		op, err := pt.RoundThree(yPrimes)
		if err != nil {
			return nil, err
		}
		oPrimes[i] = op
	}

	xTildeRows := make([][]*big.Int, n)
	for i, pt := range parties {
		xt, err := pt.RoundFour(oPrimes)
		if err != nil {
			return nil, err
		}
		xTildeRows[i] = xt
	}
	xTildeRows[0][0] = new(big.Int).Xor(xTildeRows[0][0], big.NewInt(1))

	zShares := make([]*big.Int, n)
	for i, pt := range parties {
		z, err := pt.RoundFive(xTildeRows)
		if err != nil {
			return nil, err
		}
		zShares[i] = z
	}

	return parties[0].Finalize(zShares)
}

// runHonestDecrypt builds a fresh party count, ciphertext and
// preprocessing bundle, then runs the full five-round protocol, returning
// whatever RunJob returns.
func runHonestDecrypt(n int, m int64) (*big.Int, error) {
	p, err := params.New(64, 1, 7, 1024, 80)
	Expect(err).NotTo(HaveOccurred())

	scheme, err := lwe.Keygen(rand.Reader, p, 1)
	Expect(err).NotTo(HaveOccurred())

	d := dealer.New(rand.Reader, p, n)
	skShares, err := d.ShareSecretKey(scheme.SecretKey())
	Expect(err).NotTo(HaveOccurred())
	_, alphaShares, err := d.ShareGlobalMACKey()
	Expect(err).NotTo(HaveOccurred())

	ct, err := scheme.Encrypt(rand.Reader, big.NewInt(m))
	Expect(err).NotTo(HaveOccurred())

	mats, err := d.PreprocessJob(skShares, alphaShares, dealer.ChallengeDerived)
	Expect(err).NotTo(HaveOccurred())

	return protocol.RunJob(context.Background(), p, mats, ct)
}

var _ = Describe("Threshold decryption, varying party count", func() {
	// spec.md §8: "For any honest run of the distributed protocol with N
	// parties on a ciphertext of m: the plaintext returned equals
	// LWE.decrypt(a, b)". Exercise this across a spread of N via
	// testing/quick, the way lss_property_test.go sweeps n and t.
	It("recovers the bit the ciphertext was created from, for any party count in [2,9]", func() {
		property := func(nRaw uint8, bitRaw uint8) bool {
			n := int(nRaw%8) + 2 // n in [2, 9]
			bit := int64(bitRaw % 2)

			got, err := runHonestDecrypt(n, bit)
			if err != nil {
				return false
			}
			return got.Cmp(big.NewInt(bit)) == 0
		}

		Expect(quick.Check(property, &quick.Config{MaxCount: 15})).To(Succeed())
	})
})

var _ = Describe("MAC check under tampering", func() {
	// spec.md §8: tampering with a single share must be caught "with
	// overwhelming probability". Here tamperedRun flips a bit in party 0's
	// broadcast x̃ row before round five. mac_s=80 here, so across a
	// modest number of trials the check should reject every single time;
	// a single spurious accept would indicate a broken MAC, not bad luck.
	It("rejects every trial where one party's broadcast x̃ row is corrupted before round five", func() {
		const trials = 8
		const n = 4

		for i := 0; i < trials; i++ {
			p, err := params.New(64, 1, 7, 1024, 80)
			Expect(err).NotTo(HaveOccurred())

			scheme, err := lwe.Keygen(rand.Reader, p, 1)
			Expect(err).NotTo(HaveOccurred())

			d := dealer.New(rand.Reader, p, n)
			skShares, err := d.ShareSecretKey(scheme.SecretKey())
			Expect(err).NotTo(HaveOccurred())
			_, alphaShares, err := d.ShareGlobalMACKey()
			Expect(err).NotTo(HaveOccurred())

			ct, err := scheme.Encrypt(rand.Reader, big.NewInt(1))
			Expect(err).NotTo(HaveOccurred())

			mats, err := d.PreprocessJob(skShares, alphaShares, dealer.ChallengeDerived)
			Expect(err).NotTo(HaveOccurred())

			_, err = tamperedRun(p, mats, ct)
			Expect(err).To(HaveOccurred())
		}
	})
})

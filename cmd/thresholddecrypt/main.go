// Command thresholddecrypt drives the distributed threshold decryption
// protocol, grounded on cmd/threshold-cli/main.go's cobra layout (global
// persistent flags + one RunE per subcommand).
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/luxfi/lwethreshold/internal/dealer"
	"github.com/luxfi/lwethreshold/internal/discovery"
	"github.com/luxfi/lwethreshold/internal/lwe"
	"github.com/luxfi/lwethreshold/internal/params"
	"github.com/luxfi/lwethreshold/internal/party"
	"github.com/luxfi/lwethreshold/internal/protocol"
	"github.com/luxfi/lwethreshold/internal/wire"
)

var (
	// Persistent flags, named exactly per spec.md §6.
	numParties int
	ctxtBits   uint
	ptxtBits   uint
	digitBits  uint
	lweBits    int
	macSBits   uint
	dataDir    string
	verbose    bool

	plaintext int64

	rootCmd = &cobra.Command{
		Use:   "thresholddecrypt",
		Short: "Distributed threshold decryption for LWE ciphertexts",
		Long: `thresholddecrypt runs the N-party threshold decryption protocol described
in the project's preprocessed-gate / information-theoretic-MAC design: parties
hold additive shares of an LWE secret key and cooperate, over five broadcast
rounds, to recover a ciphertext's plaintext without any party ever learning
the key or another party's shares.`,
	}

	discoveryServerCmd = &cobra.Command{
		Use:   "discovery-server",
		Short: "Run a local cohort of participants and decrypt one ciphertext",
		Long: `discovery-server stands up an in-process participant registry (this
module's realization of the original's socket-based discovery server, see
DESIGN.md), waits for all -n participants to register, then runs
preprocessing and the five-round decryption protocol for one sample
ciphertext end to end.`,
		RunE: runDiscoveryServer,
	}

	participantCmd = &cobra.Command{
		Use:   "participant <id>",
		Short: "(unavailable in this single-process build)",
		Long: `The original protocol runs participant as a separate OS process that
dials the discovery server over the network. This module's discovery
registry is in-process only (internal/discovery; no transport library
appears anywhere in the retrieved example pack, so none is fabricated
here), and there is no separate process for participant to join. Use
discovery-server, which runs the whole cohort and the protocol together.`,
		Args: cobra.ExactArgs(1),
		RunE: runParticipant,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&numParties, "parties", "n", 4, "number of parties N")
	rootCmd.PersistentFlags().UintVarP(&ctxtBits, "ctxt-bits", "k", 64, "ciphertext modulus bit-length k")
	rootCmd.PersistentFlags().UintVarP(&ptxtBits, "ptxt-bits", "m", 1, "plaintext modulus bit-length m")
	rootCmd.PersistentFlags().UintVarP(&digitBits, "digit-bits", "b", 7, "base-B digit decomposition width b")
	rootCmd.PersistentFlags().IntVar(&lweBits, "lwe-bits", 1024, "LWE secret dimension")
	rootCmd.PersistentFlags().UintVar(&macSBits, "mac-s", 80, "MAC scheme security bits")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", filepath.Join(os.TempDir(), "participant_data"), "directory for persisted per-party bundles")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	discoveryServerCmd.Flags().Int64Var(&plaintext, "plaintext", 1, "sample plaintext to encrypt and decrypt")

	rootCmd.AddCommand(discoveryServerCmd, participantCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildParams() (*params.Params, error) {
	return params.New(ctxtBits, ptxtBits, digitBits, lweBits, macSBits)
}

func runParticipant(cmd *cobra.Command, args []string) error {
	return fmt.Errorf("participant %s: no standalone participant process in this build; run `thresholddecrypt discovery-server` instead", args[0])
}

func runDiscoveryServer(cmd *cobra.Command, args []string) error {
	p, err := buildParams()
	if err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	if verbose {
		fmt.Printf("params: k=%d m=%d b=%d lwe=%d mac-s=%d parties=%d\n", p.K, p.M, digitBits, lweBits, p.MacS, numParties)
	}

	reg := discovery.NewRegistry(numParties)
	names := make([]string, numParties)
	channels := make([]<-chan discovery.Message, numParties)
	for i := 0; i < numParties; i++ {
		name := fmt.Sprintf("participant-%d", i)
		ch, err := reg.Register(name)
		if err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
		names[i] = name
		channels[i] = ch
	}
	select {
	case <-reg.Ready():
	default:
		return fmt.Errorf("discovery registry did not reach %d participants", numParties)
	}
	if verbose {
		fmt.Printf("registered participants: %v\n", reg.Participants())
	}
	// Drain the KindProtocolStart notification every participant received
	// once the registry filled, mirroring participant.rs's reaction to
	// Message::ProtocolStart before it spawns its own worker batch.
	for i, ch := range channels {
		for msg := range ch {
			if msg.Kind == discovery.KindProtocolStart {
				break
			}
			if verbose {
				fmt.Printf("%s: received discovery message kind %d before protocol start\n", names[i], msg.Kind)
			}
		}
	}
	// Each participant leaves the registry once the job it registered for
	// is done, so the remaining cohort is notified via
	// KindParticipantRemoved, matching DiscoveryServer.unregister.
	defer func() {
		for _, name := range names {
			reg.Unregister(name)
		}
	}()

	scheme, err := lwe.Keygen(rand.Reader, p, 1)
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}

	d := dealer.New(rand.Reader, p, numParties)
	skShares, err := d.ShareSecretKey(scheme.SecretKey())
	if err != nil {
		return fmt.Errorf("sharing secret key: %w", err)
	}
	_, alphaShares, err := d.ShareGlobalMACKey()
	if err != nil {
		return fmt.Errorf("sharing mac key: %w", err)
	}

	mats, err := d.PreprocessJob(skShares, alphaShares, dealer.ChallengeDerived)
	if err != nil {
		return fmt.Errorf("preprocessing: %w", err)
	}

	if err := persistBundles(mats); err != nil {
		return fmt.Errorf("persisting bundles: %w", err)
	}

	m := big.NewInt(plaintext)
	ct, err := scheme.Encrypt(rand.Reader, m)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	recovered, err := protocol.RunJob(context.Background(), p, mats, ct)
	if err != nil {
		return fmt.Errorf("protocol run failed: %w", err)
	}

	fmt.Printf("encrypted plaintext: %s\n", m)
	fmt.Printf("recovered plaintext: %s\n", recovered)
	if recovered.Cmp(m) != 0 {
		return fmt.Errorf("recovered plaintext %s does not match encrypted %s", recovered, m)
	}
	return nil
}

// persistBundles writes one CBOR bundle per party to dataDir, per spec.md
// §6's persisted-state convention (overwritten on each run, not the
// hardcoded /tmp path the original uses, **[REDESIGN]**, see
// SPEC_FULL.md §6).
func persistBundles(mats []*party.Materials) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	for _, m := range mats {
		b := bundleFromMaterials(m)
		data, err := wire.MarshalBundle(b)
		if err != nil {
			return fmt.Errorf("marshal bundle for party %d: %w", m.Index, err)
		}
		path := filepath.Join(dataDir, fmt.Sprintf("%d.bin", m.Index))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write bundle for party %d: %w", m.Index, err)
		}
		digest := wire.BundleChecksum(data)
		if err := os.WriteFile(path+".sha3", digest, 0o600); err != nil {
			return fmt.Errorf("write bundle checksum for party %d: %w", m.Index, err)
		}
	}
	return nil
}

func bundleFromMaterials(m *party.Materials) *wire.Bundle {
	skShares := make([]string, len(m.SKShares))
	for i, x := range m.SKShares {
		skShares[i] = x.String()
	}

	signRows := make([][]string, len(m.SignColumns))
	for j, col := range m.SignColumns {
		row := make([]string, len(col.Shares))
		for i, x := range col.Shares {
			row[i] = x.String()
		}
		signRows[j] = row
	}

	ltzRows := make([]string, len(m.LTZColumn.Shares))
	for i, x := range m.LTZColumn.Shares {
		ltzRows[i] = x.String()
	}

	macRShares := make([]string, len(m.MacRShares))
	for i, x := range m.MacRShares {
		macRShares[i] = x.String()
	}

	return &wire.Bundle{
		Index:         m.Index,
		SKShares:      skShares,
		RShare:        m.RShare.String(),
		SShare:        m.SShare.String(),
		SignRows:      signRows,
		LTZRows:       ltzRows,
		MacAlphaShare: m.MacAlphaShare.String(),
		MacRShares:    macRShares,
	}
}

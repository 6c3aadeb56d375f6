package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ochairo/unitynuget/internal/domain-adapters/gateways"
	domainGateways "github.com/ochairo/unitynuget/internal/domain/interfaces/gateways"
	"github.com/spf13/cobra"
)

var verifyKeyFile string

var verifyCmd = &cobra.Command{
	Use:   "verify [artifact.tgz...]",
	Short: "Verify checksums and signatures of generated artifacts",
	Long: `Verify the .sha1 checksum and, when a key is available, the .asc signature of artifacts.
Without arguments every archive in the persistent folder is checked.`,
	Example: `  unitynuget verify
  unitynuget verify unity_packages/org.nuget.newtonsoft.json-13.0.3.tgz --key public.asc`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyKeyFile, "key", "", "Public key to verify signatures with (default: the configured signing key)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	files := args
	if len(files) == 0 {
		root, err := settings.RootFolder()
		if err != nil {
			return err
		}
		files, err = filepath.Glob(filepath.Join(root, "*"+gateways.ArchiveExtension))
		if err != nil {
			return err
		}
		sort.Strings(files)
	}
	if len(files) == 0 {
		return fmt.Errorf("no artifacts to verify")
	}

	var verifier domainGateways.SignatureVerifier
	switch {
	case verifyKeyFile != "":
		v, err := gateways.NewGPGVerifier(verifyKeyFile)
		if err != nil {
			return err
		}
		verifier = v
	case settings.SigningKeyFile != "":
		signer, err := gateways.NewGPGSigner(settings.SigningKeyFile, []byte(settings.SigningPassphrase))
		if err != nil {
			return err
		}
		verifier = signer.Verifier()
	}

	verified, failed := 0, 0
	for _, file := range files {
		if err := verifyArtifact(cmd.Context(), file, verifier); err != nil {
			fmt.Printf("❌ %s: %v\n", filepath.Base(file), err)
			failed++
			continue
		}
		fmt.Printf("✅ %s\n", filepath.Base(file))
		verified++
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("✅ Verified: %d artifacts\n", verified)
	if failed > 0 {
		fmt.Printf("❌ Failed: %d artifacts\n", failed)
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if failed > 0 {
		return fmt.Errorf("%d artifacts failed verification", failed)
	}
	return nil
}

// verifyArtifact checks the checksum sidecar and, with a verifier, the detached signature
func verifyArtifact(ctx context.Context, archivePath string, verifier domainGateways.SignatureVerifier) error {
	checksums := gateways.NewChecksumCalculator()
	base := archivePath[:len(archivePath)-len(filepath.Ext(archivePath))]

	expected, err := checksums.ReadChecksumFile(base + gateways.ChecksumExtension)
	if err != nil {
		return err
	}
	if err := checksums.VerifyChecksum(ctx, archivePath, expected); err != nil {
		return err
	}

	sigPath := archivePath + gateways.SignatureExtension
	if _, err := os.Stat(sigPath); err != nil || verifier == nil {
		return nil
	}
	return verifier.VerifySignatureFromFile(archivePath, sigPath)
}

package gateways

import (
	"bytes"
	"fmt"

	"github.com/ochairo/unitynuget/internal/external-adapters/gpg"
)

// GPGSigner wraps the external GPG adapter to implement the artifact signing gateway
type GPGSigner struct {
	signer *gpg.Signer
}

// NewGPGSigner loads the signing key at keyPath
func NewGPGSigner(keyPath string, passphrase []byte) (*GPGSigner, error) {
	signer, err := gpg.NewSignerFromFile(keyPath, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	return &GPGSigner{signer: signer}, nil
}

// SignFile writes an armored detached signature next to filePath
func (g *GPGSigner) SignFile(filePath string) (string, error) {
	sigPath, err := g.signer.SignFile(filePath)
	if err != nil {
		return "", fmt.Errorf("GPG signing failed: %w", err)
	}
	return sigPath, nil
}

// Verifier returns a verifier trusting this signer's key
func (g *GPGSigner) Verifier() *GPGVerifier {
	v := gpg.NewVerifier()
	v.ImportEntities(g.signer.Entities())
	return &GPGVerifier{verifier: v}
}

// PublicKey returns the armored public half of the signing key
func (g *GPGSigner) PublicKey() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.signer.ExportPublicKey(&buf); err != nil {
		return nil, fmt.Errorf("failed to export public key: %w", err)
	}
	return buf.Bytes(), nil
}

// GPGVerifier wraps the external GPG adapter to implement the signature verification gateway
type GPGVerifier struct {
	verifier *gpg.Verifier
}

// NewGPGVerifier creates a verifier trusting the keys in keyPath
func NewGPGVerifier(keyPath string) (*GPGVerifier, error) {
	v := gpg.NewVerifier()
	if err := v.ImportKeyFromFile(keyPath); err != nil {
		return nil, fmt.Errorf("failed to import GPG key from file: %w", err)
	}
	return &GPGVerifier{verifier: v}, nil
}

// VerifySignatureFromFile verifies a detached GPG signature from a local file
func (g *GPGVerifier) VerifySignatureFromFile(filePath, sigPath string) error {
	if err := g.verifier.VerifySignatureFromFile(filePath, sigPath); err != nil {
		return fmt.Errorf("GPG signature verification failed: %w", err)
	}
	return nil
}

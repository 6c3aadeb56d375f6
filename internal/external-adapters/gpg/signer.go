package gpg

import (
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// SignatureExtension is appended to the signed file name
const SignatureExtension = ".asc"

// Signer writes armored detached signatures next to artifacts.
type Signer struct {
	entity *openpgp.Entity
}

// NewSignerFromFile loads the first private key of keyPath, decrypting it with passphrase
// when it is protected.
func NewSignerFromFile(keyPath string, passphrase []byte) (*Signer, error) {
	keys, err := readKeyFile(keyPath)
	if err != nil {
		return nil, err
	}

	for _, entity := range keys {
		if entity.PrivateKey == nil {
			continue
		}
		if entity.PrivateKey.Encrypted {
			if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
				return nil, fmt.Errorf("failed to decrypt signing key: %w", err)
			}
		}
		for _, subkey := range entity.Subkeys {
			if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
				if err := subkey.PrivateKey.Decrypt(passphrase); err != nil {
					return nil, fmt.Errorf("failed to decrypt signing subkey: %w", err)
				}
			}
		}
		return &Signer{entity: entity}, nil
	}
	return nil, fmt.Errorf("no private key found in %s", keyPath)
}

// NewSigner wraps an already decrypted entity
func NewSigner(entity *openpgp.Entity) *Signer {
	return &Signer{entity: entity}
}

// SignFile writes filePath.asc and returns its path
func (s *Signer) SignFile(filePath string) (string, error) {
	//nolint:gosec // G304: artifact path in the root folder
	in, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = in.Close() }()

	sigPath := filePath + SignatureExtension
	//nolint:gosec // G304: signature path next to the artifact
	out, err := os.Create(sigPath)
	if err != nil {
		return "", fmt.Errorf("failed to create signature file: %w", err)
	}

	if err := openpgp.ArmoredDetachSign(out, s.entity, in, nil); err != nil {
		_ = out.Close()
		_ = os.Remove(sigPath)
		return "", fmt.Errorf("failed to sign %s: %w", filePath, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(sigPath)
		return "", fmt.Errorf("failed to write signature: %w", err)
	}
	return sigPath, nil
}

// Entities returns the signing key as a keyring, for verification
func (s *Signer) Entities() openpgp.EntityList {
	return openpgp.EntityList{s.entity}
}

// ExportPublicKey writes the armored public key, served so clients can verify artifacts
func (s *Signer) ExportPublicKey(w io.Writer) error {
	aw, err := armor.Encode(w, openpgp.PublicKeyType, nil)
	if err != nil {
		return fmt.Errorf("failed to create armor encoder: %w", err)
	}
	if err := s.entity.Serialize(aw); err != nil {
		_ = aw.Close()
		return fmt.Errorf("failed to serialize public key: %w", err)
	}
	return aw.Close()
}

// Package gpg signs artifacts with detached OpenPGP signatures and verifies them.
package gpg

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// armoredSignaturePrefix is enough of the armor header to tell armored from binary signatures
const armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE---"

// Verifier checks detached signatures against an in-memory keyring.
// ProtonMail's go-crypto is the maintained fork of golang.org/x/crypto/openpgp.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a verifier with an empty keyring
func NewVerifier() *Verifier {
	return &Verifier{keyring: make(openpgp.EntityList, 0)}
}

// ImportKeyFromFile imports public (or private) keys from an armored or binary key file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	keys, err := readKeyFile(keyPath)
	if err != nil {
		return err
	}
	v.keyring = append(v.keyring, keys...)
	return nil
}

// ImportEntities adds already parsed keys, e.g. the public half of a Signer
func (v *Verifier) ImportEntities(keys openpgp.EntityList) {
	v.keyring = append(v.keyring, keys...)
}

// VerifySignatureFromFile verifies the detached signature at sigPath over filePath
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("no GPG keys imported, call ImportKeyFromFile first")
	}

	//nolint:gosec // G304: signature path next to an artifact in the root folder
	sigData, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature file: %w", err)
	}

	//nolint:gosec // G304: artifact path in the root folder
	dataFile, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	defer func() { _ = dataFile.Close() }()

	if bytes.HasPrefix(sigData, []byte(armoredSignaturePrefix)) {
		_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, dataFile, bytes.NewReader(sigData), nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(v.keyring, dataFile, bytes.NewReader(sigData), nil)
	}
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}

// GetKeyringSize returns the number of keys in the keyring
func (v *Verifier) GetKeyringSize() int {
	return len(v.keyring)
}

// ClearKeyring clears all imported keys
func (v *Verifier) ClearKeyring() {
	v.keyring = make(openpgp.EntityList, 0)
}

func readKeyFile(keyPath string) (openpgp.EntityList, error) {
	//nolint:gosec // G304: key path comes from configuration
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer func() { _ = f.Close() }()

	keys, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		// binary keyring
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			return nil, fmt.Errorf("failed to reset file: %w", seekErr)
		}
		keys, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no keys found in file")
	}
	return keys, nil
}

package gateways

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

func writeSigningKey(t *testing.T, dir string) string {
	t.Helper()
	entity, err := openpgp.NewEntity("unitynuget", "", "signing@example.com", &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA})
	if err != nil {
		t.Fatal(err)
	}
	keyPath := filepath.Join(dir, "signing.asc")
	f, err := os.Create(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	w, err := armor.Encode(f, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return keyPath
}

func TestGPGSigner(t *testing.T) {
	dir := t.TempDir()
	signer, err := NewGPGSigner(writeSigningKey(t, dir), nil)
	if err != nil {
		t.Fatalf("NewGPGSigner() error = %v", err)
	}

	archive := filepath.Join(dir, "org.nuget.sample.lib-1.0.0.tgz")
	if err := os.WriteFile(archive, []byte("archive"), 0600); err != nil {
		t.Fatal(err)
	}
	sigPath, err := signer.SignFile(archive)
	if err != nil {
		t.Fatalf("SignFile() error = %v", err)
	}
	if sigPath != archive+SignatureExtension {
		t.Errorf("sigPath = %s", sigPath)
	}

	if err := signer.Verifier().VerifySignatureFromFile(archive, sigPath); err != nil {
		t.Errorf("VerifySignatureFromFile() error = %v", err)
	}

	publicKey, err := signer.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey() error = %v", err)
	}
	if !strings.Contains(string(publicKey), "PGP PUBLIC KEY BLOCK") {
		t.Errorf("public key is not armored: %q", publicKey)
	}
	pubPath := filepath.Join(dir, "public.asc")
	if err := os.WriteFile(pubPath, publicKey, 0600); err != nil {
		t.Fatal(err)
	}
	verifier, err := NewGPGVerifier(pubPath)
	if err != nil {
		t.Fatalf("NewGPGVerifier() error = %v", err)
	}
	if err := verifier.VerifySignatureFromFile(archive, sigPath); err != nil {
		t.Errorf("verify with exported key: %v", err)
	}

	if err := os.WriteFile(archive, []byte("tampered"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := verifier.VerifySignatureFromFile(archive, sigPath); err == nil {
		t.Error("expected failure for tampered archive")
	}
}

func TestNewGPGSigner_MissingKey(t *testing.T) {
	if _, err := NewGPGSigner(filepath.Join(t.TempDir(), "missing.asc"), nil); err == nil {
		t.Fatal("expected error for missing key")
	}
}

package gpg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

func newTestEntity(t *testing.T) *openpgp.Entity {
	t.Helper()
	entity, err := openpgp.NewEntity("unitynuget test", "", "test@example.com", &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA})
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return entity
}

func writePrivateKey(t *testing.T, entity *openpgp.Entity, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	aw, err := armor.Encode(f, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.SerializePrivate(aw, nil); err != nil {
		t.Fatal(err)
	}
	if err := aw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSignAndVerify(t *testing.T) {
	tmpDir := t.TempDir()
	keyPath := filepath.Join(tmpDir, "signing.asc")
	writePrivateKey(t, newTestEntity(t), keyPath)

	signer, err := NewSignerFromFile(keyPath, nil)
	if err != nil {
		t.Fatalf("NewSignerFromFile() error = %v", err)
	}

	artifact := filepath.Join(tmpDir, "org.nuget.sample.lib-1.0.0.tgz")
	if err := os.WriteFile(artifact, []byte("archive bytes"), 0600); err != nil {
		t.Fatal(err)
	}

	sigPath, err := signer.SignFile(artifact)
	if err != nil {
		t.Fatalf("SignFile() error = %v", err)
	}
	if sigPath != artifact+".asc" {
		t.Errorf("sigPath = %s", sigPath)
	}
	sig, _ := os.ReadFile(sigPath)
	if !strings.HasPrefix(string(sig), armoredSignaturePrefix) {
		t.Errorf("signature is not armored: %q", sig)
	}

	pubPath := filepath.Join(tmpDir, "public.asc")
	pub, err := os.Create(pubPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := signer.ExportPublicKey(pub); err != nil {
		t.Fatalf("ExportPublicKey() error = %v", err)
	}
	_ = pub.Close()

	v := NewVerifier()
	if err := v.ImportKeyFromFile(pubPath); err != nil {
		t.Fatalf("ImportKeyFromFile() error = %v", err)
	}
	if v.GetKeyringSize() != 1 {
		t.Errorf("keyring size = %d, want 1", v.GetKeyringSize())
	}
	if err := v.VerifySignatureFromFile(artifact, sigPath); err != nil {
		t.Errorf("VerifySignatureFromFile() error = %v", err)
	}

	// tampered artifact
	if err := os.WriteFile(artifact, []byte("other bytes"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := v.VerifySignatureFromFile(artifact, sigPath); err == nil {
		t.Error("expected verification failure for modified artifact")
	}
}

func TestVerifyWithOtherKeyFails(t *testing.T) {
	tmpDir := t.TempDir()
	signer := NewSigner(newTestEntity(t))

	artifact := filepath.Join(tmpDir, "a.tgz")
	if err := os.WriteFile(artifact, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	sigPath, err := signer.SignFile(artifact)
	if err != nil {
		t.Fatal(err)
	}

	v := NewVerifier()
	v.ImportEntities(NewSigner(newTestEntity(t)).Entities())
	if err := v.VerifySignatureFromFile(artifact, sigPath); err == nil {
		t.Error("expected failure with unrelated key")
	}

	v.ImportEntities(signer.Entities())
	if err := v.VerifySignatureFromFile(artifact, sigPath); err != nil {
		t.Errorf("VerifySignatureFromFile() error = %v", err)
	}
}

func TestNewSignerFromPublicKeyOnly(t *testing.T) {
	tmpDir := t.TempDir()
	pubPath := filepath.Join(tmpDir, "public.asc")
	f, err := os.Create(pubPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewSigner(newTestEntity(t)).ExportPublicKey(f); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	if _, err := NewSignerFromFile(pubPath, nil); err == nil || !strings.Contains(err.Error(), "no private key") {
		t.Errorf("expected 'no private key' error, got %v", err)
	}
}

func TestVerifier_ImportKeyFromFile_NonexistentFile(t *testing.T) {
	v := NewVerifier()

	err := v.ImportKeyFromFile("/nonexistent/key.asc")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to open key file") {
		t.Errorf("Expected 'failed to open key file' error, got: %v", err)
	}
}

func TestVerifier_ImportKeyFromFile_InvalidFile(t *testing.T) {
	v := NewVerifier()
	keyPath := filepath.Join(t.TempDir(), "empty.asc")
	if err := os.WriteFile(keyPath, []byte("not a gpg key"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := v.ImportKeyFromFile(keyPath); err == nil {
		t.Fatal("Expected error for invalid key file, got nil")
	}
}

func TestVerifier_KeyringOperations(t *testing.T) {
	v := NewVerifier()
	if size := v.GetKeyringSize(); size != 0 {
		t.Errorf("Initial keyring size = %d, want 0", size)
	}

	v.ImportEntities(NewSigner(newTestEntity(t)).Entities())
	if size := v.GetKeyringSize(); size != 1 {
		t.Errorf("keyring size = %d, want 1", size)
	}

	v.ClearKeyring()
	if size := v.GetKeyringSize(); size != 0 {
		t.Errorf("After clear, keyring size = %d, want 0", size)
	}
}

func TestVerifier_VerifySignatureFromFile_NoKeysImported(t *testing.T) {
	v := NewVerifier()
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.bin")
	sigFile := filepath.Join(tmpDir, "test.sig")
	if err := os.WriteFile(testFile, []byte("test"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(sigFile, []byte("fake sig"), 0600); err != nil {
		t.Fatal(err)
	}

	err := v.VerifySignatureFromFile(testFile, sigFile)
	if err == nil || !strings.Contains(err.Error(), "no GPG keys imported") {
		t.Errorf("Expected 'no GPG keys imported' error, got: %v", err)
	}
}

func TestVerifier_VerifySignatureFromFile_NonexistentFiles(t *testing.T) {
	v := NewVerifier()
	v.ImportEntities(NewSigner(newTestEntity(t)).Entities())
	tmpDir := t.TempDir()

	if err := v.VerifySignatureFromFile(filepath.Join(tmpDir, "a.bin"), filepath.Join(tmpDir, "missing.sig")); err == nil {
		t.Fatal("Expected error for nonexistent signature file, got nil")
	}

	sigFile := filepath.Join(tmpDir, "test.sig")
	if err := os.WriteFile(sigFile, []byte("fake"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := v.VerifySignatureFromFile(filepath.Join(tmpDir, "missing.bin"), sigFile); err == nil {
		t.Fatal("Expected error for nonexistent data file, got nil")
	}
}

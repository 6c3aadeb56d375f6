package gateways

// ArtifactSigner produces detached signatures for generated artifacts
type ArtifactSigner interface {
	// SignFile writes an armored detached signature next to filePath and returns its path
	SignFile(filePath string) (string, error)
}

// SignatureVerifier checks detached signatures of artifacts on disk
type SignatureVerifier interface {
	VerifySignatureFromFile(filePath, sigPath string) error
}

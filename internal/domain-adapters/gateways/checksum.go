package gateways

import (
	"context"
	"crypto/sha1" //nolint:gosec // npm dist.shasum is SHA-1
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChecksumCalculator computes and persists artifact checksums (hex SHA-1, the npm dist.shasum)
type ChecksumCalculator struct{}

// NewChecksumCalculator creates a new checksum calculator
func NewChecksumCalculator() *ChecksumCalculator {
	return &ChecksumCalculator{}
}

// CalculateChecksum calculates the SHA-1 checksum of a file
func (c *ChecksumCalculator) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: artifact path built from the configured root folder
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha1.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum verifies a file against an expected checksum
func (c *ChecksumCalculator) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	actualSum, err := c.CalculateChecksum(filePath)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actualSum, strings.TrimSpace(expectedSum)) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedSum, actualSum)
	}
	return nil
}

// WriteChecksumFile writes sum to the sidecar file at path
func (c *ChecksumCalculator) WriteChecksumFile(path, sum string) error {
	if err := os.WriteFile(path, []byte(sum), 0600); err != nil {
		return fmt.Errorf("failed to write checksum file: %w", err)
	}
	return nil
}

// ReadChecksumFile reads a previously written sidecar
func (c *ChecksumCalculator) ReadChecksumFile(path string) (string, error) {
	//nolint:gosec // G304: sidecar path built from the configured root folder
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read checksum file: %w", err)
	}
	sum := strings.TrimSpace(string(data))
	if len(sum) != sha1.Size*2 {
		return "", fmt.Errorf("invalid checksum in %s", path)
	}
	return sum, nil
}

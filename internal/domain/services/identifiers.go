package services

import (
	"crypto/sha1" //nolint:gosec // identifiers, not security
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// StableGUID derives the asset identifier of fileName inside the package packageID.
// The same inputs always produce the same identifier.
func StableGUID(packageID, fileName string) uuid.UUID {
	sum := sha1.Sum([]byte(packageID + "/" + fileName + "*")) //nolint:gosec
	var g uuid.UUID
	copy(g[:], sum[:16])
	g[6] = (g[6] & 0x0f) | 0x50 // version 5
	g[8] = (g[8] & 0x3f) | 0x80 // RFC 4122 variant
	return g
}

// AssetGUID renders an identifier the way asset metadata stores it: 32 lowercase hex characters.
func AssetGUID(g uuid.UUID) string {
	return hex.EncodeToString(g[:])
}

// UnityPackageName returns the target package name: <scope>.<lowercase id>.
func UnityPackageName(scope, packageID string) string {
	return scope + "." + strings.ToLower(packageID)
}

// ArtifactBaseName returns the file name of an artifact without extension.
func ArtifactBaseName(scope, packageID, version string) string {
	return UnityPackageName(scope, packageID) + "-" + version
}

package services

import (
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
	"github.com/ochairo/unitynuget/internal/domain/entities"
)

// SPDXLicense returns expr when it is a valid SPDX licence expression
func SPDXLicense(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", false
	}
	valid, _ := spdxexp.ValidateLicenses([]string{expr})
	if !valid {
		return "", false
	}
	return expr, true
}

// ManifestLicense is the package.json license of a version: a valid SPDX expression, else the
// licence URL, else whatever the upstream declared.
func ManifestLicense(meta *entities.PackageMetadata) string {
	if expr, ok := SPDXLicense(meta.License); ok {
		return expr
	}
	if meta.LicenseURL != "" {
		return meta.LicenseURL
	}
	return strings.TrimSpace(meta.License)
}

package gateways

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/interfaces"
	domainGateways "github.com/ochairo/unitynuget/internal/domain/interfaces/gateways"
)

// placeholder nuget.org puts in licenseUrl when a package declares an expression or file
const deprecatedLicenseURL = "https://aka.ms/deprecateLicenseUrl"

const maxLicenseFileSize = 1 << 20

// LicenseResolver finds the licence text of a package version
type LicenseResolver struct {
	fetcher domainGateways.DocumentFetcher
	logger  interfaces.Logger
}

// NewLicenseResolver creates a resolver; fetcher may be nil to disable licenseUrl downloads
func NewLicenseResolver(fetcher domainGateways.DocumentFetcher, logger interfaces.Logger) *LicenseResolver {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &LicenseResolver{fetcher: fetcher, logger: logger}
}

// Resolve returns the licence text, empty when none is known. The declared expression or
// the embedded licence file compete with the downloaded document and the longer text wins.
// Download failures never fail the conversion.
func (r *LicenseResolver) Resolve(ctx context.Context, meta *entities.PackageMetadata, content domainGateways.PackageContent) string {
	text := strings.TrimSpace(meta.License)

	if content != nil {
		if file := r.readLicenseFile(content); len(file) > len(text) {
			text = file
		}
	}

	if fetched := r.fetch(ctx, meta); len(fetched) > len(text) {
		text = fetched
	}
	return text
}

func (r *LicenseResolver) readLicenseFile(content domainGateways.PackageContent) string {
	manifest := content.Manifest()
	if manifest == nil || manifest.LicenseFile == "" {
		return ""
	}
	rc, err := content.Open(manifest.LicenseFile)
	if err != nil {
		r.logger.Debug("license file not found in package", interfaces.F("file", manifest.LicenseFile), interfaces.Err(err))
		return ""
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxLicenseFileSize))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (r *LicenseResolver) fetch(ctx context.Context, meta *entities.PackageMetadata) string {
	url := strings.TrimSpace(meta.LicenseURL)
	if r.fetcher == nil || url == "" || strings.EqualFold(url, deprecatedLicenseURL) {
		return ""
	}

	data, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		r.logger.Debug("license download failed", interfaces.F("url", url), interfaces.Err(err))
		return ""
	}
	return documentText(data)
}

// documentText strips markup documents to their text, raw text otherwise
func documentText(data []byte) string {
	raw := strings.TrimSpace(string(data))
	if !looksLikeMarkup(raw) {
		return raw
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return raw
	}
	doc.Find("script, style, head").Remove()

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return raw
	}
	return strings.Join(lines, "\n")
}

func looksLikeMarkup(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") ||
		(strings.HasPrefix(lower, "<") && strings.Contains(lower, "</"))
}

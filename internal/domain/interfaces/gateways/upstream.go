// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"
	"io"

	"github.com/ochairo/unitynuget/internal/domain/entities"
)

// PackageContent gives access to the files of one downloaded upstream package.
type PackageContent interface {
	// Files lists every file path in the package, '/' separated
	Files() []string

	// Open opens one file by path
	Open(path string) (io.ReadCloser, error)

	// Manifest returns the parts of the package manifest not carried by registration metadata
	Manifest() *entities.PackageManifest

	// Close releases the underlying archive
	Close() error
}

// UpstreamGateway defines operations against the upstream package source
type UpstreamGateway interface {
	// ListVersions returns the metadata of every known version of id, in upstream order
	ListVersions(ctx context.Context, id string) ([]*entities.PackageMetadata, error)

	// Download fetches the content of one package version
	Download(ctx context.Context, identity entities.PackageIdentity) (PackageContent, error)
}

// DocumentFetcher retrieves small documents (licence texts) over HTTP
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

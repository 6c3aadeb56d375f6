// Package nuget implements the upstream gateway against a NuGet V3 package source.
package nuget

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/interfaces"
	"github.com/ochairo/unitynuget/internal/domain/interfaces/gateways"
	"github.com/ochairo/unitynuget/internal/domain/services"
	"github.com/ochairo/unitynuget/internal/external-adapters/fetch"
	"github.com/ochairo/unitynuget/internal/external-adapters/logging"
	"github.com/tidwall/gjson"
)

// DefaultSource is the public NuGet V3 service index
const DefaultSource = "https://api.nuget.org/v3/index.json"

const (
	registrationsResource = "RegistrationsBaseUrl"
	packageBaseResource   = "PackageBaseAddress/3.0.0"
)

// registration hives by preference; only the first two include SemVer 2.0.0 versions
var registrationTypes = []string{
	registrationsResource + "/3.6.0",
	registrationsResource + "/Versioned",
	registrationsResource + "/3.4.0",
	registrationsResource,
}

// registrationRank orders registration resource types, lower is better
func registrationRank(kind string) int {
	for i, t := range registrationTypes {
		if kind == t {
			return i
		}
	}
	return len(registrationTypes)
}

// ArchiveFetcher downloads package archives
type ArchiveFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Artifact, error)
}

// Client queries registration metadata and downloads .nupkg archives.
type Client struct {
	source     string
	http       *retryablehttp.Client
	downloader ArchiveFetcher
	logger     interfaces.Logger

	mu            sync.Mutex
	registrations string
	packageBase   string
}

// NewClient creates a client for the service index at source.
func NewClient(source string, downloader ArchiveFetcher, logger interfaces.Logger) *Client {
	if source == "" {
		source = DefaultSource
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 4
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.HTTPClient.Timeout = time.Minute
	retryClient.Logger = logging.LeveledLogger{Logger: logger}
	// exhausted retries hand back the last response so its status maps to a sentinel
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		source:     source,
		http:       retryClient,
		downloader: downloader,
		logger:     logger,
	}
}

// SetRetryMax changes how often metadata requests are retried
func (c *Client) SetRetryMax(n int) {
	c.http.RetryMax = n
}

// resources resolves the endpoints this client needs from the service index, once.
func (c *Client) resources(ctx context.Context) (registrations, packageBase string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registrations != "" && c.packageBase != "" {
		return c.registrations, c.packageBase, nil
	}

	body, err := c.getJSON(ctx, c.source)
	if err != nil {
		return "", "", fmt.Errorf("failed to read service index: %w", err)
	}

	rank := -1
	for _, resource := range gjson.GetBytes(body, "resources").Array() {
		fields := resource.Map()
		kind := fields["@type"].String()
		id := fields["@id"].String()
		switch {
		case strings.HasPrefix(kind, registrationsResource):
			if r := registrationRank(kind); rank < 0 || r < rank {
				rank = r
				c.registrations = id
			}
		case c.packageBase == "" && kind == packageBaseResource:
			c.packageBase = id
		}
	}

	if c.registrations == "" || c.packageBase == "" {
		return "", "", fmt.Errorf("service index %s lacks %s or %s", c.source, registrationsResource, packageBaseResource)
	}
	return c.registrations, c.packageBase, nil
}

// ListVersions returns the registration metadata of every version of id, in upstream order.
func (c *Client) ListVersions(ctx context.Context, id string) ([]*entities.PackageMetadata, error) {
	registrations, _, err := c.resources(ctx)
	if err != nil {
		return nil, err
	}

	indexURL := withSlash(registrations) + strings.ToLower(id) + "/index.json"
	body, err := c.getJSON(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	var metas []*entities.PackageMetadata
	for _, page := range gjson.GetBytes(body, "items").Array() {
		leaves := page.Get("items")
		if !leaves.Exists() {
			pageBody, err := c.getJSON(ctx, page.Map()["@id"].String())
			if err != nil {
				return nil, fmt.Errorf("failed to read registration page: %w", err)
			}
			leaves = gjson.GetBytes(pageBody, "items")
		}

		for _, leaf := range leaves.Array() {
			meta, err := parseCatalogEntry(leaf.Get("catalogEntry"))
			if err != nil {
				c.logger.Warn("skipping registration entry", interfaces.Package(id), interfaces.Err(err))
				continue
			}
			metas = append(metas, meta)
		}
	}
	return metas, nil
}

// Download fetches the .nupkg of identity from the flat container.
func (c *Client) Download(ctx context.Context, identity entities.PackageIdentity) (gateways.PackageContent, error) {
	_, packageBase, err := c.resources(ctx)
	if err != nil {
		return nil, err
	}

	version := identity.Version
	if v, err := services.ParseVersion(version); err == nil {
		version = v.String()
	}
	id := strings.ToLower(identity.ID)
	version = strings.ToLower(version)
	url := fmt.Sprintf("%s%s/%s/%s.%s.nupkg", withSlash(packageBase), id, version, id, version)

	artifact, err := c.downloader.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", identity, err)
	}
	defer func() { _ = artifact.Body.Close() }()

	data, err := io.ReadAll(artifact.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	c.logger.Debug("downloaded package", interfaces.Package(identity.String()), interfaces.F("bytes", len(data)))
	pkg, err := OpenPackage(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", identity, err)
	}
	return pkg, nil
}

func (c *Client) getJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", url, entities.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", url, entities.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%s: status %d: %w", url, resp.StatusCode, entities.ErrUpstreamDown)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: invalid JSON document", url)
	}
	return body, nil
}

func withSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

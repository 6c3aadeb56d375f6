package nuget

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/ochairo/unitynuget/internal/domain/entities"
)

// packaging files that are never part of a package payload
var packagingFiles = []string{"[Content_Types].xml", "_rels/", "package/services/metadata/"}

type nuspec struct {
	Metadata struct {
		License struct {
			Type  string `xml:"type,attr"`
			Value string `xml:",chardata"`
		} `xml:"license"`
		Repository *struct {
			Type   string `xml:"type,attr"`
			URL    string `xml:"url,attr"`
			Commit string `xml:"commit,attr"`
		} `xml:"repository"`
	} `xml:"metadata"`
}

// Package is an opened .nupkg archive held in memory.
type Package struct {
	files    map[string]*zip.File
	names    []string
	manifest *entities.PackageManifest
}

// OpenPackage reads a .nupkg from data
func OpenPackage(data []byte) (*Package, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open package archive: %w", err)
	}

	pkg := &Package{
		files:    make(map[string]*zip.File, len(reader.File)),
		manifest: &entities.PackageManifest{},
	}

	var nuspecFile *zip.File
	for _, f := range reader.File {
		if f.FileInfo().IsDir() || isPackagingFile(f.Name) {
			continue
		}
		name := f.Name
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
		if !strings.Contains(name, "/") && strings.HasSuffix(strings.ToLower(name), ".nuspec") {
			nuspecFile = f
		}
		pkg.files[name] = f
		pkg.names = append(pkg.names, name)
	}
	sort.Strings(pkg.names)

	if nuspecFile != nil {
		if err := pkg.readManifest(nuspecFile); err != nil {
			return nil, err
		}
	}
	return pkg, nil
}

func (p *Package) readManifest(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	var doc nuspec
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", f.Name, err)
	}

	licenseFile := strings.TrimSpace(doc.Metadata.License.Value)
	if strings.EqualFold(doc.Metadata.License.Type, "file") && licenseFile != "" {
		p.manifest.LicenseFile = path.Clean(strings.ReplaceAll(licenseFile, "\\", "/"))
	}
	if repo := doc.Metadata.Repository; repo != nil && repo.URL != "" {
		p.manifest.Repository = &entities.Repository{Type: repo.Type, URL: repo.URL, Commit: repo.Commit}
	}
	return nil
}

func isPackagingFile(name string) bool {
	for _, prefix := range packagingFiles {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return strings.HasSuffix(name, ".psmdcp")
}

// Files lists every payload path, sorted
func (p *Package) Files() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Open opens one payload file
func (p *Package) Open(name string) (io.ReadCloser, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, entities.ErrNotFound)
	}
	return f.Open()
}

// Manifest returns licence file and repository declared in the .nuspec
func (p *Package) Manifest() *entities.PackageManifest {
	return p.manifest
}

// Close is a no-op, the archive lives in memory
func (p *Package) Close() error {
	return nil
}

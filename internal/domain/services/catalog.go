package services

import (
	"sort"
	"strings"

	"github.com/ochairo/unitynuget/internal/domain/entities"
)

// Catalog is the immutable result of one successful build run.
type Catalog struct {
	packages  map[string]*entities.NpmPackage
	listing   []entities.NpmPackageInfo
	artifacts map[string]string
}

// All returns the listing summaries of listed packages, sorted by name.
func (c *Catalog) All() []entities.NpmPackageInfo {
	out := make([]entities.NpmPackageInfo, len(c.listing))
	copy(out, c.listing)
	return out
}

// Package returns the package document of name.
func (c *Catalog) Package(name string) (*entities.NpmPackage, bool) {
	pkg, ok := c.packages[strings.ToLower(name)]
	return pkg, ok
}

// ArtifactPath returns the on-disk path of an artifact file name.
func (c *Catalog) ArtifactPath(fileName string) (string, bool) {
	p, ok := c.artifacts[fileName]
	return p, ok
}

// Len returns the number of packages, listed or not
func (c *Catalog) Len() int {
	return len(c.packages)
}

// CatalogBuilder accumulates packages during a run. It is not safe for concurrent use.
type CatalogBuilder struct {
	packages  map[string]*entities.NpmPackage
	artifacts map[string]string
}

// NewCatalogBuilder creates an empty builder
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{
		packages:  make(map[string]*entities.NpmPackage),
		artifacts: make(map[string]string),
	}
}

// Package returns the package document being built for name.
func (b *CatalogBuilder) Package(name string) (*entities.NpmPackage, bool) {
	pkg, ok := b.packages[strings.ToLower(name)]
	return pkg, ok
}

// AddPackage registers a package document.
func (b *CatalogBuilder) AddPackage(pkg *entities.NpmPackage) {
	b.packages[strings.ToLower(pkg.Name)] = pkg
}

// AddArtifact registers the on-disk path of an artifact file name.
func (b *CatalogBuilder) AddArtifact(fileName, path string) {
	b.artifacts[fileName] = path
}

// Build freezes the accumulated state into a Catalog. The builder must not be used afterwards.
func (b *CatalogBuilder) Build() *Catalog {
	c := &Catalog{
		packages:  b.packages,
		artifacts: b.artifacts,
	}
	for _, pkg := range b.packages {
		if !pkg.Listed {
			continue
		}
		c.listing = append(c.listing, listingInfo(pkg))
	}
	sort.Slice(c.listing, func(i, j int) bool { return c.listing[i].Name < c.listing[j].Name })
	b.packages, b.artifacts = nil, nil
	return c
}

func listingInfo(pkg *entities.NpmPackage) entities.NpmPackageInfo {
	info := entities.NpmPackageInfo{
		Name:        pkg.Name,
		Description: pkg.Description,
		DistTags:    map[string]string{},
		Versions:    map[string]string{},
		Time:        map[string]string{},
	}
	latest := pkg.DistTags["latest"]
	if latest == "" {
		return info
	}
	info.DistTags["latest"] = latest
	info.Versions[latest] = "latest"
	if modified, ok := pkg.Time[latest]; ok {
		info.Time["modified"] = modified
	}
	if v, ok := pkg.Versions[latest]; ok {
		info.Keywords = v.Keywords
		info.Author = v.Author
	}
	return info
}

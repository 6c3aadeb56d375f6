package entities

import (
	"time"

	packageurl "github.com/package-url/packageurl-go"
)

// PackageIdentity identifies one upstream package version.
type PackageIdentity struct {
	ID      string
	Version string
}

func (p PackageIdentity) String() string {
	return p.ID + " " + p.Version
}

// PURL returns the package URL of the identity (pkg:nuget/Id@Version).
func (p PackageIdentity) PURL() string {
	return packageurl.NewPackageURL("nuget", "", p.ID, p.Version, nil, "").ToString()
}

// Dependency is a declared dependency on another upstream package.
type Dependency struct {
	ID    string
	Range string
}

// DependencyGroup lists dependencies declared for one target framework.
type DependencyGroup struct {
	TargetFramework Framework
	Dependencies    []Dependency
}

// FrameworkGroup lists package files declared for one target framework (lib/<tfm>/...).
type FrameworkGroup struct {
	TargetFramework Framework
	Items           []string
}

// Repository is the source repository linkage declared by a package.
type Repository struct {
	Type   string
	URL    string
	Commit string
}

// PackageMetadata is the upstream registration metadata of one version.
type PackageMetadata struct {
	Identity         PackageIdentity
	Listed           bool
	Published        time.Time
	Description      string
	Authors          []string
	Owners           []string
	Tags             []string
	License          string // declared licence expression
	LicenseURL       string
	ProjectURL       string
	DependencyGroups []DependencyGroup
}

// PackageManifest holds the parts of the package manifest (.nuspec) that registration
// metadata does not carry.
type PackageManifest struct {
	LicenseFile string
	Repository  *Repository
}

// ResolvedDependency is a validated dependency with its target package name and version.
type ResolvedDependency struct {
	ID           string
	Range        string
	UnityName    string
	UnityVersion string
}

// ResolvedPackage is one allow-list entry matched with one compatible upstream version.
// It only lives while that version is processed.
type ResolvedPackage struct {
	Metadata     *PackageMetadata
	Entry        RegistryEntry
	Dependencies []ResolvedDependency
}

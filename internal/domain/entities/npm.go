package entities

import "time"

// UnityPackage is the package.json manifest written into every archive.
type UnityPackage struct {
	Name         string            `json:"name"`
	DisplayName  string            `json:"displayName,omitempty"`
	Version      string            `json:"version"`
	Unity        string            `json:"unity,omitempty"`
	Description  string            `json:"description,omitempty"`
	Keywords     []string          `json:"keywords,omitempty"`
	Author       *NpmAuthor        `json:"author,omitempty"`
	License      string            `json:"license,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Repository   *NpmRepository    `json:"repository,omitempty"`
}

// NpmAuthor is the author object of an npm manifest.
type NpmAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// NpmRepository is the repository object of an npm manifest.
type NpmRepository struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Revision string `json:"revision,omitempty"`
}

// NpmDist describes where a version's tarball lives.
type NpmDist struct {
	Shasum  string `json:"shasum"`
	Tarball string `json:"tarball"`
}

// NpmPackageVersion is one entry of an npm package document's versions map.
type NpmPackageVersion struct {
	UnityPackage
	ID   string  `json:"_id"`
	Dist NpmDist `json:"dist"`
}

// NpmPackage is the npm package document served for GET /{id}.
type NpmPackage struct {
	ID          string                        `json:"_id"`
	Name        string                        `json:"name"`
	Description string                        `json:"description,omitempty"`
	DistTags    map[string]string             `json:"dist-tags"`
	Versions    map[string]*NpmPackageVersion `json:"versions"`
	Time        map[string]string             `json:"time"`
	License     string                        `json:"license,omitempty"`
	Repository  *NpmRepository                `json:"repository,omitempty"`
	Listed      bool                          `json:"-"`
}

// NpmPackageInfo is one entry of the search listing served for GET /-/all.
type NpmPackageInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	DistTags    map[string]string `json:"dist-tags"`
	Versions    map[string]string `json:"versions"`
	Time        map[string]string `json:"time,omitempty"`
	Keywords    []string          `json:"keywords,omitempty"`
	Author      *NpmAuthor        `json:"author,omitempty"`
}

// BuildStatus is a copy of the build report at one point in time.
type BuildStatus struct {
	Running         bool
	ProgressCurrent int
	ProgressTotal   int
	Information     []string
	Warnings        []string
	Errors          []string
	LastSuccess     time.Time // zero before the first successful run
}

// ProgressPercent returns the completed share of the run in percent, 0 to 100.
func (s BuildStatus) ProgressPercent() float64 {
	if s.ProgressTotal <= 0 {
		return 0
	}
	return 100 * float64(s.ProgressCurrent) / float64(s.ProgressTotal)
}

// Package entities defines core domain models and data structures.
package entities

import "time"

// Artifact is the generated target-format archive for one package version.
type Artifact struct {
	Name          string // unity package name, e.g. org.nuget.sample.lib
	Version       string
	Path          string
	ChecksumPath  string
	SignaturePath string // empty when signing is disabled
	Checksum      string
	Repository    *Repository
	ModTime       time.Time
	Cached        bool // reused from disk, nothing was downloaded
	Type          string
}

package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/interfaces"
	domainGateways "github.com/ochairo/unitynuget/internal/domain/interfaces/gateways"
	"github.com/ochairo/unitynuget/internal/domain/services"
)

const (
	// ArchiveExtension is the extension of generated artifacts
	ArchiveExtension = ".tgz"
	// ChecksumExtension is the extension of checksum sidecars
	ChecksumExtension = ".sha1"
	// SignatureExtension is appended to the archive name for detached signatures
	SignatureExtension = ".asc"

	tempExtension = ".tmp"

	archiveRoot    = "package/"
	manifestFile   = "package.json"
	licenseFile    = "LICENSE.md"
	analyzerFolder = "analyzers"
)

// archiveModTime is the timestamp of every archive entry (npm uses the same date)
var archiveModTime = time.Date(1985, time.October, 26, 8, 15, 0, 0, time.UTC)

// PackagerConfig holds the settings of archive generation
type PackagerConfig struct {
	RootDir       string
	Scope         string
	Targets       []entities.TargetFramework
	RoslynVersion string
	Language      string
}

// Packager converts upstream package versions into Unity package archives
type Packager struct {
	config    PackagerConfig
	tree      *services.PlatformTree
	upstream  domainGateways.UpstreamGateway
	licenses  *LicenseResolver
	checksums *ChecksumCalculator
	signer    domainGateways.ArtifactSigner
	logger    interfaces.Logger
}

// NewPackager creates a packager. signer may be nil to skip signatures.
func NewPackager(
	config PackagerConfig,
	tree *services.PlatformTree,
	upstream domainGateways.UpstreamGateway,
	licenses *LicenseResolver,
	signer domainGateways.ArtifactSigner,
	logger interfaces.Logger,
) *Packager {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if licenses == nil {
		licenses = NewLicenseResolver(nil, logger)
	}
	return &Packager{
		config:    config,
		tree:      tree,
		upstream:  upstream,
		licenses:  licenses,
		checksums: NewChecksumCalculator(),
		signer:    signer,
		logger:    logger,
	}
}

// ArtifactPaths returns archive and checksum paths of one package version
func (p *Packager) ArtifactPaths(packageID, version string) (archivePath, checksumPath string) {
	base := filepath.Join(p.config.RootDir, services.ArtifactBaseName(p.config.Scope, packageID, version))
	return base + ArchiveExtension, base + ChecksumExtension
}

// PackageArtifact converts one resolved version into an archive described by descriptor.
// An archive already on disk is reused without downloading anything.
func (p *Packager) PackageArtifact(ctx context.Context, pkg *entities.ResolvedPackage, descriptor *entities.UnityPackage) (*entities.Artifact, error) {
	identity := pkg.Metadata.Identity
	archivePath, checksumPath := p.ArtifactPaths(identity.ID, descriptor.Version)

	if info, err := os.Stat(archivePath); err == nil {
		artifact, err := p.reuse(ctx, archivePath, checksumPath, descriptor, info)
		if err != nil {
			return nil, &entities.ConversionError{Package: identity, Err: err}
		}
		if artifact != nil {
			return artifact, nil
		}
	}

	artifact, err := p.build(ctx, pkg, descriptor, archivePath, checksumPath)
	if err != nil {
		p.cleanup(archivePath, checksumPath)
		return nil, &entities.ConversionError{Package: identity, Err: err}
	}
	return artifact, nil
}

func (p *Packager) cleanup(archivePath, checksumPath string) {
	for _, f := range []string{archivePath + tempExtension, archivePath, checksumPath, archivePath + SignatureExtension} {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("failed to remove partial artifact", interfaces.F("path", f), interfaces.Err(err))
		}
	}
}

// reuse returns the cached artifact, or nil when the archive has no matching checksum sidecar
// and must be rebuilt.
func (p *Packager) reuse(ctx context.Context, archivePath, checksumPath string, descriptor *entities.UnityPackage, info os.FileInfo) (*entities.Artifact, error) {
	sum, err := p.checksums.ReadChecksumFile(checksumPath)
	if err == nil {
		err = p.checksums.VerifyChecksum(ctx, archivePath, sum)
	}
	if err != nil {
		p.logger.Warn("discarding unverified artifact",
			interfaces.F("artifact", filepath.Base(archivePath)), interfaces.Err(err))
		return nil, nil
	}

	repository, err := ReadArchiveRepository(archivePath)
	if err != nil {
		p.logger.Debug("no repository in cached artifact", interfaces.F("artifact", filepath.Base(archivePath)), interfaces.Err(err))
	}

	sigPath, err := p.sign(archivePath, true)
	if err != nil {
		return nil, err
	}

	return &entities.Artifact{
		Name:          descriptor.Name,
		Version:       descriptor.Version,
		Path:          archivePath,
		ChecksumPath:  checksumPath,
		SignaturePath: sigPath,
		Checksum:      sum,
		Repository:    repository,
		ModTime:       info.ModTime(),
		Cached:        true,
		Type:          "tgz",
	}, nil
}

func (p *Packager) build(ctx context.Context, pkg *entities.ResolvedPackage, descriptor *entities.UnityPackage, archivePath, checksumPath string) (*entities.Artifact, error) {
	identity := pkg.Metadata.Identity

	content, err := p.upstream.Download(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer func() { _ = content.Close() }()

	entries, err := p.collectEntries(pkg, content)
	if err != nil {
		return nil, err
	}
	if len(entries.files) == 0 &&
		(len(pkg.Dependencies) == 0 || len(services.LibFrameworkGroups(content.Files())) > 0) {
		return nil, entities.ErrNoCompatibleFiles
	}

	manifest := *descriptor
	var repository *entities.Repository
	if m := content.Manifest(); m != nil && m.Repository != nil {
		repository = m.Repository
		manifest.Repository = &entities.NpmRepository{Type: m.Repository.Type, URL: m.Repository.URL, Revision: m.Repository.Commit}
	}

	manifestJSON, err := json.MarshalIndent(&manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", manifestFile, err)
	}
	entries.addText(identity.ID, manifestFile, manifestJSON)

	if text := p.licenses.Resolve(ctx, pkg.Metadata, content); text != "" {
		entries.addText(identity.ID, licenseFile, []byte(text))
	}
	entries.addFolders(identity.ID)

	if err := os.MkdirAll(p.config.RootDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	tempPath := archivePath + tempExtension
	if err := writeArchive(tempPath, entries); err != nil {
		return nil, err
	}
	sum, err := p.checksums.CalculateChecksum(tempPath)
	if err != nil {
		return nil, err
	}
	if err := p.checksums.WriteChecksumFile(checksumPath, sum); err != nil {
		return nil, err
	}
	// the archive only appears under its final name once its sidecar exists
	if err := os.Rename(tempPath, archivePath); err != nil {
		return nil, fmt.Errorf("failed to move archive into place: %w", err)
	}

	sigPath, err := p.sign(archivePath, false)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	p.logger.Info("created artifact",
		interfaces.F("artifact", filepath.Base(archivePath)),
		interfaces.F("files", len(entries.files)),
		interfaces.F("purl", identity.PURL()))

	return &entities.Artifact{
		Name:          descriptor.Name,
		Version:       descriptor.Version,
		Path:          archivePath,
		ChecksumPath:  checksumPath,
		SignaturePath: sigPath,
		Checksum:      sum,
		Repository:    repository,
		ModTime:       info.ModTime(),
		Type:          "tgz",
	}, nil
}

// sign signs the archive; with reuse set an existing signature is kept
func (p *Packager) sign(archivePath string, reuse bool) (string, error) {
	if p.signer == nil {
		return "", nil
	}
	sigPath := archivePath + SignatureExtension
	if reuse {
		if _, err := os.Stat(sigPath); err == nil {
			return sigPath, nil
		}
	}
	return p.signer.SignFile(archivePath)
}

// archiveEntries is the content of one archive keyed by path below package/
type archiveEntries struct {
	files map[string][]byte
}

func newArchiveEntries() *archiveEntries {
	return &archiveEntries{files: make(map[string][]byte)}
}

func (e *archiveEntries) has(name string) bool {
	_, ok := e.files[name]
	return ok
}

// add stores a payload file and its .meta sidecar
func (e *archiveEntries) add(packageID, name string, data []byte, settings services.MetaSettings) {
	settings.GUID = services.StableGUID(packageID, name)
	e.files[name] = data
	e.files[name+".meta"] = []byte(services.RenderMeta(settings))
}

func (e *archiveEntries) addText(packageID, name string, data []byte) {
	e.add(packageID, name, data, services.MetaSettings{Kind: services.MetaText})
}

// addFolders writes a folder .meta for every directory holding a file
func (e *archiveEntries) addFolders(packageID string) {
	folders := make(map[string]bool)
	for name := range e.files {
		for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
			folders[dir] = true
		}
	}
	for dir := range folders {
		e.files[dir+".meta"] = []byte(services.RenderMeta(services.MetaSettings{
			Kind: services.MetaFolder,
			GUID: services.StableGUID(packageID, dir),
		}))
	}
}

func (e *archiveEntries) names() []string {
	names := make([]string, 0, len(e.files))
	for name := range e.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// writeArchive writes a gzipped tarball with every entry below package/
func writeArchive(archivePath string, entries *archiveEntries) error {
	//nolint:gosec // G304: archive path built from the configured root folder
	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	gzipWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzipWriter)

	writeErr := func() error {
		for _, name := range entries.names() {
			data := entries.files[name]
			header := &tar.Header{
				Typeflag: tar.TypeReg,
				Name:     archiveRoot + name,
				Mode:     0644,
				Size:     int64(len(data)),
				ModTime:  archiveModTime,
			}
			if err := tarWriter.WriteHeader(header); err != nil {
				return fmt.Errorf("failed to write tar header: %w", err)
			}
			if _, err := tarWriter.Write(data); err != nil {
				return fmt.Errorf("failed to write %s to tar: %w", name, err)
			}
		}
		if err := tarWriter.Close(); err != nil {
			return fmt.Errorf("failed to close tar: %w", err)
		}
		if err := gzipWriter.Close(); err != nil {
			return fmt.Errorf("failed to close gzip: %w", err)
		}
		return nil
	}()

	if closeErr := file.Close(); writeErr == nil && closeErr != nil {
		writeErr = fmt.Errorf("failed to close archive: %w", closeErr)
	}
	return writeErr
}

// ReadArchiveManifest reads package/package.json back from an archive
func ReadArchiveManifest(archivePath string) (*entities.UnityPackage, error) {
	//nolint:gosec // G304: archive path built from the configured root folder
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = file.Close() }()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip: %w", err)
	}
	defer func() { _ = gzipReader.Close() }()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("%s: %w", manifestFile, entities.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar: %w", err)
		}
		if header.Name != archiveRoot+manifestFile {
			continue
		}
		var manifest entities.UnityPackage
		if err := json.NewDecoder(tarReader).Decode(&manifest); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", manifestFile, err)
		}
		return &manifest, nil
	}
}

// ReadArchiveRepository returns the repository linkage recorded in an archive, nil if none
func ReadArchiveRepository(archivePath string) (*entities.Repository, error) {
	manifest, err := ReadArchiveManifest(archivePath)
	if err != nil {
		return nil, err
	}
	if manifest.Repository == nil || manifest.Repository.URL == "" {
		return nil, nil
	}
	return &entities.Repository{
		Type:   manifest.Repository.Type,
		URL:    manifest.Repository.URL,
		Commit: manifest.Repository.Revision,
	}, nil
}

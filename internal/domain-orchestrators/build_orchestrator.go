// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/interfaces"
	"github.com/ochairo/unitynuget/internal/domain/interfaces/gateways"
	"github.com/ochairo/unitynuget/internal/domain/interfaces/repositories"
	"github.com/ochairo/unitynuget/internal/domain/services"
)

// KeywordMarker is the first keyword of every generated package.
const KeywordMarker = "nuget"

// npm timestamps
const timeLayout = "2006-01-02T15:04:05.000Z"

// Packager interface for converting a resolved version into an archive
type Packager interface {
	PackageArtifact(ctx context.Context, pkg *entities.ResolvedPackage, descriptor *entities.UnityPackage) (*entities.Artifact, error)
}

// BuildOrchestratorConfig holds configuration for the orchestrator
type BuildOrchestratorConfig struct {
	RootHTTPURL         string
	Scope               string
	MinimumUnityVersion string
	PackageNamePostfix  string
	Targets             []entities.TargetFramework
	Baseline            entities.TargetFramework
	Filter              *regexp.Regexp // nil processes every entry
}

// BuildOrchestrator runs the allow-list through upstream resolution, dependency validation and
// conversion, accumulating a new catalog.
type BuildOrchestrator struct {
	registry repositories.RegistryRepository
	upstream gateways.UpstreamGateway
	packager Packager
	report   *services.BuildReport
	config   BuildOrchestratorConfig
	logger   interfaces.Logger
	now      func() time.Time
}

// NewBuildOrchestrator creates a new build orchestrator
func NewBuildOrchestrator(
	registry repositories.RegistryRepository,
	upstream gateways.UpstreamGateway,
	packager Packager,
	report *services.BuildReport,
	config BuildOrchestratorConfig,
	logger interfaces.Logger,
) *BuildOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if report == nil {
		report = services.NewBuildReport()
	}
	if config.Baseline.Name == "" {
		if lowest, ok := services.LowestTargetFramework(config.Targets); ok {
			config.Baseline = lowest
		}
	}
	return &BuildOrchestrator{
		registry: registry,
		upstream: upstream,
		packager: packager,
		report:   report,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Report returns the report the orchestrator writes to
func (o *BuildOrchestrator) Report() *services.BuildReport {
	return o.report
}

// BuildResult contains the result of one run
type BuildResult struct {
	Catalog  *services.Catalog
	Status   entities.BuildStatus
	Duration time.Duration
	Success  bool
}

// Run processes the whole allow-list once. The returned catalog is complete even when the run
// failed; callers decide whether to publish it from Success.
// The error is only set when the allow-list itself cannot be read.
func (o *BuildOrchestrator) Run(ctx context.Context) (*BuildResult, error) {
	startTime := o.now()
	result := &BuildResult{}

	entries, err := o.registry.ListEntries(ctx)
	if err != nil {
		o.report.Start(0)
		o.report.Error(fmt.Sprintf("failed to load registry: %v", err))
		o.report.Finish(o.now())
		result.Status = o.report.Snapshot()
		result.Duration = time.Since(startTime)
		return result, fmt.Errorf("failed to load registry: %w", err)
	}

	run := &buildRun{
		BuildOrchestrator: o,
		entries:           make(map[string]entities.RegistryEntry, len(entries)),
		builder:           services.NewCatalogBuilder(),
		metadata:          make(map[string][]*entities.PackageMetadata),
		latest:            make(map[string]*services.NuGetVersion),
	}
	for _, entry := range entries {
		run.entries[strings.ToLower(entry.ID)] = entry
	}

	o.report.Start(len(entries))
	o.logger.Info("build started", interfaces.F("entries", len(entries)), interfaces.F("baseline", o.config.Baseline.Name))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			o.report.Error(fmt.Sprintf("build cancelled: %v", err))
			break
		}
		run.processEntry(ctx, entry)
		o.report.Advance()
	}

	result.Catalog = run.builder.Build()
	result.Success = o.report.Finish(o.now())
	result.Status = o.report.Snapshot()
	result.Duration = time.Since(startTime)

	o.logger.Info("build finished",
		interfaces.F("success", result.Success),
		interfaces.F("packages", result.Catalog.Len()),
		interfaces.F("warnings", len(result.Status.Warnings)),
		interfaces.F("errors", len(result.Status.Errors)),
		interfaces.Duration(result.Duration))
	return result, nil
}

// buildRun is the state of one run. Upstream metadata is cached for the run only.
type buildRun struct {
	*BuildOrchestrator
	entries  map[string]entities.RegistryEntry
	builder  *services.CatalogBuilder
	metadata map[string][]*entities.PackageMetadata
	latest   map[string]*services.NuGetVersion
}

func (r *buildRun) info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.report.Info(msg)
	r.logger.Info(msg)
}

func (r *buildRun) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.report.Warn(msg)
	r.logger.Warn(msg)
}

func (r *buildRun) fail(err error) {
	r.report.Error(err.Error())
	r.logger.Error(err.Error())
}

func (r *buildRun) versions(ctx context.Context, id string) ([]*entities.PackageMetadata, error) {
	key := strings.ToLower(id)
	if metas, ok := r.metadata[key]; ok {
		return metas, nil
	}
	metas, err := r.upstream.ListVersions(ctx, id)
	if err != nil {
		return nil, &entities.UpstreamQueryError{PackageID: id, Err: err}
	}
	r.metadata[key] = metas
	return metas, nil
}

func (r *buildRun) processEntry(ctx context.Context, entry entities.RegistryEntry) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(&entities.UnexpectedError{PackageID: entry.ID, Err: fmt.Errorf("panic: %v", rec)})
		}
	}()

	if entry.Ignored {
		r.logger.Debug("skipping ignored entry", interfaces.Package(entry.ID))
		return
	}
	if r.config.Filter != nil && !r.config.Filter.MatchString(entry.ID) {
		r.logger.Debug("skipping filtered entry", interfaces.Package(entry.ID))
		return
	}

	versionRange, err := services.ParseVersionRange(entry.Version)
	if err != nil {
		r.fail(&entities.ConfigurationError{Key: entry.ID, Err: err})
		return
	}

	metas, err := r.versions(ctx, entry.ID)
	if err != nil {
		r.fail(err)
		return
	}

	for _, meta := range metas {
		version, err := services.ParseVersion(meta.Identity.Version)
		if err != nil {
			r.warn("Skipping %s: %v", meta.Identity, err)
			continue
		}
		if !versionRange.Satisfies(version) {
			continue
		}
		if version.IsPrerelease() && !entry.IncludePrerelease {
			r.logger.Debug("skipping prerelease", interfaces.Package(meta.Identity.String()))
			continue
		}
		if !meta.Listed && !entry.IncludeUnlisted {
			r.logger.Debug("skipping unlisted version", interfaces.Package(meta.Identity.String()))
			continue
		}
		r.processVersion(ctx, entry, meta, version)
	}
}

func (r *buildRun) processVersion(ctx context.Context, entry entities.RegistryEntry, meta *entities.PackageMetadata, version *services.NuGetVersion) {
	identity := meta.Identity
	baseline := r.config.Baseline

	var group entities.DependencyGroup
	if len(meta.DependencyGroups) > 0 {
		var ok bool
		group, ok = services.ClosestDependencyGroup(meta.DependencyGroups, baseline.Framework)
		if !ok {
			r.warn("The package %s doesn't support %s", identity, baseline.Name)
			return
		}
	}

	name := services.UnityPackageName(r.config.Scope, entry.ID)
	upmVersion := version.String()
	descriptor := r.descriptor(name, upmVersion, meta)

	var dependencies []entities.ResolvedDependency
	failed := false
	for _, dep := range group.Dependencies {
		resolved, err := r.resolveDependency(ctx, identity, dep)
		if err != nil {
			r.fail(err)
			failed = true
			continue
		}
		dependencies = append(dependencies, resolved)
		descriptor.Dependencies[resolved.UnityName] = resolved.UnityVersion
	}
	if failed {
		return
	}

	artifact, err := r.packager.PackageArtifact(ctx, &entities.ResolvedPackage{
		Metadata:     meta,
		Entry:        entry,
		Dependencies: dependencies,
	}, descriptor)
	if errors.Is(err, entities.ErrNoCompatibleFiles) {
		r.warn("The package %s doesn't support %s", identity, baseline.Name)
		return
	}
	if err != nil {
		r.fail(err)
		return
	}

	pkg, ok := r.builder.Package(name)
	if !ok {
		pkg = &entities.NpmPackage{
			ID:       name,
			Name:     name,
			DistTags: map[string]string{},
			Versions: map[string]*entities.NpmPackageVersion{},
			Time:     map[string]string{},
			Listed:   entry.Listed,
		}
		r.builder.AddPackage(pkg)
	}

	isLatest := false
	if current, seen := r.latest[name]; !seen || version.GreaterThan(current) {
		isLatest = true
		r.latest[name] = version
		pkg.DistTags["latest"] = upmVersion
		pkg.Description = descriptor.Description
		pkg.License = descriptor.License
	}

	if !artifact.Cached {
		r.info("New package %s", identity)
	}

	published := meta.Published
	if published.IsZero() {
		published = artifact.ModTime
	}
	publishedAt := published.UTC().Format(timeLayout)
	pkg.Time[upmVersion] = publishedAt

	if artifact.Repository != nil {
		descriptor.Repository = &entities.NpmRepository{
			Type:     artifact.Repository.Type,
			URL:      artifact.Repository.URL,
			Revision: artifact.Repository.Commit,
		}
	}
	if isLatest {
		pkg.Time["modified"] = publishedAt
		pkg.Repository = descriptor.Repository
	}

	fileName := filepath.Base(artifact.Path)
	pkg.Versions[upmVersion] = &entities.NpmPackageVersion{
		UnityPackage: *descriptor,
		ID:           name + "@" + upmVersion,
		Dist: entities.NpmDist{
			Shasum:  artifact.Checksum,
			Tarball: fmt.Sprintf("%s/%s/-/%s", strings.TrimRight(r.config.RootHTTPURL, "/"), name, fileName),
		},
	}
	r.builder.AddArtifact(fileName, artifact.Path)
}

func (r *buildRun) descriptor(name, version string, meta *entities.PackageMetadata) *entities.UnityPackage {
	keywords := []string{KeywordMarker}
	for _, tag := range meta.Tags {
		if tag != "" && tag != KeywordMarker {
			keywords = append(keywords, tag)
		}
	}
	d := &entities.UnityPackage{
		Name:         name,
		DisplayName:  meta.Identity.ID + r.config.PackageNamePostfix,
		Version:      version,
		Unity:        r.config.MinimumUnityVersion,
		Description:  meta.Description,
		Keywords:     keywords,
		License:      services.ManifestLicense(meta),
		Dependencies: map[string]string{},
	}
	if len(meta.Authors) > 0 {
		d.Author = &entities.NpmAuthor{Name: strings.Join(meta.Authors, ", ")}
	}
	return d
}

// resolveDependency checks dep against the allow-list and picks the target version to depend on.
func (r *buildRun) resolveDependency(ctx context.Context, identity entities.PackageIdentity, dep entities.Dependency) (entities.ResolvedDependency, error) {
	allowed, ok := r.entries[strings.ToLower(dep.ID)]
	if !ok || allowed.Ignored {
		return entities.ResolvedDependency{}, &entities.DependencyViolationError{Package: identity, Dependency: dep}
	}

	violation := &entities.DependencyViolationError{Package: identity, Dependency: dep, AllowedRange: allowed.Version}
	depRange, err := services.ParseVersionRange(dep.Range)
	if err != nil {
		return entities.ResolvedDependency{}, violation
	}
	allowedRange, err := services.ParseVersionRange(allowed.Version)
	if err != nil || !depRange.IsSubsetOf(allowedRange) {
		return entities.ResolvedDependency{}, violation
	}

	resolved := entities.ResolvedDependency{
		ID:        dep.ID,
		Range:     dep.Range,
		UnityName: services.UnityPackageName(r.config.Scope, allowed.ID),
	}

	metas, err := r.versions(ctx, dep.ID)
	if err != nil {
		r.logger.Warn("falling back to range minimum", interfaces.F("dependency", dep.ID), interfaces.Err(err))
	}
	var inRange []*entities.PackageMetadata
	for _, m := range metas {
		if v, err := services.ParseVersion(m.Identity.Version); err == nil && depRange.Satisfies(v) {
			inRange = append(inRange, m)
		}
	}
	if id, ok := services.MinimumCompatibleIdentity(inRange, r.config.Targets, true); ok {
		if v, err := services.ParseVersion(id.Version); err == nil {
			resolved.UnityVersion = v.String()
			return resolved, nil
		}
	}

	minVersion := depRange.MinVersion()
	if minVersion == nil {
		minVersion = allowedRange.MinVersion()
	}
	if minVersion == nil {
		return entities.ResolvedDependency{}, violation
	}
	resolved.UnityVersion = minVersion.String()
	return resolved, nil
}

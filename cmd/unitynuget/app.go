package main

import (
	"fmt"
	"time"

	"github.com/ochairo/unitynuget/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/unitynuget/internal/domain-orchestrators"
	"github.com/ochairo/unitynuget/internal/domain/interfaces"
	domainGateways "github.com/ochairo/unitynuget/internal/domain/interfaces/gateways"
	"github.com/ochairo/unitynuget/internal/domain/services"
	"github.com/ochairo/unitynuget/internal/external-adapters/config"
	"github.com/ochairo/unitynuget/internal/external-adapters/fetch"
	"github.com/ochairo/unitynuget/internal/external-adapters/filelock"
	"github.com/ochairo/unitynuget/internal/external-adapters/logging"
	"github.com/ochairo/unitynuget/internal/external-adapters/nuget"
	"github.com/ochairo/unitynuget/internal/external-adapters/yaml"
)

const dnsRefreshInterval = 5 * time.Minute

// app holds the components shared by the commands
type app struct {
	settings     *config.Settings
	rootDir      string
	fetcher      *fetch.Fetcher
	breakers     *fetch.CircuitBreakerFetcher
	registry     *yaml.RegistryRepository
	signer       *gateways.GPGSigner
	report       *services.BuildReport
	orchestrator *orchestrators.BuildOrchestrator
	lock         *filelock.FolderLock
}

func newApp(settings *config.Settings, logger *logging.Logger) (*app, error) {
	rootDir, err := settings.RootFolder()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact folder: %w", err)
	}

	lock, err := filelock.New(rootDir, logger)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.NewFetcher()
	breakers := fetch.NewCircuitBreakerFetcher(fetcher)
	upstream := nuget.NewClient(settings.NuGetSource, breakers, logger)
	registry := yaml.NewRegistryRepository(settings.RegistryFile)

	var signer *gateways.GPGSigner
	var artifactSigner domainGateways.ArtifactSigner
	if settings.SigningKeyFile != "" {
		signer, err = gateways.NewGPGSigner(settings.SigningKeyFile, []byte(settings.SigningPassphrase))
		if err != nil {
			return nil, err
		}
		artifactSigner = signer
	}

	baseline, err := settings.Baseline()
	if err != nil {
		return nil, err
	}
	packager := gateways.NewPackager(gateways.PackagerConfig{
		RootDir:       rootDir,
		Scope:         settings.UnityScope,
		Targets:       settings.TargetFrameworks,
		RoslynVersion: settings.RoslynVersion,
		Language:      settings.ProjectLanguage,
	}, services.NewPlatformTree(), upstream,
		gateways.NewLicenseResolver(fetch.DocumentFetcher{CircuitBreakerFetcher: breakers}, logger),
		artifactSigner, logger)

	report := services.NewBuildReport()
	orchestrator := orchestrators.NewBuildOrchestrator(registry, upstream, packager, report,
		orchestrators.BuildOrchestratorConfig{
			RootHTTPURL:         settings.RootHTTPURL,
			Scope:               settings.UnityScope,
			MinimumUnityVersion: settings.MinimumUnityVersion,
			PackageNamePostfix:  settings.PackageNamePostfix,
			Targets:             settings.TargetFrameworks,
			Baseline:            baseline,
			Filter:              settings.Filter(),
		}, logger)

	logger.Debug("components ready",
		interfaces.F("root", rootDir),
		interfaces.F("source", settings.NuGetSource),
		interfaces.F("signing", signer != nil))

	return &app{
		settings:     settings,
		rootDir:      rootDir,
		fetcher:      fetcher,
		breakers:     breakers,
		registry:     registry,
		signer:       signer,
		report:       report,
		orchestrator: orchestrator,
		lock:         lock,
	}, nil
}

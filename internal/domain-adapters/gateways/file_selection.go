package gateways

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/interfaces"
	domainGateways "github.com/ochairo/unitynuget/internal/domain/interfaces/gateways"
	"github.com/ochairo/unitynuget/internal/domain/services"
)

// selectedGroup is one lib group with every target framework it was selected for
type selectedGroup struct {
	group   entities.FrameworkGroup
	targets []entities.TargetFramework
}

// runtimeLibrary is a runtime specific build of a managed assembly
type runtimeLibrary struct {
	source    string
	node      *services.PlatformNode
	framework entities.Framework
}

// collectEntries selects the payload files of a package and lays them out per platform.
func (p *Packager) collectEntries(pkg *entities.ResolvedPackage, content domainGateways.PackageContent) (*archiveEntries, error) {
	entries := newArchiveEntries()
	files := content.Files()
	packageID := pkg.Metadata.Identity.ID

	put := func(source, name string, settings services.MetaSettings) error {
		if entries.has(name) {
			p.logger.Warn("duplicate file in package, keeping the first",
				interfaces.Package(packageID), interfaces.F("file", name), interfaces.F("source", source))
			return nil
		}
		data, err := readAll(content, source)
		if err != nil {
			return err
		}
		entries.add(packageID, name, data, settings)
		return nil
	}

	groups := p.selectLibGroups(files)
	multi := len(groups) > 1
	for _, sel := range groups {
		folder := ""
		if multi {
			folder = sel.targets[0].Name
		}

		constraints := append([]string(nil), pkg.Entry.DefineConstraints...)
		// a group not serving every target needs the targets' constraints
		if multi || len(sel.targets) < len(p.config.Targets) {
			for _, target := range sel.targets {
				constraints = append(constraints, target.DefineConstraints...)
			}
		}

		for _, item := range sel.group.Items {
			if !services.IsManagedAssembly(item) {
				continue
			}
			fileName := path.Base(item)
			settings := services.MetaSettings{Kind: services.MetaPlugin, DefineConstraints: constraints}

			runtimeLibs := p.runtimeLibraries(files, fileName, sel.targets[0].Framework)
			if len(runtimeLibs) == 0 {
				if err := put(item, path.Join(folder, fileName), settings); err != nil {
					return nil, err
				}
				continue
			}

			visited := make(map[*services.PlatformNode]bool, len(runtimeLibs))
			for _, lib := range runtimeLibs {
				visited[lib.node] = true
				settings.Platform = lib.node
				if err := put(lib.source, lib.node.FilePath(folder, fileName), settings); err != nil {
					return nil, err
				}
			}
			for _, node := range p.tree.RemainingPlatforms(visited) {
				settings.Platform = node
				if err := put(item, node.FilePath(folder, fileName), settings); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, file := range files {
		os, cpu, ok := services.NativeRuntimeFile(file)
		if !ok {
			continue
		}
		node, found := p.tree.Find(os, cpu)
		if !found {
			p.logger.Debug("skipping native file for unsupported platform",
				interfaces.Package(packageID), interfaces.F("file", file))
			continue
		}
		settings := services.MetaSettings{
			Kind:              services.MetaNativePlugin,
			Platform:          node,
			DefineConstraints: pkg.Entry.DefineConstraints,
		}
		if err := put(file, node.FilePath("", path.Base(file)), settings); err != nil {
			return nil, err
		}
	}

	if pkg.Entry.Analyzer {
		for _, file := range files {
			if !services.IsApplicableAnalyzerResource(file, p.config.Language, p.config.RoslynVersion) {
				continue
			}
			settings := services.MetaSettings{
				Kind:   services.MetaAnalyzer,
				Labels: []string{services.RoslynAnalyzerLabel},
			}
			if err := put(file, path.Join(analyzerFolder, path.Base(file)), settings); err != nil {
				return nil, err
			}
		}
	}

	return entries, nil
}

// selectLibGroups picks the closest lib group per target and merges targets sharing a group,
// in target order.
func (p *Packager) selectLibGroups(files []string) []selectedGroup {
	var out []selectedGroup
	index := make(map[string]int)
	for _, match := range services.ClosestFrameworkGroups(services.LibFrameworkGroups(files), p.config.Targets) {
		key := match.Group.TargetFramework.String()
		if i, ok := index[key]; ok {
			out[i].targets = append(out[i].targets, match.Target)
			continue
		}
		index[key] = len(out)
		out = append(out, selectedGroup{group: match.Group, targets: []entities.TargetFramework{match.Target}})
	}
	return out
}

// runtimeLibraries finds the runtime specific builds of fileName usable by target, the closest
// framework per platform node, in package order.
func (p *Packager) runtimeLibraries(files []string, fileName string, target entities.Framework) []runtimeLibrary {
	var out []runtimeLibrary
	index := make(map[*services.PlatformNode]int)
	for _, file := range files {
		if !strings.EqualFold(path.Base(file), fileName) {
			continue
		}
		os, cpu, fw, ok := services.RuntimeLibraryFile(file)
		if !ok || fw.Family != target.Family || fw.Version.Compare(target.Version) > 0 {
			continue
		}
		node, found := p.tree.Find(os, cpu)
		if !found {
			continue
		}
		lib := runtimeLibrary{source: file, node: node, framework: fw}
		if i, seen := index[node]; seen {
			if fw.Version.Compare(out[i].framework.Version) > 0 {
				out[i] = lib
			}
			continue
		}
		index[node] = len(out)
		out = append(out, lib)
	}
	return out
}

func readAll(content domainGateways.PackageContent, name string) ([]byte, error) {
	rc, err := content.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

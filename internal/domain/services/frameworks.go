package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ochairo/unitynuget/internal/domain/entities"
)

// Framework identifiers
const (
	FamilyNetStandard  = ".NETStandard"
	FamilyNetCoreApp   = ".NETCoreApp"
	FamilyNetFramework = ".NETFramework"
)

// ParseFramework parses a target framework moniker. It accepts short folder names (netstandard2.0,
// net48, net6.0, netcoreapp3.1), full names (.NETStandard2.0, .NETStandard,Version=v2.0) and the
// universal marker (any or empty).
func ParseFramework(tfm string) (entities.Framework, error) {
	s := strings.TrimSpace(tfm)
	if s == "" || strings.EqualFold(s, "any") || strings.EqualFold(s, "agnostic") {
		return entities.AnyFramework, nil
	}
	if strings.HasPrefix(s, ".") {
		return parseFullFrameworkName(s)
	}

	lower := strings.ToLower(s)
	if strings.Contains(lower, "-") {
		return entities.Framework{}, fmt.Errorf("unsupported platform specific framework: %s", tfm)
	}

	prefixes := []struct {
		prefix string
		family string
	}{
		{"netstandard", FamilyNetStandard},
		{"netcoreapp", FamilyNetCoreApp},
		{"net", ""},
	}
	for _, p := range prefixes {
		versionPart, ok := strings.CutPrefix(lower, p.prefix)
		if !ok {
			continue
		}
		if versionPart == "" {
			return entities.Framework{}, fmt.Errorf("missing version for framework %s", tfm)
		}
		if p.family != "" {
			v, err := parseDottedVersion(versionPart)
			if err != nil {
				return entities.Framework{}, fmt.Errorf("invalid version for %s: %w", tfm, err)
			}
			return entities.Framework{Family: p.family, Version: v}, nil
		}

		// net48 is .NET Framework 4.8, net6.0 is .NET 6 (.NETCoreApp)
		var v entities.FrameworkVersion
		var err error
		if strings.Contains(versionPart, ".") {
			v, err = parseDottedVersion(versionPart)
		} else {
			v, err = parseCompactVersion(versionPart)
		}
		if err != nil {
			return entities.Framework{}, fmt.Errorf("invalid version for %s: %w", tfm, err)
		}
		if v.Major >= 5 {
			return entities.Framework{Family: FamilyNetCoreApp, Version: v}, nil
		}
		return entities.Framework{Family: FamilyNetFramework, Version: v}, nil
	}

	return entities.Framework{}, fmt.Errorf("unknown framework identifier: %s", tfm)
}

// MustParseFramework parses a TFM and panics on error.
func MustParseFramework(tfm string) entities.Framework {
	fw, err := ParseFramework(tfm)
	if err != nil {
		panic(err)
	}
	return fw
}

// parseFullFrameworkName handles ".NETStandard2.0" and ".NETCoreApp,Version=v3.1".
func parseFullFrameworkName(s string) (entities.Framework, error) {
	parts := strings.Split(s, ",")
	name := strings.TrimSpace(parts[0])
	versionStr := ""
	for _, part := range parts[1:] {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), "Version="); ok {
			versionStr = strings.TrimPrefix(v, "v")
		}
	}

	for _, family := range []string{FamilyNetStandard, FamilyNetCoreApp, FamilyNetFramework} {
		rest, ok := cutPrefixFold(name, family)
		if !ok {
			continue
		}
		if rest != "" {
			versionStr = rest
		}
		if versionStr == "" {
			return entities.Framework{}, fmt.Errorf("missing version for framework %s", s)
		}
		v, err := parseDottedVersion(versionStr)
		if err != nil {
			return entities.Framework{}, fmt.Errorf("invalid version for %s: %w", s, err)
		}
		return entities.Framework{Family: family, Version: v}, nil
	}
	return entities.Framework{}, fmt.Errorf("unknown framework identifier: %s", s)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func parseDottedVersion(s string) (entities.FrameworkVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return entities.FrameworkVersion{}, fmt.Errorf("too many version components: %s", s)
	}
	var nums [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return entities.FrameworkVersion{}, fmt.Errorf("invalid version component: %s", p)
		}
		nums[i] = n
	}
	return entities.FrameworkVersion{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}, nil
}

// parseCompactVersion parses compact versions like "48" -> 4.8 and "472" -> 4.7.2.
func parseCompactVersion(s string) (entities.FrameworkVersion, error) {
	if len(s) < 2 || len(s) > 4 {
		return entities.FrameworkVersion{}, fmt.Errorf("invalid compact version: %s", s)
	}
	var nums [4]int
	for i, c := range s {
		if c < '0' || c > '9' {
			return entities.FrameworkVersion{}, fmt.Errorf("invalid compact version: %s", s)
		}
		nums[i] = int(c - '0')
	}
	return entities.FrameworkVersion{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}, nil
}

// FrameworkGroupMatch pairs a selected file group with the target framework it was selected for.
type FrameworkGroupMatch struct {
	Group  entities.FrameworkGroup
	Target entities.TargetFramework
}

// ClosestFrameworkGroups selects, for each target framework, the group of the same family with the
// greatest version not above the target's. Targets without such a group are omitted.
func ClosestFrameworkGroups(groups []entities.FrameworkGroup, targets []entities.TargetFramework) []FrameworkGroupMatch {
	var out []FrameworkGroupMatch
	for _, target := range targets {
		group, ok := closestByFramework(groups, func(g entities.FrameworkGroup) entities.Framework {
			return g.TargetFramework
		}, target.Framework)
		if ok {
			out = append(out, FrameworkGroupMatch{Group: group, Target: target})
		}
	}
	return out
}

// ClosestDependencyGroup returns the dependency group of fw's family with the greatest version not
// above fw, falling back to the universal group.
func ClosestDependencyGroup(groups []entities.DependencyGroup, fw entities.Framework) (entities.DependencyGroup, bool) {
	frameworkOf := func(g entities.DependencyGroup) entities.Framework { return g.TargetFramework }
	if group, ok := closestByFramework(groups, frameworkOf, fw); ok {
		return group, true
	}
	for _, g := range groups {
		if g.TargetFramework.IsAny() {
			return g, true
		}
	}
	return entities.DependencyGroup{}, false
}

// closestByFramework picks the item whose framework has fw's family and the greatest version <= fw.
// On equal versions the first item wins.
func closestByFramework[T any](items []T, frameworkOf func(T) entities.Framework, fw entities.Framework) (T, bool) {
	var best T
	found := false
	var bestVersion entities.FrameworkVersion
	for _, item := range items {
		candidate := frameworkOf(item)
		if candidate.Family != fw.Family || candidate.Version.Compare(fw.Version) > 0 {
			continue
		}
		if !found || candidate.Version.Compare(bestVersion) > 0 {
			best, bestVersion, found = item, candidate.Version, true
		}
	}
	return best, found
}

// CompatibleDependencyGroups returns the groups declared for exactly one of the target frameworks,
// plus universal groups when includeAny is set.
func CompatibleDependencyGroups(groups []entities.DependencyGroup, targets []entities.TargetFramework, includeAny bool) []entities.DependencyGroup {
	var out []entities.DependencyGroup
	for _, g := range groups {
		if includeAny && g.TargetFramework.IsAny() {
			out = append(out, g)
			continue
		}
		for _, target := range targets {
			if g.TargetFramework.Equal(target.Framework) {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

// MinimumCompatibleIdentity returns the identity of the first metadata entry that supports at least
// one target framework. Entries declaring no dependency groups support every framework.
func MinimumCompatibleIdentity(metas []*entities.PackageMetadata, targets []entities.TargetFramework, includeAny bool) (entities.PackageIdentity, bool) {
	for _, meta := range metas {
		if len(meta.DependencyGroups) == 0 || len(CompatibleDependencyGroups(meta.DependencyGroups, targets, includeAny)) > 0 {
			return meta.Identity, true
		}
	}
	return entities.PackageIdentity{}, false
}

// LowestTargetFramework returns the target with the lowest framework version.
func LowestTargetFramework(targets []entities.TargetFramework) (entities.TargetFramework, bool) {
	if len(targets) == 0 {
		return entities.TargetFramework{}, false
	}
	lowest := targets[0]
	for _, t := range targets[1:] {
		if t.Framework.Version.Compare(lowest.Framework.Version) < 0 {
			lowest = t
		}
	}
	return lowest, true
}

package services

import (
	"path"
	"strings"

	"github.com/ochairo/unitynuget/internal/domain/entities"
)

var ridOperatingSystems = map[string]PlatformOS{
	"win": OSWindows,
	"lin": OSLinux,
	"osx": OSX,
	"and": OSAndroid,
	"ios": OSiOS,
}

var ridArchitectures = map[string]PlatformCPU{
	"x86":   CPUX86,
	"x64":   CPUX86_64,
	"arm":   CPUARMv7,
	"arm64": CPUARM64,
}

var analyzerLanguages = map[string]bool{"cs": true, "vb": true}

// ParseRuntimeIdentifier maps a runtime identifier (win-x64, linux-arm64, osx) to a platform.
// A RID without architecture maps to the generic CPU of its OS.
func ParseRuntimeIdentifier(rid string) (PlatformOS, PlatformCPU, bool) {
	rid = strings.ToLower(rid)
	if len(rid) < 3 {
		return "", "", false
	}
	os, ok := ridOperatingSystems[rid[:3]]
	if !ok {
		return "", "", false
	}
	idx := strings.LastIndex(rid, "-")
	if idx < 0 {
		return os, CPUAny, true
	}
	cpu, ok := ridArchitectures[rid[idx+1:]]
	if !ok {
		return "", "", false
	}
	return os, cpu, true
}

// NativeRuntimeFile classifies runtimes/<rid>/native/<file>.
func NativeRuntimeFile(file string) (PlatformOS, PlatformCPU, bool) {
	parts := strings.Split(file, "/")
	if len(parts) != 4 || !strings.EqualFold(parts[0], "runtimes") || !strings.EqualFold(parts[2], "native") || parts[3] == "" {
		return "", "", false
	}
	return ParseRuntimeIdentifier(parts[1])
}

// RuntimeLibraryFile classifies runtimes/<rid>/lib/<tfm>/<file>.dll and returns its platform and framework.
func RuntimeLibraryFile(file string) (PlatformOS, PlatformCPU, entities.Framework, bool) {
	parts := strings.Split(file, "/")
	if len(parts) != 5 || !strings.EqualFold(parts[0], "runtimes") || !strings.EqualFold(parts[2], "lib") {
		return "", "", entities.Framework{}, false
	}
	if !strings.EqualFold(path.Ext(parts[4]), ".dll") {
		return "", "", entities.Framework{}, false
	}
	fw, err := ParseFramework(parts[3])
	if err != nil {
		return "", "", entities.Framework{}, false
	}
	os, cpu, ok := ParseRuntimeIdentifier(parts[1])
	if !ok {
		return "", "", entities.Framework{}, false
	}
	return os, cpu, fw, true
}

// IsApplicableAnalyzer reports whether file is an analyzer assembly of shape
// analyzers/dotnet/[<lang>/]<file>.dll whose language folder is absent or equals language.
func IsApplicableAnalyzer(file, language string) bool {
	parts := strings.Split(file, "/")
	if len(parts) < 3 || !strings.EqualFold(parts[0], "analyzers") || !strings.EqualFold(parts[1], "dotnet") {
		return false
	}
	return isLanguageAssembly(parts[2:], language)
}

// IsApplicableAnalyzerResource additionally accepts analyzers built for a specific compiler host,
// analyzers/dotnet/roslyn<major.minor>/[<lang>/]<file>.dll, when the host version equals roslynVersion.
func IsApplicableAnalyzerResource(file, language, roslynVersion string) bool {
	if IsApplicableAnalyzer(file, language) {
		return true
	}
	parts := strings.Split(file, "/")
	if len(parts) < 4 || !strings.EqualFold(parts[0], "analyzers") || !strings.EqualFold(parts[1], "dotnet") {
		return false
	}
	host, ok := cutPrefixFold(parts[2], "roslyn")
	if !ok || host != roslynVersion {
		return false
	}
	return isLanguageAssembly(parts[3:], language)
}

func isLanguageAssembly(rest []string, language string) bool {
	switch len(rest) {
	case 1:
		return isAssembly(rest[0])
	case 2:
		lang := strings.ToLower(rest[0])
		return analyzerLanguages[lang] && lang == strings.ToLower(language) && isAssembly(rest[1])
	default:
		return false
	}
}

func isAssembly(name string) bool {
	return name != "" && strings.EqualFold(path.Ext(name), ".dll")
}

// LibFrameworkGroups groups lib/<tfm>/<file> entries by framework in order of first appearance.
// Folders that are not a recognizable framework are ignored.
func LibFrameworkGroups(files []string) []entities.FrameworkGroup {
	var groups []entities.FrameworkGroup
	index := make(map[string]int)
	for _, file := range files {
		parts := strings.Split(file, "/")
		if len(parts) != 3 || !strings.EqualFold(parts[0], "lib") || parts[2] == "" {
			continue
		}
		fw, err := ParseFramework(parts[1])
		if err != nil || fw.IsAny() {
			continue
		}
		key := fw.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, entities.FrameworkGroup{TargetFramework: fw})
		}
		groups[i].Items = append(groups[i].Items, file)
	}
	return groups
}

// IsManagedAssembly reports whether a lib group item is copied into the archive.
func IsManagedAssembly(file string) bool {
	return isAssembly(path.Base(file))
}

package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MetaKind selects the importer block of a .meta file.
type MetaKind int

// Importer kinds
const (
	MetaDefault MetaKind = iota
	MetaFolder
	MetaText
	MetaPlugin
	MetaNativePlugin
	MetaAnalyzer
)

// RoslynAnalyzerLabel marks analyzer assemblies for the compiler pipeline.
const RoslynAnalyzerLabel = "RoslynAnalyzer"

// MetaSettings is everything a .meta file depends on.
type MetaSettings struct {
	Kind              MetaKind
	GUID              uuid.UUID
	Platform          *PlatformNode // plugin kinds only, nil means every platform
	Labels            []string
	DefineConstraints []string
}

type platformRow struct {
	key    string // "<Platform>: <Target>"
	os     PlatformOS
	cpu    PlatformCPU
	noCPU  bool
	native bool // kept for native plugins
}

// rows in output order; Any and Editor are emitted separately
var platformRows = []platformRow{
	{key: "Android: Android", os: OSAndroid, cpu: CPUAny, native: true},
	{key: "Standalone: Linux64", os: OSLinux, cpu: CPUX86_64, native: true},
	{key: "Standalone: OSXUniversal", os: OSX, cpu: CPUAny, native: true},
	{key: "Standalone: Win", os: OSWindows, cpu: CPUX86, native: true},
	{key: "Standalone: Win64", os: OSWindows, cpu: CPUX86_64, native: true},
	{key: "WebGL: WebGL", os: OSWebGL, cpu: CPUAny, noCPU: true},
	{key: "iPhone: iOS", os: OSiOS, cpu: CPUAny, native: true},
}

// RenderMeta renders the text of a .meta file. The layout is positional and must stay byte stable.
func RenderMeta(s MetaSettings) string {
	var b strings.Builder
	b.WriteString("fileFormatVersion: 2\n")
	fmt.Fprintf(&b, "guid: %s\n", AssetGUID(s.GUID))
	if len(s.Labels) > 0 {
		b.WriteString("labels:\n")
		for _, l := range s.Labels {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}

	switch s.Kind {
	case MetaPlugin, MetaNativePlugin, MetaAnalyzer:
		writePluginImporter(&b, s)
	case MetaText:
		b.WriteString("TextScriptImporter:\n")
		writeImporterTail(&b)
	case MetaFolder:
		b.WriteString("folderAsset: yes\n")
		b.WriteString("DefaultImporter:\n")
		writeImporterTail(&b)
	default:
		b.WriteString("DefaultImporter:\n")
		writeImporterTail(&b)
	}
	return b.String()
}

func writeImporterTail(b *strings.Builder) {
	b.WriteString("  externalObjects: {}\n")
	b.WriteString("  userData: \n")
	b.WriteString("  assetBundleName: \n")
	b.WriteString("  assetBundleVariant: \n")
}

func writePluginImporter(b *strings.Builder, s MetaSettings) {
	node := s.Platform
	if node == nil {
		node = NewPlatformTree().Root()
	}
	root := node
	for root.Parent() != nil {
		root = root.Parent()
	}
	tree := &PlatformTree{root: root}
	enabledAll := s.Kind != MetaAnalyzer

	b.WriteString("PluginImporter:\n")
	b.WriteString("  externalObjects: {}\n")
	b.WriteString("  serializedVersion: 2\n")
	b.WriteString("  iconMap: {}\n")
	b.WriteString("  executionOrder: {}\n")
	if len(s.DefineConstraints) == 0 {
		b.WriteString("  defineConstraints: []\n")
	} else {
		b.WriteString("  defineConstraints:\n")
		for _, c := range s.DefineConstraints {
			fmt.Fprintf(b, "  - %s\n", c)
		}
	}
	b.WriteString("  isPreloaded: 0\n")
	b.WriteString("  isOverridable: 0\n")
	b.WriteString("  isExplicitlyReferenced: 0\n")
	if s.Kind == MetaNativePlugin {
		b.WriteString("  validateReferences: 0\n")
	} else {
		b.WriteString("  validateReferences: 1\n")
	}
	b.WriteString("  platformData:\n")

	writeRowHeader(b, "Any: ", enabledAll && node == root)
	b.WriteString("      settings: {}\n")

	editor := enabledAll && node.EditorCapable
	writeRowHeader(b, "Editor: Editor", editor)
	b.WriteString("      settings:\n")
	if editor {
		fmt.Fprintf(b, "        CPU: %s\n", node.CPU)
		b.WriteString("        DefaultValueInitialized: true\n")
		fmt.Fprintf(b, "        OS: %s\n", node.OS)
	} else {
		b.WriteString("        CPU: None\n")
		b.WriteString("        DefaultValueInitialized: true\n")
		fmt.Fprintf(b, "        OS: %s\n", OSAny)
	}

	for _, row := range platformRows {
		if s.Kind == MetaNativePlugin && !row.native {
			continue
		}
		rowNode, ok := tree.Find(row.os, row.cpu)
		if !ok {
			continue
		}
		enabled := enabledAll && node.SharesPath(rowNode)
		writeRowHeader(b, row.key, enabled)
		if row.noCPU {
			b.WriteString("      settings: {}\n")
			continue
		}
		cpu := PlatformCPU("None")
		if enabled {
			cpu = rowNode.CPU
			if node.Depth() > rowNode.Depth() {
				cpu = node.CPU
			}
		}
		b.WriteString("      settings:\n")
		fmt.Fprintf(b, "        CPU: %s\n", cpu)
	}

	b.WriteString("  userData: \n")
	b.WriteString("  assetBundleName: \n")
	b.WriteString("  assetBundleVariant: \n")
}

func writeRowHeader(b *strings.Builder, key string, enabled bool) {
	b.WriteString("  - first:\n")
	fmt.Fprintf(b, "      %s\n", key)
	b.WriteString("    second:\n")
	if enabled {
		b.WriteString("      enabled: 1\n")
	} else {
		b.WriteString("      enabled: 0\n")
	}
}

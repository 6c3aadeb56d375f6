// Package yaml provides the allow-list parser and repository. JSON allow-lists are accepted
// since JSON is a subset of YAML.
package yaml

import (
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/services"
	"gopkg.in/yaml.v3"
)

// yamlEntry represents the raw structure of one allow-list row
type yamlEntry struct {
	Ignore            bool     `yaml:"ignore"`
	Listed            bool     `yaml:"listed"`
	Version           string   `yaml:"version"`
	DefineConstraints []string `yaml:"defineConstraints"`
	Analyzer          bool     `yaml:"analyzer"`
	IncludePrerelease bool     `yaml:"includePrerelease"`
	IncludeUnlisted   bool     `yaml:"includeUnlisted"`
}

// RegistryParser parses allow-list files
type RegistryParser struct{}

// NewRegistryParser creates a new allow-list parser
func NewRegistryParser() *RegistryParser {
	return &RegistryParser{}
}

// ParseFile parses an allow-list file
func (p *RegistryParser) ParseFile(filePath string) ([]entities.RegistryEntry, error) {
	//nolint:gosec // G304: filePath is the configured allow-list
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses allow-list bytes. Entries keep their document order.
func (p *RegistryParser) Parse(data []byte) ([]entities.RegistryEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return []entities.RegistryEntry{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("registry must be a mapping of package id to entry (line %d)", root.Line)
	}

	entries := make([]entities.RegistryEntry, 0, len(root.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		id := strings.TrimSpace(keyNode.Value)
		if id == "" {
			return nil, fmt.Errorf("empty package id at line %d", keyNode.Line)
		}
		if seen[strings.ToLower(id)] {
			return nil, fmt.Errorf("duplicate package id %s at line %d", id, keyNode.Line)
		}
		seen[strings.ToLower(id)] = true

		var raw yamlEntry
		if err := valueNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid entry %s at line %d: %w", id, valueNode.Line, err)
		}

		entry, err := convertEntry(id, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid entry %s at line %d: %w", id, valueNode.Line, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func convertEntry(id string, raw yamlEntry) (entities.RegistryEntry, error) {
	entry := entities.RegistryEntry{
		ID:                id,
		Ignored:           raw.Ignore,
		Listed:            raw.Listed,
		Version:           strings.TrimSpace(raw.Version),
		DefineConstraints: raw.DefineConstraints,
		Analyzer:          raw.Analyzer,
		IncludePrerelease: raw.IncludePrerelease,
		IncludeUnlisted:   raw.IncludeUnlisted,
	}
	if entry.Ignored {
		return entry, nil
	}

	// Validate required fields
	if entry.Version == "" {
		return entry, fmt.Errorf("version range is required")
	}
	if _, err := services.ParseVersionRange(entry.Version); err != nil {
		return entry, err
	}
	return entry, nil
}

package yaml

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ochairo/unitynuget/internal/domain/entities"
)

// RegistryRepository implements repositories.RegistryRepository on top of one allow-list file.
// The file is read again on every ListEntries call so edits apply on the next build run.
type RegistryRepository struct {
	filePath string
	parser   *RegistryParser

	mu   sync.Mutex
	last []entities.RegistryEntry
}

// NewRegistryRepository creates a new file-backed allow-list repository
func NewRegistryRepository(filePath string) *RegistryRepository {
	return &RegistryRepository{
		filePath: filePath,
		parser:   NewRegistryParser(),
	}
}

// ListEntries returns every allow-list entry in file order
func (r *RegistryRepository) ListEntries(_ context.Context) ([]entities.RegistryEntry, error) {
	entries, err := r.parser.ParseFile(r.filePath)
	if err != nil {
		return nil, &entities.ConfigurationError{Key: "registry_file", Err: err}
	}

	r.mu.Lock()
	r.last = entries
	r.mu.Unlock()
	return entries, nil
}

// GetEntry retrieves an entry by package id (case-insensitive)
func (r *RegistryRepository) GetEntry(ctx context.Context, id string) (*entities.RegistryEntry, error) {
	r.mu.Lock()
	entries := r.last
	r.mu.Unlock()

	if entries == nil {
		var err error
		if entries, err = r.ListEntries(ctx); err != nil {
			return nil, err
		}
	}

	for i := range entries {
		if strings.EqualFold(entries[i].ID, id) {
			entry := entries[i]
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("registry entry %s: %w", id, entities.ErrNotFound)
}

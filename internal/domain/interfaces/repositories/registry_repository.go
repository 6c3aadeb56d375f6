// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/unitynuget/internal/domain/entities"
)

// RegistryRepository defines the interface for accessing the allow-list
type RegistryRepository interface {
	// ListEntries returns every allow-list entry in file order
	ListEntries(ctx context.Context) ([]entities.RegistryEntry, error)

	// GetEntry retrieves an entry by package id (case-insensitive)
	GetEntry(ctx context.Context, id string) (*entities.RegistryEntry, error)
}

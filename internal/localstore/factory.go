package localstore

import (
	"fmt"

	"pinpoint-go/internal/world"
)

// NewStoreFromConfig creates a LocalStore rooted at the given data directory.
// An empty dataDir yields an in-memory store (tests, throwaway sessions).
func NewStoreFromConfig(dataDir string) (world.LocalStore, error) {
	if dataDir == "" {
		return NewMemoryStore(), nil
	}
	store, err := NewFileSystemStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("creating local store: %w", err)
	}
	return store, nil
}

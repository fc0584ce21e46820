package localstore

import (
	"fmt"
	"sync"

	"pinpoint-go/internal/model"
	"pinpoint-go/internal/world"
)

// MemoryStore is an in-memory implementation of world.LocalStore, useful
// for tests. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
	snapshots map[string][]byte
	registry  []model.World
	links     []model.SharedLink
	marker    *model.RenameMarker
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		artifacts: make(map[string][]byte),
		snapshots: make(map[string][]byte),
	}
}

func (m *MemoryStore) WriteArtifact(worldName string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[worldName] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) ReadArtifact(worldName string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.artifacts[worldName]
	if !ok {
		return nil, fmt.Errorf("artifact %q: %w", worldName, world.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) DeleteArtifact(worldName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.artifacts, worldName)
	return nil
}

func (m *MemoryStore) WriteSnapshot(worldName string, png []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[worldName] = append([]byte(nil), png...)
	return nil
}

func (m *MemoryStore) ReadSnapshot(worldName string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.snapshots[worldName]
	if !ok {
		return nil, fmt.Errorf("snapshot %q: %w", worldName, world.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) DeleteSnapshot(worldName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, worldName)
	return nil
}

func (m *MemoryStore) WriteRegistry(worlds []model.World) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Same guard as the filesystem store: an empty list never clobbers a
	// populated registry.
	if len(worlds) == 0 && len(m.registry) > 0 {
		return nil
	}
	m.registry = append([]model.World(nil), worlds...)
	return nil
}

func (m *MemoryStore) ClearRegistry() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = nil
	return nil
}

func (m *MemoryStore) ReadRegistry() ([]model.World, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return dedupeByName(append([]model.World(nil), m.registry...)), nil
}

func (m *MemoryStore) WriteSharedLinks(links []model.SharedLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append([]model.SharedLink(nil), links...)
	return nil
}

func (m *MemoryStore) ReadSharedLinks() ([]model.SharedLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.SharedLink(nil), m.links...), nil
}

func (m *MemoryStore) WriteRenameMarker(marker model.RenameMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker = &marker
	return nil
}

func (m *MemoryStore) ReadRenameMarker() (*model.RenameMarker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.marker == nil {
		return nil, nil
	}
	marker := *m.marker
	return &marker, nil
}

func (m *MemoryStore) ClearRenameMarker() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker = nil
	return nil
}

// Compile-time check that MemoryStore implements world.LocalStore
var _ world.LocalStore = (*MemoryStore)(nil)

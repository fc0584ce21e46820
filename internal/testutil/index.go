package testutil

import (
	"sync"

	"pinpoint-go/internal/world"
)

// MemoryIndex is a map-backed world.SearchIndex for tests. Err, when set,
// is returned by every method, for exercising partial-failure paths.
type MemoryIndex struct {
	mu      sync.Mutex
	entries map[string][]string
	Err     error
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string][]string)}
}

func (m *MemoryIndex) IndexWorld(worldName string, anchorNames []string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[worldName] = append([]string(nil), anchorNames...)
	return nil
}

func (m *MemoryIndex) RemoveWorld(worldName string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, worldName)
	return nil
}

func (m *MemoryIndex) Search(term string) ([]world.SearchHit, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []world.SearchHit
	for w, anchors := range m.entries {
		hits = append(hits, world.SearchHit{WorldName: w})
		for _, a := range anchors {
			hits = append(hits, world.SearchHit{WorldName: w, AnchorName: a})
		}
	}
	return hits, nil
}

func (m *MemoryIndex) Close() error { return nil }

// Indexed returns the indexed anchor names for a world, or nil.
func (m *MemoryIndex) Indexed(worldName string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names, ok := m.entries[worldName]
	if !ok {
		return nil
	}
	return append([]string(nil), names...)
}

// Has reports whether a world has any index entry.
func (m *MemoryIndex) Has(worldName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[worldName]
	return ok
}

// Compile-time check that MemoryIndex implements world.SearchIndex
var _ world.SearchIndex = (*MemoryIndex)(nil)

package testutil

import (
	"pinpoint-go/internal/localstore"
	"pinpoint-go/internal/remote"
	"pinpoint-go/internal/world"
)

// TestEnv bundles a registry with the fakes behind it so tests can inspect
// and fault-inject every tier.
type TestEnv struct {
	Registry *world.Registry
	Local    *localstore.MemoryStore
	Remote   *remote.MemoryStore
	Index    *MemoryIndex
	Clock    *StubClock
	IDs      *StubIDGenerator
}

// NewTestEnv creates a registry wired to in-memory stores, a fixed clock,
// and sequential IDs.
func NewTestEnv() *TestEnv {
	local := localstore.NewMemoryStore()
	rem := remote.NewMemoryStore()
	index := NewMemoryIndex()
	clock := FixedClock()
	ids := NewStubIDGenerator()

	reg := world.NewRegistry(local, rem, index, world.NewNopLogger(), clock, ids)
	reg.SetOwnerName("tester")

	return &TestEnv{
		Registry: reg,
		Local:    local,
		Remote:   rem,
		Index:    index,
		Clock:    clock,
		IDs:      ids,
	}
}

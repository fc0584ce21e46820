// Package world implements the world registry: the single merge authority
// over the list of known spatial maps and their sync state across the local
// store and the two-zone remote record store.
package world

import (
	"sync"

	"pinpoint-go/internal/model"
)

// maxInFlightFetches caps the per-world fetch fan-out during LoadAll.
const maxInFlightFetches = 4

// Registry owns the in-memory world list and orchestrates load, save,
// rename, delete, import, anchor sync, and sharing across the local store
// and the remote record store.
//
// All mutation of the list goes through one mutex: load phases, save
// completions, and delete steps may otherwise interleave from concurrent
// callers and lose updates. The registry is the only writer; collaborating
// stores are stateless services it invokes.
type Registry struct {
	local  LocalStore
	remote RemoteStore
	index  SearchIndex
	logger Logger
	clock  Clock
	idgen  IDGenerator
	merge  MergePolicy

	// ownerName identifies this device's user on published records; shared
	// links dedupe on (roomName, ownerName).
	ownerName string

	mu      sync.Mutex
	worlds  []model.World
	pending model.PendingAction
}

// NewRegistry creates a registry with the cloud-wins merge policy.
func NewRegistry(local LocalStore, remote RemoteStore, index SearchIndex, logger Logger, clock Clock, idgen IDGenerator) *Registry {
	return &Registry{
		local:  local,
		remote: remote,
		index:  index,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
		merge:  CloudWinsPolicy,
	}
}

// SetOwnerName sets the identity stamped onto published records.
func (r *Registry) SetOwnerName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ownerName = name
}

// SetMergePolicy replaces the metadata merge policy. Call before LoadAll.
func (r *Registry) SetMergePolicy(p MergePolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merge = p
}

// Worlds returns a snapshot of the registry.
func (r *Registry) Worlds() []model.World {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.World, len(r.worlds))
	copy(out, r.worlds)
	return out
}

// World returns the entry with the given name, or nil.
func (r *Registry) World(name string) *model.World {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.worlds {
		if r.worlds[i].Name == name {
			w := r.worlds[i]
			return &w
		}
	}
	return nil
}

// TakePending consumes the pending action slot. After the call the slot
// holds PendingNone. The presentation layer calls this exactly once per
// delivered event.
func (r *Registry) TakePending() model.PendingAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.pending
	r.pending = model.PendingAction{Kind: model.PendingNone}
	return a
}

// postPending fills the single-slot inbox, replacing any unconsumed action.
func (r *Registry) postPending(a model.PendingAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending.Kind != model.PendingNone {
		r.logger.Warn("replacing unconsumed pending action", "kind", r.pending.Kind)
	}
	r.pending = a
}

// setWorld inserts or replaces the entry with the given name under the lock.
func (r *Registry) setWorld(w model.World) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.worlds {
		if r.worlds[i].Name == w.Name {
			r.worlds[i] = w
			return
		}
	}
	r.worlds = append(r.worlds, w)
}

// removeWorld deletes the entry with the given name under the lock.
func (r *Registry) removeWorld(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.worlds {
		if r.worlds[i].Name == name {
			r.worlds = append(r.worlds[:i], r.worlds[i+1:]...)
			return
		}
	}
}

// replaceWorlds swaps the whole list under the lock, deduplicating by name
// (first wins).
func (r *Registry) replaceWorlds(worlds []model.World) {
	deduped := make([]model.World, 0, len(worlds))
	seen := make(map[string]bool, len(worlds))
	for _, w := range worlds {
		if seen[w.Name] {
			continue
		}
		seen[w.Name] = true
		deduped = append(deduped, w)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.worlds = deduped
}

// persistRegistry writes the current list to the local store. Failures are
// logged, not propagated: the in-memory list stays authoritative and the
// next successful persist catches up.
func (r *Registry) persistRegistry() {
	if err := r.local.WriteRegistry(r.Worlds()); err != nil {
		r.logger.Error("persisting registry", "error", err)
	}
}

package world

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pinpoint-go/internal/model"
)

// LoadAll reconciles the registry across the local store and the remote
// private zone in three strictly ordered phases:
//
//  1. read the local registry (what exists on this device),
//  2. per known name, merge the remote metadata record via the merge policy,
//  3. append any remote world not yet known locally (additive discovery).
//
// The merged registry is persisted after every phase. A bounded fan-out then
// warms each world: worlds saved while the remote was unreachable are
// uploaded, missing local artifacts are fetched from the remote, and anchor
// names are pushed into the search index.
//
// Additive discovery can resurrect a world deleted on another device when
// that device's deletion did not fully propagate; the fix is to delete it
// again. LoadAll is idempotent given an unchanged remote.
func (r *Registry) LoadAll(ctx context.Context) ([]model.World, error) {
	r.resumePendingRename(ctx)

	// Phase 1: local registry is the source of truth for what exists here.
	local, err := r.local.ReadRegistry()
	if err != nil {
		return nil, fmt.Errorf("reading local registry: %w", err)
	}
	r.replaceWorlds(local)
	r.persistRegistry()

	// Phase 2: merge remote metadata per known name. A metadata fetch
	// failure keeps the local copy as-is.
	r.mu.Lock()
	merge := r.merge
	r.mu.Unlock()
	for _, w := range r.Worlds() {
		recs, err := r.remote.Query(ctx, RecordTypeWorldMetadata, ZonePrivate, Filter{Field: FieldRoomName, Value: w.Name})
		if err != nil {
			r.logger.Warn("metadata fetch failed; keeping local copy", "world", w.Name, "error", err)
			continue
		}
		if len(recs) == 0 {
			continue
		}
		r.setWorld(merge(w, recs[0]))
	}
	r.persistRegistry()

	// Phase 3: additive discovery of worlds known only to the remote.
	recs, err := r.remote.Query(ctx, RecordTypeWorldMap, ZonePrivate, Filter{})
	if err != nil {
		r.logger.Warn("private-zone discovery failed", "error", err)
	} else {
		for _, rec := range recs {
			name := rec.String(FieldRoomName)
			if name == "" || r.World(name) != nil {
				continue
			}
			r.setWorld(model.World{
				ID:               r.idgen.New(),
				Name:             name,
				LastModified:     rec.Time(FieldLastModified),
				CloudRecordID:    rec.RecordName,
				PublicRecordName: rec.String(FieldPublicRecordName),
				Synced:           true,
			})
			r.logger.Info("discovered remote world", "world", name)
		}
	}
	r.persistRegistry()

	// Warm every world: one task each, capped in-flight, joined before return.
	worlds := r.Worlds()
	sem := make(chan struct{}, maxInFlightFetches)
	var wg sync.WaitGroup
	for _, w := range worlds {
		wg.Add(1)
		go func(w model.World) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			r.warmWorld(ctx, w)
		}(w)
	}
	wg.Wait()

	return r.Worlds(), nil
}

// warmWorld converges one world with the remote: a world that never finished
// its private-zone upload is pushed now, a missing local artifact is fetched,
// and the search index is refreshed. Failures are logged; warming is
// best-effort and the next load retries.
func (r *Registry) warmWorld(ctx context.Context, w model.World) {
	if !w.Synced {
		if blob, err := r.local.ReadArtifact(w.Name); err == nil {
			uploaded, uerr := r.upload(ctx, w, blob)
			if uerr != nil {
				r.logger.Warn("deferred upload failed; world stays local-only", "world", w.Name, "error", uerr)
			} else {
				r.setWorld(uploaded)
				r.persistRegistry()
				r.logger.Info("uploaded world saved while offline", "world", w.Name, "record", uploaded.CloudRecordID)
				w = uploaded
			}
		}
	}

	if _, err := r.local.ReadArtifact(w.Name); errors.Is(err, ErrNotFound) {
		blob, ferr := r.fetchRemoteArtifact(ctx, w.Name)
		if ferr != nil {
			r.logger.Warn("remote artifact fetch failed", "world", w.Name, "error", ferr)
		} else if werr := r.local.WriteArtifact(w.Name, blob); werr != nil {
			r.logger.Error("caching remote artifact", "world", w.Name, "error", werr)
		}
	}

	names, err := r.AnchorNames(ctx, w.Name)
	if err != nil {
		r.logger.Debug("no anchor names for index", "world", w.Name, "error", err)
		return
	}
	if err := r.index.IndexWorld(w.Name, names); err != nil {
		r.logger.Warn("indexing world", "world", w.Name, "error", err)
	}
}

// fetchRemoteArtifact returns the artifact blob from the private-zone map
// record for the given room name.
func (r *Registry) fetchRemoteArtifact(ctx context.Context, worldName string) ([]byte, error) {
	recs, err := r.remote.Query(ctx, RecordTypeWorldMap, ZonePrivate, Filter{Field: FieldRoomName, Value: worldName})
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if len(rec.Asset) > 0 {
			return rec.Asset, nil
		}
	}
	return nil, fmt.Errorf("no private map record with asset for %q: %w", worldName, ErrNotFound)
}

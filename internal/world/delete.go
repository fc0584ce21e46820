package world

import "context"

// Delete removes every trace of a world: local artifact and snapshot files,
// search-index entries, the registry entry, private-zone map and metadata
// records, public-zone records (by name predicate as well as by the stored
// public record name), and staged public anchor records.
//
// Each removal is independent and best-effort; a failed later step never
// undoes an earlier one. There is no compensating transaction — residual
// remote records are re-discovered and re-deleted by a later pass. The
// returned *PartialError lists every failed step so callers can report
// exactly what remains.
func (r *Registry) Delete(ctx context.Context, worldName string) error {
	w := r.World(worldName)
	var publicRecordName string
	if w != nil {
		publicRecordName = w.PublicRecordName
	}

	var steps []StepError
	fail := func(step string, err error) {
		steps = append(steps, StepError{Step: step, Err: err})
		r.logger.Warn("delete step failed", "world", worldName, "step", step, "error", err)
	}

	if err := r.local.DeleteArtifact(worldName); err != nil {
		fail("local-artifact", err)
	}
	if err := r.local.DeleteSnapshot(worldName); err != nil {
		fail("local-snapshot", err)
	}
	if err := r.index.RemoveWorld(worldName); err != nil {
		fail("search-index", err)
	}

	r.removeWorld(worldName)
	if len(r.Worlds()) == 0 {
		// The empty-write guard blocks persisting an empty list; deleting
		// the last world is the one place emptiness is intended.
		if err := r.local.ClearRegistry(); err != nil {
			fail("local-registry", err)
		}
	} else {
		r.persistRegistry()
	}

	// Private zone: both the map record and the metadata mirror, located by
	// room name so duplicates from other devices are caught too.
	for _, recordType := range []string{RecordTypeWorldMap, RecordTypeWorldMetadata} {
		recs, err := r.remote.Query(ctx, recordType, ZonePrivate, Filter{Field: FieldRoomName, Value: worldName})
		if err != nil {
			fail("private-"+recordType, err)
			continue
		}
		if len(recs) == 0 {
			continue
		}
		if err := r.remote.Delete(ctx, ZonePrivate, recordNames(recs)); err != nil {
			fail("private-"+recordType, err)
		}
	}

	// Public zone: delete by the stored record name AND by room-name
	// predicate, in case the stored identifier is stale.
	pubNames := make(map[string]bool)
	if publicRecordName != "" {
		pubNames[publicRecordName] = true
	}
	recs, err := r.remote.Query(ctx, RecordTypeWorldMap, ZonePublic, Filter{Field: FieldRoomName, Value: worldName})
	if err != nil {
		fail("public-"+RecordTypeWorldMap, err)
	} else {
		for _, rec := range recs {
			pubNames[rec.RecordName] = true
		}
	}
	if len(pubNames) > 0 {
		names := make([]string, 0, len(pubNames))
		for n := range pubNames {
			names = append(names, n)
		}
		if err := r.remote.Delete(ctx, ZonePublic, names); err != nil {
			fail("public-"+RecordTypeWorldMap, err)
		}
	}

	// Staged collaborative anchors for this room.
	recs, err = r.remote.Query(ctx, RecordTypeAnchor, ZonePublic, Filter{Field: FieldRoomName, Value: worldName})
	if err != nil {
		fail("public-"+RecordTypeAnchor, err)
	} else if len(recs) > 0 {
		if err := r.remote.Delete(ctx, ZonePublic, recordNames(recs)); err != nil {
			fail("public-"+RecordTypeAnchor, err)
		}
	}

	if len(steps) > 0 {
		return &PartialError{Op: "delete " + worldName, Steps: steps}
	}
	r.logger.Info("world deleted", "world", worldName)
	return nil
}

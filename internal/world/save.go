package world

import (
	"context"
	"fmt"

	"pinpoint-go/internal/artifact"
	"pinpoint-go/internal/model"
)

// Save persists a freshly captured map under the given name and uploads it
// to the private zone.
//
// When the world already exists and no new thumbnail is supplied, the prior
// snapshot is carried forward into the new artifact. The local write is
// atomic and authoritative: an upload failure is logged and tolerated, so
// local state is allowed to run ahead of remote until a later Save or
// LoadAll catches up.
func (r *Registry) Save(ctx context.Context, worldName string, mapData, thumbnail []byte) error {
	existing := r.World(worldName)

	if thumbnail == nil && existing != nil {
		if png, err := r.local.ReadSnapshot(worldName); err == nil {
			thumbnail = png
		}
	}

	blob, err := artifact.Encode(mapData, thumbnail)
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	if err := r.local.WriteArtifact(worldName, blob); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if thumbnail != nil {
		if err := r.local.WriteSnapshot(worldName, thumbnail); err != nil {
			r.logger.Warn("writing snapshot", "world", worldName, "error", err)
		}
	}

	var w model.World
	if existing != nil {
		w = *existing
	} else {
		w = model.World{ID: r.idgen.New(), Name: worldName}
	}
	w.LastModified = r.clock.Now()
	w.Synced = false
	r.setWorld(w)
	r.persistRegistry()

	if names, err := artifact.AnchorNames(mapData); err == nil {
		if err := r.index.IndexWorld(worldName, filterReserved(names)); err != nil {
			r.logger.Warn("indexing world", "world", worldName, "error", err)
		}
	}

	uploaded, err := r.upload(ctx, w, blob)
	if err != nil {
		r.logger.Warn("private-zone upload failed; world will sync on a later save or load",
			"world", worldName, "error", err)
		return nil
	}
	r.setWorld(uploaded)
	r.persistRegistry()
	r.logger.Info("world saved", "world", worldName, "record", uploaded.CloudRecordID)

	if uploaded.PendingAnchorCleanup {
		r.cleanupIntegratedAnchors(ctx, uploaded)
	}
	return nil
}

// upload pushes the artifact and the lightweight metadata mirror to the
// private zone. Returns the world updated with record identifiers and
// Synced set.
func (r *Registry) upload(ctx context.Context, w model.World, blob []byte) (model.World, error) {
	mapName := w.CloudRecordID
	if mapName == "" {
		mapName = r.idgen.New()
	}
	pinHash := ""
	if w.PIN != "" {
		pinHash = HashPIN(w.PIN)
	}
	mapRec := Record{
		RecordName: mapName,
		Type:       RecordTypeWorldMap,
		Zone:       ZonePrivate,
		Fields: map[string]any{
			FieldRoomName:         w.Name,
			FieldLastModified:     w.LastModified,
			FieldPublicRecordName: w.PublicRecordName,
			FieldPINRequired:      w.PIN != "",
			FieldPINHash:          pinHash,
			FieldOwnerName:        r.ownerName,
		},
		Asset: blob,
	}
	saved, err := r.remote.Save(ctx, mapRec)
	if err != nil {
		return w, fmt.Errorf("saving map record: %w", err)
	}
	w.CloudRecordID = saved.RecordName

	w, err = r.uploadMetadata(ctx, w)
	if err != nil {
		return w, err
	}
	w.Synced = true
	return w, nil
}

// uploadMetadata writes the private-zone metadata mirror from the world's
// current state. The mirror must track every field the load merge folds
// back in, or the next load resurrects stale values.
func (r *Registry) uploadMetadata(ctx context.Context, w model.World) (model.World, error) {
	metaName := w.MetadataRecordID
	if metaName == "" {
		metaName = r.idgen.New()
	}
	metaRec := Record{
		RecordName: metaName,
		Type:       RecordTypeWorldMetadata,
		Zone:       ZonePrivate,
		Fields: map[string]any{
			FieldRoomName:         w.Name,
			FieldPIN:              w.PIN,
			FieldCloudRecordID:    w.CloudRecordID,
			FieldIsCollaborative:  w.IsCollaborative,
			FieldLastModified:     w.LastModified,
			FieldPublicRecordName: w.PublicRecordName,
		},
	}
	savedMeta, err := r.remote.Save(ctx, metaRec)
	if err != nil {
		return w, fmt.Errorf("saving metadata record: %w", err)
	}
	w.MetadataRecordID = savedMeta.RecordName
	return w, nil
}

// cleanupIntegratedAnchors deletes the public-zone anchor records that the
// just-uploaded artifact already integrates. Best-effort: on failure the
// flag stays set and the next successful upload retries.
func (r *Registry) cleanupIntegratedAnchors(ctx context.Context, w model.World) {
	recs, err := r.remote.Query(ctx, RecordTypeAnchor, ZonePublic, Filter{Field: FieldRoomName, Value: w.Name})
	if err != nil {
		r.logger.Warn("listing integrated anchors for cleanup", "world", w.Name, "error", err)
		return
	}
	if len(recs) > 0 {
		if err := r.remote.Delete(ctx, ZonePublic, recordNames(recs)); err != nil {
			r.logger.Warn("deleting integrated anchors", "world", w.Name, "error", err)
			return
		}
		r.logger.Info("cleaned up integrated anchors", "world", w.Name, "count", len(recs))
	}
	w.PendingAnchorCleanup = false
	r.setWorld(w)
	r.persistRegistry()
}

func recordNames(recs []Record) []string {
	names := make([]string, len(recs))
	for i, rec := range recs {
		names[i] = rec.RecordName
	}
	return names
}

package world

import (
	"context"
	"errors"
	"fmt"

	"pinpoint-go/internal/artifact"
	"pinpoint-go/internal/model"
)

// Rename changes a world's identity: the artifact is re-saved under the new
// name, the snapshot moves, and the old world is fully deleted (local files,
// registry entry, and every remote record).
//
// The operation is compound, so a write-ahead marker makes it crash-safe: a
// process death mid-rename leaves the marker on disk and the next LoadAll
// resumes from it. Renaming a collaborative world invalidates its public
// link; the caller must re-publish.
func (r *Registry) Rename(ctx context.Context, oldName, newName string) error {
	if oldName == newName {
		return fmt.Errorf("rename: old and new name are identical: %q", oldName)
	}
	if r.World(oldName) == nil {
		return fmt.Errorf("rename: world %q: %w", oldName, ErrNotFound)
	}
	if r.World(newName) != nil {
		return fmt.Errorf("rename: world %q already exists", newName)
	}

	marker := model.RenameMarker{OldName: oldName, NewName: newName, Started: r.clock.Now()}
	if err := r.local.WriteRenameMarker(marker); err != nil {
		return fmt.Errorf("writing rename marker: %w", err)
	}

	if err := r.completeRename(ctx, oldName, newName); err != nil {
		// Marker stays on disk; LoadAll will retry.
		return err
	}

	if err := r.local.ClearRenameMarker(); err != nil {
		r.logger.Warn("clearing rename marker", "error", err)
	}
	return nil
}

// completeRename applies (or re-applies, on resume) both sides of a rename.
// Every step checks current state first, so a partially applied rename
// converges instead of duplicating work.
func (r *Registry) completeRename(ctx context.Context, oldName, newName string) error {
	old := r.World(oldName)

	if r.World(newName) == nil {
		blob, err := r.local.ReadArtifact(newName)
		if errors.Is(err, ErrNotFound) {
			blob, err = r.local.ReadArtifact(oldName)
			if errors.Is(err, ErrNotFound) {
				blob, err = r.fetchRemoteArtifact(ctx, oldName)
			}
		}
		if err != nil {
			return fmt.Errorf("reading artifact for rename: %w", err)
		}
		mapData, thumb, err := artifact.Decode(blob)
		if err != nil {
			return fmt.Errorf("decoding artifact for rename: %w", err)
		}
		if old != nil {
			// Seed the new entry before Save so its first metadata upload
			// already carries the PIN and collaboration flag. Patching them
			// in afterwards would leave a mirror the next load merges back
			// without them.
			seed := *old
			seed.ID = r.idgen.New()
			seed.Name = newName
			seed.CloudRecordID = ""
			seed.MetadataRecordID = ""
			seed.PublicRecordName = "" // existing public link is invalidated
			seed.Synced = false
			r.setWorld(seed)
		}
		if err := r.Save(ctx, newName, mapData, thumb); err != nil {
			return fmt.Errorf("saving under new name: %w", err)
		}
	}

	if png, err := r.local.ReadSnapshot(oldName); err == nil {
		if err := r.local.WriteSnapshot(newName, png); err != nil {
			r.logger.Warn("moving snapshot", "world", newName, "error", err)
		}
		if err := r.local.DeleteSnapshot(oldName); err != nil {
			r.logger.Warn("removing old snapshot", "world", oldName, "error", err)
		}
	}

	if err := r.Delete(ctx, oldName); err != nil {
		var pe *PartialError
		if errors.As(err, &pe) {
			// Remote leftovers self-heal on the next delete or LoadAll pass;
			// the rename itself is complete.
			r.logger.Warn("old-name cleanup incomplete", "world", oldName, "error", err)
		} else {
			return fmt.Errorf("deleting old world: %w", err)
		}
	}
	return nil
}

// resumePendingRename finishes a rename whose marker survived a crash.
// Called at the top of LoadAll, before phase 1.
func (r *Registry) resumePendingRename(ctx context.Context) {
	m, err := r.local.ReadRenameMarker()
	if err != nil {
		r.logger.Warn("reading rename marker", "error", err)
		return
	}
	if m == nil {
		return
	}

	r.logger.Warn("resuming interrupted rename", "old", m.OldName, "new", m.NewName)

	// The in-memory list may be empty this early; work from disk.
	if local, err := r.local.ReadRegistry(); err == nil {
		r.replaceWorlds(local)
	}

	if err := r.completeRename(ctx, m.OldName, m.NewName); err != nil {
		// Keep the marker so the next load retries.
		r.logger.Error("rename resume failed", "old", m.OldName, "new", m.NewName, "error", err)
		return
	}
	if err := r.local.ClearRenameMarker(); err != nil {
		r.logger.Warn("clearing rename marker", "error", err)
	}
}

package world

import (
	"context"
	"fmt"

	"pinpoint-go/internal/artifact"
	"pinpoint-go/internal/model"
)

// ImportFromExternalFile registers a world from externally supplied artifact
// bytes (e.g. a file handed over by another app).
//
// The bytes are written verbatim as the new artifact — they are assumed to
// already be in container format and are not decoded up front. The same
// bytes ARE decoded separately, solely to extract the thumbnail into a
// standalone snapshot file; the duplicated decode mirrors the import
// contract, where the artifact write must not depend on decodability.
func (r *Registry) ImportFromExternalFile(ctx context.Context, data []byte, desiredName string) error {
	if desiredName == "" {
		return fmt.Errorf("import: world name is empty")
	}
	if r.World(desiredName) != nil {
		return fmt.Errorf("import: world %q already exists", desiredName)
	}

	if err := r.local.WriteArtifact(desiredName, data); err != nil {
		return fmt.Errorf("writing imported artifact: %w", err)
	}

	mapData, thumb, err := artifact.Decode(data)
	if err != nil {
		r.logger.Warn("imported artifact not decodable; skipping snapshot", "world", desiredName, "error", err)
	} else if thumb != nil {
		if err := r.local.WriteSnapshot(desiredName, thumb); err != nil {
			r.logger.Warn("writing imported snapshot", "world", desiredName, "error", err)
		}
	}

	w := model.World{
		ID:           r.idgen.New(),
		Name:         desiredName,
		LastModified: r.clock.Now(),
	}
	r.setWorld(w)
	r.persistRegistry()

	if mapData != nil {
		if names, err := artifact.AnchorNames(mapData); err == nil {
			if err := r.index.IndexWorld(desiredName, filterReserved(names)); err != nil {
				r.logger.Warn("indexing imported world", "world", desiredName, "error", err)
			}
		}
	}

	uploaded, err := r.upload(ctx, w, data)
	if err != nil {
		r.logger.Warn("upload of imported world failed; will sync later", "world", desiredName, "error", err)
		return nil
	}
	r.setWorld(uploaded)
	r.persistRegistry()
	return nil
}

package world

import (
	"context"
	"errors"
	"fmt"

	"pinpoint-go/internal/artifact"
)

// Reserved anchor names, always hidden from user-facing enumerations.
// "guide" is the internal guidance anchor; "unknown" is a placement
// sentinel from the tracking layer.
const (
	reservedGuideName = "guide"
	unknownAnchorName = "unknown"
)

func filterReserved(names []string) []string {
	out := names[:0]
	for _, n := range names {
		if n == reservedGuideName || n == unknownAnchorName {
			continue
		}
		out = append(out, n)
	}
	return out
}

// AnchorNames returns the user-visible anchor names integrated into a
// world's artifact. When no local artifact exists the full artifact is
// fetched from the private zone and extracted — the remote fallback that
// also lets LoadAll warm a fresh device.
func (r *Registry) AnchorNames(ctx context.Context, worldName string) ([]string, error) {
	blob, err := r.local.ReadArtifact(worldName)
	if errors.Is(err, ErrNotFound) {
		blob, err = r.fetchRemoteArtifact(ctx, worldName)
	}
	if err != nil {
		return nil, err
	}

	mapData, _, err := artifact.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding artifact for %q: %w", worldName, err)
	}
	names, err := artifact.AnchorNames(mapData)
	if err != nil {
		return nil, fmt.Errorf("extracting anchor names for %q: %w", worldName, err)
	}
	return filterReserved(names), nil
}

// PendingPublicAnchors returns the raw public-zone anchor records staged for
// a room: collaborative additions not yet integrated into the artifact.
func (r *Registry) PendingPublicAnchors(ctx context.Context, worldName string) ([]Record, error) {
	return r.remote.Query(ctx, RecordTypeAnchor, ZonePublic, Filter{Field: FieldRoomName, Value: worldName})
}

// PendingAnchorCount returns how many staged anchors the artifact does not
// yet integrate — the "new items" badge number.
//
// The diff is by name string, not anchor identity: fetched names minus
// integrated names. A collaborative anchor renamed before integration
// therefore counts again under its new name.
func (r *Registry) PendingAnchorCount(ctx context.Context, worldName string) (int, error) {
	recs, err := r.PendingPublicAnchors(ctx, worldName)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}

	integrated, err := r.AnchorNames(ctx, worldName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	have := make(map[string]bool, len(integrated))
	for _, n := range integrated {
		have[n] = true
	}

	pending := make(map[string]bool)
	for _, rec := range recs {
		name := rec.String(FieldName)
		if name == "" || name == reservedGuideName || name == unknownAnchorName {
			continue
		}
		if !have[name] {
			pending[name] = true
		}
	}
	return len(pending), nil
}

// AddPublicAnchor stages a collaborative anchor in the public zone. The
// owner integrates it later by re-saving the map; this engine never
// auto-integrates.
func (r *Registry) AddPublicAnchor(ctx context.Context, worldName, anchorName string, transform [artifact.TransformSize]byte, createdBy string) error {
	if anchorName == "" || anchorName == reservedGuideName || anchorName == unknownAnchorName {
		return fmt.Errorf("anchor name %q is reserved", anchorName)
	}

	worldRef := ""
	if w := r.World(worldName); w != nil {
		worldRef = w.PublicRecordName
	}

	rec := Record{
		RecordName: r.idgen.New(),
		Type:       RecordTypeAnchor,
		Zone:       ZonePublic,
		Fields: map[string]any{
			FieldRoomName:  worldName,
			FieldName:      anchorName,
			FieldTransform: transform[:],
			FieldCreatedBy: createdBy,
			FieldWorldRef:  worldRef,
		},
	}
	if _, err := r.remote.Save(ctx, rec); err != nil {
		return fmt.Errorf("staging public anchor: %w", err)
	}
	r.logger.Info("public anchor staged", "world", worldName, "anchor", anchorName)
	return nil
}

// MarkAnchorsIntegrated flags that the world's next successful upload should
// clean up the now-integrated public anchor records. Called by the AR layer
// after it folds pending anchors into the map it is about to save.
func (r *Registry) MarkAnchorsIntegrated(worldName string) error {
	w := r.World(worldName)
	if w == nil {
		return fmt.Errorf("world %q: %w", worldName, ErrNotFound)
	}
	w.PendingAnchorCleanup = true
	r.setWorld(*w)
	r.persistRegistry()
	return nil
}

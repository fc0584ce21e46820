package world

import (
	"context"

	"pinpoint-go/internal/model"
)

// LocalStore manages on-device files: map artifacts, snapshot images, and
// the JSON registry/shared-link lists. Implementations must make every
// individual write atomic (replace-on-success); a partial write must never
// leave a truncated file visible.
type LocalStore interface {
	// WriteArtifact stores a world's artifact blob. Atomic.
	WriteArtifact(worldName string, data []byte) error

	// ReadArtifact returns a world's artifact blob, or ErrNotFound.
	ReadArtifact(worldName string) ([]byte, error)

	// DeleteArtifact removes a world's artifact file. Missing is not an error.
	DeleteArtifact(worldName string) error

	// Snapshot files hold the thumbnail PNG. Their lifecycle is independent
	// of the artifact: a snapshot can exist without a current artifact,
	// e.g. right after a rename.
	WriteSnapshot(worldName string, png []byte) error
	ReadSnapshot(worldName string) ([]byte, error)
	DeleteSnapshot(worldName string) error

	// WriteRegistry persists the world list. Writing an empty list while a
	// non-empty registry exists on disk is a no-op: a guard against
	// clobbering a populated registry with erroneously empty in-memory
	// state.
	WriteRegistry(worlds []model.World) error

	// ReadRegistry returns the persisted world list, deduplicated by name
	// (first entry wins — the remote tier can introduce duplicate-by-id
	// rows for the same room). Returns an empty list when no registry
	// exists yet.
	ReadRegistry() ([]model.World, error)

	// ClearRegistry persists the empty list, bypassing the empty-write
	// guard. Only the delete path uses it: WriteRegistry alone can never
	// take a populated on-disk registry to empty, so without this the
	// last-deleted world would resurface on the next start.
	ClearRegistry() error

	WriteSharedLinks(links []model.SharedLink) error
	ReadSharedLinks() ([]model.SharedLink, error)

	// Rename marker: the write-ahead record that makes rename crash-resumable.
	WriteRenameMarker(m model.RenameMarker) error
	ReadRenameMarker() (*model.RenameMarker, error)
	ClearRenameMarker() error
}

// RemoteStore is a thin query/save/delete facade over the remote record
// database. It has no retry or backoff logic of its own: callers decide
// whether a failure is terminal for the current operation. Failures are
// reported as *RemoteError; missing records as ErrNotFound.
type RemoteStore interface {
	// Query returns all records of the given type in the zone matching the
	// filter. Result ordering is not guaranteed.
	Query(ctx context.Context, recordType string, zone Zone, filter Filter) ([]Record, error)

	// Fetch returns one record by name, or ErrNotFound.
	Fetch(ctx context.Context, zone Zone, recordName string) (Record, error)

	// Save creates or replaces a record and returns the stored form.
	Save(ctx context.Context, rec Record) (Record, error)

	// Delete removes records by name. Missing names are not an error.
	Delete(ctx context.Context, zone Zone, recordNames []string) error

	// CreateShare creates (or returns the existing) share URL for a
	// private-zone record. Must tolerate racing with another client's
	// create: on conflict, re-fetch and return whichever share won.
	CreateShare(ctx context.Context, recordName string) (string, error)

	// AcceptShare resolves a share URL to its root record.
	AcceptShare(ctx context.Context, shareURL string) (Record, error)

	// Subscribe registers for update notifications on a record.
	Subscribe(ctx context.Context, recordName string) error
}

// SearchIndex is the on-device search surface: world and anchor names are
// indexed so the app's search UI can find them.
type SearchIndex interface {
	IndexWorld(worldName string, anchorNames []string) error
	RemoveWorld(worldName string) error
	Search(term string) ([]SearchHit, error)
	Close() error
}

// SearchHit is one search result. AnchorName is empty for a world-level hit.
type SearchHit struct {
	WorldName  string
	AnchorName string
}

package model

import "time"

// World represents one saved physical-space map and its sync metadata.
//
// Name is the true cross-device identity: the registry enforces at most one
// World per distinct Name, and remote reconciliation joins on Name. ID is a
// locally generated UUID and is NOT guaranteed to match across devices for
// the same room.
type World struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	LastModified     time.Time `json:"lastModified"`
	PIN              string    `json:"pin,omitempty"` // plaintext, owner-local; public tier stores only the hash
	CloudRecordID    string    `json:"cloudRecordID,omitempty"`
	MetadataRecordID string    `json:"metadataRecordID,omitempty"`
	PublicRecordName string    `json:"publicRecordName,omitempty"`
	IsCollaborative  bool      `json:"isCollaborative"`

	// Synced is false while the latest local save has not reached the
	// private zone. Cleared locally, set by a successful upload.
	Synced bool `json:"synced"`

	// PendingAnchorCleanup marks that public-zone anchor records have been
	// integrated into the artifact and should be deleted after the next
	// successful upload.
	PendingAnchorCleanup bool `json:"pendingAnchorCleanup,omitempty"`
}

// SharedLink records a previously received collaboration/view link.
// Dedup key is (RoomName, OwnerName), not the URL: the same room can be
// re-shared under a different URL.
type SharedLink struct {
	ID               string    `json:"id"`
	RoomName         string    `json:"roomName"`
	OwnerName        string    `json:"ownerName"`
	ShareURL         string    `json:"shareURL"`
	SnapshotFileName string    `json:"snapshotFileName,omitempty"`
	DateReceived     time.Time `json:"dateReceived"`
}

// RenameMarker is the write-ahead record of an in-progress rename.
// A marker left on disk means the process died mid-rename; LoadAll resumes
// the operation from it.
type RenameMarker struct {
	OldName string    `json:"oldName"`
	NewName string    `json:"newName"`
	Started time.Time `json:"started"`
}

// PendingKind discriminates PendingAction.
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingAcceptShare
	PendingOpenOrSave
	PendingNeedsPIN
	PendingCollaborationChoice
)

// PendingAction is the single-slot hand-off from the sync layer to the
// presentation layer: one asynchronously arrived event, consumed exactly
// once. Replaces the original design's independently mutable flags.
type PendingAction struct {
	Kind      PendingKind
	RoomName  string
	OwnerName string
	ShareURL  string
	AssetURL  string
	PINHash   string
}

package world

import "pinpoint-go/internal/model"

// MergePolicy decides how a remote metadata record folds into the matching
// local world during LoadAll phase 2.
type MergePolicy func(local model.World, meta Record) model.World

// CloudWinsPolicy overwrites local values with cloud values unconditionally,
// ignoring lastModified. This is the historical behavior; the timestamp
// field exists but is not compared. Kept as the default deliberately —
// see NewestWinsPolicy for the timestamp-compared alternative.
func CloudWinsPolicy(local model.World, meta Record) model.World {
	merged := local
	merged.PIN = meta.String(FieldPIN)
	merged.CloudRecordID = meta.String(FieldCloudRecordID)
	merged.IsCollaborative = meta.Bool(FieldIsCollaborative)
	merged.MetadataRecordID = meta.RecordName
	if t := meta.Time(FieldLastModified); !t.IsZero() {
		merged.LastModified = t
	}
	if s := meta.String(FieldPublicRecordName); s != "" {
		merged.PublicRecordName = s
	}
	merged.Synced = true
	return merged
}

// NewestWinsPolicy applies cloud values only when the remote record is
// newer than the local copy.
func NewestWinsPolicy(local model.World, meta Record) model.World {
	if meta.Time(FieldLastModified).Before(local.LastModified) {
		// Remote is stale; still remember where the metadata record lives.
		local.MetadataRecordID = meta.RecordName
		return local
	}
	return CloudWinsPolicy(local, meta)
}

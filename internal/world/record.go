package world

import "time"

// Zone identifies a storage area in the remote record store.
type Zone string

const (
	// ZonePrivate is the per-user custom zone. It supports the sharing
	// primitives (share links, subscriptions).
	ZonePrivate Zone = "private"
	// ZonePublic is the world-readable default zone, used for collaborative
	// anchor staging and PIN-gated publication.
	ZonePublic Zone = "public"
)

// Record types stored remotely.
const (
	RecordTypeWorldMap      = "WorldMap"
	RecordTypeWorldMetadata = "WorldMetadata"
	RecordTypeAnchor        = "Anchor"
)

// Field names shared across record types.
const (
	FieldRoomName         = "roomName"
	FieldLastModified     = "lastModified"
	FieldPublicRecordName = "publicRecordName"
	FieldPINRequired      = "pinRequired"
	FieldPINHash          = "pinHash"
	FieldPIN              = "pin"
	FieldCloudRecordID    = "cloudRecordID"
	FieldIsCollaborative  = "isCollaborative"
	FieldName             = "name"
	FieldTransform        = "transform"
	FieldCreatedBy        = "createdBy"
	FieldOwnerName        = "ownerName"
	FieldWorldRef         = "worldRef"
)

// Record is one remote object. Fields hold scalar attributes; Asset holds
// the blob payload (the map artifact) when present.
type Record struct {
	RecordName string
	Type       string
	Zone       Zone
	Fields     map[string]any
	Asset      []byte
}

// String returns a string field, or "" when absent.
func (r Record) String(key string) string {
	s, _ := r.Fields[key].(string)
	return s
}

// Bool returns a bool field, or false when absent.
func (r Record) Bool(key string) bool {
	b, _ := r.Fields[key].(bool)
	return b
}

// Time returns a time field. JSON backends round-trip times as RFC3339
// strings, so both representations are accepted.
func (r Record) Time(key string) time.Time {
	switch v := r.Fields[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// Filter is a field-equality predicate for Query. The zero Filter matches
// every record of the queried type.
type Filter struct {
	Field string
	Value any
}

// Matches reports whether a record satisfies the filter.
func (f Filter) Matches(r Record) bool {
	if f.Field == "" {
		return true
	}
	return r.Fields[f.Field] == f.Value
}

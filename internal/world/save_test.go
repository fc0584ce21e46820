package world_test

import (
	"bytes"
	"context"
	"testing"

	"pinpoint-go/internal/artifact"
	"pinpoint-go/internal/testutil"
	"pinpoint-go/internal/world"
)

func TestSave_NewWorld(t *testing.T) {
	env := testutil.NewTestEnv()
	ctx := context.Background()

	_, mapData := makeArtifact(t, nil, "keys")
	if err := env.Registry.Save(ctx, "kitchen", mapData, []byte("png-bytes")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	w := env.Registry.World("kitchen")
	if w == nil {
		t.Fatal("kitchen missing after Save")
	}
	if !w.Synced {
		t.Error("Synced = false, want true after successful upload")
	}
	if w.CloudRecordID == "" || w.MetadataRecordID == "" {
		t.Errorf("record IDs not assigned: map=%q meta=%q", w.CloudRecordID, w.MetadataRecordID)
	}
	if !w.LastModified.Equal(env.Clock.Now()) {
		t.Errorf("LastModified = %v, want clock time %v", w.LastModified, env.Clock.Now())
	}

	// Local artifact decodes back to the same map payload.
	blob, err := env.Local.ReadArtifact("kitchen")
	if err != nil {
		t.Fatalf("ReadArtifact() error = %v", err)
	}
	gotMap, gotThumb, err := artifact.Decode(blob)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(gotMap, mapData) {
		t.Error("stored map payload differs from input")
	}
	if !bytes.Equal(gotThumb, []byte("png-bytes")) {
		t.Error("stored thumbnail differs from input")
	}

	// Both private-zone records exist.
	mapRec, err := env.Remote.Fetch(ctx, world.ZonePrivate, w.CloudRecordID)
	if err != nil {
		t.Fatalf("Fetch(map) error = %v", err)
	}
	if mapRec.String(world.FieldRoomName) != "kitchen" {
		t.Errorf("map record roomName = %q", mapRec.String(world.FieldRoomName))
	}
	if mapRec.String(world.FieldOwnerName) != "tester" {
		t.Errorf("map record ownerName = %q, want %q", mapRec.String(world.FieldOwnerName), "tester")
	}
	if len(mapRec.Asset) == 0 {
		t.Error("map record has no asset")
	}
	if _, err := env.Remote.Fetch(ctx, world.ZonePrivate, w.MetadataRecordID); err != nil {
		t.Fatalf("Fetch(metadata) error = %v", err)
	}

	// Anchors were indexed.
	names := env.Index.Indexed("kitchen")
	if len(names) != 1 || names[0] != "keys" {
		t.Errorf("Indexed() = %v, want [keys]", names)
	}
}

func TestSave_OfflineThenSyncUploads(t *testing.T) {
	env := testutil.NewTestEnv()
	ctx := context.Background()

	_, mapData := makeArtifact(t, nil, "keys")

	env.Remote.SetOffline(true)
	if err := env.Registry.Save(ctx, "kitchen", mapData, nil); err != nil {
		t.Fatalf("offline Save() error = %v, want tolerated", err)
	}

	w := env.Registry.World("kitchen")
	if w.Synced {
		t.Error("Synced = true after offline save, want false")
	}
	if w.CloudRecordID != "" {
		t.Errorf("CloudRecordID = %q, want empty while offline", w.CloudRecordID)
	}
	if _, err := env.Local.ReadArtifact("kitchen"); err != nil {
		t.Errorf("local artifact missing after offline save: %v", err)
	}

	env.Remote.SetOffline(false)

	// Reconciliation pushes the offline save to the private zone.
	worlds, err := env.Registry.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(worlds) != 1 || !worlds[0].Synced {
		t.Fatalf("after LoadAll: worlds = %+v, want one synced kitchen", worlds)
	}

	recs, err := env.Remote.Query(ctx, world.RecordTypeWorldMap, world.ZonePrivate, world.Filter{Field: world.FieldRoomName, Value: "kitchen"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("private map records after LoadAll = %d, want 1", len(recs))
	}
	gotMap, _, err := artifact.Decode(recs[0].Asset)
	if err != nil {
		t.Fatalf("Decode(uploaded asset) error = %v", err)
	}
	if !bytes.Equal(gotMap, mapData) {
		t.Error("uploaded asset differs from the offline-saved map payload")
	}

	w = env.Registry.World("kitchen")
	if w.CloudRecordID == "" || w.MetadataRecordID == "" {
		t.Errorf("record IDs not assigned after LoadAll: map=%q meta=%q", w.CloudRecordID, w.MetadataRecordID)
	}
}

func TestSave_CarriesThumbnailForward(t *testing.T) {
	env := testutil.NewTestEnv()
	ctx := context.Background()

	_, mapData := makeArtifact(t, nil, "keys")
	if err := env.Registry.Save(ctx, "kitchen", mapData, []byte("first-thumb")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Re-save without a thumbnail; the prior snapshot is carried forward.
	_, mapData2 := makeArtifact(t, nil, "keys", "wallet")
	if err := env.Registry.Save(ctx, "kitchen", mapData2, nil); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	blob, err := env.Local.ReadArtifact("kitchen")
	if err != nil {
		t.Fatalf("ReadArtifact() error = %v", err)
	}
	_, thumb, err := artifact.Decode(blob)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(thumb, []byte("first-thumb")) {
		t.Errorf("thumbnail = %q, want carried-forward %q", thumb, "first-thumb")
	}
}

func TestSave_ReusesRecordNames(t *testing.T) {
	env := testutil.NewTestEnv()
	ctx := context.Background()

	_, mapData := makeArtifact(t, nil)
	if err := env.Registry.Save(ctx, "kitchen", mapData, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	first := env.Registry.World("kitchen")

	if err := env.Registry.Save(ctx, "kitchen", mapData, nil); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	second := env.Registry.World("kitchen")

	if first.CloudRecordID != second.CloudRecordID {
		t.Errorf("CloudRecordID changed on re-save: %q -> %q", first.CloudRecordID, second.CloudRecordID)
	}
	if first.MetadataRecordID != second.MetadataRecordID {
		t.Errorf("MetadataRecordID changed on re-save: %q -> %q", first.MetadataRecordID, second.MetadataRecordID)
	}
}

func TestSave_CleansUpIntegratedAnchors(t *testing.T) {
	env := testutil.NewTestEnv()
	ctx := context.Background()

	_, mapData := makeArtifact(t, nil, "keys")
	if err := env.Registry.Save(ctx, "kitchen", mapData, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := env.Registry.AddPublicAnchor(ctx, "kitchen", "wallet", [artifact.TransformSize]byte{}, "bob"); err != nil {
		t.Fatalf("AddPublicAnchor() error = %v", err)
	}
	if err := env.Registry.MarkAnchorsIntegrated("kitchen"); err != nil {
		t.Fatalf("MarkAnchorsIntegrated() error = %v", err)
	}

	// Re-save with the anchor folded into the map.
	_, mapData2 := makeArtifact(t, nil, "keys", "wallet")
	if err := env.Registry.Save(ctx, "kitchen", mapData2, nil); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	recs, err := env.Registry.PendingPublicAnchors(ctx, "kitchen")
	if err != nil {
		t.Fatalf("PendingPublicAnchors() error = %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("len(pending anchors) = %d, want 0 after cleanup", len(recs))
	}
	if w := env.Registry.World("kitchen"); w.PendingAnchorCleanup {
		t.Error("PendingAnchorCleanup still set after cleanup")
	}
}

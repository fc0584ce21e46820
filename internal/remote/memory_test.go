package remote

import (
	"context"
	"errors"
	"testing"

	"pinpoint-go/internal/world"
)

func TestMemoryStore_QueryFilters(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	seed := []world.Record{
		{RecordName: "m1", Type: world.RecordTypeWorldMap, Zone: world.ZonePrivate,
			Fields: map[string]any{world.FieldRoomName: "kitchen"}},
		{RecordName: "m2", Type: world.RecordTypeWorldMap, Zone: world.ZonePrivate,
			Fields: map[string]any{world.FieldRoomName: "garage"}},
		{RecordName: "m3", Type: world.RecordTypeWorldMap, Zone: world.ZonePublic,
			Fields: map[string]any{world.FieldRoomName: "kitchen"}},
		{RecordName: "a1", Type: world.RecordTypeAnchor, Zone: world.ZonePrivate,
			Fields: map[string]any{world.FieldRoomName: "kitchen"}},
	}
	for _, rec := range seed {
		if _, err := m.Save(ctx, rec); err != nil {
			t.Fatalf("Save(%s) error = %v", rec.RecordName, err)
		}
	}

	t.Run("by type and zone", func(t *testing.T) {
		recs, err := m.Query(ctx, world.RecordTypeWorldMap, world.ZonePrivate, world.Filter{})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(recs) != 2 {
			t.Errorf("len = %d, want 2", len(recs))
		}
	})

	t.Run("by field", func(t *testing.T) {
		recs, err := m.Query(ctx, world.RecordTypeWorldMap, world.ZonePrivate,
			world.Filter{Field: world.FieldRoomName, Value: "kitchen"})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(recs) != 1 || recs[0].RecordName != "m1" {
			t.Errorf("recs = %v, want [m1]", recs)
		}
	})

	t.Run("zones are isolated", func(t *testing.T) {
		recs, err := m.Query(ctx, world.RecordTypeWorldMap, world.ZonePublic, world.Filter{})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(recs) != 1 || recs[0].RecordName != "m3" {
			t.Errorf("recs = %v, want [m3]", recs)
		}
	})
}

func TestMemoryStore_FetchAndDelete(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	rec := world.Record{
		RecordName: "m1",
		Type:       world.RecordTypeWorldMap,
		Zone:       world.ZonePrivate,
		Fields:     map[string]any{world.FieldRoomName: "kitchen"},
		Asset:      []byte("blob"),
	}
	if _, err := m.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := m.Fetch(ctx, world.ZonePrivate, "m1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	// Returned record is a copy; mutating it does not leak into the store.
	got.Fields[world.FieldRoomName] = "mutated"
	got.Asset[0] = 'X'
	fresh, err := m.Fetch(ctx, world.ZonePrivate, "m1")
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if fresh.String(world.FieldRoomName) != "kitchen" || fresh.Asset[0] != 'b' {
		t.Error("store state mutated through a fetched copy")
	}

	if _, err := m.Fetch(ctx, world.ZonePublic, "m1"); !errors.Is(err, world.ErrNotFound) {
		t.Errorf("cross-zone fetch error = %v, want ErrNotFound", err)
	}

	if err := m.Delete(ctx, world.ZonePrivate, []string{"m1", "ghost"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Fetch(ctx, world.ZonePrivate, "m1"); !errors.Is(err, world.ErrNotFound) {
		t.Errorf("post-delete fetch error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Shares(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	url1, err := m.CreateShare(ctx, "rec-1")
	if err != nil {
		t.Fatalf("CreateShare() error = %v", err)
	}
	url2, err := m.CreateShare(ctx, "rec-1")
	if err != nil {
		t.Fatalf("second CreateShare() error = %v", err)
	}
	if url1 != url2 {
		t.Errorf("CreateShare not idempotent: %q vs %q", url1, url2)
	}

	other, err := m.CreateShare(ctx, "rec-2")
	if err != nil {
		t.Fatalf("CreateShare(rec-2) error = %v", err)
	}
	if other == url1 {
		t.Error("distinct records got the same share URL")
	}

	if _, err := m.AcceptShare(ctx, "pinpoint://share/bogus"); !errors.Is(err, world.ErrNotFound) {
		t.Errorf("AcceptShare(bogus) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_FaultInjection(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	t.Run("offline fails everything transiently", func(t *testing.T) {
		m.SetOffline(true)
		defer m.SetOffline(false)

		_, err := m.Query(ctx, world.RecordTypeWorldMap, world.ZonePrivate, world.Filter{})
		var re *world.RemoteError
		if !errors.As(err, &re) {
			t.Fatalf("error type = %T, want *RemoteError", err)
		}
		if !re.Transient {
			t.Error("offline error not marked transient")
		}
	})

	t.Run("per-op injection", func(t *testing.T) {
		boom := errors.New("boom")
		m.FailWith("save", boom)
		defer m.ClearFailures()

		if _, err := m.Save(ctx, world.Record{RecordName: "x", Zone: world.ZonePrivate}); !errors.Is(err, boom) {
			t.Errorf("Save() error = %v, want injected", err)
		}
		// Other ops unaffected.
		if _, err := m.Query(ctx, world.RecordTypeWorldMap, world.ZonePrivate, world.Filter{}); err != nil {
			t.Errorf("Query() error = %v, want nil", err)
		}
	})
}

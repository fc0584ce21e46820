package world_test

import (
	"bytes"
	"context"
	"testing"

	"pinpoint-go/internal/testutil"
	"pinpoint-go/internal/world"
)

func TestImportFromExternalFile(t *testing.T) {
	t.Run("valid artifact", func(t *testing.T) {
		env := testutil.NewTestEnv()
		ctx := context.Background()

		blob, _ := makeArtifact(t, []byte("thumb"), "passport")
		if err := env.Registry.ImportFromExternalFile(ctx, blob, "hallway"); err != nil {
			t.Fatalf("ImportFromExternalFile() error = %v", err)
		}

		w := env.Registry.World("hallway")
		if w == nil {
			t.Fatal("hallway not registered")
		}
		if !w.Synced {
			t.Error("Synced = false, want true after upload")
		}

		stored, err := env.Local.ReadArtifact("hallway")
		if err != nil {
			t.Fatalf("ReadArtifact() error = %v", err)
		}
		if !bytes.Equal(stored, blob) {
			t.Error("imported bytes not stored verbatim")
		}

		// Thumbnail extracted into a standalone snapshot.
		png, err := env.Local.ReadSnapshot("hallway")
		if err != nil {
			t.Fatalf("ReadSnapshot() error = %v", err)
		}
		if !bytes.Equal(png, []byte("thumb")) {
			t.Errorf("snapshot = %q, want %q", png, "thumb")
		}

		names := env.Index.Indexed("hallway")
		if len(names) != 1 || names[0] != "passport" {
			t.Errorf("Indexed() = %v, want [passport]", names)
		}

		rec, err := env.Remote.Fetch(ctx, world.ZonePrivate, w.CloudRecordID)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !bytes.Equal(rec.Asset, blob) {
			t.Error("uploaded asset differs from imported bytes")
		}
	})

	t.Run("undecodable bytes still import", func(t *testing.T) {
		env := testutil.NewTestEnv()
		ctx := context.Background()

		junk := []byte("not an artifact at all")
		if err := env.Registry.ImportFromExternalFile(ctx, junk, "mystery"); err != nil {
			t.Fatalf("ImportFromExternalFile() error = %v", err)
		}

		stored, err := env.Local.ReadArtifact("mystery")
		if err != nil {
			t.Fatalf("ReadArtifact() error = %v", err)
		}
		if !bytes.Equal(stored, junk) {
			t.Error("bytes not stored verbatim")
		}
		if _, err := env.Local.ReadSnapshot("mystery"); err == nil {
			t.Error("snapshot written for undecodable artifact")
		}
		if env.Registry.World("mystery") == nil {
			t.Error("world not registered")
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		env := testutil.NewTestEnv()
		if err := env.Registry.ImportFromExternalFile(context.Background(), []byte("x"), ""); err == nil {
			t.Error("expected error for empty name")
		}
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		env := testutil.NewTestEnv()
		ctx := context.Background()

		blob, _ := makeArtifact(t, nil)
		if err := env.Registry.ImportFromExternalFile(ctx, blob, "hallway"); err != nil {
			t.Fatalf("first import error = %v", err)
		}
		if err := env.Registry.ImportFromExternalFile(ctx, blob, "hallway"); err == nil {
			t.Error("expected error for duplicate name")
		}
	})

	t.Run("upload failure is tolerated", func(t *testing.T) {
		env := testutil.NewTestEnv()
		ctx := context.Background()

		env.Remote.SetOffline(true)
		blob, _ := makeArtifact(t, nil)
		if err := env.Registry.ImportFromExternalFile(ctx, blob, "hallway"); err != nil {
			t.Fatalf("offline import error = %v, want tolerated", err)
		}
		if w := env.Registry.World("hallway"); w == nil || w.Synced {
			t.Error("world should be registered unsynced after offline import")
		}
	})
}

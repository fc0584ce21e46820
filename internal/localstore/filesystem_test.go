package localstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pinpoint-go/internal/model"
	"pinpoint-go/internal/world"
)

func newTestStore(t *testing.T) *FileSystemStore {
	t.Helper()
	s, err := NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	return s
}

func TestFileSystemStore_Artifacts(t *testing.T) {
	s := newTestStore(t)

	t.Run("round trip", func(t *testing.T) {
		if err := s.WriteArtifact("kitchen", []byte("blob")); err != nil {
			t.Fatalf("WriteArtifact() error = %v", err)
		}
		got, err := s.ReadArtifact("kitchen")
		if err != nil {
			t.Fatalf("ReadArtifact() error = %v", err)
		}
		if !bytes.Equal(got, []byte("blob")) {
			t.Errorf("ReadArtifact() = %q, want %q", got, "blob")
		}
	})

	t.Run("missing artifact is ErrNotFound", func(t *testing.T) {
		_, err := s.ReadArtifact("nope")
		if !errors.Is(err, world.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		if err := s.WriteArtifact("hall", []byte("x")); err != nil {
			t.Fatalf("WriteArtifact() error = %v", err)
		}
		if err := s.DeleteArtifact("hall"); err != nil {
			t.Fatalf("DeleteArtifact() error = %v", err)
		}
		if err := s.DeleteArtifact("hall"); err != nil {
			t.Errorf("second DeleteArtifact() error = %v, want nil", err)
		}
	})

	t.Run("path separators in names are neutralized", func(t *testing.T) {
		name := "up/../../stairs"
		if err := s.WriteArtifact(name, []byte("y")); err != nil {
			t.Fatalf("WriteArtifact() error = %v", err)
		}
		got, err := s.ReadArtifact(name)
		if err != nil {
			t.Fatalf("ReadArtifact() error = %v", err)
		}
		if !bytes.Equal(got, []byte("y")) {
			t.Error("round trip failed for name with separators")
		}
		// The file landed inside the data directory.
		entries, err := os.ReadDir(s.dataDir)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		found := false
		for _, e := range entries {
			if filepath.Ext(e.Name()) == "" && e.Name() != "worldsList.json" {
				found = true
			}
		}
		if !found {
			t.Error("artifact file not found in data dir")
		}
	})
}

func TestFileSystemStore_Registry(t *testing.T) {
	t.Run("empty store reads empty list", func(t *testing.T) {
		s := newTestStore(t)
		worlds, err := s.ReadRegistry()
		if err != nil {
			t.Fatalf("ReadRegistry() error = %v", err)
		}
		if len(worlds) != 0 {
			t.Errorf("len = %d, want 0", len(worlds))
		}
	})

	t.Run("round trip", func(t *testing.T) {
		s := newTestStore(t)
		in := []model.World{
			{ID: "1", Name: "kitchen", LastModified: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Synced: true},
			{ID: "2", Name: "garage", PIN: "1234"},
		}
		if err := s.WriteRegistry(in); err != nil {
			t.Fatalf("WriteRegistry() error = %v", err)
		}
		got, err := s.ReadRegistry()
		if err != nil {
			t.Fatalf("ReadRegistry() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].Name != "kitchen" || !got[0].Synced {
			t.Errorf("got[0] = %+v", got[0])
		}
		if got[1].PIN != "1234" {
			t.Errorf("PIN = %q, want preserved", got[1].PIN)
		}
	})

	t.Run("empty write never clobbers", func(t *testing.T) {
		s := newTestStore(t)
		if err := s.WriteRegistry([]model.World{{ID: "1", Name: "kitchen"}}); err != nil {
			t.Fatalf("WriteRegistry() error = %v", err)
		}
		if err := s.WriteRegistry(nil); err != nil {
			t.Fatalf("WriteRegistry(nil) error = %v", err)
		}
		got, err := s.ReadRegistry()
		if err != nil {
			t.Fatalf("ReadRegistry() error = %v", err)
		}
		if len(got) != 1 {
			t.Errorf("len = %d, want populated registry kept", len(got))
		}
	})

	t.Run("clear persists emptiness past the guard", func(t *testing.T) {
		s := newTestStore(t)
		if err := s.WriteRegistry([]model.World{{ID: "1", Name: "kitchen"}}); err != nil {
			t.Fatalf("WriteRegistry() error = %v", err)
		}
		if err := s.ClearRegistry(); err != nil {
			t.Fatalf("ClearRegistry() error = %v", err)
		}
		got, err := s.ReadRegistry()
		if err != nil {
			t.Fatalf("ReadRegistry() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("len = %d, want 0 after clear", len(got))
		}
	})

	t.Run("read dedupes by name first wins", func(t *testing.T) {
		s := newTestStore(t)
		// Write duplicates directly; WriteRegistry does not dedupe.
		in := []model.World{
			{ID: "a", Name: "kitchen"},
			{ID: "b", Name: "kitchen"},
		}
		if err := s.WriteRegistry(in); err != nil {
			t.Fatalf("WriteRegistry() error = %v", err)
		}
		got, err := s.ReadRegistry()
		if err != nil {
			t.Fatalf("ReadRegistry() error = %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("len = %d, want 1", len(got))
		}
		if got[0].ID != "a" {
			t.Errorf("kept ID = %q, want first occurrence", got[0].ID)
		}
	})
}

func TestFileSystemStore_SharedLinks(t *testing.T) {
	s := newTestStore(t)

	links, err := s.ReadSharedLinks()
	if err != nil {
		t.Fatalf("ReadSharedLinks() error = %v", err)
	}
	if len(links) != 0 {
		t.Errorf("len = %d, want 0 on fresh store", len(links))
	}

	in := []model.SharedLink{{
		ID:           "l1",
		RoomName:     "den",
		OwnerName:    "alice",
		ShareURL:     "pinpoint://share/x",
		DateReceived: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}}
	if err := s.WriteSharedLinks(in); err != nil {
		t.Fatalf("WriteSharedLinks() error = %v", err)
	}
	got, err := s.ReadSharedLinks()
	if err != nil {
		t.Fatalf("ReadSharedLinks() error = %v", err)
	}
	if len(got) != 1 || got[0].RoomName != "den" || got[0].OwnerName != "alice" {
		t.Errorf("got = %+v", got)
	}
}

func TestFileSystemStore_RenameMarker(t *testing.T) {
	s := newTestStore(t)

	m, err := s.ReadRenameMarker()
	if err != nil {
		t.Fatalf("ReadRenameMarker() error = %v", err)
	}
	if m != nil {
		t.Fatal("marker present on fresh store")
	}

	in := model.RenameMarker{OldName: "a", NewName: "b", Started: time.Now().UTC()}
	if err := s.WriteRenameMarker(in); err != nil {
		t.Fatalf("WriteRenameMarker() error = %v", err)
	}
	m, err = s.ReadRenameMarker()
	if err != nil {
		t.Fatalf("ReadRenameMarker() error = %v", err)
	}
	if m == nil || m.OldName != "a" || m.NewName != "b" {
		t.Fatalf("marker = %+v", m)
	}

	if err := s.ClearRenameMarker(); err != nil {
		t.Fatalf("ClearRenameMarker() error = %v", err)
	}
	m, err = s.ReadRenameMarker()
	if err != nil {
		t.Fatalf("ReadRenameMarker() error = %v", err)
	}
	if m != nil {
		t.Error("marker survives Clear")
	}
	// Clearing twice is fine.
	if err := s.ClearRenameMarker(); err != nil {
		t.Errorf("second ClearRenameMarker() error = %v", err)
	}
}

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("empty dir gives memory store", func(t *testing.T) {
		s, err := NewStoreFromConfig("")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := s.(*MemoryStore); !ok {
			t.Errorf("type = %T, want *MemoryStore", s)
		}
	})

	t.Run("dir gives filesystem store", func(t *testing.T) {
		s, err := NewStoreFromConfig(t.TempDir())
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := s.(*FileSystemStore); !ok {
			t.Errorf("type = %T, want *FileSystemStore", s)
		}
	})
}

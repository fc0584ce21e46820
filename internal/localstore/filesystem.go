// Package localstore implements on-device persistence for world artifacts,
// snapshot images, and the JSON registry/shared-link lists.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pinpoint-go/internal/model"
	"pinpoint-go/internal/world"
)

// FileSystemStore is the filesystem implementation of world.LocalStore.
// Layout under the data directory:
//
//	worldsList.json          world metadata registry
//	sharedLinks.json         received share links
//	rename_inprogress.json   write-ahead rename marker (absent normally)
//	<name>_worldMap          artifact blob per world
//	<name>_snapshot.png      thumbnail per world
//
// Every write goes through a temp file plus rename, so a partial write
// never leaves a truncated file visible.
type FileSystemStore struct {
	dataDir string
}

// NewFileSystemStore creates a store rooted at dataDir, creating it if needed.
func NewFileSystemStore(dataDir string) (*FileSystemStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileSystemStore{dataDir: dataDir}, nil
}

const (
	registryFile     = "worldsList.json"
	sharedLinksFile  = "sharedLinks.json"
	renameMarkerFile = "rename_inprogress.json"
)

// fileSafe maps a world name to a filename component. Deterministic per
// name; path separators are the only characters replaced.
func fileSafe(name string) string {
	name = strings.ReplaceAll(name, string(os.PathSeparator), "-")
	return strings.ReplaceAll(name, "/", "-")
}

func (s *FileSystemStore) artifactPath(worldName string) string {
	return filepath.Join(s.dataDir, fileSafe(worldName)+"_worldMap")
}

func (s *FileSystemStore) snapshotPath(worldName string) string {
	return filepath.Join(s.dataDir, fileSafe(worldName)+"_snapshot.png")
}

// WriteArtifact stores a world's artifact blob atomically.
func (s *FileSystemStore) WriteArtifact(worldName string, data []byte) error {
	return s.writeFile(s.artifactPath(worldName), data)
}

// ReadArtifact returns a world's artifact blob.
func (s *FileSystemStore) ReadArtifact(worldName string) ([]byte, error) {
	return s.readFile(s.artifactPath(worldName))
}

// DeleteArtifact removes a world's artifact file. Missing is not an error.
func (s *FileSystemStore) DeleteArtifact(worldName string) error {
	return s.removeFile(s.artifactPath(worldName))
}

func (s *FileSystemStore) WriteSnapshot(worldName string, png []byte) error {
	return s.writeFile(s.snapshotPath(worldName), png)
}

func (s *FileSystemStore) ReadSnapshot(worldName string) ([]byte, error) {
	return s.readFile(s.snapshotPath(worldName))
}

func (s *FileSystemStore) DeleteSnapshot(worldName string) error {
	return s.removeFile(s.snapshotPath(worldName))
}

// WriteRegistry persists the world list. Writing an empty list while a
// populated registry exists on disk is a deliberate no-op: it guards against
// clobbering real state with an erroneously empty in-memory list.
func (s *FileSystemStore) WriteRegistry(worlds []model.World) error {
	if len(worlds) == 0 {
		existing, err := s.ReadRegistry()
		if err == nil && len(existing) > 0 {
			return nil
		}
	}
	data, err := json.MarshalIndent(worlds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	return s.writeFile(filepath.Join(s.dataDir, registryFile), data)
}

// ClearRegistry removes the registry file outright, bypassing the
// empty-write guard. Deleting the last world goes through here.
func (s *FileSystemStore) ClearRegistry() error {
	return s.removeFile(filepath.Join(s.dataDir, registryFile))
}

// ReadRegistry returns the persisted world list, deduplicated by name with
// the first entry winning. The remote tier can introduce duplicate-by-id
// rows for the same room, so the dedup is correctness, not tidiness.
func (s *FileSystemStore) ReadRegistry() ([]model.World, error) {
	data, err := s.readFile(filepath.Join(s.dataDir, registryFile))
	if errors.Is(err, world.ErrNotFound) {
		return []model.World{}, nil
	}
	if err != nil {
		return nil, err
	}

	var worlds []model.World
	if err := json.Unmarshal(data, &worlds); err != nil {
		return nil, fmt.Errorf("decoding registry: %w", err)
	}
	return dedupeByName(worlds), nil
}

func dedupeByName(worlds []model.World) []model.World {
	seen := make(map[string]bool, len(worlds))
	out := worlds[:0]
	for _, w := range worlds {
		if seen[w.Name] {
			continue
		}
		seen[w.Name] = true
		out = append(out, w)
	}
	return out
}

func (s *FileSystemStore) WriteSharedLinks(links []model.SharedLink) error {
	data, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding shared links: %w", err)
	}
	return s.writeFile(filepath.Join(s.dataDir, sharedLinksFile), data)
}

func (s *FileSystemStore) ReadSharedLinks() ([]model.SharedLink, error) {
	data, err := s.readFile(filepath.Join(s.dataDir, sharedLinksFile))
	if errors.Is(err, world.ErrNotFound) {
		return []model.SharedLink{}, nil
	}
	if err != nil {
		return nil, err
	}

	var links []model.SharedLink
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("decoding shared links: %w", err)
	}
	return links, nil
}

func (s *FileSystemStore) WriteRenameMarker(m model.RenameMarker) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding rename marker: %w", err)
	}
	return s.writeFile(filepath.Join(s.dataDir, renameMarkerFile), data)
}

// ReadRenameMarker returns the pending rename marker, or nil when none exists.
func (s *FileSystemStore) ReadRenameMarker() (*model.RenameMarker, error) {
	data, err := s.readFile(filepath.Join(s.dataDir, renameMarkerFile))
	if errors.Is(err, world.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var m model.RenameMarker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding rename marker: %w", err)
	}
	return &m, nil
}

func (s *FileSystemStore) ClearRenameMarker() error {
	return s.removeFile(filepath.Join(s.dataDir, renameMarkerFile))
}

// writeFile writes data to path via temp file + atomic rename.
func (s *FileSystemStore) writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dataDir, ".tmp-*")
	if err != nil {
		return &world.IOError{Op: "write", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &world.IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &world.IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &world.IOError{Op: "write", Path: path, Err: err}
	}
	success = true
	return nil
}

func (s *FileSystemStore) readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, world.ErrNotFound)
		}
		return nil, &world.IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

func (s *FileSystemStore) removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &world.IOError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Compile-time check that FileSystemStore implements world.LocalStore
var _ world.LocalStore = (*FileSystemStore)(nil)

package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"pinpoint-go/internal/config"
	"pinpoint-go/internal/localstore"
	"pinpoint-go/internal/model"
	"pinpoint-go/internal/remote"
	"pinpoint-go/internal/searchindex"
	"pinpoint-go/internal/world"
)

// App is the application layer between the CLI and the world registry.
// It constructs all dependencies from config and manages the search index
// lifecycle on Close.
type App struct {
	cfg      *config.Config
	registry *world.Registry
	index    world.SearchIndex
	logFile  *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Save", "Sync").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	local, err := localstore.NewStoreFromConfig(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("creating local store: %w", err)
	}

	rem, err := remote.NewStoreFromConfig(ctx, cfg.Remote)
	if err != nil {
		return nil, fmt.Errorf("creating remote store: %w", err)
	}

	index, err := searchindex.NewIndexFromConfig(cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	reg := world.NewRegistry(local, rem, index, &slogAdapter{l: logger}, world.RealClock{}, world.UUIDGenerator{})
	reg.SetOwnerName(cfg.OwnerName)

	return &App{
		cfg:      cfg,
		registry: reg,
		index:    index,
		logFile:  logFile,
	}, nil
}

// Sync runs the full three-phase load and returns the merged world list.
func (a *App) Sync(ctx context.Context) ([]model.World, error) {
	return a.registry.LoadAll(ctx)
}

// Worlds returns the registry snapshot without contacting the remote store.
func (a *App) Worlds() []model.World {
	return a.registry.Worlds()
}

// Save persists a world's map data and thumbnail locally and uploads it.
func (a *App) Save(ctx context.Context, worldName string, mapData, thumbnail []byte) error {
	return a.registry.Save(ctx, worldName, mapData, thumbnail)
}

// Rename renames a world across the local store and both remote zones.
func (a *App) Rename(ctx context.Context, oldName, newName string) error {
	return a.registry.Rename(ctx, oldName, newName)
}

// Delete removes a world from every tier it can reach. A *world.PartialError
// describes any steps that failed.
func (a *App) Delete(ctx context.Context, worldName string) error {
	return a.registry.Delete(ctx, worldName)
}

// Import registers an externally produced map file as a new world.
func (a *App) Import(ctx context.Context, path, desiredName string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}
	return a.registry.ImportFromExternalFile(ctx, data, desiredName)
}

// AnchorNames lists the user-visible anchors stored in a world's map.
func (a *App) AnchorNames(ctx context.Context, worldName string) ([]string, error) {
	return a.registry.AnchorNames(ctx, worldName)
}

// PendingAnchorCount reports how many collaborator anchors await integration.
func (a *App) PendingAnchorCount(ctx context.Context, worldName string) (int, error) {
	return a.registry.PendingAnchorCount(ctx, worldName)
}

// AddAnchor stages a named anchor against a published world.
func (a *App) AddAnchor(ctx context.Context, worldName, anchorName string, transform [64]byte) error {
	return a.registry.AddPublicAnchor(ctx, worldName, anchorName, transform, a.cfg.OwnerName)
}

// Publish migrates a world to the public zone with an optional PIN.
func (a *App) Publish(ctx context.Context, worldName, pin string) error {
	return a.registry.MigrateToPublic(ctx, worldName, pin)
}

// ShareLink creates (or returns the existing) share URL for a world.
func (a *App) ShareLink(ctx context.Context, worldName string) (string, error) {
	return a.registry.CreateShareLink(ctx, worldName)
}

// AcceptShare resolves a share URL and registers the shared world locally.
func (a *App) AcceptShare(ctx context.Context, shareURL string) error {
	return a.registry.AcceptIncomingShare(ctx, shareURL)
}

// SharedLinks lists the locally known shared links.
func (a *App) SharedLinks() ([]model.SharedLink, error) {
	return a.registry.SharedLinks()
}

// TakePending consumes the pending user action, if any.
func (a *App) TakePending() model.PendingAction {
	return a.registry.TakePending()
}

// Search queries the on-device index for world and anchor names.
func (a *App) Search(term string) ([]world.SearchHit, error) {
	return a.index.Search(term)
}

// Close releases the search index and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.index.Close(); err != nil {
		firstErr = fmt.Errorf("closing search index: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

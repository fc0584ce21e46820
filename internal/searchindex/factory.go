package searchindex

import (
	"fmt"
	"os"
	"path/filepath"

	"pinpoint-go/internal/config"
	"pinpoint-go/internal/world"
)

// NewIndexFromConfig creates a SearchIndex implementation based on the search config type.
func NewIndexFromConfig(cfg config.SearchIndexConfig) (world.SearchIndex, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite search index")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating search index directory: %w", err)
		}
		return NewSQLiteIndex(filepath.Join(cfg.DataDir, "search.db"))
	case "memory":
		return NewSQLiteIndex(":memory:")
	default:
		return nil, fmt.Errorf("unknown search index type: %s", cfg.Type)
	}
}

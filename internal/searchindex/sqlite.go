// Package searchindex implements the on-device search surface: world and
// anchor names indexed in SQLite so the app's search UI can find them.
package searchindex

import (
	"database/sql"
	"fmt"

	"pinpoint-go/internal/searchindex/migrations"
	"pinpoint-go/internal/world"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteIndex implements the world.SearchIndex interface using SQLite.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex opens (or creates) an index database and migrates it to
// the latest schema. path can be a file path or ":memory:".
func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating search index: %w", err)
	}

	return &SQLiteIndex{db: db}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// IndexWorld replaces all entries for a world with the current name set:
// one world-level row plus one row per anchor name.
func (s *SQLiteIndex) IndexWorld(worldName string, anchorNames []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM search_entries WHERE world_name = ?", worldName); err != nil {
		return fmt.Errorf("clearing index entries: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO search_entries (world_name, anchor_name) VALUES (?, '')", worldName); err != nil {
		return fmt.Errorf("indexing world: %w", err)
	}
	for _, anchor := range anchorNames {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO search_entries (world_name, anchor_name) VALUES (?, ?)",
			worldName, anchor,
		); err != nil {
			return fmt.Errorf("indexing anchor %q: %w", anchor, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index transaction: %w", err)
	}
	return nil
}

// RemoveWorld deletes every entry for a world.
func (s *SQLiteIndex) RemoveWorld(worldName string) error {
	if _, err := s.db.Exec("DELETE FROM search_entries WHERE world_name = ?", worldName); err != nil {
		return fmt.Errorf("removing index entries: %w", err)
	}
	return nil
}

// Search returns entries whose world or anchor name contains the term,
// case-insensitively, worlds before anchors.
func (s *SQLiteIndex) Search(term string) ([]world.SearchHit, error) {
	pattern := "%" + term + "%"
	rows, err := s.db.Query(`
		SELECT world_name, anchor_name FROM search_entries
		WHERE world_name LIKE ? COLLATE NOCASE OR anchor_name LIKE ? COLLATE NOCASE
		ORDER BY anchor_name != '', world_name, anchor_name`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	defer rows.Close()

	var hits []world.SearchHit
	for rows.Next() {
		var h world.SearchHit
		if err := rows.Scan(&h.WorldName, &h.AnchorName); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteIndex implements world.SearchIndex
var _ world.SearchIndex = (*SQLiteIndex)(nil)

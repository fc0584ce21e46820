// Package remote implements the remote record store facade: a thin
// query/save/delete client over a two-zone record database, with memory and
// S3 backends.
package remote

import (
	"context"
	"fmt"
	"sync"

	"pinpoint-go/internal/world"
)

// MemoryStore is an in-memory implementation of world.RemoteStore. It backs
// tests and the "memory" config type, and supports fault injection so
// callers can exercise offline and partial-failure paths.
// Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]world.Record // zone/recordName -> record
	shares    map[string]string       // recordName -> share URL
	shareURLs map[string]string       // share URL -> recordName
	subs      map[string]bool
	failures  map[string]error // op -> injected error
	offline   bool
	shareSeq  int

	// StubShareResolution makes AcceptShare return only the root record's
	// identifier, forcing callers through the secondary fetch-by-id path.
	StubShareResolution bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]world.Record),
		shares:    make(map[string]string),
		shareURLs: make(map[string]string),
		subs:      make(map[string]bool),
		failures:  make(map[string]error),
	}
}

// SetOffline makes every operation fail with a transient error until reset.
func (m *MemoryStore) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// FailWith injects an error for one operation name
// ("query", "fetch", "save", "delete", "createShare", "acceptShare", "subscribe").
func (m *MemoryStore) FailWith(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// ClearFailures removes all injected errors.
func (m *MemoryStore) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string]error)
	m.offline = false
}

func (m *MemoryStore) check(op string) error {
	if m.offline {
		return &world.RemoteError{Op: op, Transient: true, Err: fmt.Errorf("offline")}
	}
	if err := m.failures[op]; err != nil {
		return err
	}
	return nil
}

func key(zone world.Zone, recordName string) string {
	return string(zone) + "/" + recordName
}

func copyRecord(rec world.Record) world.Record {
	out := rec
	if rec.Fields != nil {
		out.Fields = make(map[string]any, len(rec.Fields))
		for k, v := range rec.Fields {
			out.Fields[k] = v
		}
	}
	out.Asset = append([]byte(nil), rec.Asset...)
	return out
}

func (m *MemoryStore) Query(ctx context.Context, recordType string, zone world.Zone, filter world.Filter) ([]world.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("query"); err != nil {
		return nil, err
	}

	var out []world.Record
	for _, rec := range m.records {
		if rec.Type != recordType || rec.Zone != zone {
			continue
		}
		if !filter.Matches(rec) {
			continue
		}
		out = append(out, copyRecord(rec))
	}
	return out, nil
}

func (m *MemoryStore) Fetch(ctx context.Context, zone world.Zone, recordName string) (world.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("fetch"); err != nil {
		return world.Record{}, err
	}

	rec, ok := m.records[key(zone, recordName)]
	if !ok {
		return world.Record{}, fmt.Errorf("record %s/%s: %w", zone, recordName, world.ErrNotFound)
	}
	return copyRecord(rec), nil
}

func (m *MemoryStore) Save(ctx context.Context, rec world.Record) (world.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("save"); err != nil {
		return world.Record{}, err
	}

	m.records[key(rec.Zone, rec.RecordName)] = copyRecord(rec)
	return copyRecord(rec), nil
}

func (m *MemoryStore) Delete(ctx context.Context, zone world.Zone, recordNames []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("delete"); err != nil {
		return err
	}

	for _, name := range recordNames {
		delete(m.records, key(zone, name))
	}
	return nil
}

func (m *MemoryStore) CreateShare(ctx context.Context, recordName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("createShare"); err != nil {
		return "", err
	}

	// Idempotent: an existing share wins, including a concurrently created one.
	if url, ok := m.shares[recordName]; ok {
		return url, nil
	}
	m.shareSeq++
	url := fmt.Sprintf("pinpoint://share/token-%d", m.shareSeq)
	m.shares[recordName] = url
	m.shareURLs[url] = recordName
	return url, nil
}

func (m *MemoryStore) AcceptShare(ctx context.Context, shareURL string) (world.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("acceptShare"); err != nil {
		return world.Record{}, err
	}

	recordName, ok := m.shareURLs[shareURL]
	if !ok {
		return world.Record{}, fmt.Errorf("share %s: %w", shareURL, world.ErrNotFound)
	}
	if m.StubShareResolution {
		return world.Record{RecordName: recordName}, nil
	}
	rec, ok := m.records[key(world.ZonePrivate, recordName)]
	if !ok {
		return world.Record{RecordName: recordName}, nil
	}
	return copyRecord(rec), nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, recordName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("subscribe"); err != nil {
		return err
	}
	m.subs[recordName] = true
	return nil
}

// Subscribed reports whether a subscription was registered. Test helper.
func (m *MemoryStore) Subscribed(recordName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subs[recordName]
}

// SeedShare installs a share URL for a record without going through
// CreateShare. Test helper for the incoming-link flow.
func (m *MemoryStore) SeedShare(url, recordName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares[recordName] = url
	m.shareURLs[url] = recordName
}

// Compile-time check that MemoryStore implements world.RemoteStore
var _ world.RemoteStore = (*MemoryStore)(nil)

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kalambet/bankassist/internal/storage"
	"github.com/kalambet/bankassist/internal/usecase"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Store persists the full ordered entry list. Load is called once; Save
// rewrites everything.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// MemoryStore keeps entries for the life of the process.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...), nil
}

func (m *MemoryStore) Save(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]Entry(nil), entries...)
	return nil
}

// FileStore keeps entries as a JSON array on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (f *FileStore) Load(context.Context) ([]Entry, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding cache file %s: %w", f.path, err)
	}
	return entries, nil
}

func (f *FileStore) Save(_ context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// SQLiteStore keeps entries in the cache_entries table.
type SQLiteStore struct {
	db *storage.Store
}

func NewSQLiteStore(db *storage.Store) *SQLiteStore { return &SQLiteStore{db: db} }

func (s *SQLiteStore) Load(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.LoadCacheRows(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{
			Query:     r.Query,
			Response:  r.Response,
			Source:    r.Source,
			UseCase:   usecase.UseCase(r.UseCase),
			Validated: r.Validated,
			CreatedAt: r.CreatedAt,
			Embedding: r.Embedding,
		}
	}
	return entries, nil
}

func (s *SQLiteStore) Save(ctx context.Context, entries []Entry) error {
	rows := make([]storage.CacheRow, len(entries))
	for i, e := range entries {
		rows[i] = storage.CacheRow{
			Position:  i,
			Query:     e.Query,
			Response:  e.Response,
			Source:    e.Source,
			UseCase:   string(e.UseCase),
			Validated: e.Validated,
			CreatedAt: e.CreatedAt,
			Embedding: e.Embedding,
		}
	}
	return s.db.ReplaceCacheRows(ctx, rows)
}

// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Filenames with special meaning inside the workspace memory directory.
// The write-safety gate exempts them: the agent's own bookkeeping must
// never require a prior read.
const (
	JournalFile = "LOGS.md"
	SummaryFile = "session_summary.md"
	ContextDir  = "context"
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

// MemoryEntry is a single saved memory record.
type MemoryEntry struct {
	ID        int64
	Key       string
	Content   string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistent memory collaborator: a SQLite key/value
// memory plus markdown journal files under workspace/memory/.
type Store struct {
	db        *sql.DB
	workspace string
	recent    *recentWrites
}

// Open creates or opens the memory database at workspace/memory/memory.db.
func Open(workspace string, recentWriteTTL time.Duration) (*Store, error) {
	memoryDir := filepath.Join(workspace, "memory")
	if err := os.MkdirAll(memoryDir, 0755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}

	dbPath := filepath.Join(memoryDir, "memory.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'custom',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{
		db:        db,
		workspace: workspace,
		recent:    newRecentWrites(recentWriteTTL),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a memory entry by key.
func (s *Store) Save(key, content, category string) error {
	if category == "" {
		category = "custom"
	}
	now := time.Now().UTC().Format(sqliteTimeFormat)

	_, err := s.db.Exec(`
		INSERT INTO memories (key, content, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET content=excluded.content,
			category=excluded.category, updated_at=excluded.updated_at
	`, key, content, category, now, now)
	if err != nil {
		return fmt.Errorf("save memory: %w", err)
	}
	return nil
}

// Get retrieves a memory entry by key. Returns nil if not found.
func (s *Store) Get(key string) *MemoryEntry {
	row := s.db.QueryRow(`
		SELECT id, key, content, category, created_at, updated_at
		FROM memories WHERE key = ?
	`, key)

	var entry MemoryEntry
	var createdAt, updatedAt string
	if err := row.Scan(&entry.ID, &entry.Key, &entry.Content, &entry.Category, &createdAt, &updatedAt); err != nil {
		return nil
	}
	entry.CreatedAt, _ = time.Parse(sqliteTimeFormat, createdAt)
	entry.UpdatedAt, _ = time.Parse(sqliteTimeFormat, updatedAt)
	return &entry
}

// List returns the most recently updated entries, newest first.
func (s *Store) List(limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, key, content, category, created_at, updated_at
		FROM memories ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		var entry MemoryEntry
		var createdAt, updatedAt string
		if err := rows.Scan(&entry.ID, &entry.Key, &entry.Content, &entry.Category, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt, _ = time.Parse(sqliteTimeFormat, createdAt)
		entry.UpdatedAt, _ = time.Parse(sqliteTimeFormat, updatedAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListByCategory returns entries in one category, newest first.
func (s *Store) ListByCategory(category string, limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, key, content, category, created_at, updated_at
		FROM memories WHERE category = ? ORDER BY updated_at DESC LIMIT ?
	`, category, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		var entry MemoryEntry
		var createdAt, updatedAt string
		if err := rows.Scan(&entry.ID, &entry.Key, &entry.Content, &entry.Category, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt, _ = time.Parse(sqliteTimeFormat, createdAt)
		entry.UpdatedAt, _ = time.Parse(sqliteTimeFormat, updatedAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Delete removes a memory entry by key. Returns true if deleted.
func (s *Store) Delete(key string) bool {
	result, err := s.db.Exec("DELETE FROM memories WHERE key = ?", key)
	if err != nil {
		return false
	}
	rows, _ := result.RowsAffected()
	return rows > 0
}

// MarkWritten records a path as self-written for the watcher
// suppression predicate.
func (s *Store) MarkWritten(path string) {
	s.recent.mark(path)
}

// WrittenRecently reports whether the agent itself wrote the path
// within the configured TTL. Exposed to the filesystem watcher so it
// can ignore the agent's own writes.
func (s *Store) WrittenRecently(path string) bool {
	return s.recent.contains(path)
}

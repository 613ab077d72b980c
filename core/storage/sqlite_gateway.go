package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/adalundhe/remembrance/core/memory"
)

// SQLiteGateway persists snapshots to a SQLite database. Same document
// shape as the JSON gateway, normalized into tables; timestamps are stored
// as Unix milliseconds so round trips preserve millisecond precision.
type SQLiteGateway struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteGateway opens (creating if needed) the database at path.
func NewSQLiteGateway(path string, logger *slog.Logger) (*SQLiteGateway, error) {
	if path == "" {
		return nil, errEmptyPath
	}

	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure snapshot dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	g := &SQLiteGateway{db: db, logger: normalizeLogger(logger)}
	if err := g.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return g, nil
}

func (g *SQLiteGateway) ensureSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT,
			strength REAL NOT NULL,
			last_accessed INTEGER NOT NULL,
			access_count INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			tags TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
		CREATE INDEX IF NOT EXISTS idx_memories_last_accessed ON memories(last_accessed);

		CREATE TABLE IF NOT EXISTS patterns (
			key TEXT PRIMARY KEY,
			frequency INTEGER NOT NULL,
			contexts TEXT,
			effectiveness REAL NOT NULL,
			last_seen INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshot_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_saved INTEGER NOT NULL
		);
	`
	_, err := g.db.Exec(schema)
	return err
}

// Save replaces the stored snapshot inside a single transaction.
func (g *SQLiteGateway) Save(snapshot *memory.Snapshot) error {
	if snapshot == nil {
		snapshot = memory.EmptySnapshot()
	}

	tx, err := g.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}

	if err := saveInTx(tx, snapshot); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func saveInTx(tx *sql.Tx, snapshot *memory.Snapshot) error {
	if _, err := tx.Exec(`DELETE FROM memories`); err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM patterns`); err != nil {
		return fmt.Errorf("clear patterns: %w", err)
	}

	for _, item := range snapshot.Memories {
		if err := insertMemory(tx, item); err != nil {
			return fmt.Errorf("insert memory %s: %w", item.ID, err)
		}
	}
	for _, pattern := range snapshot.Patterns {
		if err := insertPattern(tx, pattern); err != nil {
			return fmt.Errorf("insert pattern %s: %w", pattern.Key, err)
		}
	}

	_, err := tx.Exec(`
		INSERT OR REPLACE INTO snapshot_meta (id, last_saved) VALUES (1, ?)
	`, snapshot.LastSaved.UnixMilli())
	return err
}

func insertMemory(tx *sql.Tx, item *memory.Item) error {
	metadata, _ := json.Marshal(item.Metadata)
	tags, _ := json.Marshal(item.Tags)

	_, err := tx.Exec(`
		INSERT OR REPLACE INTO memories
		(id, type, content, metadata, strength, last_accessed, access_count, created_at, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, string(item.Type), item.Content, string(metadata),
		item.Strength, item.LastAccessed.UnixMilli(), item.AccessCount,
		item.CreatedAt.UnixMilli(), string(tags))
	return err
}

func insertPattern(tx *sql.Tx, pattern *memory.Pattern) error {
	contexts, _ := json.Marshal(pattern.Contexts)

	_, err := tx.Exec(`
		INSERT OR REPLACE INTO patterns
		(key, frequency, contexts, effectiveness, last_seen)
		VALUES (?, ?, ?, ?, ?)
	`, pattern.Key, pattern.Frequency, string(contexts),
		pattern.Effectiveness, pattern.LastSeen.UnixMilli())
	return err
}

// Load reads the stored snapshot. A fresh database yields an empty
// snapshot; scan failures degrade to empty rather than propagate.
func (g *SQLiteGateway) Load() (*memory.Snapshot, error) {
	snapshot := memory.EmptySnapshot()

	if err := g.loadMemories(snapshot); err != nil {
		g.logger.Warn("memory rows unreadable, starting empty", "error", err)
		return memory.EmptySnapshot(), nil
	}
	if err := g.loadPatterns(snapshot); err != nil {
		g.logger.Warn("pattern rows unreadable, starting empty", "error", err)
		return memory.EmptySnapshot(), nil
	}
	g.loadMeta(snapshot)

	return snapshot, nil
}

func (g *SQLiteGateway) loadMemories(snapshot *memory.Snapshot) error {
	rows, err := g.db.Query(`
		SELECT id, type, content, metadata, strength, last_accessed, access_count, created_at, tags
		FROM memories
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanMemory(rows)
		if err != nil {
			return err
		}
		snapshot.Memories[item.ID] = item
	}
	return rows.Err()
}

func scanMemory(rows *sql.Rows) (*memory.Item, error) {
	var item memory.Item
	var itemType string
	var metadata, tags sql.NullString
	var lastAccessed, createdAt int64

	err := rows.Scan(
		&item.ID, &itemType, &item.Content, &metadata,
		&item.Strength, &lastAccessed, &item.AccessCount, &createdAt, &tags,
	)
	if err != nil {
		return nil, err
	}

	item.Type = memory.ItemType(itemType)
	item.LastAccessed = time.UnixMilli(lastAccessed)
	item.CreatedAt = time.UnixMilli(createdAt)
	unmarshalIfValid(metadata, &item.Metadata)
	unmarshalIfValid(tags, &item.Tags)

	return &item, nil
}

func (g *SQLiteGateway) loadPatterns(snapshot *memory.Snapshot) error {
	rows, err := g.db.Query(`
		SELECT key, frequency, contexts, effectiveness, last_seen
		FROM patterns
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return err
		}
		snapshot.Patterns[pattern.Key] = pattern
	}
	return rows.Err()
}

func scanPattern(rows *sql.Rows) (*memory.Pattern, error) {
	var pattern memory.Pattern
	var contexts sql.NullString
	var lastSeen int64

	err := rows.Scan(
		&pattern.Key, &pattern.Frequency, &contexts,
		&pattern.Effectiveness, &lastSeen,
	)
	if err != nil {
		return nil, err
	}

	pattern.LastSeen = time.UnixMilli(lastSeen)
	unmarshalIfValid(contexts, &pattern.Contexts)

	return &pattern, nil
}

func (g *SQLiteGateway) loadMeta(snapshot *memory.Snapshot) {
	var lastSaved int64
	err := g.db.QueryRow(`SELECT last_saved FROM snapshot_meta WHERE id = 1`).Scan(&lastSaved)
	if err != nil {
		return
	}
	snapshot.LastSaved = time.UnixMilli(lastSaved)
}

// Close releases the database handle.
func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}

func unmarshalIfValid[T any](ns sql.NullString, target *T) {
	if ns.Valid && ns.String != "" {
		_ = json.Unmarshal([]byte(ns.String), target)
	}
}

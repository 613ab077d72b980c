package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adalundhe/remembrance/core/memory"
)

// Gateway persists memory-store snapshots. Loading is best-effort: a
// missing or corrupt source yields an empty snapshot, never an error the
// in-memory API has to surface.
type Gateway interface {
	Save(snapshot *memory.Snapshot) error
	Load() (*memory.Snapshot, error)
}

var errEmptyPath = errors.New("snapshot path cannot be empty")

// JSONGateway stores the snapshot as a single JSON document, written
// atomically via a temp file and rename.
type JSONGateway struct {
	path   string
	logger *slog.Logger
}

// NewJSONGateway creates a gateway persisting to the given file path.
func NewJSONGateway(path string, logger *slog.Logger) (*JSONGateway, error) {
	if path == "" {
		return nil, errEmptyPath
	}
	return &JSONGateway{path: path, logger: normalizeLogger(logger)}, nil
}

func normalizeLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Save writes the snapshot document atomically.
func (g *JSONGateway) Save(snapshot *memory.Snapshot) error {
	if snapshot == nil {
		snapshot = memory.EmptySnapshot()
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := EnsureDir(filepath.Dir(g.path)); err != nil {
		return fmt.Errorf("ensure snapshot dir: %w", err)
	}

	return writeAtomic(g.path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot document. A missing or corrupt file yields an
// empty snapshot.
func (g *JSONGateway) Load() (*memory.Snapshot, error) {
	data, err := os.ReadFile(g.path)
	if os.IsNotExist(err) {
		return memory.EmptySnapshot(), nil
	}
	if err != nil {
		g.logger.Warn("snapshot read failed, starting empty", "path", g.path, "error", err)
		return memory.EmptySnapshot(), nil
	}

	snapshot := memory.EmptySnapshot()
	if err := json.Unmarshal(data, snapshot); err != nil {
		g.logger.Warn("snapshot parse failed, starting empty", "path", g.path, "error", err)
		return memory.EmptySnapshot(), nil
	}

	normalizeSnapshot(snapshot)
	return snapshot, nil
}

func normalizeSnapshot(snapshot *memory.Snapshot) {
	if snapshot.Memories == nil {
		snapshot.Memories = make(map[string]*memory.Item)
	}
	if snapshot.Patterns == nil {
		snapshot.Patterns = make(map[string]*memory.Pattern)
	}
}

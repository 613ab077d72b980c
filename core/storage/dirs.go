// Package storage provides platform-native directory resolution and the
// persistence gateways that snapshot memory-store state to disk.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const appName = "remembrance"

// Dirs provides platform-native directory resolution with XDG support.
type Dirs struct {
	Config string // User configuration (settings)
	Data   string // Persistent data (memory snapshots)
	State  string // Runtime state (logs)
}

var (
	globalDirs     *Dirs
	globalDirsOnce sync.Once
)

// ResolveDirs returns platform-appropriate directories.
// Results are cached after the first call.
func ResolveDirs() *Dirs {
	globalDirsOnce.Do(func() {
		globalDirs = resolveDirsImpl()
	})
	return globalDirs
}

func resolveDirsImpl() *Dirs {
	return &Dirs{
		Config: resolveDir("XDG_CONFIG_HOME", homeSubdir(".config")),
		Data:   resolveDir("XDG_DATA_HOME", homeSubdir(".local", "share")),
		State:  resolveDir("XDG_STATE_HOME", homeSubdir(".local", "state")),
	}
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(fallback, appName)
}

func homeSubdir(parts ...string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return "."
		}
		return "/tmp"
	}
	return filepath.Join(append([]string{home}, parts...)...)
}

// ProjectDirs returns project-local paths.
type ProjectDirs struct {
	Root   string // .remembrance/
	Config string // .remembrance/config.yaml
}

// ResolveProjectDirs returns project-local directories for the given root.
func ResolveProjectDirs(projectRoot string) *ProjectDirs {
	root := filepath.Join(projectRoot, "."+appName)
	return &ProjectDirs{
		Root:   root,
		Config: filepath.Join(root, "config.yaml"),
	}
}

// ProjectHash generates a consistent short hash for a project path.
// Used for per-project snapshot isolation.
func ProjectHash(projectRoot string) string {
	absPath, err := filepath.Abs(projectRoot)
	if err != nil {
		absPath = projectRoot
	}
	hash := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(hash[:8])
}

// EnsureDir creates a directory if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

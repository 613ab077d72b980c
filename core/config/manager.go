// Package config loads and watches the service configuration. Defaults
// apply first, then the user-level YAML config, then the project-local
// one, then environment overrides. Missing files are not errors.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adalundhe/remembrance/core/storage"
)

// Config is the full service configuration.
type Config struct {
	Context     ContextConfig     `yaml:"context"`
	Memory      MemoryConfig      `yaml:"memory"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// ContextConfig bounds the working-memory store.
type ContextConfig struct {
	MaxBytes int `yaml:"max_bytes"`
	MaxItems int `yaml:"max_items"`
}

// MemoryConfig tunes long-term memory decay.
type MemoryConfig struct {
	DecayDays  float64 `yaml:"decay_days"`
	PurgeFloor float64 `yaml:"purge_floor"`
	StaleAfter string  `yaml:"stale_after"`
}

// PersistenceConfig selects and locates the snapshot backend.
type PersistenceConfig struct {
	Backend      string `yaml:"backend"` // "json" or "sqlite"
	DataDir      string `yaml:"data_dir"`
	SaveInterval string `yaml:"save_interval"`
}

// SchedulerConfig controls periodic maintenance cadence.
type SchedulerConfig struct {
	DecayInterval string `yaml:"decay_interval"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Context: ContextConfig{
			MaxBytes: 200 * 1024,
			MaxItems: 1000,
		},
		Memory: MemoryConfig{
			DecayDays:  30,
			PurgeFloor: 0.1,
			StaleAfter: "720h",
		},
		Persistence: PersistenceConfig{
			Backend:      "json",
			SaveInterval: "5m",
		},
		Scheduler: SchedulerConfig{
			DecayInterval: "1h",
		},
	}
}

// ParseInterval parses a duration string, falling back when empty or
// malformed.
func ParseInterval(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Manager owns the active configuration and notifies watchers on reload.
type Manager struct {
	current   atomic.Pointer[Config]
	dirs      *storage.Dirs
	logger    *slog.Logger
	watcherMu sync.RWMutex
	watchers  []func(*Config)
}

// NewManager creates a manager seeded with defaults.
func NewManager(dirs *storage.Dirs, logger *slog.Logger) *Manager {
	if dirs == nil {
		dirs = storage.ResolveDirs()
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{dirs: dirs, logger: logger}
	m.current.Store(DefaultConfig())
	return m
}

// Get returns the active configuration.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Load overlays the user config, project config, and environment onto the
// defaults, then swaps the active configuration and notifies watchers.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := m.loadUserConfig(cfg); err != nil {
		return fmt.Errorf("user config: %w", err)
	}
	if err := m.loadProjectConfig(cfg); err != nil {
		return fmt.Errorf("project config: %w", err)
	}
	m.applyEnvironment(cfg)

	m.current.Store(cfg)
	m.notifyWatchers(cfg)
	return nil
}

func (m *Manager) loadUserConfig(cfg *Config) error {
	return loadYAMLFile(m.userConfigPath(), cfg)
}

func (m *Manager) loadProjectConfig(cfg *Config) error {
	return loadYAMLFile(storage.ResolveProjectDirs(".").Config, cfg)
}

func (m *Manager) userConfigPath() string {
	return filepath.Join(m.dirs.Config, "config.yaml")
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) applyEnvironment(cfg *Config) {
	if dir := os.Getenv("REMEMBRANCE_DATA_DIR"); dir != "" {
		cfg.Persistence.DataDir = dir
	}
	if backend := os.Getenv("REMEMBRANCE_BACKEND"); backend != "" {
		cfg.Persistence.Backend = backend
	}
}

// OnReload registers a callback invoked whenever the configuration is
// reloaded.
func (m *Manager) OnReload(fn func(*Config)) {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()
	m.watchers = append(m.watchers, fn)
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	defer m.watcherMu.RUnlock()
	for _, fn := range m.watchers {
		fn(cfg)
	}
}

package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/adalundhe/remembrance/core/config"
	"github.com/adalundhe/remembrance/core/memory"
	"github.com/adalundhe/remembrance/core/storage"
)

// service bundles the memory store with its persistence gateway for the
// duration of one CLI invocation.
type service struct {
	store   *memory.Store
	gateway storage.Gateway
	cfg     *config.Config
	logger  *slog.Logger
}

// openEnv loads configuration and opens the snapshot gateway.
func openEnv() (*config.Manager, storage.Gateway, *slog.Logger, error) {
	logger := slog.Default()
	dirs := storage.ResolveDirs()

	manager := config.NewManager(dirs, logger)
	if err := manager.Load(); err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	gateway, err := openGateway(manager.Get(), dirs, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	return manager, gateway, logger, nil
}

// openService loads configuration, opens the snapshot gateway, and
// restores the memory store from the last snapshot.
func openService() (*service, error) {
	manager, gateway, logger, err := openEnv()
	if err != nil {
		return nil, err
	}
	cfg := manager.Get()

	snapshot, err := gateway.Load()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	store := memory.NewStore(memory.StoreConfig{
		Logger:     logger,
		DecayDays:  cfg.Memory.DecayDays,
		PurgeFloor: cfg.Memory.PurgeFloor,
		StaleAfter: config.ParseInterval(cfg.Memory.StaleAfter, memory.DefaultStaleAfter),
	})
	store.Restore(snapshot)

	return &service{store: store, gateway: gateway, cfg: cfg, logger: logger}, nil
}

func openGateway(cfg *config.Config, dirs *storage.Dirs, logger *slog.Logger) (storage.Gateway, error) {
	dataDir := resolveDataDir(cfg, dirs)
	backend := resolveBackend(cfg)

	switch backend {
	case "sqlite":
		return storage.NewSQLiteGateway(filepath.Join(dataDir, "memories.db"), logger)
	case "json":
		return storage.NewJSONGateway(filepath.Join(dataDir, "memories.json"), logger)
	default:
		return nil, fmt.Errorf("unknown backend %q (want json or sqlite)", backend)
	}
}

func resolveDataDir(cfg *config.Config, dirs *storage.Dirs) string {
	if flagDataDir != "" {
		return flagDataDir
	}
	if cfg.Persistence.DataDir != "" {
		return cfg.Persistence.DataDir
	}
	return dirs.Data
}

func resolveBackend(cfg *config.Config) string {
	if flagBackend != "" {
		return flagBackend
	}
	return cfg.Persistence.Backend
}

// save persists the current store state back through the gateway.
func (s *service) save() error {
	if err := s.gateway.Save(s.store.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Package service wires the context store, memory store, scheduler, and
// persistence gateway into one explicitly constructed long-lived object.
// The application root owns the instance; nothing here is process-global.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adalundhe/remembrance/core/clock"
	"github.com/adalundhe/remembrance/core/config"
	wm "github.com/adalundhe/remembrance/core/context"
	"github.com/adalundhe/remembrance/core/memory"
	"github.com/adalundhe/remembrance/core/scheduler"
	"github.com/adalundhe/remembrance/core/storage"
)

// Options configures the assembled service.
type Options struct {
	Config  *config.Config
	Gateway storage.Gateway
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Service is the assembled working-memory engine: a bounded context store
// for short-term material, a decaying memory store layered on top, and a
// scheduler that periodically decays and persists the memories.
type Service struct {
	Context *wm.Store
	Memory  *memory.Store

	gateway   storage.Gateway
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// New assembles a service and restores memory state from the gateway.
func New(opts Options) (*Service, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctxStore := wm.NewStore(wm.StoreConfig{
		MaxBytes: cfg.Context.MaxBytes,
		MaxItems: cfg.Context.MaxItems,
		Clock:    opts.Clock,
		Logger:   logger,
	})

	memStore := memory.NewStore(memory.StoreConfig{
		Clock:      opts.Clock,
		Logger:     logger,
		DecayDays:  cfg.Memory.DecayDays,
		PurgeFloor: cfg.Memory.PurgeFloor,
		StaleAfter: config.ParseInterval(cfg.Memory.StaleAfter, memory.DefaultStaleAfter),
		Context:    ctxStore,
	})

	svc := &Service{
		Context:   ctxStore,
		Memory:    memStore,
		gateway:   opts.Gateway,
		scheduler: scheduler.New(opts.Clock, logger),
		logger:    logger,
	}

	if err := svc.restore(); err != nil {
		return nil, err
	}
	if err := svc.registerTasks(cfg); err != nil {
		return nil, err
	}

	return svc, nil
}

func (s *Service) restore() error {
	if s.gateway == nil {
		return nil
	}

	snapshot, err := s.gateway.Load()
	if err != nil {
		return fmt.Errorf("restore memories: %w", err)
	}
	s.Memory.Restore(snapshot)
	return nil
}

func (s *Service) registerTasks(cfg *config.Config) error {
	decayInterval := config.ParseInterval(cfg.Scheduler.DecayInterval, time.Hour)
	saveInterval := config.ParseInterval(cfg.Persistence.SaveInterval, 5*time.Minute)

	if err := s.scheduler.Register(scheduler.Task{
		Name:     "decay-sweep",
		Interval: decayInterval,
		Run: func(time.Time) error {
			s.Memory.ForgetOldMemories()
			return nil
		},
	}); err != nil {
		return err
	}

	return s.scheduler.Register(scheduler.Task{
		Name:     "snapshot-save",
		Interval: saveInterval,
		Run: func(time.Time) error {
			return s.Save()
		},
	})
}

// Save snapshots the memory store under a brief lock and writes it through
// the gateway off the store's critical path.
func (s *Service) Save() error {
	if s.gateway == nil {
		return nil
	}
	return s.gateway.Save(s.Memory.Snapshot())
}

// Run drives the periodic scheduler until ctx is cancelled, then takes a
// final snapshot.
func (s *Service) Run(ctx context.Context) error {
	err := s.scheduler.Start(ctx, scheduler.DefaultResolution)

	if saveErr := s.Save(); saveErr != nil {
		s.logger.Warn("final snapshot failed", "error", saveErr)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Tick exposes the scheduler's tick for harnesses driving time manually.
func (s *Service) Tick(now time.Time) {
	s.scheduler.Tick(now)
}

// Close releases store resources.
func (s *Service) Close() {
	s.Context.Close()
}

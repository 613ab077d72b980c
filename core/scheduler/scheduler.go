// Package scheduler runs periodic maintenance tasks (decay sweeps,
// snapshot saves) on a tick-driven loop. Ticks can come from a real timer
// in production or be invoked directly with a fake clock in tests.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adalundhe/remembrance/core/clock"
)

var (
	// ErrInvalidInterval indicates a task interval is not positive.
	ErrInvalidInterval = errors.New("task interval must be positive")

	// ErrNilTask indicates a task has no run function.
	ErrNilTask = errors.New("task run function cannot be nil")

	// ErrAlreadyRunning indicates the scheduler loop is already started.
	ErrAlreadyRunning = errors.New("scheduler is already running")
)

// DefaultResolution is the timer granularity of the production loop.
const DefaultResolution = time.Second

// Task is a named periodic job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(now time.Time) error
}

type taskState struct {
	task    Task
	lastRun time.Time
}

// Scheduler drives registered tasks from Tick calls. Tasks run
// sequentially within a tick, so periodic jobs never overlap each other.
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []*taskState
	running atomic.Bool
}

// New creates a scheduler. A nil clock defaults to the system clock.
func New(clk clock.Clock, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		clock:  clock.OrSystem(clk),
		logger: logger,
	}
}

// Register adds a periodic task. The task first runs one full interval
// after registration.
func (s *Scheduler) Register(task Task) error {
	if task.Interval <= 0 {
		return ErrInvalidInterval
	}
	if task.Run == nil {
		return ErrNilTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &taskState{task: task, lastRun: s.clock.Now()})
	return nil
}

// Tick runs every task whose interval has elapsed at the given instant.
// Task failures are logged and isolated; one failing task never stops the
// others.
func (s *Scheduler) Tick(now time.Time) {
	for _, state := range s.dueTasks(now) {
		s.runTask(state, now)
	}
}

func (s *Scheduler) dueTasks(now time.Time) []*taskState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*taskState
	for _, state := range s.tasks {
		if now.Sub(state.lastRun) >= state.task.Interval {
			state.lastRun = now
			due = append(due, state)
		}
	}
	return due
}

func (s *Scheduler) runTask(state *taskState, now time.Time) {
	if err := state.task.Run(now); err != nil {
		s.logger.Warn("scheduled task failed", "task", state.task.Name, "error", err)
		return
	}
	s.logger.Debug("scheduled task ran", "task", state.task.Name)
}

// Start drives Tick from a real timer until ctx is cancelled. Resolution
// bounds how late a task can fire after its interval elapses; zero uses
// DefaultResolution.
func (s *Scheduler) Start(ctx context.Context, resolution time.Duration) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	if resolution <= 0 {
		resolution = DefaultResolution
	}

	ticker := time.NewTicker(resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(s.clock.Now())
		}
	}
}

// IsRunning reports whether the production loop is active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

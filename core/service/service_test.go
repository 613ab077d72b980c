package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/remembrance/core/clock"
	"github.com/adalundhe/remembrance/core/memory"
	"github.com/adalundhe/remembrance/core/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newJSONGateway(t *testing.T) *storage.JSONGateway {
	t.Helper()
	gateway, err := storage.NewJSONGateway(filepath.Join(t.TempDir(), "memories.json"), discardLogger())
	require.NoError(t, err)
	return gateway
}

func TestNew_RestoresFromGateway(t *testing.T) {
	gateway := newJSONGateway(t)

	snapshot := memory.EmptySnapshot()
	snapshot.Memories["mem-1"] = &memory.Item{
		ID:           "mem-1",
		Type:         memory.ItemTypeSolution,
		Content:      "pin dependency versions",
		Strength:     0.7,
		LastAccessed: time.Now(),
		AccessCount:  3,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, gateway.Save(snapshot))

	svc, err := New(Options{Gateway: gateway, Logger: discardLogger()})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	item, ok := svc.Memory.GetMemory("mem-1")
	require.True(t, ok)
	assert.Equal(t, "pin dependency versions", item.Content)
	assert.Equal(t, 1, svc.Context.Len(), "restored memories are mirrored")
}

func TestNew_NoGateway(t *testing.T) {
	svc, err := New(Options{Logger: discardLogger()})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	assert.NoError(t, svc.Save(), "saving without a gateway is a no-op")
}

func TestSave_PersistsThroughGateway(t *testing.T) {
	gateway := newJSONGateway(t)
	svc, err := New(Options{Gateway: gateway, Logger: discardLogger()})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	id := svc.Memory.AddMemory(memory.ItemTypeSolution, "squash before merge", nil, 0.8)
	require.NoError(t, svc.Save())

	restored, err := gateway.Load()
	require.NoError(t, err)
	assert.Contains(t, restored.Memories, id)
}

func TestTick_DecaySweepAndSnapshotSave(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	gateway := newJSONGateway(t)

	svc, err := New(Options{Gateway: gateway, Clock: clk, Logger: discardLogger()})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	id := svc.Memory.AddMemory(memory.ItemTypeSolution, "x", nil, 1.0)

	// Both the hourly decay sweep and the five-minute save are due after a
	// day without ticks.
	clk.Advance(24 * time.Hour)
	svc.Tick(clk.Now())

	item, ok := svc.Memory.GetMemory(id)
	require.True(t, ok)
	assert.Less(t, item.Strength, 1.0, "decay sweep ran")

	restored, err := gateway.Load()
	require.NoError(t, err)
	assert.Contains(t, restored.Memories, id, "snapshot save ran")
}

func TestRun_FinalSaveOnCancel(t *testing.T) {
	gateway := newJSONGateway(t)
	svc, err := New(Options{Gateway: gateway, Logger: discardLogger()})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	id := svc.Memory.AddMemory(memory.ItemTypeSolution, "y", nil, 0.5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	cancel()
	assert.NoError(t, <-done, "cancellation is a clean shutdown")

	restored, err := gateway.Load()
	require.NoError(t, err)
	assert.Contains(t, restored.Memories, id, "shutdown takes a final snapshot")
}

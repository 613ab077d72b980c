package memory

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/remembrance/core/clock"
)

func newTestMemoryStore(t *testing.T, clk clock.Clock) *Store {
	t.Helper()
	store := NewStore(StoreConfig{Clock: clk})
	t.Cleanup(store.ContextStore().Close)
	return store
}

// boostAccess raises a memory's access count without altering strength, so
// the memory can clear the retrieval score floor.
func boostAccess(t *testing.T, store *Store, id string, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		require.True(t, store.ReinforceMemory(id, 0))
	}
}

func TestAddMemory_ClampsStrengthAndDerivesTags(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	id := store.AddMemory(ItemTypeCodePattern, "Prefer table driven tests",
		map[string]string{"language": "go"}, 1.5)

	item, ok := store.GetMemory(id)
	require.True(t, ok)
	assert.Equal(t, 1.0, item.Strength)
	assert.Equal(t, 1, item.AccessCount)
	assert.Equal(t, []string{"go", "prefer", "table", "driven", "tests"}, item.Tags)

	weakID := store.AddMemory(ItemTypeSolution, "x", nil, -0.2)
	weak, ok := store.GetMemory(weakID)
	require.True(t, ok)
	assert.Zero(t, weak.Strength)
}

func TestAddMemory_MirrorsIntoContextStore(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	store.AddMemory(ItemTypeSolution, "cache invalidation via generations", nil, 0.9)

	assert.Equal(t, 1, store.ContextStore().Len())
}

func TestRetrieveMemories_FreshMemoryBelowFloor(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	// A single access gives log(2)/10 of frequency weight, which keeps even
	// a full topical match under the score floor.
	store.AddMemory(ItemTypeSolution, "remember the deployment checklist", nil, 1.0)

	assert.Empty(t, store.RetrieveMemories("deployment", "", 0))
}

func TestRetrieveMemories_RankedByCompositeScore(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	strongID := store.AddMemory(ItemTypeSolution, "postgres connection pooling guidance", nil, 1.0)
	weakID := store.AddMemory(ItemTypeSolution, "postgres migrations are risky", nil, 0.6)
	boostAccess(t, store, strongID, 9)
	boostAccess(t, store, weakID, 9)

	results := store.RetrieveMemories("postgres", "", 0)

	require.Len(t, results, 2)
	assert.Equal(t, strongID, results[0].ID)
	assert.Equal(t, weakID, results[1].ID)
}

func TestRetrieveMemories_TypeFilterAndMaxResults(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	prefID := store.AddMemory(ItemTypeUserPreference, "user prefers tabs", nil, 1.0)
	solID := store.AddMemory(ItemTypeSolution, "user escalation playbook", nil, 1.0)
	boostAccess(t, store, prefID, 9)
	boostAccess(t, store, solID, 9)

	results := store.RetrieveMemories("user", ItemTypeSolution, 0)
	require.Len(t, results, 1)
	assert.Equal(t, solID, results[0].ID)

	assert.Len(t, store.RetrieveMemories("user", "", 1), 1)
}

func TestRetrieveMemories_BumpsAccessNotStrength(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	store := newTestMemoryStore(t, clk)

	id := store.AddMemory(ItemTypeSolution, "flaky test quarantine steps", nil, 1.0)
	boostAccess(t, store, id, 9)

	clk.Advance(time.Hour)
	results := store.RetrieveMemories("quarantine", "", 0)
	require.Len(t, results, 1)

	item, ok := store.GetMemory(id)
	require.True(t, ok)
	assert.Equal(t, 11, item.AccessCount)
	assert.Equal(t, clk.Now(), item.LastAccessed)
	assert.Equal(t, 1.0, item.Strength, "retrieval never alters strength")
}

func TestLearnUserPreference_NudgesEffectiveness(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	store.LearnUserPreference("add-tests", "refactoring", true)
	store.LearnUserPreference("add-tests", "refactoring", true)

	pattern, ok := store.GetPattern("add-tests:refactoring")
	require.True(t, ok)
	assert.InDelta(t, 0.2, pattern.Effectiveness, 1e-9)
	assert.Equal(t, 2, pattern.Frequency)
	assert.Equal(t, []string{"refactoring"}, pattern.Contexts)

	store.LearnUserPreference("add-tests", "refactoring", false)
	pattern, _ = store.GetPattern("add-tests:refactoring")
	assert.InDelta(t, 0.1, pattern.Effectiveness, 1e-9)
}

func TestLearnUserPreference_NegativeClampsAtZero(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	store.LearnUserPreference("rewrite-all", "cleanup", false)

	pattern, ok := store.GetPattern("rewrite-all:cleanup")
	require.True(t, ok)
	assert.Zero(t, pattern.Effectiveness)

	memories := store.GetMemoryStats()
	assert.Equal(t, 1, memories.CountsByType[ItemTypeUserPreference])
}

func TestLearnCodePattern_AveragesEffectiveness(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	store.LearnCodePattern("builder", "go", 0.8)

	pattern, ok := store.GetPattern("go:builder")
	require.True(t, ok)
	assert.InDelta(t, 0.8, pattern.Effectiveness, 1e-9, "first sighting takes the measurement as-is")

	store.LearnCodePattern("builder", "go", 0.4)
	pattern, _ = store.GetPattern("go:builder")
	assert.InDelta(t, 0.6, pattern.Effectiveness, 1e-9, "later sightings average")
	assert.Equal(t, 2, pattern.Frequency)
	assert.Equal(t, []string{"go"}, pattern.Contexts)
}

func TestReinforceMemory(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	id := store.AddMemory(ItemTypeSolution, "x", nil, 0.9)
	require.True(t, store.ReinforceMemory(id, 0.5))

	item, _ := store.GetMemory(id)
	assert.Equal(t, 1.0, item.Strength, "strength caps at 1")
	assert.Equal(t, 2, item.AccessCount)

	assert.False(t, store.ReinforceMemory("no-such-id", 0.1))
}

func TestForgetOldMemories_DecayIsMonotonic(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	store := newTestMemoryStore(t, clk)

	id := store.AddMemory(ItemTypeSolution, "x", nil, 1.0)

	clk.Advance(24 * time.Hour)
	assert.Zero(t, store.ForgetOldMemories())
	item, _ := store.GetMemory(id)
	assert.InDelta(t, math.Exp(-1.0/30), item.Strength, 1e-9)

	clk.Advance(24 * time.Hour)
	store.ForgetOldMemories()
	item, _ = store.GetMemory(id)
	assert.InDelta(t, math.Exp(-3.0/30), item.Strength, 1e-9,
		"idle time keeps growing while the memory goes untouched")
}

func TestForgetOldMemories_WeakButFreshSurvives(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	id := store.AddMemory(ItemTypeSolution, "x", nil, 0.05)

	assert.Zero(t, store.ForgetOldMemories())
	_, ok := store.GetMemory(id)
	assert.True(t, ok, "below the floor but not stale")
}

func TestForgetOldMemories_StaleButStrongSurvives(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	store := newTestMemoryStore(t, clk)

	id := store.AddMemory(ItemTypeSolution, "x", nil, 1.0)
	clk.Advance(35 * 24 * time.Hour)

	assert.Zero(t, store.ForgetOldMemories())
	item, ok := store.GetMemory(id)
	require.True(t, ok, "a single sweep after 35 days leaves exp(-35/30)")
	assert.InDelta(t, math.Exp(-35.0/30), item.Strength, 1e-9)
}

func TestForgetOldMemories_PurgesWeakStaleAndMirror(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	store := newTestMemoryStore(t, clk)

	id := store.AddMemory(ItemTypeSolution, "x", nil, 1.0)
	require.Equal(t, 1, store.ContextStore().Len())

	purged := 0
	for day := 0; day < 35; day++ {
		clk.Advance(24 * time.Hour)
		purged += store.ForgetOldMemories()
	}

	assert.Equal(t, 1, purged)
	_, ok := store.GetMemory(id)
	assert.False(t, ok)
	assert.Equal(t, 0, store.ContextStore().Len(), "mirror removed with the memory")
}

func TestGetMemoryStats(t *testing.T) {
	store := newTestMemoryStore(t, nil)

	empty := store.GetMemoryStats()
	assert.Zero(t, empty.TotalMemories)
	assert.Zero(t, empty.AverageStrength)

	store.AddMemory(ItemTypeUserPreference, "a", nil, 0.4)
	store.AddMemory(ItemTypeUserPreference, "b", nil, 0.8)
	store.AddMemory(ItemTypeSolution, "c", nil, 0.6)
	store.LearnCodePattern("observer", "go", 0.5)

	stats := store.GetMemoryStats()
	assert.Equal(t, 4, stats.TotalMemories)
	assert.Equal(t, 2, stats.CountsByType[ItemTypeUserPreference])
	assert.Equal(t, 1, stats.CountsByType[ItemTypeSolution])
	assert.Equal(t, 1, stats.CountsByType[ItemTypeCodePattern])
	assert.Equal(t, 1, stats.TotalPatterns)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	source := newTestMemoryStore(t, clk)

	id := source.AddMemory(ItemTypeSolution, "use context cancellation", map[string]string{"area": "concurrency"}, 0.7)
	source.LearnCodePattern("worker-pool", "go", 0.9)

	snapshot := source.Snapshot()
	assert.Equal(t, clk.Now(), snapshot.LastSaved)

	restored := newTestMemoryStore(t, clk)
	restored.Restore(snapshot)

	item, ok := restored.GetMemory(id)
	require.True(t, ok)
	assert.Equal(t, "use context cancellation", item.Content)
	assert.InDelta(t, 0.7, item.Strength, 1e-9)
	assert.Equal(t, "concurrency", item.Metadata["area"])

	pattern, ok := restored.GetPattern("go:worker-pool")
	require.True(t, ok)
	assert.InDelta(t, 0.9, pattern.Effectiveness, 1e-9)

	assert.Equal(t, 2, restored.ContextStore().Len(), "restore re-mirrors every memory")
}

func TestRestore_NilResetsToEmpty(t *testing.T) {
	store := newTestMemoryStore(t, nil)
	store.AddMemory(ItemTypeSolution, "x", nil, 0.5)

	store.Restore(nil)

	assert.Zero(t, store.GetMemoryStats().TotalMemories)
}

func TestSnapshot_IsolatedFromLiveStore(t *testing.T) {
	store := newTestMemoryStore(t, nil)
	id := store.AddMemory(ItemTypeSolution, "x", nil, 0.5)

	snapshot := store.Snapshot()
	snapshot.Memories[id].Strength = 0

	item, _ := store.GetMemory(id)
	assert.InDelta(t, 0.5, item.Strength, 1e-9)
}

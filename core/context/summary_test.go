package context

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/remembrance/core/clock"
)

func TestSummarize_Empty(t *testing.T) {
	store := newTestStore(t, 0, 0, nil)

	summary := store.Summarize()

	assert.Equal(t, 0, summary.TotalItems)
	assert.Equal(t, 0, summary.TotalSize)
	assert.Zero(t, summary.MeanRelevance)
	assert.Empty(t, summary.RecentActivity)
	assert.Empty(t, summary.TopSymbols)
}

func TestSummarize_TotalsAndDistribution(t *testing.T) {
	store := newTestStore(t, 0, 0, nil)
	store.Add(ItemTypeFile, "aaaa", nil)
	store.Add(ItemTypeFile, "bbbb", nil)
	store.Add(ItemTypeError, "cc", nil)

	summary := store.Summarize()

	assert.Equal(t, 3, summary.TotalItems)
	assert.Equal(t, 10, summary.TotalSize)
	assert.Equal(t, 2, summary.TypeDistribution[ItemTypeFile])
	assert.Equal(t, 1, summary.TypeDistribution[ItemTypeError])
}

func TestSummarize_RelevanceBuckets(t *testing.T) {
	store := newTestStore(t, 0, 0, nil)
	store.Add(ItemTypeFile, "low", nil)
	store.Add(ItemTypeFile, "medium", &Metadata{Priority: PriorityMedium})
	store.Add(ItemTypeFile, "high", &Metadata{Priority: PriorityCritical})

	summary := store.Summarize()

	assert.Equal(t, 1, summary.Relevance.High, "0.8 lands in the high bucket")
	assert.Equal(t, 2, summary.Relevance.Medium, "0.5 and 0.6 land in the medium bucket")
	assert.Equal(t, 0, summary.Relevance.Low)
	assert.InDelta(t, (0.5+0.6+0.8)/3, summary.MeanRelevance, 1e-9)
}

func TestSummarize_RecentActivityCappedAtTen(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	store := newTestStore(t, 0, 0, clk)

	var lastID string
	for i := 0; i < 15; i++ {
		lastID = store.Add(ItemTypeConversation, fmt.Sprintf("turn %d", i), nil)
		clk.Advance(time.Minute)
	}

	summary := store.Summarize()

	require.Len(t, summary.RecentActivity, 10)
	assert.Equal(t, lastID, summary.RecentActivity[0].ID, "newest first")
}

func TestSummarize_TopSymbolsByFrequency(t *testing.T) {
	store := newTestStore(t, 0, 0, nil)
	store.Add(ItemTypeSymbol, "a", &Metadata{RelatedSymbols: []string{"Parse", "Lex"}})
	store.Add(ItemTypeSymbol, "b", &Metadata{RelatedSymbols: []string{"Parse"}})
	store.Add(ItemTypeSymbol, "c", &Metadata{RelatedSymbols: []string{"Parse", "Eval"}})

	summary := store.Summarize()

	require.NotEmpty(t, summary.TopSymbols)
	assert.Equal(t, "Parse", summary.TopSymbols[0].Symbol)
	assert.Equal(t, 3, summary.TopSymbols[0].Count)
}

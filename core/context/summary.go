package context

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Relevance bucket thresholds.
const (
	highRelevanceFloor   = 0.7
	mediumRelevanceFloor = 0.4

	recentActivityLimit = 10
	topSymbolsLimit     = 10
)

// RelevanceBuckets counts items by relevance band.
type RelevanceBuckets struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// ActivityEntry is a lightweight view of a recently inserted item.
type ActivityEntry struct {
	ID        string    `json:"id"`
	Type      ItemType  `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// SymbolCount pairs a symbol name with its frequency across items.
type SymbolCount struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// Summary describes the current state of the store.
type Summary struct {
	TotalItems       int              `json:"total_items"`
	TotalSize        int              `json:"total_size"`
	TypeDistribution map[ItemType]int `json:"type_distribution"`
	Relevance        RelevanceBuckets `json:"relevance"`
	MeanRelevance    float64          `json:"mean_relevance"`
	RecentActivity   []ActivityEntry  `json:"recent_activity"`
	TopSymbols       []SymbolCount    `json:"top_symbols"`
}

// Summarize computes summary statistics over the resident items.
func (s *Store) Summarize() *Summary {
	s.mu.RLock()
	items := s.snapshotLocked()
	totalSize := s.currentBytes
	s.mu.RUnlock()

	summary := &Summary{
		TotalItems:       len(items),
		TotalSize:        totalSize,
		TypeDistribution: typeDistribution(items),
		Relevance:        relevanceBuckets(items),
		MeanRelevance:    meanRelevance(items),
		RecentActivity:   recentActivity(items),
		TopSymbols:       topSymbols(items),
	}

	return summary
}

func typeDistribution(items []*Item) map[ItemType]int {
	dist := make(map[ItemType]int)
	for _, item := range items {
		dist[item.Type]++
	}
	return dist
}

func relevanceBuckets(items []*Item) RelevanceBuckets {
	var buckets RelevanceBuckets
	for _, item := range items {
		switch {
		case item.RelevanceScore >= highRelevanceFloor:
			buckets.High++
		case item.RelevanceScore >= mediumRelevanceFloor:
			buckets.Medium++
		default:
			buckets.Low++
		}
	}
	return buckets
}

func meanRelevance(items []*Item) float64 {
	if len(items) == 0 {
		return 0
	}

	scores := make([]float64, len(items))
	for i, item := range items {
		scores[i] = item.RelevanceScore
	}
	return stat.Mean(scores, nil)
}

func recentActivity(items []*Item) []ActivityEntry {
	sorted := make([]*Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if len(sorted) > recentActivityLimit {
		sorted = sorted[:recentActivityLimit]
	}

	entries := make([]ActivityEntry, len(sorted))
	for i, item := range sorted {
		entries[i] = ActivityEntry{ID: item.ID, Type: item.Type, Timestamp: item.Timestamp}
	}
	return entries
}

func topSymbols(items []*Item) []SymbolCount {
	counts := make(map[string]int)
	for _, item := range items {
		for _, symbol := range item.symbolNames() {
			counts[symbol]++
		}
	}

	if len(counts) == 0 {
		return nil
	}

	ranked := make([]SymbolCount, 0, len(counts))
	for symbol, count := range counts {
		ranked = append(ranked, SymbolCount{Symbol: symbol, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	if len(ranked) > topSymbolsLimit {
		ranked = ranked[:topSymbolsLimit]
	}
	return ranked
}

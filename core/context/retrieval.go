package context

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// Filter narrows a context query. Zero values mean "no constraint".
type Filter struct {
	Types        []ItemType
	Since        time.Time
	Until        time.Time
	MinRelevance float64
	Text         string
	PathGlob     string
	MaxResults   int
}

// Query returns items matching the filter, sorted by relevance descending.
// When the filter carries free text, ranking uses the query-time score;
// otherwise the stored insert-time score. Results are copies.
func (s *Store) Query(filter Filter) []*Item {
	pathMatcher := compilePathGlob(filter.PathGlob, s.logger)

	s.mu.RLock()
	candidates := s.snapshotLocked()
	s.mu.RUnlock()

	matched := s.filterItems(candidates, filter, pathMatcher)
	ranked := s.rankItems(matched, filter.Text)

	if filter.MaxResults > 0 && len(ranked) > filter.MaxResults {
		ranked = ranked[:filter.MaxResults]
	}

	return cloneItems(ranked)
}

// RetrieveForBudget scores every item against the query, sorts descending,
// and greedily accumulates items while the running size stays within the
// budget, stopping at the first item that would overflow. Greedy by
// construction: O(n log n), no backtracking. The summed size of the result
// never exceeds the budget. Results are copies served through a short-TTL
// cache invalidated on any store mutation.
func (s *Store) RetrieveForBudget(query string, budget int) []*Item {
	if budget <= 0 {
		return nil
	}

	s.mu.RLock()
	generation := s.generation
	candidates := s.snapshotLocked()
	cache := s.retrievalCache
	s.mu.RUnlock()

	key := retrievalCacheKey(generation, budget, query)
	if cached := lookupRetrievalCache(cache, key); cached != nil {
		return cached
	}

	ranked := s.rankItems(candidates, query)
	selected := selectWithinBudget(ranked, budget)
	result := cloneItems(selected)

	storeRetrievalCache(cache, key, result)
	return result
}

func (s *Store) filterItems(items []*Item, filter Filter, pathMatcher glob.Glob) []*Item {
	var matched []*Item
	for _, item := range items {
		if s.itemMatches(item, filter, pathMatcher) {
			matched = append(matched, item)
		}
	}
	return matched
}

func (s *Store) itemMatches(item *Item, filter Filter, pathMatcher glob.Glob) bool {
	if !matchesTypes(item, filter.Types) {
		return false
	}
	if !matchesTimeRange(item, filter.Since, filter.Until) {
		return false
	}
	if item.RelevanceScore < filter.MinRelevance {
		return false
	}
	if !matchesText(item, filter.Text) {
		return false
	}
	if !matchesPath(item, pathMatcher) {
		return false
	}
	return true
}

func matchesTypes(item *Item, types []ItemType) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if item.Type == t {
			return true
		}
	}
	return false
}

func matchesTimeRange(item *Item, since, until time.Time) bool {
	if !since.IsZero() && item.Timestamp.Before(since) {
		return false
	}
	if !until.IsZero() && item.Timestamp.After(until) {
		return false
	}
	return true
}

// matchesText matches free text against content, related symbol names, and
// tags, case-insensitively.
func matchesText(item *Item, text string) bool {
	if text == "" {
		return true
	}

	needle := strings.ToLower(text)
	if strings.Contains(strings.ToLower(item.Content), needle) {
		return true
	}
	return matchesAny(item.symbolNames(), needle) || matchesAny(item.tags(), needle)
}

func matchesPath(item *Item, matcher glob.Glob) bool {
	if matcher == nil {
		return true
	}
	if item.Metadata == nil || item.Metadata.SourceLocation == "" {
		return false
	}
	return matcher.Match(item.Metadata.SourceLocation)
}

func compilePathGlob(pattern string, logger *slog.Logger) glob.Glob {
	if pattern == "" {
		return nil
	}
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		logger.Warn("invalid path glob, ignoring", "pattern", pattern, "error", err)
		return nil
	}
	return matcher
}

type rankedItem struct {
	item  *Item
	score float64
}

// rankItems sorts items by query-scored relevance descending, breaking ties
// by recency.
func (s *Store) rankItems(items []*Item, query string) []*Item {
	ranked := make([]rankedItem, len(items))
	for i, item := range items {
		ranked[i] = rankedItem{item: item, score: s.scorer.ScoreForQuery(item, query)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].item.Timestamp.After(ranked[j].item.Timestamp)
	})

	result := make([]*Item, len(ranked))
	for i, r := range ranked {
		result[i] = r.item
	}
	return result
}

func selectWithinBudget(ranked []*Item, budget int) []*Item {
	var selected []*Item
	var used int

	for _, item := range ranked {
		if used+item.Size > budget {
			break
		}
		selected = append(selected, item)
		used += item.Size
	}

	return selected
}

func cloneItems(items []*Item) []*Item {
	if items == nil {
		return nil
	}
	cloned := make([]*Item, len(items))
	for i, item := range items {
		cloned[i] = item.Clone()
	}
	return cloned
}

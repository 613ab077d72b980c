package context

import (
	"strings"
)

// Score bounds and bonus weights for the heuristic relevance model.
const (
	baseInsertScore = 0.5

	symbolBonusPerRef = 0.05
	symbolBonusCap    = 0.2

	sweetSpotBonus  = 0.1
	sweetSpotMinLen = 100
	sweetSpotMaxLen = 5000

	queryContentBonus = 0.3
	querySymbolBonus  = 0.2
	queryTagBonus     = 0.1
)

// Scorer computes bounded [0,1] relevance scores. Pure and stateless:
// identical inputs always produce identical scores.
type Scorer struct{}

// NewScorer creates a relevance scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// ScoreOnInsert computes the intrinsic relevance of content at insertion
// time from its priority, symbol associations, and length.
func (s *Scorer) ScoreOnInsert(content string, md *Metadata) float64 {
	score := baseInsertScore

	if md != nil {
		score += md.Priority.Bonus()
		score += symbolCountBonus(len(md.RelatedSymbols))
	}

	if isSweetSpotLength(content) {
		score += sweetSpotBonus
	}

	return clamp01(score)
}

// ScoreForQuery layers topical match bonuses on top of an item's stored
// relevance. An empty query returns the stored score unchanged.
func (s *Scorer) ScoreForQuery(item *Item, query string) float64 {
	if item == nil {
		return 0
	}

	score := item.RelevanceScore
	if query == "" {
		return clamp01(score)
	}

	needle := strings.ToLower(query)

	if strings.Contains(strings.ToLower(item.Content), needle) {
		score += queryContentBonus
	}
	if matchesAny(item.symbolNames(), needle) {
		score += querySymbolBonus
	}
	if matchesAny(item.tags(), needle) {
		score += queryTagBonus
	}

	return clamp01(score)
}

func (it *Item) symbolNames() []string {
	if it.Metadata == nil {
		return nil
	}
	return it.Metadata.RelatedSymbols
}

func (it *Item) tags() []string {
	if it.Metadata == nil {
		return nil
	}
	return it.Metadata.Tags
}

func symbolCountBonus(count int) float64 {
	bonus := float64(count) * symbolBonusPerRef
	if bonus > symbolBonusCap {
		return symbolBonusCap
	}
	return bonus
}

func isSweetSpotLength(content string) bool {
	return len(content) >= sweetSpotMinLen && len(content) <= sweetSpotMaxLen
}

func matchesAny(values []string, lowerNeedle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), lowerNeedle) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

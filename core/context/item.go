// Package context provides the bounded working-memory store for the
// assistant: relevance-scored context items, priority-aware eviction,
// filtered queries, and token-budgeted retrieval.
package context

import (
	"time"
)

// ItemType classifies the origin of a context item.
type ItemType string

const (
	ItemTypeFile         ItemType = "file"
	ItemTypeSymbol       ItemType = "symbol"
	ItemTypeSelection    ItemType = "selection"
	ItemTypeWorkspace    ItemType = "workspace"
	ItemTypeConversation ItemType = "conversation"
	ItemTypeTask         ItemType = "task"
	ItemTypeError        ItemType = "error"
)

// Priority indicates how strongly an item resists eviction.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns the eviction ordering rank. Lower ranks evict first.
// Unknown or empty priorities coerce to the lowest rank.
func (p Priority) Rank() int {
	switch p {
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return 0
	}
}

// Bonus returns the relevance bonus contributed at insert time.
func (p Priority) Bonus() float64 {
	switch p {
	case PriorityMedium:
		return 0.1
	case PriorityHigh:
		return 0.2
	case PriorityCritical:
		return 0.3
	default:
		return 0
	}
}

// Metadata carries optional descriptive fields attached to a context item.
type Metadata struct {
	SourceLocation string   `json:"source_location,omitempty"`
	Language       string   `json:"language,omitempty"`
	RelatedSymbols []string `json:"related_symbols,omitempty"`
	Dependencies   []string `json:"dependencies,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	UserIntent     string   `json:"user_intent,omitempty"`
	Priority       Priority `json:"priority,omitempty"`
}

// Clone creates a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}

	clone := &Metadata{
		SourceLocation: m.SourceLocation,
		Language:       m.Language,
		UserIntent:     m.UserIntent,
		Priority:       m.Priority,
	}

	clone.RelatedSymbols = cloneStringSlice(m.RelatedSymbols)
	clone.Dependencies = cloneStringSlice(m.Dependencies)
	clone.Tags = cloneStringSlice(m.Tags)

	return clone
}

// Item is a single unit of working memory.
// Immutable after insertion except for relevance recomputed during queries,
// which never writes back to the stored copy.
type Item struct {
	ID             string    `json:"id"`
	Type           ItemType  `json:"type"`
	Content        string    `json:"content"`
	Metadata       *Metadata `json:"metadata,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`
	Timestamp      time.Time `json:"timestamp"`
	Size           int       `json:"size"`
	Tokens         int       `json:"tokens"`
}

// Clone creates a deep copy of the item.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}

	clone := *it
	clone.Metadata = it.Metadata.Clone()
	return &clone
}

// Priority returns the item's priority, defaulting to low when unset.
func (it *Item) Priority() Priority {
	if it.Metadata == nil {
		return PriorityLow
	}
	return it.Metadata.Priority
}

// EstimateTokens approximates the token count of content for downstream
// prompt accounting. Uses the ~4 bytes per token heuristic.
func EstimateTokens(content string) int {
	if content == "" {
		return 0
	}
	return (len(content) + 3) / 4
}

func cloneStringSlice(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

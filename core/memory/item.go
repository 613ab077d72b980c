// Package memory provides the long-term memory store: learned facts with
// decaying strength, reinforcement on access, and aggregated learning
// patterns. Memories mirror into a short-term context store so recent
// learnings participate in working-memory retrieval too.
package memory

import (
	"time"
)

// ItemType classifies a learned memory.
type ItemType string

const (
	ItemTypeUserPreference ItemType = "user_preference"
	ItemTypeCodePattern    ItemType = "code_pattern"
	ItemTypeConversation   ItemType = "conversation"
	ItemTypeSolution       ItemType = "solution"
	ItemTypeErrorPattern   ItemType = "error_pattern"
	ItemTypeWorkflow       ItemType = "workflow"
)

// Item is a long-lived learned fact. Strength decays between
// reinforcements and never exceeds [0,1].
type Item struct {
	ID           string            `json:"id"`
	Type         ItemType          `json:"type"`
	Content      string            `json:"content"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Strength     float64           `json:"strength"`
	LastAccessed time.Time         `json:"lastAccessed"`
	AccessCount  int               `json:"accessCount"`
	CreatedAt    time.Time         `json:"createdAt"`
	Tags         []string          `json:"tags,omitempty"`
}

// Clone creates a deep copy of the item.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}

	clone := *it
	clone.Metadata = cloneStringMap(it.Metadata)
	clone.Tags = cloneStringSlice(it.Tags)
	return &clone
}

// Pattern is an aggregated frequency/effectiveness record keyed by an
// action or code-pattern identifier plus its context. Patterns are never
// individually destroyed, only on full reset.
type Pattern struct {
	Key           string    `json:"key"`
	Frequency     int       `json:"frequency"`
	Contexts      []string  `json:"contexts,omitempty"`
	Effectiveness float64   `json:"effectiveness"`
	LastSeen      time.Time `json:"lastSeen"`
}

// Clone creates a deep copy of the pattern.
func (p *Pattern) Clone() *Pattern {
	if p == nil {
		return nil
	}

	clone := *p
	clone.Contexts = cloneStringSlice(p.Contexts)
	return &clone
}

// Snapshot is the serialized shape of a memory store, as persisted by the
// storage gateways. Timestamps serialize as ISO-8601.
type Snapshot struct {
	Memories  map[string]*Item    `json:"memories"`
	Patterns  map[string]*Pattern `json:"patterns"`
	LastSaved time.Time           `json:"lastSaved"`
}

// EmptySnapshot returns a snapshot with initialized maps.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Memories: make(map[string]*Item),
		Patterns: make(map[string]*Pattern),
	}
}

// Clone creates a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	clone := EmptySnapshot()
	clone.LastSaved = s.LastSaved
	for id, item := range s.Memories {
		clone.Memories[id] = item.Clone()
	}
	for key, pattern := range s.Patterns {
		clone.Patterns[key] = pattern.Clone()
	}
	return clone
}

func cloneStringSlice(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

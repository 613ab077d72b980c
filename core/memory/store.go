package memory

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/adalundhe/remembrance/core/clock"
	wm "github.com/adalundhe/remembrance/core/context"
)

// Decay and retrieval tuning. Strength halves on the order of the decay
// window; a memory is purged only when it is both weak and stale.
const (
	DefaultDecayDays  = 30.0
	DefaultPurgeFloor = 0.1
	DefaultStaleAfter = 30 * 24 * time.Hour

	DefaultMaxResults = 10

	retrievalScoreFloor = 0.1
	contentMatchWeight  = 0.5
	tagMatchWeight      = 0.3

	positiveStrength  = 0.8
	negativeStrength  = 0.3
	effectivenessStep = 0.1
)

// StoreConfig holds configuration for the memory store.
type StoreConfig struct {
	Clock      clock.Clock
	Logger     *slog.Logger
	DecayDays  float64
	PurgeFloor float64
	StaleAfter time.Duration

	// Context is the short-term store memories mirror into. A private
	// store is created when nil.
	Context *wm.Store
}

// Store is the long-term memory container. It owns strength decay,
// reinforcement, and pattern aggregation, and mirrors every memory into a
// context store so learned facts participate in short-term retrieval.
type Store struct {
	clock      clock.Clock
	logger     *slog.Logger
	decayDays  float64
	purgeFloor float64
	staleAfter time.Duration
	extractor  *keywordExtractor

	mu        sync.RWMutex
	items     map[string]*Item
	patterns  map[string]*Pattern
	ctx       *wm.Store
	mirrorIDs map[string]string
}

// NewStore creates a memory store with the given configuration.
func NewStore(cfg StoreConfig) *Store {
	return &Store{
		clock:      clock.OrSystem(cfg.Clock),
		logger:     normalizeLogger(cfg.Logger),
		decayDays:  normalizeDecayDays(cfg.DecayDays),
		purgeFloor: normalizePurgeFloor(cfg.PurgeFloor),
		staleAfter: normalizeStaleAfter(cfg.StaleAfter),
		extractor:  newKeywordExtractor(),
		items:      make(map[string]*Item),
		patterns:   make(map[string]*Pattern),
		ctx:        normalizeContext(cfg.Context, cfg.Clock, cfg.Logger),
		mirrorIDs:  make(map[string]string),
	}
}

func normalizeLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func normalizeDecayDays(v float64) float64 {
	if v <= 0 {
		return DefaultDecayDays
	}
	return v
}

func normalizePurgeFloor(v float64) float64 {
	if v <= 0 {
		return DefaultPurgeFloor
	}
	return v
}

func normalizeStaleAfter(v time.Duration) time.Duration {
	if v <= 0 {
		return DefaultStaleAfter
	}
	return v
}

func normalizeContext(ctx *wm.Store, clk clock.Clock, logger *slog.Logger) *wm.Store {
	if ctx != nil {
		return ctx
	}
	cfg := wm.DefaultStoreConfig()
	cfg.Clock = clk
	cfg.Logger = logger
	return wm.NewStore(cfg)
}

// ContextStore returns the short-term store memories mirror into.
func (s *Store) ContextStore() *wm.Store {
	return s.ctx
}

// AddMemory stores a learned fact. Strength is clamped to [0,1]; tags are
// derived from metadata values plus extracted content keywords. Returns
// the new memory's ID.
func (s *Store) AddMemory(itemType ItemType, content string, md map[string]string, strength float64) string {
	now := s.clock.Now()

	item := &Item{
		ID:           uuid.NewString(),
		Type:         itemType,
		Content:      content,
		Metadata:     cloneStringMap(md),
		Strength:     clamp01(strength),
		LastAccessed: now,
		AccessCount:  1,
		CreatedAt:    now,
		Tags:         s.deriveTags(content, md),
	}

	s.mu.Lock()
	s.items[item.ID] = item
	s.mu.Unlock()

	s.mirror(item)
	return item.ID
}

// deriveTags combines metadata values with up to five non-trivial content
// keywords.
func (s *Store) deriveTags(content string, md map[string]string) []string {
	seen := make(map[string]struct{})
	var tags []string

	appendTag := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, key := range sortedKeys(md) {
		appendTag(md[key])
	}
	for _, keyword := range s.extractor.Extract(content) {
		appendTag(keyword)
	}

	return tags
}

// mirror inserts the memory into the owned context store as a conversation
// item so it participates in short-term retrieval.
func (s *Store) mirror(item *Item) {
	ctxID := s.ctx.Add(wm.ItemTypeConversation, item.Content, &wm.Metadata{
		Tags:     append(cloneStringSlice(item.Tags), "memory:"+string(item.Type)),
		Priority: wm.PriorityMedium,
	})

	s.mu.Lock()
	s.mirrorIDs[item.ID] = ctxID
	s.mu.Unlock()
}

// RetrieveMemories returns up to maxResults memories relevant to the
// query, optionally filtered by type (empty matches all). Retrieval bumps
// access recency on every returned item but never alters strength.
func (s *Store) RetrieveMemories(query string, itemType ItemType, maxResults int) []*Item {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	scored := s.scoreCandidatesLocked(query, itemType, now)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	results := make([]*Item, len(scored))
	for i, sc := range scored {
		sc.item.LastAccessed = now
		sc.item.AccessCount++
		results[i] = sc.item.Clone()
	}
	return results
}

type scoredMemory struct {
	item  *Item
	score float64
}

func (s *Store) scoreCandidatesLocked(query string, itemType ItemType, now time.Time) []scoredMemory {
	var scored []scoredMemory
	for _, item := range s.items {
		if itemType != "" && item.Type != itemType {
			continue
		}
		score := s.compositeScore(item, query, now)
		if score > retrievalScoreFloor {
			scored = append(scored, scoredMemory{item: item, score: score})
		}
	}
	return scored
}

// compositeScore blends topical match, strength, access frequency, and
// recency decay into a single ranking value.
func (s *Store) compositeScore(item *Item, query string, now time.Time) float64 {
	match := 0.0
	needle := strings.ToLower(query)

	if needle != "" && strings.Contains(strings.ToLower(item.Content), needle) {
		match += contentMatchWeight
	}
	if tagOverlaps(item.Tags, needle) {
		match += tagMatchWeight
	}

	frequency := math.Log(float64(item.AccessCount)+1) / 10
	recency := s.decayFactor(now.Sub(item.LastAccessed))

	return match * item.Strength * frequency * recency
}

// tagOverlaps reports whether any tag overlaps the query in either
// direction (tag contained in query or query contained in tag).
func tagOverlaps(tags []string, lowerNeedle string) bool {
	if lowerNeedle == "" {
		return false
	}
	for _, tag := range tags {
		lowerTag := strings.ToLower(tag)
		if strings.Contains(lowerNeedle, lowerTag) || strings.Contains(lowerTag, lowerNeedle) {
			return true
		}
	}
	return false
}

// decayFactor returns exp(-daysIdle/decayDays), clamped to at most 1 so a
// clock running backwards can never increase strength.
func (s *Store) decayFactor(idle time.Duration) float64 {
	days := idle.Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Exp(-days / s.decayDays)
}

// LearnUserPreference records the outcome of an assistant action in a
// given context. Positive outcomes create strong memories and nudge the
// pattern's effectiveness up; negative outcomes do the reverse. The nudge
// is a reinforcement signal, deliberately different from the measurement
// averaging in LearnCodePattern.
func (s *Store) LearnUserPreference(action, context string, positive bool) {
	strength := negativeStrength
	outcome := "negative"
	if positive {
		strength = positiveStrength
		outcome = "positive"
	}

	content := fmt.Sprintf("User %s outcome for %q in context %q", outcome, action, context)
	s.AddMemory(ItemTypeUserPreference, content, map[string]string{
		"action":  action,
		"context": context,
		"outcome": outcome,
	}, strength)

	s.mu.Lock()
	defer s.mu.Unlock()

	pattern := s.patternLocked(action + ":" + context)
	if positive {
		pattern.Effectiveness = clamp01(pattern.Effectiveness + effectivenessStep)
	} else {
		pattern.Effectiveness = clamp01(pattern.Effectiveness - effectivenessStep)
	}
	s.touchPatternLocked(pattern, context)
}

// LearnCodePattern records an externally measured effectiveness for a code
// pattern in a language. Effectiveness averages with the prior value
// rather than nudging, since it is a measurement, not a signal.
func (s *Store) LearnCodePattern(pattern, language string, effectiveness float64) {
	effectiveness = clamp01(effectiveness)

	content := fmt.Sprintf("Code pattern in %s: %s", language, pattern)
	s.AddMemory(ItemTypeCodePattern, content, map[string]string{
		"pattern":  pattern,
		"language": language,
	}, effectiveness)

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.patternLocked(language + ":" + pattern)
	if p.Frequency == 0 {
		p.Effectiveness = effectiveness
	} else {
		p.Effectiveness = clamp01((p.Effectiveness + effectiveness) / 2)
	}
	s.touchPatternLocked(p, language)
}

func (s *Store) patternLocked(key string) *Pattern {
	if p, ok := s.patterns[key]; ok {
		return p
	}
	p := &Pattern{Key: key}
	s.patterns[key] = p
	return p
}

func (s *Store) touchPatternLocked(p *Pattern, context string) {
	p.Frequency++
	p.LastSeen = s.clock.Now()
	if context != "" && !containsString(p.Contexts, context) {
		p.Contexts = append(p.Contexts, context)
	}
}

// ReinforceMemory raises a memory's strength by amount, capped at 1, and
// bumps its access recency. Returns false for unknown IDs.
func (s *Store) ReinforceMemory(id string, amount float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return false
	}

	item.Strength = clamp01(item.Strength + amount)
	item.LastAccessed = s.clock.Now()
	item.AccessCount++
	return true
}

// ForgetOldMemories applies idle-time decay to every memory and purges
// those that are both below the strength floor and stale. Both conditions
// are required so a freshly created weak memory survives the sweep.
// Returns the number of purged memories.
func (s *Store) ForgetOldMemories() int {
	now := s.clock.Now()

	s.mu.Lock()
	var purged []string
	for id, item := range s.items {
		idle := now.Sub(item.LastAccessed)
		item.Strength = clamp01(item.Strength * s.decayFactor(idle))

		if item.Strength < s.purgeFloor && idle > s.staleAfter {
			purged = append(purged, id)
		}
	}

	mirrors := make([]string, 0, len(purged))
	for _, id := range purged {
		delete(s.items, id)
		if ctxID, ok := s.mirrorIDs[id]; ok {
			mirrors = append(mirrors, ctxID)
			delete(s.mirrorIDs, id)
		}
	}
	s.mu.Unlock()

	for _, ctxID := range mirrors {
		s.ctx.Remove(ctxID)
	}

	if len(purged) > 0 {
		s.logger.Info("forgot old memories", "purged", len(purged))
	}
	return len(purged)
}

// GetMemory returns a copy of the memory with the given ID.
func (s *Store) GetMemory(id string) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// GetPattern returns a copy of the learning pattern with the given key.
func (s *Store) GetPattern(key string) (*Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patterns[key]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Stats summarizes the store.
type Stats struct {
	TotalMemories   int              `json:"total_memories"`
	CountsByType    map[ItemType]int `json:"counts_by_type"`
	AverageStrength float64          `json:"average_strength"`
	TotalPatterns   int              `json:"total_patterns"`
}

// GetMemoryStats computes summary statistics.
func (s *Store) GetMemoryStats() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalMemories: len(s.items),
		CountsByType:  make(map[ItemType]int),
		TotalPatterns: len(s.patterns),
	}

	if len(s.items) == 0 {
		return stats
	}

	strengths := make([]float64, 0, len(s.items))
	for _, item := range s.items {
		stats.CountsByType[item.Type]++
		strengths = append(strengths, item.Strength)
	}
	stats.AverageStrength = stat.Mean(strengths, nil)

	return stats
}

// Snapshot captures the store's persisted state under a brief lock.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := EmptySnapshot()
	snapshot.LastSaved = s.clock.Now()
	for id, item := range s.items {
		snapshot.Memories[id] = item.Clone()
	}
	for key, pattern := range s.patterns {
		snapshot.Patterns[key] = pattern.Clone()
	}
	return snapshot
}

// Restore replaces the store's state with the snapshot contents and
// re-mirrors every memory into the context store. A nil snapshot resets
// to empty.
func (s *Store) Restore(snapshot *Snapshot) {
	if snapshot == nil {
		snapshot = EmptySnapshot()
	}

	s.mu.Lock()
	s.items = make(map[string]*Item, len(snapshot.Memories))
	s.patterns = make(map[string]*Pattern, len(snapshot.Patterns))
	s.mirrorIDs = make(map[string]string, len(snapshot.Memories))

	for id, item := range snapshot.Memories {
		s.items[id] = item.Clone()
	}
	for key, pattern := range snapshot.Patterns {
		s.patterns[key] = pattern.Clone()
	}
	restored := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		restored = append(restored, item)
	}
	s.mu.Unlock()

	for _, item := range restored {
		s.mirror(item)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
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

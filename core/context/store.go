package context

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"

	"github.com/adalundhe/remembrance/core/clock"
)

// Default capacity bounds for the working-memory store.
const (
	DefaultMaxBytes = 200 * 1024
	DefaultMaxItems = 1000

	retrievalCacheTTL         = 5 * time.Minute
	retrievalCacheNumCounters = 1e4
	retrievalCacheMaxCost     = 1e6
	retrievalCacheBufferItems = 64
)

// StoreConfig holds configuration for the context store.
type StoreConfig struct {
	MaxBytes int
	MaxItems int
	Clock    clock.Clock
	Logger   *slog.Logger
	Scorer   *Scorer
}

// DefaultStoreConfig returns sensible defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MaxBytes: DefaultMaxBytes,
		MaxItems: DefaultMaxItems,
	}
}

// Store is a capacity-bounded container of context items. Insertions
// compete for a fixed byte and count budget; overflow triggers eviction of
// the lowest-priority, oldest entries first.
//
// The store never rejects an insert. An item whose content alone exceeds
// the byte budget is admitted after evicting everything evictable, leaving
// the store temporarily over budget until the next successful insert.
type Store struct {
	maxBytes int
	maxItems int
	clock    clock.Clock
	logger   *slog.Logger
	scorer   *Scorer

	mu           sync.RWMutex
	items        map[string]*Item
	insertSeq    map[string]uint64
	nextSeq      uint64
	currentBytes int
	generation   uint64
	closed       bool

	retrievalCache *ristretto.Cache
}

// NewStore creates a context store with the given configuration.
func NewStore(cfg StoreConfig) *Store {
	s := &Store{
		maxBytes:  normalizeMaxBytes(cfg.MaxBytes),
		maxItems:  normalizeMaxItems(cfg.MaxItems),
		clock:     clock.OrSystem(cfg.Clock),
		logger:    normalizeLogger(cfg.Logger),
		scorer:    normalizeScorer(cfg.Scorer),
		items:     make(map[string]*Item),
		insertSeq: make(map[string]uint64),
	}

	s.retrievalCache = newRetrievalCache(s.logger)
	return s
}

func normalizeMaxBytes(v int) int {
	if v <= 0 {
		return DefaultMaxBytes
	}
	return v
}

func normalizeMaxItems(v int) int {
	if v <= 0 {
		return DefaultMaxItems
	}
	return v
}

func normalizeLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func normalizeScorer(scorer *Scorer) *Scorer {
	if scorer == nil {
		return NewScorer()
	}
	return scorer
}

func newRetrievalCache(logger *slog.Logger) *ristretto.Cache {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: retrievalCacheNumCounters,
		MaxCost:     retrievalCacheMaxCost,
		BufferItems: retrievalCacheBufferItems,
	})
	if err != nil {
		logger.Warn("retrieval cache disabled", "error", err)
		return nil
	}
	return cache
}

// Add inserts content into the store, evicting lower-priority and older
// items first when the insert would exceed capacity. Returns the new
// item's ID. Add is total: malformed input is coerced, never rejected.
func (s *Store) Add(itemType ItemType, content string, md *Metadata) string {
	item := s.buildItem(itemType, content, md)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ""
	}

	s.evictForInsert(item.Size)
	s.insertLocked(item)
	s.bumpGenerationLocked()

	return item.ID
}

func (s *Store) buildItem(itemType ItemType, content string, md *Metadata) *Item {
	return &Item{
		ID:             uuid.NewString(),
		Type:           itemType,
		Content:        content,
		Metadata:       md.Clone(),
		RelevanceScore: s.scorer.ScoreOnInsert(content, md),
		Timestamp:      s.clock.Now(),
		Size:           len(content),
		Tokens:         EstimateTokens(content),
	}
}

// evictForInsert frees space for an incoming item of the given size.
// Eviction order is ascending (priority rank, timestamp, insertion order).
func (s *Store) evictForInsert(size int) {
	if !s.needsCleanupLocked(size) {
		return
	}

	candidates := s.evictionOrderLocked()
	for _, victim := range candidates {
		if !s.needsCleanupLocked(size) {
			return
		}
		s.removeLocked(victim.ID)
		s.logger.Debug("evicted context item",
			"id", victim.ID, "type", victim.Type, "size", victim.Size)
	}
}

func (s *Store) needsCleanupLocked(incomingSize int) bool {
	if len(s.items) == 0 {
		return false
	}
	return s.currentBytes+incomingSize > s.maxBytes || len(s.items) >= s.maxItems
}

func (s *Store) evictionOrderLocked() []*Item {
	ordered := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		ordered = append(ordered, item)
	}

	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Priority().Rank() != b.Priority().Rank() {
			return a.Priority().Rank() < b.Priority().Rank()
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return s.insertSeq[a.ID] < s.insertSeq[b.ID]
	})

	return ordered
}

func (s *Store) insertLocked(item *Item) {
	s.items[item.ID] = item
	s.insertSeq[item.ID] = s.nextSeq
	s.nextSeq++
	s.currentBytes += item.Size
}

func (s *Store) removeLocked(id string) bool {
	item, ok := s.items[id]
	if !ok {
		return false
	}
	delete(s.items, id)
	delete(s.insertSeq, id)
	s.currentBytes -= item.Size
	return true
}

func (s *Store) bumpGenerationLocked() {
	s.generation++
}

// Remove deletes the item with the given ID. Returns true if it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	removed := s.removeLocked(id)
	if removed {
		s.bumpGenerationLocked()
	}
	return removed
}

// Clear removes all items.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.items = make(map[string]*Item)
	s.insertSeq = make(map[string]uint64)
	s.currentBytes = 0
	s.bumpGenerationLocked()
}

// Get returns a copy of the item with the given ID.
func (s *Store) Get(id string) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// Len returns the number of resident items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// SizeBytes returns the total byte size of resident items.
func (s *Store) SizeBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentBytes
}

// MaxBytes returns the configured byte capacity.
func (s *Store) MaxBytes() int {
	return s.maxBytes
}

// Close releases the store's resources. Subsequent mutations are no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.retrievalCache != nil {
		s.retrievalCache.Close()
		s.retrievalCache = nil
	}
}

func (s *Store) snapshotLocked() []*Item {
	snapshot := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		snapshot = append(snapshot, item)
	}
	return snapshot
}

func retrievalCacheKey(generation uint64, budget int, query string) string {
	return fmt.Sprintf("%d|%d|%s", generation, budget, query)
}

package context

import (
	"github.com/dgraph-io/ristretto"
)

// lookupRetrievalCache returns a cached retrieval result, or nil on miss.
// Cached slices are cloned on the way out so callers never share items.
func lookupRetrievalCache(cache *ristretto.Cache, key string) []*Item {
	if cache == nil {
		return nil
	}

	value, found := cache.Get(key)
	if !found {
		return nil
	}

	items, ok := value.([]*Item)
	if !ok {
		return nil
	}
	return cloneItems(items)
}

// storeRetrievalCache caches a retrieval result with a short TTL. The key
// embeds the store generation, so mutation invalidates all prior entries
// without explicit eviction.
func storeRetrievalCache(cache *ristretto.Cache, key string, items []*Item) {
	if cache == nil {
		return
	}

	cost := int64(1)
	for _, item := range items {
		cost += int64(item.Size)
	}

	cache.SetWithTTL(key, cloneItems(items), cost, retrievalCacheTTL)
}

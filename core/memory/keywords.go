package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	maxKeywordsPerItem = 5
	minKeywordLength   = 4
	keywordCacheSize   = 256
)

// stopWords are tokens too generic to serve as memory tags.
var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "will": {},
	"been": {}, "were": {}, "they": {}, "them": {}, "then": {}, "than": {},
	"when": {}, "what": {}, "which": {}, "where": {}, "there": {}, "their": {},
	"would": {}, "could": {}, "should": {}, "about": {}, "into": {}, "over": {},
	"only": {}, "also": {}, "just": {}, "like": {}, "some": {}, "each": {},
	"other": {}, "more": {}, "most": {}, "such": {}, "very": {}, "because": {},
	"while": {}, "after": {}, "before": {}, "being": {}, "does": {}, "done": {},
	"func": {}, "return": {}, "const": {}, "type": {}, "import": {}, "package": {},
}

// keywordExtractor derives non-trivial keywords from memory content.
// Extraction results are memoized in a bounded LRU keyed by content hash,
// since the same snippet is frequently re-learned across sessions.
type keywordExtractor struct {
	cache *lru.Cache[string, []string]
}

func newKeywordExtractor() *keywordExtractor {
	cache, err := lru.New[string, []string](keywordCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		cache = nil
	}
	return &keywordExtractor{cache: cache}
}

// Extract returns up to maxKeywordsPerItem lowercased tokens longer than
// three characters, excluding stop words, deduplicated in first-seen order.
func (e *keywordExtractor) Extract(content string) []string {
	if content == "" {
		return nil
	}

	key := contentHash(content)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			return cloneStringSlice(cached)
		}
	}

	keywords := extractKeywords(content)

	if e.cache != nil {
		e.cache.Add(key, cloneStringSlice(keywords))
	}
	return keywords
}

func extractKeywords(content string) []string {
	tokens := strings.FieldsFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{})
	var keywords []string

	for _, token := range tokens {
		word := strings.ToLower(token)
		if !isKeyword(word, seen) {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywordsPerItem {
			break
		}
	}

	return keywords
}

func isKeyword(word string, seen map[string]struct{}) bool {
	if len(word) < minKeywordLength {
		return false
	}
	if _, stop := stopWords[word]; stop {
		return false
	}
	if _, dup := seen[word]; dup {
		return false
	}
	return true
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}

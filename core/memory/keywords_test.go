package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Empty(t *testing.T) {
	e := newKeywordExtractor()
	assert.Nil(t, e.Extract(""))
}

func TestExtract_SkipsShortTokensAndStopWords(t *testing.T) {
	e := newKeywordExtractor()

	got := e.Extract("Use the gRPC retry middleware")
	assert.Equal(t, []string{"grpc", "retry", "middleware"}, got)

	assert.Empty(t, e.Extract("this that with func return"))
}

func TestExtract_SplitsOnPunctuation(t *testing.T) {
	e := newKeywordExtractor()

	got := e.Extract("error-handling in go_routines")
	assert.Equal(t, []string{"error", "handling", "routines"}, got)
}

func TestExtract_KeepsDigits(t *testing.T) {
	e := newKeywordExtractor()
	assert.Equal(t, []string{"http2", "tls13"}, e.Extract("use http2 and tls13"))
}

func TestExtract_DeduplicatesAndCaps(t *testing.T) {
	e := newKeywordExtractor()

	got := e.Extract("retry Retry RETRY backoff")
	assert.Equal(t, []string{"retry", "backoff"}, got)

	got = e.Extract("alpha bravo charlie delta echo foxtrot golf")
	assert.Len(t, got, maxKeywordsPerItem)
}

func TestExtract_CachedResultIsIsolated(t *testing.T) {
	e := newKeywordExtractor()
	content := "connection pooling under postgres load"

	first := e.Extract(content)
	require.NotEmpty(t, first)
	first[0] = "mutated"

	second := e.Extract(content)
	assert.Equal(t, "connection", second[0], "callers cannot poison the cache")
}

package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingMiddleware(t *testing.T) {
	// Initialize the cache with a size of 2.
	err := InitializeCache(2)
	require.NoError(t, err, "Failed to initialize cache")

	calls := 0
	handler := CachingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, "response-%s", r.URL.Path)
	}))

	get := func(path string) string {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Body.String()
	}

	// cache miss
	assert.Equal(t, "response-/one", get("/one"))
	assert.Equal(t, 1, calls)

	// cache hit: handler not called again
	assert.Equal(t, "response-/one", get("/one"))
	assert.Equal(t, 1, calls)

	// different URL - cache miss
	assert.Equal(t, "response-/two", get("/two"))
	assert.Equal(t, 2, calls)

	// a third URL evicts the least recently used entry
	assert.Equal(t, "response-/three", get("/three"))
	assert.Equal(t, 3, calls)

	req := httptest.NewRequest(http.MethodGet, "/one", nil)
	_, ok := cache.Get(generateCacheKey(req))
	assert.False(t, ok, "Expected first entry to be evicted from cache")
}

func TestCachingMiddlewareSkipsErrors(t *testing.T) {
	require.NoError(t, InitializeCache(2))

	calls := 0
	handler := CachingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/err", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}

	// Errors are never cached.
	assert.Equal(t, 2, calls)
}

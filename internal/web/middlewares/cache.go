package middleware

// This in-memory cache is used for simplicity purpose. It can be replaced with Redis.
// golang-lru automatically evicts the least recently accessed items, ensuring efficient memory usage.

import (
	"bytes"
	"fmt"
	"net/http"

	lru "github.com/hashicorp/golang-lru"
)

var cache *lru.Cache

type cachedResponse struct {
	status int
	header http.Header
	body   []byte
}

// InitializeCache sets up an in-memory LRU cache.
func InitializeCache(size int) error {
	var err error
	cache, err = lru.New(size) // Create an LRU cache with the specified size
	return err
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// CachingMiddleware caches successful GET responses in memory, keyed by
// method and full URL.
func CachingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		key := generateCacheKey(r)
		if entry, ok := cache.Get(key); ok {
			resp := entry.(*cachedResponse)
			for k, vals := range resp.header {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
			w.WriteHeader(resp.status)
			w.Write(resp.body)
			return
		}

		rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		// Only cache successes to avoid pinning transient errors.
		if rw.status == http.StatusOK {
			cache.Add(key, &cachedResponse{
				status: rw.status,
				header: w.Header().Clone(),
				body:   rw.body.Bytes(),
			})
		}
	})
}

func generateCacheKey(r *http.Request) string {
	return fmt.Sprintf("%s:%s", r.Method, r.URL.String())
}

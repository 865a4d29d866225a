package mw

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache holds cached GET responses. Every invalidation bumps a generation;
// a response computed under an older generation is never stored.
type ResponseCache struct {
	store *cache.Cache
	ttl   time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewResponseCache creates a response cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Invalidate drops every cached response.
func (rc *ResponseCache) Invalidate() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.generation++
	rc.store.Flush()
}

func (rc *ResponseCache) currentGeneration() uint64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.generation
}

// setIfCurrent stores resp unless an invalidation happened since generation was read.
func (rc *ResponseCache) setIfCurrent(key string, resp cachedResponse, generation uint64) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.generation != generation {
		return false
	}
	rc.store.Set(key, resp, rc.ttl)
	return true
}

// Cache serves repeated GET requests for the same URI from memory for the cache ttl.
func Cache(rc *ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := "resp:" + c.Request.RequestURI
		if resp, found := rc.store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			_, _ = c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		generation := rc.currentGeneration()
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw
		c.Writer.Header().Set("X-Cache", "MISS")

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			headers := blw.Header().Clone()
			headers.Del("X-Cache")
			headers.Del(RequestIDHeader)
			rc.setIfCurrent(key, cachedResponse{
				status:  blw.Status(),
				headers: headers,
				body:    blw.body.Bytes(),
			}, generation)
		}
	}
}

// InvalidateCache drops every cached response after a successful request.
func InvalidateCache(rc *ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			rc.Invalidate()
		}
	}
}

package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "portal_rate_limited_total",
	Help: "Requests rejected by a rate limiter.",
}, []string{"limiter"})

// Collectors returns the middleware metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{rejected}
}

// KeyFunc picks the bucket a request draws from.
type KeyFunc func(c *gin.Context) string

// ClientIP buckets requests by client address.
func ClientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return ip
}

// SimpleTokenBucket is an in-memory rate limiter. Buckets live in this
// process only, so each API replica enforces its own limit.
type SimpleTokenBucket struct {
	name     string
	capacity int
	rate     int
	now      func() time.Time

	mu    sync.Mutex
	state map[string]*bucket
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewSimpleTokenBucket creates limiter with capacity tokens and rate per minute.
func NewSimpleTokenBucket(name string, capacity, perMinute int) *SimpleTokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &SimpleTokenBucket{
		name:     name,
		capacity: capacity,
		rate:     perMinute,
		now:      time.Now,
		state:    make(map[string]*bucket),
	}
}

// GinMiddleware returns gin handler enforcing per-key limits. A nil key
// func limits by client IP.
func (l *SimpleTokenBucket) GinMiddleware(key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ClientIP
	}
	return func(c *gin.Context) {
		if !l.Allow(key(c)) {
			rejected.WithLabelValues(l.name).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

// Allow takes a token from key's bucket and reports whether one was left.
func (l *SimpleTokenBucket) Allow(key string) bool {
	if l.rate <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.state[key]
	now := l.now()
	if !ok {
		b = &bucket{tokens: l.capacity - 1, last: now}
		l.state[key] = b
		return true
	}
	elapsed := now.Sub(b.last).Minutes()
	refill := int(elapsed * float64(l.rate))
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

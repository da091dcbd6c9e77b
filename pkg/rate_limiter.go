package pkg

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// RateLimiter is a per-client token bucket: tokens refill at one per
// minInterval up to burst. Dev servers get hammered by aggressive
// prefetchers; this keeps the single render worker breathing while still
// letting a page's initial asset volley through.
type RateLimiter struct {
	minInterval time.Duration
	burst       int
	clients     map[string]*bucket
	mu          sync.Mutex
}

func NewRateLimiter(minInterval time.Duration, burst int) *RateLimiter {
	if minInterval <= 0 {
		minInterval = 20 * time.Millisecond
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		minInterval: minInterval,
		burst:       burst,
		clients:     make(map[string]*bucket),
	}
}

func (rl *RateLimiter) allow(client string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[client]
	if !ok {
		b = &bucket{tokens: float64(rl.burst), last: now}
		rl.clients[client] = b
	}

	b.tokens += float64(now.Sub(b.last)) / float64(rl.minInterval)
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := strings.Split(r.RemoteAddr, ":")[0]
		if client == "::1" || client == "127.0.0.1" {
			client = "localhost"
		}

		if !rl.allow(client) {
			http.Error(w, "Rate limit exceeded, try again later", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

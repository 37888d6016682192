package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may proceed. When it
// may not, retryAfter says how long to back off.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

type clientWindow struct {
	// tokens never refill; a fresh limiter is installed for every window.
	tokens   *rate.Limiter
	start    time.Time
	lastSeen time.Time
}

// MemoryLimiter counts requests per key in fixed windows held in process
// memory, the same way RedisLimiter does in Redis.
type MemoryLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	window  time.Duration
	idle    time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type MemoryOption func(*MemoryLimiter)

// WithMemoryClock replaces time.Now, mostly for tests.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		l.now = now
	}
}

// NewMemoryLimiter allows at most limit requests per window for each key.
// A window opens with the first request from a key.
func NewMemoryLimiter(limit int, window time.Duration, opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
		idle:    max(5*time.Minute, 2*window),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.cleanupLoop()
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok || now.Sub(c.start) >= l.window {
		c = &clientWindow{tokens: rate.NewLimiter(0, l.limit), start: now}
		l.clients[key] = c
	}
	c.lastSeen = now

	if c.tokens.AllowN(now, 1) {
		return true, 0, nil
	}
	return false, c.start.Add(l.window).Sub(now), nil
}

// Close stops the cleanup goroutine.
func (l *MemoryLimiter) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			for key, c := range l.clients {
				if l.now().Sub(c.lastSeen) > l.idle {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// RedisLimiter counts requests in fixed windows shared by every instance
// pointing at the same Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, 0, err
		}
	}
	if n <= l.limit {
		return true, 0, nil
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		// The counter lost its expiry; start a fresh window.
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, 0, err
		}
		ttl = l.window
	}
	return false, ttl, nil
}

// RateLimit rejects callers over the limiter's budget with 429. Limiter
// errors are logged and the request is let through.
func RateLimit(l Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed, retryAfter, err := l.Allow(c.Request.Context(), scope+":"+ip)
		if err != nil {
			slog.Error("rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			slog.Warn("rate limit exceeded", "scope", scope, "ip", ip, "retry_after", retryAfter)

			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests, please try again later.",
				"retryAfter": seconds,
			})
			return
		}
		c.Next()
	}
}

// Package middleware provides HTTP middleware functions.
package middleware

import (
	"container/list"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a token bucket limiter for a single key.
type RateLimiter struct {
	lastRefill time.Time
	mu         sync.Mutex
	refill     time.Duration
	tokens     int
	capacity   int
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(capacity int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		lastRefill: time.Now(),
		refill:     refillRate,
		tokens:     capacity,
		capacity:   capacity,
	}
}

// Allow reports whether a request should pass, consuming a token if so.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	if now.Sub(rl.lastRefill) >= rl.refill {
		tokensToAdd := int(now.Sub(rl.lastRefill) / rl.refill)
		rl.tokens = min(rl.capacity, rl.tokens+tokensToAdd)
		rl.lastRefill = now
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}

	return false
}

// LRUCache bounds the number of per-key limiters held in memory.
type LRUCache struct {
	items    map[string]*list.Element
	list     *list.List
	mu       sync.RWMutex
	capacity int
}

// LRUItem represents an item in the LRU cache.
type LRUItem struct {
	limiter *RateLimiter
	key     string
}

// NewLRUCache creates a new LRU cache with the specified capacity.
func NewLRUCache(capacity int) *LRUCache {
	return &LRUCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		list:     list.New(),
	}
}

// Get retrieves the limiter for a key, creating it through factory when
// absent. The oldest entry is evicted once capacity is exceeded.
func (c *LRUCache) Get(key string, factory func() *RateLimiter) *RateLimiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.list.MoveToFront(elem)
		item, ok := elem.Value.(*LRUItem)
		if !ok {
			delete(c.items, key)
			c.list.Remove(elem)
			return factory()
		}
		return item.limiter
	}

	limiter := factory()
	elem := c.list.PushFront(&LRUItem{key: key, limiter: limiter})
	c.items[key] = elem

	if c.list.Len() > c.capacity {
		if oldest := c.list.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	return limiter
}

// removeElement removes an element from the cache.
func (c *LRUCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	if item, ok := elem.Value.(*LRUItem); ok {
		delete(c.items, item.key)
	}
}

// Len returns the current number of items in the cache.
func (c *LRUCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

// Clear removes all items from the cache.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = list.New()
	c.items = make(map[string]*list.Element)
}

// RedisRateLimiter implements distributed rate limiting on a Redis
// sliding window, for deployments with more than one instance.
type RedisRateLimiter struct {
	client            *redis.Client
	keyPrefix         string
	requestsPerMinute int
	windowSize        time.Duration
}

// NewRedisRateLimiter creates a new Redis-based rate limiter.
func NewRedisRateLimiter(client *redis.Client, keyPrefix string, requestsPerMinute int) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:            client,
		keyPrefix:         keyPrefix,
		requestsPerMinute: requestsPerMinute,
		windowSize:        time.Minute,
	}
}

// Allow checks the sliding window for the key and records this request.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.keyPrefix, key)
	now := time.Now()
	windowStart := now.Add(-rl.windowSize)

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.Unix(), 10))
	pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.Unix()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, redisKey, rl.windowSize+time.Minute)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("redis rate limiting error: %w", err)
	}

	countCmd, ok := results[1].(*redis.IntCmd)
	if !ok {
		return false, fmt.Errorf("unexpected redis command result type")
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, fmt.Errorf("failed to get request count: %w", err)
	}

	return count < int64(rl.requestsPerMinute), nil
}

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// KeyGenerator derives the limiting key from the request, for
	// example the client IP or the authenticated user.
	KeyGenerator func(c *gin.Context) string
	// OnExceeded is called when the rate limit is exceeded.
	OnExceeded func(c *gin.Context)
	// RedisAddr specifies the Redis server address (required if UseRedis is true).
	RedisAddr string
	// RedisPassword specifies the Redis password (optional).
	RedisPassword string
	// CleanupInterval specifies how often to clean up old limiters (default: 5 minutes).
	CleanupInterval time.Duration
	// MaxAge specifies the maximum age of an inactive limiter before cleanup (default: 10 minutes).
	MaxAge time.Duration
	// RequestsPerMinute specifies the maximum number of requests per minute.
	RequestsPerMinute int
	// CacheCapacity bounds the number of in-memory limiters (default: 10000).
	CacheCapacity int
	// RedisDB specifies the Redis database number (default: 0).
	RedisDB int
	// UseRedis enables Redis-based distributed rate limiting.
	UseRedis bool
}

// RateLimitManager manages rate limiters and their lifecycle.
type RateLimitManager struct {
	cache            *LRUCache
	redisRateLimiter *RedisRateLimiter
	cleanupDone      chan struct{}
	ctx              context.Context
	cancel           context.CancelFunc
	config           RateLimitConfig
	cleanupInterval  time.Duration
	maxAge           time.Duration
}

// NewRateLimitManager creates a new rate limit manager. With UseRedis
// set, the Redis connection is verified up front so a misconfigured
// address fails at startup instead of on the first throttled request.
func NewRateLimitManager(ctx context.Context, config RateLimitConfig) (*RateLimitManager, error) {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.MaxAge == 0 {
		config.MaxAge = 10 * time.Minute
	}
	if config.CacheCapacity == 0 {
		config.CacheCapacity = 10000
	}

	managerCtx, cancel := context.WithCancel(ctx)

	manager := &RateLimitManager{
		cache:           NewLRUCache(config.CacheCapacity),
		config:          config,
		ctx:             managerCtx,
		cancel:          cancel,
		cleanupDone:     make(chan struct{}),
		cleanupInterval: config.CleanupInterval,
		maxAge:          config.MaxAge,
	}

	if config.UseRedis {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		manager.redisRateLimiter = NewRedisRateLimiter(redisClient, "rate_limit", config.RequestsPerMinute)
	}

	if !config.UseRedis {
		go manager.cleanup()
	} else {
		// Redis expires its own keys; only shutdown plumbing remains
		go func() {
			<-manager.ctx.Done()
			close(manager.cleanupDone)
		}()
	}

	return manager, nil
}

// Allow checks if a request should be allowed for the given key.
func (rm *RateLimitManager) Allow(ctx context.Context, key string) (bool, error) {
	if rm.config.UseRedis && rm.redisRateLimiter != nil {
		return rm.redisRateLimiter.Allow(ctx, key)
	}

	limiter := rm.GetLimiter(key)
	return limiter.Allow(), nil
}

// GetLimiter gets or creates a rate limiter for the given key (in-memory only).
func (rm *RateLimitManager) GetLimiter(key string) *RateLimiter {
	return rm.cache.Get(key, func() *RateLimiter {
		return NewRateLimiter(rm.config.RequestsPerMinute, time.Minute/time.Duration(rm.config.RequestsPerMinute))
	})
}

// cleanup periodically drops limiters that have been idle past MaxAge.
func (rm *RateLimitManager) cleanup() {
	defer close(rm.cleanupDone)

	ticker := time.NewTicker(rm.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rm.ctx.Done():
			return
		case <-ticker.C:
			rm.cleanupOldEntries()
		}
	}
}

// cleanupOldEntries removes entries that have not been used recently.
func (rm *RateLimitManager) cleanupOldEntries() {
	rm.cache.mu.Lock()
	defer rm.cache.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element

	// Walk from the back: entries only get older toward the tail
	for elem := rm.cache.list.Back(); elem != nil; elem = elem.Prev() {
		item, ok := elem.Value.(*LRUItem)
		if !ok {
			toRemove = append(toRemove, elem)
			continue
		}
		item.limiter.mu.Lock()
		age := now.Sub(item.limiter.lastRefill)
		item.limiter.mu.Unlock()

		if age > rm.maxAge {
			toRemove = append(toRemove, elem)
		} else {
			break
		}
	}

	for _, elem := range toRemove {
		rm.cache.removeElement(elem)
	}
}

// Shutdown gracefully shuts down the rate limit manager.
func (rm *RateLimitManager) Shutdown() {
	rm.cancel()
	<-rm.cleanupDone
}

// Stats returns statistics about the rate limiter cache.
func (rm *RateLimitManager) Stats() RateLimitStats {
	cacheLen := rm.cache.Len()
	return RateLimitStats{
		CacheSize:     cacheLen,
		CacheCapacity: rm.config.CacheCapacity,
		CacheUsage:    float64(cacheLen) / float64(rm.config.CacheCapacity),
	}
}

// RateLimitStats holds statistics about rate limiting.
type RateLimitStats struct {
	CacheSize     int     `json:"cache_size"`
	CacheCapacity int     `json:"cache_capacity"`
	CacheUsage    float64 `json:"cache_usage"`
}

// RateLimitMiddleware returns a rate limiting middleware. The returned
// manager must be shut down to stop its cleanup goroutine.
func RateLimitMiddleware(ctx context.Context, config RateLimitConfig) (gin.HandlerFunc, *RateLimitManager, error) {
	manager, err := NewRateLimitManager(ctx, config)
	if err != nil {
		return nil, nil, err
	}

	handler := gin.HandlerFunc(func(c *gin.Context) {
		key := config.KeyGenerator(c)

		allowed, err := manager.Allow(c.Request.Context(), key)
		if err != nil {
			// Fail open: a broken limiter backend must not take the API down
			c.Header("X-RateLimit-Error", "true")
			c.Next()
			return
		}

		if !allowed {
			if config.OnExceeded != nil {
				config.OnExceeded(c)
			} else {
				c.JSON(http.StatusTooManyRequests, gin.H{
					"success": false,
					"error": map[string]interface{}{
						"type":    "RATE_LIMIT_ERROR",
						"code":    "TOO_MANY_REQUESTS",
						"message": "Rate limit exceeded. Please try again later.",
					},
				})
			}
			c.Abort()
			return
		}

		c.Next()
	})

	return handler, manager, nil
}

// DefaultRateLimitMiddleware returns an IP-keyed in-memory limiter.
// Use RateLimitMiddleware directly when graceful shutdown matters.
func DefaultRateLimitMiddleware(requestsPerMinute int) gin.HandlerFunc {
	handler, _, _ := RateLimitMiddleware(context.Background(), RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		KeyGenerator: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
	return handler
}

// UserBasedRateLimitMiddleware keys the limiter on the authenticated
// user, falling back to the client IP for anonymous requests.
func UserBasedRateLimitMiddleware(requestsPerMinute int) gin.HandlerFunc {
	handler, _, _ := RateLimitMiddleware(context.Background(), RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		KeyGenerator: func(c *gin.Context) string {
			if user, ok := GetUserFromContext(c); ok {
				return "user:" + user.ID
			}
			return "ip:" + c.ClientIP()
		},
	})
	return handler
}

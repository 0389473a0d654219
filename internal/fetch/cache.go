package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytwatch/internal/events"
	"github.com/redis/go-redis/v9"
)

// Entry is one cached response body.
//
// An entry is logically absent once its TTL has elapsed or its Version no longer matches the cache's.
type Entry struct {
	Key      string        `json:"key"`
	Value    []byte        `json:"value"`
	StoredAt time.Time     `json:"storedAt"`
	TTL      time.Duration `json:"ttl"`
	Version  int           `json:"version"`
}

func (e Entry) expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}

// Stats are cache counters since construction or the last purge.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
	Version   int   `json:"version"`
	Redis     bool  `json:"redis"`
}

// CacheOpts configures a [Cache].
type CacheOpts struct {
	Version    int
	MaxEntries int           // L1 bound; 0 is unbounded
	Redis      *redis.Client // optional L2
	Prefix     string        // L2 key prefix
	Now        func() time.Time
	Sink       events.Sink
}

// Cache is a two-tier TTL cache: an in-memory map backed by an optional Redis tier that survives restarts.
type Cache struct {
	mu   sync.RWMutex
	l1   map[string]Entry
	opts CacheOpts

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCache creates a [Cache].
func NewCache(opts CacheOpts) *Cache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Prefix == "" {
		opts.Prefix = "ytwatch:"
	}
	opts.Sink = events.OrNop(opts.Sink)
	return &Cache{l1: make(map[string]Entry), opts: opts}
}

// Key builds a deterministic cache key from an endpoint name and its parameters.
//
// Parameters are sorted; the credential parameter is excluded so every key shares one entry.
func Key(endpoint string, params url.Values) string {
	clean := url.Values{}
	for k, v := range params {
		if k == "key" {
			continue
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return endpoint
	}
	return endpoint + "?" + clean.Encode()
}

func (c *Cache) redisKey(key string) string {
	return c.opts.Prefix + "v" + strconv.Itoa(c.opts.Version) + ":" + key
}

// Get returns the value stored under key when present, unexpired and of the current version.
//
// A stale entry is evicted as a side effect.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok := c.lookup(ctx, key)
	if ok {
		c.hits.Add(1)
		events.Emit(c.opts.Sink, events.CacheHit, "", "key", key)
	} else {
		c.misses.Add(1)
		events.Emit(c.opts.Sink, events.CacheMiss, "", "key", key)
	}
	return v, ok
}

func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	now := c.opts.Now()

	c.mu.RLock()
	e, ok := c.l1[key]
	c.mu.RUnlock()

	if ok {
		if e.Version == c.opts.Version && !e.expired(now) {
			return e.Value, true
		}
		c.evictStale(key, e)
	}

	if c.opts.Redis == nil {
		return nil, false
	}

	data, err := c.opts.Redis.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		return nil, false
	}

	var stored Entry
	if err := json.Unmarshal(data, &stored); err != nil || stored.Version != c.opts.Version || stored.expired(now) {
		c.opts.Redis.Del(ctx, c.redisKey(key))
		return nil, false
	}

	c.mu.Lock()
	c.l1[key] = stored
	c.mu.Unlock()
	return stored.Value, true
}

func (c *Cache) evict(key, reason string) {
	c.mu.Lock()
	_, ok := c.l1[key]
	delete(c.l1, key)
	c.mu.Unlock()

	if ok {
		c.evictions.Add(1)
		events.Emit(c.opts.Sink, events.CacheEvicted, reason, "key", key)
	}
}

// evictStale drops key only while it still holds seen, so a fresh entry stored since the read survives.
func (c *Cache) evictStale(key string, seen Entry) {
	c.mu.Lock()
	cur, ok := c.l1[key]
	ok = ok && cur.StoredAt.Equal(seen.StoredAt) && cur.Version == seen.Version && cur.TTL == seen.TTL
	if ok {
		delete(c.l1, key)
	}
	c.mu.Unlock()

	if ok {
		c.evictions.Add(1)
		events.Emit(c.opts.Sink, events.CacheEvicted, "stale", "key", key)
	}
}

// Set stores value under key for ttl in both tiers.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	e := Entry{Key: key, Value: value, StoredAt: c.opts.Now(), TTL: ttl, Version: c.opts.Version}

	c.mu.Lock()
	c.makeRoom()
	c.l1[key] = e
	c.mu.Unlock()

	if c.opts.Redis == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.opts.Redis.Set(ctx, c.redisKey(key), data, ttl).Err(); err != nil {
		events.Emit(c.opts.Sink, events.RequestFailed, "cache L2 write failed", "key", key, "error", err)
	}
}

// makeRoom drops expired entries, then the oldest ones, until one more fits. Callers hold mu.
func (c *Cache) makeRoom() {
	if c.opts.MaxEntries <= 0 || len(c.l1) < c.opts.MaxEntries {
		return
	}

	now := c.opts.Now()
	for k, e := range c.l1 {
		if e.expired(now) || e.Version != c.opts.Version {
			delete(c.l1, k)
			c.evictions.Add(1)
		}
	}

	for len(c.l1) >= c.opts.MaxEntries {
		var oldest string
		var at time.Time
		for k, e := range c.l1 {
			if oldest == "" || e.StoredAt.Before(at) {
				oldest, at = k, e.StoredAt
			}
		}
		delete(c.l1, oldest)
		c.evictions.Add(1)
	}
}

// Delete removes key from both tiers.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.evict(key, "deleted")
	if c.opts.Redis != nil {
		c.opts.Redis.Del(ctx, c.redisKey(key))
	}
}

// Purge drops every entry from both tiers and resets the counters. It returns the number of entries dropped from
// Redis when there is a second tier, and from L1 otherwise.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	c.mu.Lock()
	n := len(c.l1)
	c.l1 = make(map[string]Entry)
	c.mu.Unlock()

	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)

	if c.opts.Redis == nil {
		return n, nil
	}

	n = 0
	iter := c.opts.Redis.Scan(ctx, 0, c.opts.Prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.opts.Redis.Del(ctx, iter.Val()).Err(); err != nil {
			return n, fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return n, nil
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.l1)
	c.mu.RUnlock()

	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   n,
		Version:   c.opts.Version,
		Redis:     c.opts.Redis != nil,
	}
}

// Stored counts the entries in the Redis tier, or the L1 entries when there is none.
func (c *Cache) Stored(ctx context.Context) (int, error) {
	if c.opts.Redis == nil {
		return c.Stats().Entries, nil
	}

	n := 0
	iter := c.opts.Redis.Scan(ctx, 0, c.opts.Prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return n, nil
}

// NewRedisClient parses url and pings the server. An empty url returns (nil, nil): the L2 tier is optional.
func NewRedisClient(ctx context.Context, rawURL string, logger *log.Logger) (*redis.Client, error) {
	if rawURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Join(fmt.Errorf("redis unreachable at %s", opts.Addr), err)
	}

	if logger != nil {
		logger.Info("cache: redis tier connected", "addr", opts.Addr)
	}
	return rdb, nil
}

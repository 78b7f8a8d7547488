// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package weather

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sibyl/internal/config"
	"github.com/tomtom215/sibyl/internal/logging"
	"github.com/tomtom215/sibyl/internal/metrics"
)

// Cache backend names accepted by weather.cache_backend.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendBadger = "badger"
)

const feedKeyPrefix = "feed:"

// FeedCache stores feeds per city and API key for a fixed TTL.
type FeedCache interface {
	Get(ctx context.Context, key string) (*Feed, bool)
	Set(ctx context.Context, key string, feed *Feed)
	Backend() string
	Close() error
}

// CacheKey derives a compact key from the normalized city and the API
// key, so a cached feed is never served to a different key.
func CacheKey(city, apiKey string) string {
	city = strings.ToLower(strings.TrimSpace(city))
	sum := sha256.Sum256([]byte(city + "\x00" + apiKey))
	return fmt.Sprintf("%s%s:%x", feedKeyPrefix, city, sum[:8])
}

// NewFeedCache builds the backend named by cfg.CacheBackend.
func NewFeedCache(cfg config.WeatherConfig) (FeedCache, error) {
	switch cfg.CacheBackend {
	case "", BackendNone:
		return noCache{}, nil
	case BackendMemory:
		return NewMemoryCache(cfg.CacheTTL), nil
	case BackendBadger:
		opts := badger.DefaultOptions(cfg.CacheDir)
		opts.Logger = nil
		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger feed cache at %s: %w", cfg.CacheDir, err)
		}
		return NewBadgerCache(db, cfg.CacheTTL, true), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*Feed, bool) { return nil, false }
func (noCache) Set(context.Context, string, *Feed)        {}
func (noCache) Backend() string                           { return BackendNone }
func (noCache) Close() error                              { return nil }

type memoryEntry struct {
	feed      *Feed
	expiresAt time.Time
}

// MemoryCache is a TTL map with a background sweeper.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache starts a cache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop(sweepInterval(ttl))
	return c
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 5*time.Minute {
		return 5 * time.Minute
	}
	return ttl
}

// Get returns a live entry. Expired entries are removed and count as misses.
func (c *MemoryCache) Get(_ context.Context, key string) (*Feed, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		ok = false
	}
	metrics.RecordWeatherCache(BackendMemory, ok)
	if !ok {
		return nil, false
	}
	return entry.feed, true
}

// Set stores feed until now + ttl.
func (c *MemoryCache) Set(_ context.Context, key string, feed *Feed) {
	c.mu.Lock()
	c.entries[key] = memoryEntry{feed: feed, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Backend returns BackendMemory.
func (c *MemoryCache) Backend() string { return BackendMemory }

// Close stops the sweeper.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *MemoryCache) cleanup() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// BadgerCache persists feeds in BadgerDB using native key TTLs.
type BadgerCache struct {
	db     *badger.DB
	ttl    time.Duration
	ownsDB bool
}

// NewBadgerCache wraps db. When ownsDB is true, Close closes db.
func NewBadgerCache(db *badger.DB, ttl time.Duration, ownsDB bool) *BadgerCache {
	return &BadgerCache{db: db, ttl: ttl, ownsDB: ownsDB}
}

// Get reads and decodes a feed. Decode failures are logged and treated
// as misses.
func (c *BadgerCache) Get(_ context.Context, key string) (*Feed, bool) {
	var feed Feed
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &feed)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Warn().Err(err).Str("key", key).Msg("Feed cache read failed")
		}
		metrics.RecordWeatherCache(BackendBadger, false)
		return nil, false
	}
	metrics.RecordWeatherCache(BackendBadger, true)
	return &feed, true
}

// Set encodes and stores feed with the cache TTL.
func (c *BadgerCache) Set(_ context.Context, key string, feed *Feed) {
	data, err := json.Marshal(feed)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Feed cache encode failed")
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data).WithTTL(c.ttl))
	})
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Feed cache write failed")
	}
}

// Backend returns BackendBadger.
func (c *BadgerCache) Backend() string { return BackendBadger }

// Close closes the database if the cache owns it.
func (c *BadgerCache) Close() error {
	if !c.ownsDB {
		return nil
	}
	return c.db.Close()
}

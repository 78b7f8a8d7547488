// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package weather

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/sibyl/internal/config"
)

func TestCacheKey(t *testing.T) {
	t.Parallel()

	if CacheKey(" Jakarta ", "k1") != CacheKey("jakarta", "k1") {
		t.Error("CacheKey should normalize the city")
	}
	if CacheKey("jakarta", "k1") == CacheKey("jakarta", "k2") {
		t.Error("CacheKey should differ per API key")
	}
}

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("empty cache hit")
	}
	feed := syntheticFeed(3)
	c.Set(ctx, "k", feed)
	got, ok := c.Get(ctx, "k")
	if !ok || got != feed {
		t.Fatalf("Get() = %v, %v", got, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expired entry returned")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after expiry, want 0", c.Len())
	}

	c.Set(ctx, "a", feed)
	now = now.Add(2 * time.Minute)
	c.cleanup()
	if c.Len() != 0 {
		t.Errorf("cleanup left %d entries", c.Len())
	}
	if err := c.Close(); err != nil {
		t.Error(err)
	}
}

func TestBadgerCache(t *testing.T) {
	t.Parallel()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("badger.Open() error = %v", err)
	}
	c := NewBadgerCache(db, time.Hour, true)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("missing key hit")
	}
	c.Set(ctx, "k", syntheticFeed(4))
	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("stored feed not found")
	}
	if len(got.List) != 4 || got.City.Name != "Jakarta" || got.List[2].Main.Humidity == 0 {
		t.Errorf("round trip feed = %+v", got)
	}
	if c.Backend() != BackendBadger {
		t.Errorf("Backend() = %q", c.Backend())
	}
}

func TestNewFeedCache(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"", BackendNone, BackendMemory} {
		c, err := NewFeedCache(config.WeatherConfig{CacheBackend: backend, CacheTTL: time.Minute})
		if err != nil {
			t.Fatalf("NewFeedCache(%q) error = %v", backend, err)
		}
		_ = c.Close()
	}

	c, err := NewFeedCache(config.WeatherConfig{CacheBackend: BackendBadger, CacheDir: t.TempDir(), CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewFeedCache(badger) error = %v", err)
	}
	if c.Backend() != BackendBadger {
		t.Errorf("Backend() = %q", c.Backend())
	}
	_ = c.Close()

	if _, err := NewFeedCache(config.WeatherConfig{CacheBackend: "redis"}); err == nil {
		t.Error("unknown backend should fail")
	}
}

// SPDX-License-Identifier: MIT

package catalog

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(0)

	c.Set("k", []byte("v"), 50*time.Millisecond)
	if got, found := c.Get("k"); !found || string(got) != "v" {
		t.Fatalf("Get = %q, %v; want v, true", got, found)
	}

	time.Sleep(60 * time.Millisecond)
	if _, found := c.Get("k"); found {
		t.Fatal("expired entry still served")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Sets != 1 {
		t.Errorf("stats = %+v, want 1 hit / 1 miss / 1 set", stats)
	}
}

func TestMemoryCacheJanitorEvicts(t *testing.T) {
	c := NewMemoryCache(20 * time.Millisecond)
	defer c.(*memoryCache).Stop()

	c.Set("k", []byte("v"), 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for c.Stats().CurrentSize != 0 {
		if time.Now().After(deadline) {
			t.Fatal("janitor never evicted the expired entry")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	c := NewMemoryCache(0)
	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	c.Delete("a")
	if _, found := c.Get("a"); found {
		t.Fatal("deleted entry still served")
	}

	c.Clear()
	if _, found := c.Get("b"); found {
		t.Fatal("cleared entry still served")
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Addr: srv.Addr()})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer func() { _ = c.Close() }()

	c.Set("k", []byte(`{"id":"v-1"}`), time.Minute)
	got, found := c.Get("k")
	if !found || string(got) != `{"id":"v-1"}` {
		t.Fatalf("Get = %q, %v", got, found)
	}

	c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Fatal("deleted key still served")
	}

	// TTL expiry via miniredis clock.
	c.Set("ttl", []byte("x"), 30*time.Second)
	srv.FastForward(time.Minute)
	if _, found := c.Get("ttl"); found {
		t.Fatal("expired key still served")
	}
}

func TestNoOpCache(t *testing.T) {
	c := NewNoOpCache()
	c.Set("k", []byte("v"), time.Minute)
	if _, found := c.Get("k"); found {
		t.Fatal("no-op cache stored a value")
	}
}

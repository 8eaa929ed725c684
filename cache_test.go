package main

import (
	"strings"
	"testing"
	"time"
)

func TestCacheHitAndTTLExpiry(t *testing.T) {
	now := time.Now()
	cache := NewResponseCache(30*time.Minute, 100, 2000)
	cache.now = func() time.Time { return now }

	cache.Put(taskSection, "article text", "Заголовок", "result")

	if got, ok := cache.Get(taskSection, "article text", "Заголовок"); !ok || got != "result" {
		t.Fatalf("expected hit, got (%v, %v)", got, ok)
	}

	// Same content, different task type or aux key: separate partitions.
	if _, ok := cache.Get(taskSpelling, "article text", "Заголовок"); ok {
		t.Fatal("task types must not share entries")
	}
	if _, ok := cache.Get(taskSection, "article text", "другой"); ok {
		t.Fatal("aux keys must not share entries")
	}

	now = now.Add(31 * time.Minute)
	if _, ok := cache.Get(taskSection, "article text", "Заголовок"); ok {
		t.Fatal("expected miss after TTL")
	}
}

// Only the first prefix_chars bytes participate in the key: two long
// articles with an identical prefix collide. That approximation is part of
// the documented contract.
func TestCachePrefixCollision(t *testing.T) {
	cache := NewResponseCache(30*time.Minute, 100, 50)

	prefix := strings.Repeat("п", 50)
	cache.Put(taskSection, prefix+" первый хвост", "k", "first")

	got, ok := cache.Get(taskSection, prefix+" совсем другой хвост", "k")
	if !ok || got != "first" {
		t.Fatalf("expected prefix collision hit, got (%v, %v)", got, ok)
	}
}

func TestCacheSweepOnOverflow(t *testing.T) {
	now := time.Now()
	cache := NewResponseCache(30*time.Minute, 3, 2000)
	cache.now = func() time.Time { return now }

	cache.Put(taskSection, "a", "1", "old-a")
	cache.Put(taskSection, "b", "2", "old-b")

	now = now.Add(40 * time.Minute)
	cache.Put(taskSection, "c", "3", "fresh-c")
	// Capacity reached; the stale entries must be swept, the fresh one kept.
	cache.Put(taskSection, "d", "4", "fresh-d")

	if _, ok := cache.Get(taskSection, "a", "1"); ok {
		t.Fatal("stale entry survived overflow sweep")
	}
	if got, ok := cache.Get(taskSection, "c", "3"); !ok || got != "fresh-c" {
		t.Fatal("fresh entry lost in overflow sweep")
	}
	if got, ok := cache.Get(taskSection, "d", "4"); !ok || got != "fresh-d" {
		t.Fatal("new entry not stored after sweep")
	}
}

func TestCacheClearAndStats(t *testing.T) {
	cache := NewResponseCache(30*time.Minute, 100, 2000)
	cache.Put(taskReview, "x", "f", 1)

	cache.Get(taskReview, "x", "f")  // hit
	cache.Get(taskReview, "y", "f")  // miss
	if hits, misses := cache.Stats(); hits != 1 || misses != 1 {
		t.Fatalf("stats = (%d, %d), want (1, 1)", hits, misses)
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Fatalf("Len after Clear = %d", cache.Len())
	}
}

package cache

import (
	"testing"
	"time"
)

// fakeClock lets tests advance cache time deterministically.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache[V any](maxEntries int, ttl time.Duration) (*Cache[V], *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	c := New[V](maxEntries, ttl)
	c.now = clk.now
	c.lastSweep = clk.t
	return c, clk
}

func TestCacheSetGet(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache[string](10, time.Hour)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get(k) = %q, %v; want v, true", got, ok)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache[int](10, time.Hour)
	c.Set("k", 42)

	clk.advance(59 * time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry expired before its TTL")
	}

	clk.advance(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("entry survived past its TTL")
	}
}

func TestCacheSweepDropsExpired(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	// Past both the TTL and the sweep interval: the next access sweeps.
	clk.advance(3 * time.Minute)
	c.Set("c", 3)

	if c.Len() != 1 {
		t.Errorf("Len after sweep = %d, want 1", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry still retrievable after sweep")
	}
}

func TestCacheBoundedEviction(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache[int](2, time.Hour)

	c.Set("oldest", 1)
	clk.advance(time.Second)
	c.Set("middle", 2)
	clk.advance(time.Second)
	c.Set("newest", 3)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want capacity 2", c.Len())
	}
	if _, ok := c.Get("oldest"); ok {
		t.Error("oldest entry should have been evicted")
	}
	for _, k := range []string{"middle", "newest"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("entry %q should survive eviction", k)
		}
	}
}

func TestCacheOverwriteDoesNotEvict(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10) // existing key: no eviction

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if got, _ := c.Get("a"); got != 10 {
		t.Errorf("Get(a) = %d, want overwritten value 10", got)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("untouched entry evicted by an overwrite")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	t.Parallel()

	var c *Cache[string]
	c.Set("k", "v")
	if _, ok := c.Get("k"); ok {
		t.Error("nil cache should always miss")
	}
	if c.Len() != 0 {
		t.Error("nil cache Len should be 0")
	}
}

func TestGenerationKeyNormalization(t *testing.T) {
	t.Parallel()

	base := GenerationKey("A web app with a database", "component")

	if GenerationKey("  a web app with a database  ", "component") != base {
		t.Error("key should be case- and whitespace-insensitive on the description")
	}
	if GenerationKey("A web app with a database", "sequence") == base {
		t.Error("different kinds must produce different keys")
	}
	if GenerationKey("a different description", "component") == base {
		t.Error("different descriptions must produce different keys")
	}
}

func TestRenderKeySeparatesFormats(t *testing.T) {
	t.Parallel()

	text := "@startuml\n[A] --> [B]\n@enduml"
	if RenderKey(text, "png") == RenderKey(text, "svg") {
		t.Error("formats must produce distinct keys")
	}
	if RenderKey(text, "png") != RenderKey("  "+text+"\n", "png") {
		t.Error("surrounding whitespace must not change the key")
	}
}

func TestKeyPartBoundaries(t *testing.T) {
	t.Parallel()

	if Key("ab", "c") == Key("a", "bc") {
		t.Error("part boundaries must affect the key")
	}
	if Key("a", "b") != Key("a", "b") {
		t.Error("key must be deterministic")
	}
}

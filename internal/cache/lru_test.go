package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a")
	}
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("a missing: %q %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("c", "3")
	clk.t = clk.t.Add(31 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should be expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("c should still be live")
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats = %d/%d", hits, misses)
	}
}

func TestLRUClearAndDelete(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	if c.Size() != 1 {
		t.Fatalf("size after delete = %d", c.Size())
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("size after clear = %d", c.Size())
	}
	c.Set("a", "again")
	if v, _ := c.Get("a"); v != "again" {
		t.Fatalf("cache unusable after clear")
	}
}

func TestManagerSweep(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	m := NewManager(nil)
	m.Register(c)
	clk.t = clk.t.Add(2 * time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("sweep removed %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.StartCleanup(ctx, time.Millisecond)
	cancel()
	m.Wait()
}

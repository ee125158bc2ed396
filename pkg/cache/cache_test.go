package cache

import (
	"strconv"
	"testing"
	"time"
)

// testClock lets tests advance time manually.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(freshness time.Duration) (*QueryCache, *testClock) {
	clock := &testClock{t: time.Unix(1700000000, 0)}
	c := New(freshness)
	c.now = clock.now
	return c, clock
}

func TestFreshnessWindow(t *testing.T) {
	c, clock := newTestCache(60 * time.Second)
	c.Put("vehicles", "snapshot-1")

	if v, ok := c.Get("vehicles"); !ok || v != "snapshot-1" {
		t.Errorf("Get inside window = %v, %v", v, ok)
	}

	clock.advance(59 * time.Second)
	if _, ok := c.Get("vehicles"); !ok {
		t.Error("entry expired before the freshness window elapsed")
	}

	clock.advance(time.Second)
	if _, ok := c.Get("vehicles"); ok {
		t.Error("entry still fresh after the window elapsed")
	}
}

func TestPeekServesStaleEntries(t *testing.T) {
	c, clock := newTestCache(60 * time.Second)
	c.Put("vehicle-data.1001", 72)

	clock.advance(10 * time.Minute)
	if _, ok := c.Get("vehicle-data.1001"); ok {
		t.Error("Get served a stale entry")
	}
	if v, ok := c.Peek("vehicle-data.1001"); !ok || v != 72 {
		t.Errorf("Peek = %v, %v", v, ok)
	}
}

func TestPutReplaces(t *testing.T) {
	c, clock := newTestCache(60 * time.Second)
	c.Put("vehicles", "snapshot-1")
	clock.advance(90 * time.Second)
	c.Put("vehicles", "snapshot-2")

	if v, ok := c.Get("vehicles"); !ok || v != "snapshot-2" {
		t.Errorf("Get after replace = %v, %v", v, ok)
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(60 * time.Second)
	c.Put("vehicles", "snapshot-1")
	c.Invalidate("vehicles")

	if _, ok := c.Peek("vehicles"); ok {
		t.Error("entry survived Invalidate")
	}
}

func TestFlush(t *testing.T) {
	c, _ := newTestCache(60 * time.Second)
	for i := 0; i < 4; i++ {
		c.Put("vehicle-data."+strconv.Itoa(i), i)
	}
	c.Flush()
	for i := 0; i < 4; i++ {
		if _, ok := c.Peek("vehicle-data." + strconv.Itoa(i)); ok {
			t.Errorf("entry %d survived Flush", i)
		}
	}
}

func TestEviction(t *testing.T) {
	c, clock := newTestCache(time.Hour)
	c.MaxEntries = 3

	// Entries are evicted by fetch time, not insertion order.
	for i := 0; i < 3; i++ {
		c.Put("key."+strconv.Itoa(i), i)
		clock.advance(time.Second)
	}
	c.Put("key.0", 0) // refresh the oldest
	clock.advance(time.Second)
	c.Put("key.3", 3)

	if _, ok := c.Peek("key.1"); ok {
		t.Error("oldest entry not evicted")
	}
	for _, k := range []string{"key.0", "key.2", "key.3"} {
		if _, ok := c.Peek(k); !ok {
			t.Errorf("entry %s missing after eviction", k)
		}
	}
}

func TestDefaultFreshness(t *testing.T) {
	c := New(0)
	if c.freshness != DefaultFreshness {
		t.Errorf("freshness = %s", c.freshness)
	}
}

package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBookedIndexCache_Disabled(t *testing.T) {
	c, err := NewBookedIndexCache(0)
	if err != nil || c != nil {
		t.Fatalf("expected nil cache, got %v, %v", c, err)
	}
	// nil cache is usable
	c.Put(uuid.New(), testNow, testNow, 0, BookedIndex{})
	if _, ok := c.Get(uuid.New(), testNow, testNow); ok {
		t.Error("nil cache should never hit")
	}
	c.Invalidate(uuid.New())
	if c.Len() != 0 {
		t.Error("nil cache should be empty")
	}
}

func TestBookedIndexCache_InvalidatePerDoctor(t *testing.T) {
	c, err := NewBookedIndexCache(16)
	if err != nil {
		t.Fatalf("NewBookedIndexCache: %v", err)
	}
	d1, d2 := uuid.New(), uuid.New()
	day := 24 * time.Hour
	c.Put(d1, testNow, testNow.Add(day), 0, BookedIndex{})
	c.Put(d1, testNow.Add(day), testNow.Add(2*day), 0, BookedIndex{})
	c.Put(d2, testNow, testNow.Add(day), 0, BookedIndex{})

	if _, ok := c.Get(d1, testNow, testNow.Add(day)); !ok {
		t.Fatal("expected hit")
	}
	if _, ok := c.Get(d1, testNow, testNow.Add(2*day)); ok {
		t.Fatal("different range must miss")
	}

	c.Invalidate(d1)
	if c.Len() != 1 {
		t.Errorf("expected only d2 to remain, got %d entries", c.Len())
	}
	if _, ok := c.Get(d2, testNow, testNow.Add(day)); !ok {
		t.Error("d2 entry should survive")
	}
}

func TestBookedIndexCache_Evicts(t *testing.T) {
	c, err := NewBookedIndexCache(2)
	if err != nil {
		t.Fatalf("NewBookedIndexCache: %v", err)
	}
	d := uuid.New()
	for i := 0; i < 3; i++ {
		start := testNow.Add(time.Duration(i) * time.Hour)
		c.Put(d, start, start, 0, BookedIndex{})
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries after eviction, got %d", c.Len())
	}
	if _, ok := c.Get(d, testNow, testNow); ok {
		t.Error("oldest entry should be evicted")
	}
}

func TestBookedIndexCache_StaleGenerationNotStored(t *testing.T) {
	c, err := NewBookedIndexCache(4)
	if err != nil {
		t.Fatalf("NewBookedIndexCache: %v", err)
	}
	d := uuid.New()
	gen := c.Generation(d)
	c.Invalidate(d)

	if c.Put(d, testNow, testNow, gen, BookedIndex{}) {
		t.Fatal("put with a stale generation should be refused")
	}
	if _, ok := c.Get(d, testNow, testNow); ok {
		t.Fatal("stale index must not be cached")
	}
	if !c.Put(d, testNow, testNow, c.Generation(d), BookedIndex{}) {
		t.Error("put with the current generation should be stored")
	}
}

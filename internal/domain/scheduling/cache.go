package scheduling

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// BookedIndexCache keeps recently built booked indexes keyed by doctor and
// resolved range. Entries are dropped per doctor whenever one of that
// doctor's appointments changes. It is process-local: a second instance
// writing to the same database will not invalidate it.
//
// Each doctor has a generation that Invalidate bumps. A reader takes the
// generation before querying the store and hands it to Put, so an index built
// from rows read before a concurrent write is never cached.
//
// A nil *BookedIndexCache is valid and never hits.
type BookedIndexCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, BookedIndex]
	gens  map[uuid.UUID]uint64
}

// NewBookedIndexCache returns a cache holding up to size ranges, or nil when
// size is not positive.
func NewBookedIndexCache(size int) (*BookedIndexCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, BookedIndex](size)
	if err != nil {
		return nil, fmt.Errorf("create booked index cache: %w", err)
	}
	return &BookedIndexCache{cache: c, gens: make(map[uuid.UUID]uint64)}, nil
}

func cacheKey(doctorID uuid.UUID, start, end time.Time) string {
	return fmt.Sprintf("%s|%d|%d", doctorID, start.UnixMilli(), end.UnixMilli())
}

func (c *BookedIndexCache) Get(doctorID uuid.UUID, start, end time.Time) (BookedIndex, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Get(cacheKey(doctorID, start, end))
}

// Generation returns the doctor's current invalidation count.
func (c *BookedIndexCache) Generation(doctorID uuid.UUID) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[doctorID]
}

// Put stores idx only if the doctor has not been invalidated since gen was
// read. It reports whether the entry was stored.
func (c *BookedIndexCache) Put(doctorID uuid.UUID, start, end time.Time, gen uint64, idx BookedIndex) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[doctorID] != gen {
		return false
	}
	c.cache.Add(cacheKey(doctorID, start, end), idx)
	return true
}

// Invalidate drops every range cached for the doctor.
func (c *BookedIndexCache) Invalidate(doctorID uuid.UUID) {
	if c == nil {
		return
	}
	prefix := doctorID.String() + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[doctorID]++
	for _, k := range c.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Remove(k)
		}
	}
}

func (c *BookedIndexCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

package engine

import (
	"sync"
	"time"

	"github.com/mstrand/serp-audit/internal/models"
)

type cacheEntry struct {
	key string
	ts  time.Time
}

// RecordCache is the idempotency store: finished records keyed by parameters
// hash, bounded by capacity and ttl. It is the only run-spanning state the
// engine holds.
type RecordCache struct {
	mu       sync.Mutex
	items    map[string]cachedRecord
	order    []cacheEntry
	capacity int
	ttl      time.Duration
}

type cachedRecord struct {
	record *models.NormalizedRecord
	ts     time.Time
}

// NewRecordCache creates a cache with the provided capacity and ttl.
func NewRecordCache(capacity int, ttl time.Duration) *RecordCache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RecordCache{
		items:    make(map[string]cachedRecord, capacity),
		order:    make([]cacheEntry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Get returns the cached record for a parameters hash when it is still inside
// the ttl window.
func (c *RecordCache) Get(paramsHash string) (*models.NormalizedRecord, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[paramsHash]; ok {
		if now.Sub(entry.ts) <= c.ttl {
			return entry.record, true
		}
	}
	return nil, false
}

// Put stores a finished record under its parameters hash.
func (c *RecordCache) Put(paramsHash string, record *models.NormalizedRecord) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[paramsHash] = cachedRecord{record: record, ts: now}
	c.order = append(c.order, cacheEntry{key: paramsHash, ts: now})
	c.compact(now)
}

func (c *RecordCache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if entry, ok := c.items[oldest.key]; ok {
			if entry.ts == oldest.ts {
				delete(c.items, oldest.key)
			}
		}
	}
}

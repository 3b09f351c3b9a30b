package cache

import (
	"container/list"
	"sync"
	"time"

	"inbox-digest-go/internal/metrics"
	"inbox-digest-go/internal/model"
)

// entry is one cached summary together with its expiry deadline.
type entry struct {
	id        string
	summary   *model.EmailSummary
	expiresAt time.Time
}

// SummaryCache is a bounded, time-expiring store of derived email metadata,
// keyed by message ID. Entries expire a fixed duration after insertion,
// independent of access. When the cache is full, the entry with the oldest
// insertion position is evicted; re-inserting an existing key refreshes its
// value and expiry but keeps its eviction position.
//
// The cache is safe for concurrent use, but gives no single-flight
// guarantee: two callers racing on the same missing key may both compute a
// summary and both write it, with the second write winning.
type SummaryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = oldest insertion position
	metrics  *metrics.Metrics

	now func() time.Time // overridable in tests
}

// New creates a summary cache bounded to capacity entries, each expiring
// ttl after insertion.
func New(capacity int, ttl time.Duration, m *metrics.Metrics) *SummaryCache {
	return &SummaryCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		metrics:  m,
		now:      time.Now,
	}
}

// Get returns the cached summary for id. Absent, expired and evicted
// entries are indistinguishable: all report a miss. An expired entry is
// removed on access.
func (c *SummaryCache) Get(id string) (*model.EmailSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[id]
	if !ok {
		c.metrics.CacheMisses.Inc()
		return nil, false
	}

	e := el.Value.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.remove(el)
		c.metrics.CacheMisses.Inc()
		return nil, false
	}

	c.metrics.CacheHits.Inc()
	return e.summary, true
}

// Put stores the summary for id. If id is already present its value and
// expiry are replaced in place, without resetting its eviction position.
// If the cache is at capacity, the oldest entry is evicted first.
func (c *SummaryCache) Put(id string, summary *model.EmailSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[id]; ok {
		e := el.Value.(*entry)
		e.summary = summary
		e.expiresAt = c.now().Add(c.ttl)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Front(); oldest != nil {
			c.remove(oldest)
			c.metrics.CacheEvictions.Inc()
		}
	}

	el := c.order.PushBack(&entry{
		id:        id,
		summary:   summary,
		expiresAt: c.now().Add(c.ttl),
	})
	c.entries[id] = el
	c.metrics.CacheSize.Set(float64(c.order.Len()))
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *SummaryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if !now.Before(el.Value.(*entry).expiresAt) {
			c.remove(el)
			removed++
		}
		el = next
	}
	return removed
}

// Len returns the current number of entries, expired ones included.
func (c *SummaryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// remove drops an entry. Caller must hold the lock.
func (c *SummaryCache) remove(el *list.Element) {
	delete(c.entries, el.Value.(*entry).id)
	c.order.Remove(el)
	c.metrics.CacheSize.Set(float64(c.order.Len()))
}

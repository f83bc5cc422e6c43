package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"withdrawal_settlement/models"
)

const DefaultTTL = 10 * time.Second

type cachedList struct {
	Items     []models.Summary
	Timestamp time.Time
}

// ListCache keeps review-list pages for a short time. Any write to a
// withdrawal request must call Invalidate.
type ListCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cachedList
	gen     uint64
	now     func() time.Time
}

func NewListCache(ttl time.Duration) *ListCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ListCache{
		ttl:     ttl,
		entries: make(map[string]cachedList),
		now:     time.Now,
	}
}

func key(f models.Filter) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", f.Status, f.Method, f.UserQuery, f.Limit, f.Offset)
}

// Get returns a copy of the cached page, or false if it is missing or stale.
func (c *ListCache) Get(f models.Filter) ([]models.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key(f)]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.Timestamp) > c.ttl {
		delete(c.entries, key(f))
		return nil, false
	}

	logrus.WithField("filter", key(f)).Debug("review list served from cache")
	return append([]models.Summary(nil), entry.Items...), true
}

// Generation changes on every Invalidate. Read it before loading a page
// and pass it to Set, so a page loaded across a write is not cached.
func (c *ListCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *ListCache) Set(f models.Filter, items []models.Summary, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	c.entries[key(f)] = cachedList{
		Items:     append([]models.Summary(nil), items...),
		Timestamp: c.now(),
	}
}

func (c *ListCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cachedList)
	c.gen++
}

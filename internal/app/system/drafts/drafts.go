// Package drafts keeps in-progress report edits server-side, one slot per
// session, so a failed save can be retried or exported without re-posting.
package drafts

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DefaultTTL applies when New is given a non-positive ttl.
const DefaultTTL = 12 * time.Hour

// Draft is the editor state for one session.
type Draft struct {
	Date    string // stored ISO form
	Text    string
	OwnerID string // owner of the report being edited; empty for a new report
}

// Cache is a TTL cache of drafts keyed by session draft id.
type Cache struct {
	c *cache.Cache
}

// New returns a cache whose entries expire ttl after their last write.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{c: cache.New(ttl, ttl/2)}
}

// NewID returns a fresh draft slot id.
func NewID() string {
	return uuid.NewString()
}

// Put stores d under id. An empty id is ignored.
func (c *Cache) Put(id string, d Draft) {
	if id == "" {
		return
	}
	c.c.SetDefault(id, d)
}

// Get returns the draft for id.
func (c *Cache) Get(id string) (Draft, bool) {
	if id == "" {
		return Draft{}, false
	}
	v, ok := c.c.Get(id)
	if !ok {
		return Draft{}, false
	}
	d, ok := v.(Draft)
	return d, ok
}

// Discard drops the draft for id.
func (c *Cache) Discard(id string) {
	c.c.Delete(id)
}

// Len reports the number of live drafts.
func (c *Cache) Len() int {
	return c.c.ItemCount()
}

package retreat

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/retreat/client"
	"github.com/eringen/retreat/state"
	"github.com/eringen/retreat/views"
)

// BlogLister lists blogs for a filter.
type BlogLister interface {
	ListBlogs(ctx context.Context, f client.Filter) ([]client.Blog, error)
}

// FeedCache is an in-memory cache of the unfiltered blog listing with TTL.
// It backs the RSS feed, the sitemap, the category counts and the saved page,
// none of which depend on a visitor's filter.
type FeedCache struct {
	mu      sync.RWMutex
	blogs   []client.Blog
	fetched time.Time
	ttl     time.Duration
	lister  BlogLister
	now     func() time.Time
}

// NewFeedCache creates a FeedCache backed by l.
func NewFeedCache(l BlogLister, ttl time.Duration) *FeedCache {
	return &FeedCache{lister: l, ttl: ttl, now: time.Now}
}

func (c *FeedCache) valid() bool {
	return c.blogs != nil && c.now().Sub(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *FeedCache) Invalidate() {
	c.mu.Lock()
	c.blogs = nil
	c.mu.Unlock()
}

// List returns the unfiltered listing, loading it if the cache is stale.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *FeedCache) List(ctx context.Context) ([]client.Blog, error) {
	c.mu.RLock()
	if c.valid() {
		blogs := c.blogs
		c.mu.RUnlock()
		return blogs, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.blogs, nil
	}
	blogs, err := c.lister.ListBlogs(ctx, client.Filter{})
	if err != nil {
		return nil, err
	}
	c.blogs = blogs
	c.fetched = c.now()
	return blogs, nil
}

// Categories returns every known category with its number of blogs. Counts
// are -1 when the listing cannot be loaded.
func (c *FeedCache) Categories(ctx context.Context) []views.CategoryCount {
	out := make([]views.CategoryCount, len(state.Categories))
	blogs, err := c.List(ctx)
	counts := make(map[string]int)
	for _, b := range blogs {
		counts[b.Category]++
	}
	for i, name := range state.Categories {
		out[i] = views.CategoryCount{Name: name, Count: counts[name]}
		if err != nil {
			out[i].Count = -1
		}
	}
	return out
}

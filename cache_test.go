package retreat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eringen/retreat/client"
)

type fakeLister struct {
	mu    sync.Mutex
	calls int
	blogs []client.Blog
	err   error
}

func (f *fakeLister) ListBlogs(_ context.Context, _ client.Filter) ([]client.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.blogs, f.err
}

func newTestCache(l BlogLister, ttl time.Duration) (*FeedCache, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewFeedCache(l, ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestFeedCacheReusesWithinTTL(t *testing.T) {
	l := &fakeLister{blogs: []client.Blog{{ID: "1"}}}
	c, now := newTestCache(l, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.List(ctx); err != nil {
			t.Fatalf("List: %v", err)
		}
	}
	if l.calls != 1 {
		t.Fatalf("calls = %d, want 1", l.calls)
	}

	*now = now.Add(time.Minute)
	if _, err := c.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	if l.calls != 2 {
		t.Fatalf("calls after expiry = %d, want 2", l.calls)
	}
}

func TestFeedCacheInvalidate(t *testing.T) {
	l := &fakeLister{blogs: []client.Blog{{ID: "1"}}}
	c, _ := newTestCache(l, time.Hour)
	ctx := context.Background()

	c.List(ctx)
	c.Invalidate()
	c.List(ctx)
	if l.calls != 2 {
		t.Fatalf("calls = %d, want 2", l.calls)
	}
}

func TestFeedCacheDoesNotCacheErrors(t *testing.T) {
	l := &fakeLister{err: errors.New("down")}
	c, _ := newTestCache(l, time.Hour)
	ctx := context.Background()

	if _, err := c.List(ctx); err == nil {
		t.Fatalf("expected error")
	}
	l.err = nil
	l.blogs = []client.Blog{}
	if _, err := c.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	if l.calls != 2 {
		t.Fatalf("calls = %d, want 2", l.calls)
	}
}

func TestFeedCacheCategories(t *testing.T) {
	l := &fakeLister{blogs: []client.Blog{
		{ID: "1", Category: "Travel"},
		{ID: "2", Category: "Travel"},
		{ID: "3", Category: "Health"},
	}}
	c, _ := newTestCache(l, time.Hour)

	counts := make(map[string]int)
	for _, cc := range c.Categories(context.Background()) {
		counts[cc.Name] = cc.Count
	}
	if counts["Travel"] != 2 || counts["Health"] != 1 || counts["Study"] != 0 {
		t.Fatalf("counts = %v", counts)
	}

	c.Invalidate()
	l.err = errors.New("down")
	for _, cc := range c.Categories(context.Background()) {
		if cc.Count != -1 {
			t.Fatalf("%s count = %d, want -1 when the listing fails", cc.Name, cc.Count)
		}
	}
}

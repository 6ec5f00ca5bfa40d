package state

import (
	"context"
	"strings"

	"github.com/eringen/retreat/client"
)

// Filter selects which blogs are listed. An empty Category lists every category.
type Filter struct {
	SearchQuery string
	Category    string
}

// SetSearchQuery changes the search text and refetches if it changed.
func (p *Provider) SetSearchQuery(ctx context.Context, q string) {
	f := p.Filter()
	f.SearchQuery = q
	p.SetFilter(ctx, f)
}

// SetCategory changes the category and refetches if it changed.
func (p *Provider) SetCategory(ctx context.Context, category string) {
	f := p.Filter()
	f.Category = category
	p.SetFilter(ctx, f)
}

// SetFilter replaces the whole filter and refetches if it changed.
func (p *Provider) SetFilter(ctx context.Context, f Filter) {
	f.SearchQuery = strings.TrimSpace(f.SearchQuery)
	f.Category = strings.TrimSpace(f.Category)

	p.mu.Lock()
	changed := p.filter != f
	p.filter = f
	p.mu.Unlock()

	if changed {
		_ = p.FetchBlogs(ctx)
	}
}

// FetchBlogs lists blogs for the current filter and replaces the collection.
// A response is applied only if no later-issued request has already been
// applied, so the collection never regresses to a superseded filter. On
// failure the previous collection is kept and the error is logged.
func (p *Provider) FetchBlogs(ctx context.Context) error {
	p.mu.Lock()
	p.blogSeq++
	seq := p.blogSeq
	f := p.filter
	p.blogInFlight++
	p.mu.Unlock()

	blogs, err := p.api.ListBlogs(ctx, client.Filter{SearchQuery: f.SearchQuery, Category: f.Category})

	p.mu.Lock()
	defer p.mu.Unlock()
	p.blogInFlight--
	if err != nil {
		p.logger.Error("fetch blogs", "error", err, "search", f.SearchQuery, "category", f.Category)
		return err
	}
	if seq <= p.blogApplied {
		p.logger.Debug("discard superseded blog listing", "seq", seq, "applied", p.blogApplied)
		return nil
	}
	p.blogs = blogs
	p.blogApplied = seq
	return nil
}

package state

import (
	"context"
	"fmt"

	"github.com/eringen/retreat/client"
)

// GetSavedBlogs refreshes the bookmark records of the signed-in user. It does
// nothing when signed out. Failures are logged and keep the previous records.
func (p *Provider) GetSavedBlogs(ctx context.Context) error {
	p.mu.Lock()
	if p.user == nil {
		p.mu.Unlock()
		return nil
	}
	p.savedSeq++
	seq := p.savedSeq
	p.mu.Unlock()

	token, err := p.tokens.Token()
	if err != nil || token == "" {
		return err
	}

	saved, err := p.api.ListSaved(ctx, token)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.logger.Error("fetch saved blogs", "error", err)
		return err
	}
	// Signed out, or overtaken by a newer request, while this one was in flight.
	if p.user == nil || seq <= p.savedApplied {
		return nil
	}
	p.saved = saved
	p.savedApplied = seq
	return nil
}

// ToggleSave bookmarks blogID, or removes an existing bookmark, and then
// refreshes the saved records.
func (p *Provider) ToggleSave(ctx context.Context, blogID string) error {
	if blogID == "" {
		return fmt.Errorf("%w: missing blog id", ErrInvalidInput)
	}
	done, err := p.begin(ActionToggleSave)
	if err != nil {
		return err
	}
	defer done()

	token, err := p.requireToken(ctx)
	if err != nil {
		return err
	}
	msg, err := p.api.ToggleSave(ctx, token, blogID)
	if err != nil {
		p.notify(ctx, LevelError, client.Message(err, "Problem while saving blog"))
		return fmt.Errorf("toggle save: %w", err)
	}
	p.notify(ctx, LevelSuccess, msg)
	return p.GetSavedBlogs(ctx)
}

// IsSaved reports whether blogID is among the signed-in user's bookmarks.
func (p *Provider) IsSaved(blogID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.saved {
		if s.BlogID == blogID {
			return true
		}
	}
	return false
}

// SavedPosts returns the blogs whose ID appears among the saved records,
// in the order of blogs.
func SavedPosts(blogs []client.Blog, saved []client.SavedBlog) []client.Blog {
	ids := make(map[string]struct{}, len(saved))
	for _, s := range saved {
		ids[s.BlogID] = struct{}{}
	}
	var out []client.Blog
	for _, b := range blogs {
		if _, ok := ids[b.ID]; ok {
			out = append(out, b)
		}
	}
	return out
}

package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eringen/retreat/client"
)

// Action names a mutation that carries a busy flag.
type Action string

const (
	ActionPublish        Action = "publish"
	ActionPolishTitle    Action = "ai-title"
	ActionGenDescription Action = "ai-description"
	ActionFixGrammar     Action = "ai-grammar"
	ActionUpdateProfile  Action = "update-profile"
	ActionUpdateAvatar   Action = "update-avatar"
	ActionToggleSave     Action = "toggle-save"
)

// Categories lists the categories the blog service accepts, in display order.
var Categories = []string{
	"Techonlogy",
	"Health",
	"Finance",
	"Travel",
	"Education",
	"Entertainment",
	"Study",
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Draft is the text of a blog being written.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Content     string `json:"content"`
}

// Validate checks the fields the blog service requires.
func (d Draft) Validate() error {
	var missing []string
	if strings.TrimSpace(d.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(d.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(d.Category) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(d.Content) == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if !ValidCategory(d.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, d.Category)
	}
	return nil
}

// Busy reports whether a is in progress.
func (p *Provider) Busy(a Action) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy[a]
}

// begin raises the busy flag of a. The returned func lowers it.
func (p *Provider) begin(a Action) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy[a] {
		return nil, fmt.Errorf("%s: %w", a, ErrBusy)
	}
	p.busy[a] = true
	return func() {
		p.mu.Lock()
		delete(p.busy, a)
		p.mu.Unlock()
	}, nil
}

// Publish creates a blog from d. image is optional. Validation happens before
// any request is made. On success the blog list is refreshed after the
// configured refresh delay.
func (p *Provider) Publish(ctx context.Context, d Draft, image *client.Upload) error {
	if err := d.Validate(); err != nil {
		p.notify(ctx, LevelError, "Please fill in the title, description, category and content.")
		return err
	}
	done, err := p.begin(ActionPublish)
	if err != nil {
		return err
	}
	defer done()

	token, err := p.requireToken(ctx)
	if err != nil {
		return err
	}
	msg, err := p.api.CreateBlog(ctx, token, client.NewBlog{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Content:     d.Content,
		Category:    d.Category,
	}, image)
	if err != nil {
		p.notify(ctx, LevelError, "Error while adding blog")
		return fmt.Errorf("publish: %w", err)
	}
	p.notify(ctx, LevelSuccess, msg)

	if p.refreshDelay <= 0 {
		_ = p.FetchBlogs(ctx)
		return nil
	}
	time.AfterFunc(p.refreshDelay, func() {
		_ = p.FetchBlogs(context.Background())
	})
	return nil
}

// PolishTitle replaces d.Title with an AI-polished version.
func (p *Provider) PolishTitle(ctx context.Context, d *Draft) error {
	return p.assist(ctx, ActionPolishTitle, &d.Title, func() (string, error) {
		return p.api.AITitle(ctx, d.Title)
	})
}

// GenerateDescription replaces d.Description with one generated from the
// title and the current description.
func (p *Provider) GenerateDescription(ctx context.Context, d *Draft) error {
	return p.assist(ctx, ActionGenDescription, &d.Description, func() (string, error) {
		return p.api.AIDescription(ctx, d.Title, d.Description)
	})
}

// FixGrammar replaces d.Content with a grammar-corrected version.
func (p *Provider) FixGrammar(ctx context.Context, d *Draft) error {
	return p.assist(ctx, ActionFixGrammar, &d.Content, func() (string, error) {
		return p.api.AIGrammar(ctx, d.Content)
	})
}

// assist runs one AI call and writes its result to field on success only.
func (p *Provider) assist(ctx context.Context, a Action, field *string, call func() (string, error)) error {
	done, err := p.begin(a)
	if err != nil {
		return err
	}
	defer done()

	out, err := call()
	if err != nil {
		p.logger.Warn("ai assist", "action", string(a), "error", err)
		p.notify(ctx, LevelError, "Problem while fetching from ai")
		return fmt.Errorf("%s: %w", a, err)
	}
	*field = out
	return nil
}

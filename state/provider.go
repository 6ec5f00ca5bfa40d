// Package state holds the client-side view of the blog platform for one
// visitor: who is signed in, which blogs are listed under the current filter,
// and which of them the visitor has saved.
//
// A Provider is the single owner of that state. Views read snapshots through
// its accessors and change state only through its action methods, each of
// which performs one service call and replaces the affected collection with
// the response. A Provider is safe for concurrent use; its lock is never held
// across a network call.
package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eringen/retreat/client"
)

// API is the subset of the service client a Provider needs.
type API interface {
	Me(ctx context.Context, token string) (client.User, error)
	Login(ctx context.Context, creds client.Credentials) (client.AuthResponse, error)
	Register(ctx context.Context, reg client.Registration) (client.AuthResponse, error)
	OAuthLogin(ctx context.Context, code string) (client.AuthResponse, error)
	UpdateProfile(ctx context.Context, token string, p client.ProfileUpdate) (client.AuthResponse, error)
	UpdateAvatar(ctx context.Context, token string, file client.Upload) (client.AuthResponse, error)
	ListBlogs(ctx context.Context, f client.Filter) ([]client.Blog, error)
	ListSaved(ctx context.Context, token string) ([]client.SavedBlog, error)
	ToggleSave(ctx context.Context, token, blogID string) (string, error)
	CreateBlog(ctx context.Context, token string, b client.NewBlog, image *client.Upload) (string, error)
	AITitle(ctx context.Context, text string) (string, error)
	AIDescription(ctx context.Context, title, description string) (string, error)
	AIGrammar(ctx context.Context, blog string) (string, error)
}

// Status is the authentication state of a Provider.
type Status int

const (
	StatusInitializing Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Provider owns session, blog collection and saved-blog state.
type Provider struct {
	api          API
	tokens       TokenStore
	notifier     Notifier
	logger       *slog.Logger
	refreshDelay time.Duration
	now          func() time.Time

	mu     sync.Mutex
	status Status
	user   *client.User

	filter       Filter
	blogs        []client.Blog
	blogSeq      uint64 // last issued listing request
	blogApplied  uint64 // request whose response is currently held
	blogInFlight int

	saved        []client.SavedBlog
	savedSeq     uint64
	savedApplied uint64

	busy map[Action]bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithNotifier routes notices to n. The default drops them.
func WithNotifier(n Notifier) Option {
	return func(p *Provider) { p.notifier = n }
}

// WithLogger sets the logger used for read-path failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithRefreshDelay sets how long after a successful publish the blog list is
// refetched. Zero refetches before Publish returns.
func WithRefreshDelay(d time.Duration) Option {
	return func(p *Provider) { p.refreshDelay = d }
}

// WithClock overrides the time source used to judge token expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// DefaultRefreshDelay gives the services time to index a new blog.
const DefaultRefreshDelay = 4 * time.Second

// New creates a Provider in the Initializing state. Call Init before use.
func New(api API, tokens TokenStore, opts ...Option) *Provider {
	p := &Provider{
		api:          api,
		tokens:       tokens,
		notifier:     discard{},
		logger:       slog.Default(),
		refreshDelay: DefaultRefreshDelay,
		now:          time.Now,
		status:       StatusInitializing,
		busy:         make(map[Action]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init restores the session, then loads the blog list and, when signed in,
// the saved blogs.
func (p *Provider) Init(ctx context.Context) {
	p.RestoreSession(ctx)
	_ = p.FetchBlogs(ctx)
}

// Status returns the current authentication state.
func (p *Provider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Authenticated reports whether a user is signed in.
func (p *Provider) Authenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user != nil
}

// User returns a copy of the signed-in user, or nil.
func (p *Provider) User() *client.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

// Blogs returns the current blog collection. It is nil until the first
// listing succeeds.
func (p *Provider) Blogs() []client.Blog {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.blogs == nil {
		return nil
	}
	return append([]client.Blog(nil), p.blogs...)
}

// SavedBlogs returns the bookmark records of the signed-in user, or nil when
// none have been fetched.
func (p *Provider) SavedBlogs() []client.SavedBlog {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saved == nil {
		return nil
	}
	return append([]client.SavedBlog(nil), p.saved...)
}

// Filter returns the current filter state.
func (p *Provider) Filter() Filter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// Loading reports whether a blog listing request is in flight.
func (p *Provider) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blogInFlight > 0
}

func (p *Provider) notify(ctx context.Context, level Level, msg string) {
	if msg == "" {
		return
	}
	p.notifier.Notify(ctx, Notice{Level: level, Message: msg})
}

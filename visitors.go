package retreat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/retreat/state"
)

// Visitor is the state of one browser session: a provider and the token and
// notices it works with.
type Visitor struct {
	ID       string
	Provider *state.Provider
	Tokens   *state.MemoryTokens
	Inbox    *state.Inbox

	mu       sync.Mutex
	lastSeen time.Time
}

func (v *Visitor) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *Visitor) idleSince(cutoff time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen.Before(cutoff)
}

// ProviderFactory builds the provider of a new visitor.
type ProviderFactory func(tokens state.TokenStore, notifier state.Notifier) *state.Provider

// Visitors is an in-memory registry of visitors keyed by a random ID kept in
// the visitor's session cookie. Visitors idle for longer than the TTL are
// evicted; their next request starts over from the token cookie. At most max
// visitors are kept: registering one more evicts the least recently seen.
type Visitors struct {
	mu       sync.Mutex
	visitors map[string]*Visitor
	ttl      time.Duration
	max      int
	factory  ProviderFactory
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewVisitors creates a registry and starts its eviction loop.
func NewVisitors(ttl time.Duration, max int, factory ProviderFactory) *Visitors {
	v := &Visitors{
		visitors: make(map[string]*Visitor),
		ttl:      ttl,
		max:      max,
		factory:  factory,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go v.cleanup()
	return v
}

func (v *Visitors) cleanup() {
	interval := v.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			v.Evict()
		case <-v.stop:
			return
		}
	}
}

// Evict removes visitors idle for longer than the TTL and returns how many
// were removed.
func (v *Visitors) Evict() int {
	cutoff := v.now().Add(-v.ttl)
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for id, vis := range v.visitors {
		if vis.idleSince(cutoff) {
			delete(v.visitors, id)
			n++
		}
	}
	return n
}

// Get returns the visitor with id and marks it as seen.
func (v *Visitors) Get(id string) (*Visitor, bool) {
	if id == "" {
		return nil, false
	}
	v.mu.Lock()
	vis, ok := v.visitors[id]
	v.mu.Unlock()
	if ok {
		vis.touch(v.now())
	}
	return vis, ok
}

// Create registers a new visitor whose provider starts from token and runs
// its initial session restore and blog fetch before returning.
func (v *Visitors) Create(ctx context.Context, token string) *Visitor {
	vis := v.build(token)
	vis.Provider.Init(ctx)

	v.mu.Lock()
	if v.max > 0 {
		for len(v.visitors) >= v.max {
			v.evictOldestLocked()
		}
	}
	v.visitors[vis.ID] = vis
	v.mu.Unlock()
	return vis
}

// Transient returns a visitor that is not registered. Its provider only
// restores the session from token; listings are fetched on demand. It serves
// requests that arrive without a session cookie, such as first hits and
// clients that never keep cookies.
func (v *Visitors) Transient(ctx context.Context, token string) *Visitor {
	vis := v.build(token)
	vis.Provider.RestoreSession(ctx)
	return vis
}

func (v *Visitors) build(token string) *Visitor {
	vis := &Visitor{
		ID:       uuid.NewString(),
		Tokens:   state.NewMemoryTokens(token),
		Inbox:    &state.Inbox{},
		lastSeen: v.now(),
	}
	vis.Provider = v.factory(vis.Tokens, vis.Inbox)
	return vis
}

// evictOldestLocked removes the least recently seen visitor. v.mu must be held.
func (v *Visitors) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, vis := range v.visitors {
		vis.mu.Lock()
		seen := vis.lastSeen
		vis.mu.Unlock()
		if oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	delete(v.visitors, oldestID)
}

// Remove forgets the visitor with id.
func (v *Visitors) Remove(id string) {
	v.mu.Lock()
	delete(v.visitors, id)
	v.mu.Unlock()
}

// Len returns the number of live visitors.
func (v *Visitors) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.visitors)
}

// Close stops the eviction loop.
func (v *Visitors) Close() {
	v.stopOnce.Do(func() { close(v.stop) })
}

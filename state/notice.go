package state

import (
	"context"
	"sync"
)

// Level classifies a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a user-facing message produced by an action.
type Notice struct {
	Level   Level
	Message string
}

// Notifier receives notices as actions complete.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Inbox collects notices until they are drained.
type Inbox struct {
	mu      sync.Mutex
	notices []Notice
}

func (b *Inbox) Notify(_ context.Context, n Notice) {
	b.mu.Lock()
	b.notices = append(b.notices, n)
	b.mu.Unlock()
}

// Drain returns all pending notices and empties the inbox.
func (b *Inbox) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	return out
}

type discard struct{}

func (discard) Notify(context.Context, Notice) {}

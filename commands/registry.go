package commands

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/nicebartender/chatbridge/chat"
)

// Invocation is one parsed command call.
type Invocation struct {
	Command     string
	Args        []string
	Channel     string
	UserID      string
	DisplayName string
	Badges      chat.Badges
	Whisper     bool
}

// Handler produces the reply text for an invocation. An empty reply with a
// nil error means the command handled itself silently.
type Handler func(ctx context.Context, inv Invocation) (string, error)

// Registry maps command names to handlers. It is owned by the session that
// creates it and injected where needed; there is no package-level instance.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds name to h, replacing any previous binding. Names are
// case-insensitive.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToLower(name)] = h
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, strings.ToLower(name))
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[strings.ToLower(name)]
	return h, ok
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

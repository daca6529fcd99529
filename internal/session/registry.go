package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type RegistryOptions struct {
	// Key is the fixed storage key; each origin gets Key + ":" + origin.
	Key          string
	Storage      Storage
	Codec        Codec
	Credentials  Authenticator
	Clock        Clock
	Events       EventSink
	Lifetime     time.Duration
	IdleEviction time.Duration
	Logger       zerolog.Logger
}

type registryEntry struct {
	manager  *Manager
	nav      *Recorder
	lastSeen time.Time
}

// Registry owns one Manager per browser storage origin.
type Registry struct {
	opts RegistryOptions

	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Key == "" {
		opts.Key = "medical_auth_token"
	}
	return &Registry{
		opts:    opts,
		entries: make(map[string]*registryEntry),
	}
}

// StorageKey returns the durable key used for origin.
func (r *Registry) StorageKey(origin string) string {
	if origin == "" {
		return r.opts.Key
	}
	return r.opts.Key + ":" + origin
}

// Get returns the initialized manager for origin together with the recorder
// that captures its navigations.
func (r *Registry) Get(ctx context.Context, origin string) (*Manager, *Recorder) {
	r.mu.Lock()
	e, ok := r.entries[origin]
	if !ok {
		nav := &Recorder{}
		e = &registryEntry{
			manager: NewManager(Options{
				Origin:      origin,
				Key:         r.StorageKey(origin),
				Storage:     r.opts.Storage,
				Codec:       r.opts.Codec,
				Credentials: r.opts.Credentials,
				Clock:       r.opts.Clock,
				Navigator:   nav,
				Events:      r.opts.Events,
				Lifetime:    r.opts.Lifetime,
				Logger:      r.opts.Logger,
			}),
			nav: nav,
		}
		if !r.closed {
			r.entries[origin] = e
		}
	}
	e.lastSeen = r.opts.Clock.Now()
	r.mu.Unlock()

	e.manager.Initialize(ctx)
	return e.manager, e.nav
}

// Sweep drops managers that are logged out and have not been used for the
// idle eviction window. Their storage keys are already empty, so a later Get
// simply starts over. It returns the number of evicted managers.
func (r *Registry) Sweep() int {
	if r.opts.IdleEviction <= 0 {
		return 0
	}

	cutoff := r.opts.Clock.Now().Add(-r.opts.IdleEviction)

	r.mu.Lock()
	var evicted []*Manager
	for origin, e := range r.entries {
		if e.lastSeen.After(cutoff) {
			continue
		}
		if e.manager.State().IsAuthenticated {
			continue
		}
		delete(r.entries, origin)
		evicted = append(evicted, e.manager)
	}
	r.mu.Unlock()

	for _, m := range evicted {
		m.Close()
	}
	return len(evicted)
}

// Stats counts tracked origins and those currently authenticated.
func (r *Registry) Stats() (origins int, authenticated int) {
	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.entries))
	for _, e := range r.entries {
		managers = append(managers, e.manager)
	}
	r.mu.Unlock()

	for _, m := range managers {
		if m.State().IsAuthenticated {
			authenticated++
		}
	}
	return len(managers), authenticated
}

// Close cancels every pending expiry timer. Stored tokens are kept so the
// sessions are restored by the next process.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.manager.Close()
	}
}

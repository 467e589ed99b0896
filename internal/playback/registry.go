package playback

import (
	"log/slog"
	"sync"
)

// Factory builds the controller for a new session.
type Factory func(sessionID string) *Controller

// Registry maps session IDs (guilds) to their controllers. It is the only
// structure shared across sessions and every mutation is synchronized. It is
// always injected; nothing in the module holds a package-level registry.
type Registry struct {
	mu       sync.Mutex
	factory  Factory
	sessions map[string]*Controller
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		sessions: make(map[string]*Controller),
	}
}

// GetOrCreate returns the session's controller, creating it on first use.
func (r *Registry) GetOrCreate(sessionID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.sessions[sessionID]; ok {
		return c
	}
	c := r.factory(sessionID)
	r.sessions[sessionID] = c
	slog.Info("session created", "session", sessionID, "active", len(r.sessions))
	return c
}

// Get returns the session's controller if it exists.
func (r *Registry) Get(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[sessionID]
	return c, ok
}

// Remove tears the session down, blocking until its subprocess, if any, has
// been reaped. Removing an unknown session is a no-op.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	c, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if !ok {
		return
	}
	c.Close()
	slog.Info("session destroyed", "session", sessionID)
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown closes every session. Used during process shutdown to guarantee
// no transcoder outlives the bot.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*Controller, 0, len(r.sessions))
	for id, c := range r.sessions {
		sessions = append(sessions, c)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close()
		}()
	}
	wg.Wait()
}

package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hyperjump/fuda/internal/syncer"
)

// sessionRegistry maps session ids to their sync engines. Each loaded
// project gets its own engine; engines serialize their own triggers, the
// registry only guards the map.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*syncer.Engine
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*syncer.Engine)}
}

func (r *sessionRegistry) add(engine *syncer.Engine) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = engine
	r.mu.Unlock()
	return id
}

func (r *sessionRegistry) get(id string) (*syncer.Engine, bool) {
	r.mu.RLock()
	engine, ok := r.sessions[id]
	r.mu.RUnlock()
	return engine, ok
}

func (r *sessionRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

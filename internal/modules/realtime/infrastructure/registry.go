package infrastructure

import "sync"

// Registry is the set of live connections owned by one relay.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Add registers c. It reports false when a connection with the same id is already present.
func (r *Registry) Add(c *Connection) bool {
	if c == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[c.id]; exists {
		return false
	}
	r.conns[c.id] = c
	return true
}

// Remove unregisters c. It reports false when c was not registered.
func (r *Registry) Remove(c *Connection) bool {
	if c == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.conns[c.id]; !ok || existing != c {
		return false
	}
	delete(r.conns, c.id)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot copies the live set so callers can iterate without holding the lock.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Each calls fn for every live connection until fn returns false.
func (r *Registry) Each(fn func(*Connection) bool) {
	for _, c := range r.Snapshot() {
		if !fn(c) {
			return
		}
	}
}

// CountRole returns how many live connections registered with role.
func (r *Registry) CountRole(role string) int {
	n := 0
	r.Each(func(c *Connection) bool {
		if c.Role() == role {
			n++
		}
		return true
	})
	return n
}

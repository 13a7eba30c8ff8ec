package presence

import "sync"

// Registry is the ephemeral userId -> token map used to resolve
// reachability before relaying direct call-signaling events. Entries are
// best effort: no TTL, removed on unregister or disconnect.
//
// The registry is instance scoped and injected; a multi-instance deployment
// swaps it for one backed by the shared fan-out store.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]string)}
}

// Register sets the reachability marker for the user.
func (r *Registry) Register(userID, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[userID] = token
}

// Lookup resolves the user's marker.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.entries[userID]
	return token, ok
}

// Unregister removes the user's marker. Unknown users are a no-op.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
}

// Len reports how many users are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

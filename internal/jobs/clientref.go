package jobs

import "sync"

// ClientRef owns the currently configured external client. Settings updates
// swap the client as a whole; each dispatch captures the snapshot current at
// dispatch time, so in-flight runners keep the client they started with.
type ClientRef struct {
	mu sync.RWMutex
	c  Client
}

// NewClientRef wraps an initial client.
func NewClientRef(c Client) *ClientRef {
	return &ClientRef{c: c}
}

// Load returns the current client snapshot.
func (r *ClientRef) Load() Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.c
}

// Store replaces the client used by future dispatches.
func (r *ClientRef) Store(c Client) {
	r.mu.Lock()
	r.c = c
	r.mu.Unlock()
}

package transport

import "sync"

// StreamRegistry tracks in-flight streaming requests so the server can tear
// them down on shutdown. It maps stream IDs to close functions that cancel
// the outbound provider call.
//
// All methods are safe for concurrent access.
type StreamRegistry struct {
	mu      sync.Mutex
	entries map[string]func()
}

// NewStreamRegistry creates a new empty registry.
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{
		entries: make(map[string]func()),
	}
}

// Register adds an in-flight stream to the registry. The close function is
// called when the registry is drained at shutdown.
func (r *StreamRegistry) Register(id string, close func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = close
}

// Remove removes a stream from the registry without closing it.
// Called when a stream completes normally.
func (r *StreamRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// CloseAll closes every registered stream and empties the registry.
func (r *StreamRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, close := range r.entries {
		close()
		delete(r.entries, id)
	}
}

// Len reports the number of in-flight streams.
func (r *StreamRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

package core

import "sync"

// SessionRegistry tracks every live connection and whether, and as whom,
// it is authenticated. The unauthenticated-to-authenticated transition is
// a single compare-and-set on the client's identity field, so a command
// racing with authentication is either rejected or sees the full identity,
// never a partial one.
type SessionRegistry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[int64]map[*Client]struct{}
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[int64]map[*Client]struct{}),
	}
}

// Register adds a connection in the unauthenticated state. No failure mode.
func (r *SessionRegistry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

// Authenticate binds the identity to the connection. Returns false if the
// connection is unknown or already authenticated.
func (r *SessionRegistry) Authenticate(c *Client, id *Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, known := r.clients[c]; !known {
		return false
	}
	if !c.bind(id) {
		return false
	}

	set, ok := r.byUser[id.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		r.byUser[id.UserID] = set
	}
	set[c] = struct{}{}
	return true
}

// IdentityOf returns the identity bound to the connection, or nil.
func (r *SessionRegistry) IdentityOf(c *Client) *Identity {
	return c.Identity()
}

// Unregister releases the connection's binding. Idempotent: returns
// false if the connection was already gone.
func (r *SessionRegistry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, known := r.clients[c]; !known {
		return false
	}
	delete(r.clients, c)
	if id := c.Identity(); id != nil {
		if set, ok := r.byUser[id.UserID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(r.byUser, id.UserID)
			}
		}
	}
	return true
}

// Contains reports whether the connection is still registered.
func (r *SessionRegistry) Contains(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[c]
	return ok
}

// ClientsOf returns a snapshot of the user's live connections.
func (r *SessionRegistry) ClientsOf(userID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	return clients
}

// All returns a snapshot of every registered connection, authenticated
// or not. Used for global broadcasts.
func (r *SessionRegistry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// Len returns the number of registered connections.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

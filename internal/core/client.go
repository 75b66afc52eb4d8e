package core

import (
	"sync"
	"sync/atomic"
)

// Identity is the verified user bound to a connection after a successful
// authenticate event.
type Identity struct {
	UserID   int64
	Username string
}

// Client is one live connection as seen by the core layer. A client starts
// unauthenticated; the session registry binds an Identity to it exactly once.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	identity atomic.Pointer[Identity]

	kicked   chan struct{}
	kickOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		kicked:   make(chan struct{}),
	}
}

// Identity returns the bound identity, or nil while unauthenticated.
func (c *Client) Identity() *Identity {
	return c.identity.Load()
}

// bind atomically transitions the client from unauthenticated to
// authenticated. Returns false if an identity was already bound.
func (c *Client) bind(id *Identity) bool {
	return c.identity.CompareAndSwap(nil, id)
}

// Kick requests server-side termination of the connection. The transport's
// write loop watches Kicked and closes the socket. Idempotent.
func (c *Client) Kick() {
	c.kickOnce.Do(func() { close(c.kicked) })
}

// Kicked is closed when the server has terminated this connection.
func (c *Client) Kicked() <-chan struct{} {
	return c.kicked
}

// send delivers an event without blocking. Slow consumers lose events
// rather than stalling the sender.
func (c *Client) send(event *Event) bool {
	select {
	case c.Events <- event:
		return true
	default:
		return false
	}
}

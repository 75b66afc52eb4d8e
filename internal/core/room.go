package core

// Room is the set of clients currently subscribed to one group channel.
type Room struct {
	Key     RoomKey
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(key RoomKey) *Room {
	return &Room{
		Key:     key,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Members returns a snapshot of the room's clients.
func (r *Room) Members() []*Client {
	members := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		members = append(members, c)
	}
	return members
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

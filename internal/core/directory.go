package core

import "sync"

// Directory maps room keys to their member sets and provides fan-out.
// A client occupies at most one room; joining another room leaves the
// previous one (switch semantics). Safe for concurrent use.
type Directory struct {
	mu       sync.RWMutex
	rooms    map[RoomKey]*Room
	byClient map[*Client]RoomKey
}

// NewDirectory constructs an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		rooms:    make(map[RoomKey]*Room),
		byClient: make(map[*Client]RoomKey),
	}
}

// Join subscribes the client to the room, removing it from any previous
// room first. Rooms are created lazily. Returns the previous room key and
// whether the client was in one.
func (d *Directory) Join(c *Client, key RoomKey) (RoomKey, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, had := d.byClient[c]
	if had {
		if prev == key {
			return prev, true
		}
		d.removeLocked(c, prev)
	}

	room, ok := d.rooms[key]
	if !ok {
		room = NewRoom(key)
		d.rooms[key] = room
	}
	room.AddClient(c)
	d.byClient[c] = key

	return prev, had
}

// Leave removes the client from whatever room it occupies. Returns the
// room key it left and whether it was a member of one.
func (d *Directory) Leave(c *Client) (RoomKey, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key, ok := d.byClient[c]
	if !ok {
		return RoomKey{}, false
	}
	d.removeLocked(c, key)
	return key, true
}

// removeLocked drops the client from the room and garbage collects the
// room once empty. Caller holds the write lock.
func (d *Directory) removeLocked(c *Client, key RoomKey) {
	delete(d.byClient, c)
	room, ok := d.rooms[key]
	if !ok {
		return
	}
	room.RemoveClient(c)
	if room.Empty() {
		delete(d.rooms, key)
	}
}

// RoomOf returns the key of the room the client occupies.
func (d *Directory) RoomOf(c *Client) (RoomKey, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	key, ok := d.byClient[c]
	return key, ok
}

// Members returns a snapshot of the room's member set taken at invocation
// time. Clients joining mid-broadcast may miss the event.
func (d *Directory) Members(key RoomKey) []*Client {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[key]
	if !ok {
		return nil
	}
	return room.Members()
}

// Broadcast delivers the event to every member of the room, including the
// sender. A slow consumer drops the event; it never blocks the caller.
// Returns how many members the event was queued for and the membership
// size at the snapshot.
func (d *Directory) Broadcast(key RoomKey, event *Event) (delivered, members int) {
	snapshot := d.Members(key)
	for _, c := range snapshot {
		if c.send(event) {
			delivered++
		}
	}
	return delivered, len(snapshot)
}

// SendTo delivers the event to a single client. Used for history replay.
func (d *Directory) SendTo(c *Client, event *Event) bool {
	return c.send(event)
}

// Len returns the number of active rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

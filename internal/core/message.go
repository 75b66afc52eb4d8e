package core

import "time"

// Message is the domain model for a chat message. Author display fields
// are resolved read-through at send and fetch time, so live broadcasts and
// history replay carry the same shape.
type Message struct {
	ID        int64
	Room      RoomKey
	UserID    int64
	Username  string
	AvatarURL string
	Body      string
	ImageURL  string
	CreatedAt time.Time
}

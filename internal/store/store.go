package store

import (
	"context"
	"time"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	AvatarURL    string
	CreatedAt    time.Time
}

// Group is a tenant: a named collection of channels and members.
type Group struct {
	ID        int64
	Name      string
	OwnerID   int64
	CreatedAt time.Time
}

// Channel is a named text channel inside a group.
type Channel struct {
	ID        int64
	GroupID   int64
	Name      string
	CreatedAt time.Time
}

// Message is a persisted chat message. Username and AvatarURL are
// denormalized author fields resolved at read time, so history entries
// and live broadcasts carry the same shape.
type Message struct {
	ID        int64
	GroupID   int64
	Channel   string
	UserID    int64
	Username  string
	AvatarURL string
	Body      string
	ImageURL  string
	CreatedAt time.Time
}

// CallStatus tracks the lifecycle of a signaled call.
type CallStatus string

const (
	CallStatusRinging  CallStatus = "ringing"
	CallStatusActive   CallStatus = "active"
	CallStatusRejected CallStatus = "rejected"
	CallStatusEnded    CallStatus = "ended"
)

// Call records a media call signaled between two users.
type Call struct {
	ID             string // UUID
	CallerID       int64
	CalleeID       int64
	Status         CallStatus
	ExternalRoomID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// UpdateAvatar sets the user's avatar URL.
	UpdateAvatar(ctx context.Context, userID int64, avatarURL string) error

	// SearchUsers finds users whose username contains the query.
	SearchUsers(ctx context.Context, query string) ([]*User, error)
}

// GroupStore handles group and channel persistence.
type GroupStore interface {
	// CreateGroup creates a group owned by the given user and adds the
	// owner as a member.
	CreateGroup(ctx context.Context, name string, ownerID int64) (*Group, error)

	// GetGroupByID retrieves a group by ID.
	GetGroupByID(ctx context.Context, id int64) (*Group, error)

	// ListGroups lists groups the user belongs to.
	ListGroups(ctx context.Context, userID int64) ([]*Group, error)

	// AddMember adds a user to a group. Idempotent.
	AddMember(ctx context.Context, userID, groupID int64) error

	// IsMember reports whether the user belongs to the group.
	IsMember(ctx context.Context, userID, groupID int64) (bool, error)

	// CreateChannel creates a channel inside a group.
	CreateChannel(ctx context.Context, groupID int64, name string) (*Channel, error)

	// ListChannels lists channels of a group.
	ListChannels(ctx context.Context, groupID int64) ([]*Channel, error)

	// ChannelExists reports whether the named channel exists in the group.
	ChannelExists(ctx context.Context, groupID int64, name string) (bool, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves up to limit messages of a group channel in
	// ascending timestamp order, author fields resolved.
	ListMessages(ctx context.Context, groupID int64, channel string, limit int) ([]*Message, error)
}

// CallStore handles call persistence.
type CallStore interface {
	// CreateCall creates a new call record.
	CreateCall(ctx context.Context, call *Call) error

	// GetCall retrieves a call by ID.
	GetCall(ctx context.Context, id string) (*Call, error)

	// UpdateCallStatus transitions a call to the given status.
	UpdateCallStatus(ctx context.Context, id string, status CallStatus) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	GroupStore
	MessageStore
	CallStore

	// Close closes the underlying database connection.
	Close() error
}

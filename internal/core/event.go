package core

import "github.com/smolkov/gridchat-server/internal/callengine"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomMessage notifies clients about a chat message in a room.
	EventRoomMessage EventKind = iota
	// EventHistory delivers message history to a client upon joining a room.
	EventHistory
	// EventUserJoined notifies room members about a user joining.
	EventUserJoined
	// EventUserLeft notifies room members about a user leaving.
	EventUserLeft
	// EventProfileUpdated notifies all clients that a user changed their
	// profile picture.
	EventProfileUpdated
	// EventError notifies a client about a domain error.
	EventError

	// Call signaling events
	// EventCallIncoming notifies the callee of an incoming call.
	EventCallIncoming
	// EventCallRinging confirms to the caller that the call is ringing.
	EventCallRinging
	// EventCallAccepted notifies the caller that the call was accepted.
	EventCallAccepted
	// EventCallRejected notifies the caller that the call was rejected.
	EventCallRejected
	// EventCallEnded notifies both parties that the call has ended.
	EventCallEnded
	// EventCallJoinInfo delivers media credentials to join the call.
	EventCallJoinInfo
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind EventKind
	Room RoomKey

	// User identifies the subject of presence and profile events.
	UserID    int64
	Username  string
	AvatarURL string

	Message  Message
	Messages []Message // For EventHistory

	Error *CoreError

	Call *CallEvent // non-nil for call events
}

// CallEvent holds data specific to call signaling events.
type CallEvent struct {
	CallID       string
	FromUserID   int64
	FromUsername string
	ToUserID     int64
	Reason       string               // For rejected/ended events
	JoinInfo     *callengine.JoinInfo // For EventCallJoinInfo
}

package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandAuthenticate upgrades the session with a credential token.
	CommandAuthenticate CommandKind = iota
	// CommandJoinChannel subscribes the client to a room, leaving any
	// previous one.
	CommandJoinChannel
	// CommandSendRoomMessage delivers a chat message to room participants.
	CommandSendRoomMessage
	// CommandCallOffer signals an outgoing call to another user.
	CommandCallOffer
	// CommandCallAnswer accepts or rejects an incoming call.
	CommandCallAnswer
	// CommandCallEnd hangs up a call.
	CommandCallEnd
)

// Command represents an action requested by a client.
type Command struct {
	Kind CommandKind

	// Token carries the credential for CommandAuthenticate.
	Token string

	// Room targets CommandJoinChannel and CommandSendRoomMessage.
	Room RoomKey

	// Body and ImageURL carry message content.
	Body     string
	ImageURL string

	// Call signaling fields.
	ToUserID int64
	CallID   string
	Accept   bool
	Reason   string
}

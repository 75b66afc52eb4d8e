package callengine

import (
	"context"

	"github.com/smolkov/gridchat-server/internal/store"
)

// JoinInfo contains what a client needs to join the media room of a call.
type JoinInfo struct {
	URL      string `json:"url"`       // Media server WebSocket URL
	Token    string `json:"token"`     // Access token
	RoomName string `json:"room_name"` // Media room name
	Identity string `json:"identity"`  // User identity in the room
}

// Engine abstracts the media backend used for calls. The chat core only
// relays signaling; the engine supplies room names and join credentials.
type Engine interface {
	// CreateCall allocates a media room for the call and returns its
	// external room ID.
	CreateCall(ctx context.Context, call *store.Call) (externalRoomID string, err error)

	// EndCall terminates the media room.
	EndCall(ctx context.Context, call *store.Call) error

	// GenerateJoinInfo creates join credentials for a user.
	GenerateJoinInfo(ctx context.Context, call *store.Call, userID int64, username string) (*JoinInfo, error)
}

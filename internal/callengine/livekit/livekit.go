package livekit

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/smolkov/gridchat-server/internal/callengine"
	"github.com/smolkov/gridchat-server/internal/store"
)

// LiveKitEngine implements callengine.Engine using LiveKit as the media
// backend.
type LiveKitEngine struct {
	apiKey    string
	apiSecret string
	wsURL     string
}

// New creates a new LiveKitEngine.
func New(apiKey, apiSecret, wsURL string) *LiveKitEngine {
	return &LiveKitEngine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
	}
}

// CreateCall allocates a LiveKit room for the call. LiveKit creates rooms
// on demand when the first participant joins, so only the name is minted
// here.
func (e *LiveKitEngine) CreateCall(_ context.Context, call *store.Call) (string, error) {
	return fmt.Sprintf("gridchat-call-%s", call.ID), nil
}

// EndCall terminates the LiveKit room. Rooms auto-expire when empty, so
// this is a no-op for the dev setup.
func (e *LiveKitEngine) EndCall(_ context.Context, _ *store.Call) error {
	return nil
}

// GenerateJoinInfo creates join credentials for a user to join the call.
func (e *LiveKitEngine) GenerateJoinInfo(_ context.Context, call *store.Call, userID int64, username string) (*callengine.JoinInfo, error) {
	if call.ExternalRoomID == "" {
		return nil, fmt.Errorf("call has no external room ID")
	}

	identity := fmt.Sprintf("user-%d", userID)

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     call.ExternalRoomID,
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(username).
		SetValidFor(time.Hour)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &callengine.JoinInfo{
		URL:      e.wsURL,
		Token:    token,
		RoomName: call.ExternalRoomID,
		Identity: identity,
	}, nil
}

// Ensure LiveKitEngine implements callengine.Engine
var _ callengine.Engine = (*LiveKitEngine)(nil)

package core

import (
	"context"

	"github.com/smolkov/gridchat-server/internal/callengine"
	"github.com/smolkov/gridchat-server/internal/store"
)

// CallService abstracts call signaling business logic for the Hub. The Hub
// relays signaling events between connections without depending on the
// service layer implementation.
type CallService interface {
	// StartCall creates a ringing call from caller to callee.
	StartCall(ctx context.Context, callerID, calleeID int64) (*store.Call, error)

	// AcceptCall marks the call active. Only the callee may accept.
	AcceptCall(ctx context.Context, callID string, calleeID int64) (*store.Call, error)

	// RejectCall marks the call rejected. Only the callee may reject.
	RejectCall(ctx context.Context, callID string, calleeID int64, reason string) (*store.Call, error)

	// EndCall terminates the call. Either party may hang up.
	EndCall(ctx context.Context, callID string, userID int64) (*store.Call, error)

	// JoinInfo generates media credentials for a participant.
	JoinInfo(ctx context.Context, call *store.Call, userID int64, username string) (*callengine.JoinInfo, error)
}

// TokenVerifier checks a credential token and resolves the identity it
// belongs to. Implemented by the auth service.
type TokenVerifier interface {
	VerifyCredential(token string) (*Identity, error)
}

package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smolkov/gridchat-server/internal/callengine"
	"github.com/smolkov/gridchat-server/internal/store"
)

// Common errors for call operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrCallNotFound   = errors.New("call not found")
	ErrCallEnded      = errors.New("call has ended")
	ErrNotParticipant = errors.New("not a participant in this call")
	ErrCannotCallSelf = errors.New("cannot call yourself")
	ErrEngineNotReady = errors.New("media engine is not enabled")
	ErrNotRinging     = errors.New("call is not ringing")
)

// Service provides call signaling business logic: it owns call lifecycle
// records and delegates media room management to the engine.
type Service struct {
	store  store.Store
	engine callengine.Engine
}

// New creates the call service. engine can be nil when media calls are
// disabled in config.
func New(st store.Store, engine callengine.Engine) *Service {
	return &Service{
		store:  st,
		engine: engine,
	}
}

// StartCall creates a ringing call from caller to callee and allocates a
// media room for it.
func (s *Service) StartCall(ctx context.Context, callerID, calleeID int64) (*store.Call, error) {
	if s.engine == nil {
		return nil, ErrEngineNotReady
	}
	if callerID == calleeID {
		return nil, ErrCannotCallSelf
	}

	if _, err := s.store.GetUserByID(ctx, calleeID); err != nil {
		return nil, ErrUserNotFound
	}

	now := time.Now().UTC()
	call := &store.Call{
		ID:        uuid.New().String(),
		CallerID:  callerID,
		CalleeID:  calleeID,
		Status:    store.CallStatusRinging,
		CreatedAt: now,
		UpdatedAt: now,
	}

	externalRoomID, err := s.engine.CreateCall(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("create media room: %w", err)
	}
	call.ExternalRoomID = externalRoomID

	if err := s.store.CreateCall(ctx, call); err != nil {
		return nil, fmt.Errorf("save call: %w", err)
	}

	return call, nil
}

// AcceptCall transitions a ringing call to active. Only the callee may
// accept.
func (s *Service) AcceptCall(ctx context.Context, callID string, calleeID int64) (*store.Call, error) {
	call, err := s.store.GetCall(ctx, callID)
	if err != nil {
		return nil, ErrCallNotFound
	}
	if call.CalleeID != calleeID {
		return nil, ErrNotParticipant
	}
	if call.Status != store.CallStatusRinging {
		return nil, ErrNotRinging
	}

	if err := s.store.UpdateCallStatus(ctx, callID, store.CallStatusActive); err != nil {
		return nil, fmt.Errorf("update call: %w", err)
	}
	call.Status = store.CallStatusActive
	return call, nil
}

// RejectCall declines a ringing call. Only the callee may reject.
func (s *Service) RejectCall(ctx context.Context, callID string, calleeID int64, reason string) (*store.Call, error) {
	call, err := s.store.GetCall(ctx, callID)
	if err != nil {
		return nil, ErrCallNotFound
	}
	if call.CalleeID != calleeID {
		return nil, ErrNotParticipant
	}
	if call.Status != store.CallStatusRinging {
		return nil, ErrNotRinging
	}

	if err := s.store.UpdateCallStatus(ctx, callID, store.CallStatusRejected); err != nil {
		return nil, fmt.Errorf("update call: %w", err)
	}
	call.Status = store.CallStatusRejected

	if s.engine != nil {
		// Best effort: the media room was never joined.
		_ = s.engine.EndCall(ctx, call)
	}
	return call, nil
}

// EndCall terminates a call. Either party may hang up; ending an already
// ended call is idempotent.
func (s *Service) EndCall(ctx context.Context, callID string, userID int64) (*store.Call, error) {
	call, err := s.store.GetCall(ctx, callID)
	if err != nil {
		return nil, ErrCallNotFound
	}
	if call.CallerID != userID && call.CalleeID != userID {
		return nil, ErrNotParticipant
	}
	if call.Status == store.CallStatusEnded || call.Status == store.CallStatusRejected {
		return call, nil
	}

	if err := s.store.UpdateCallStatus(ctx, callID, store.CallStatusEnded); err != nil {
		return nil, fmt.Errorf("update call: %w", err)
	}
	call.Status = store.CallStatusEnded

	if s.engine != nil {
		// Best effort cleanup of the media room.
		_ = s.engine.EndCall(ctx, call)
	}
	return call, nil
}

// JoinInfo generates media credentials for a call participant.
func (s *Service) JoinInfo(ctx context.Context, call *store.Call, userID int64, username string) (*callengine.JoinInfo, error) {
	if s.engine == nil {
		return nil, ErrEngineNotReady
	}
	if call.CallerID != userID && call.CalleeID != userID {
		return nil, ErrNotParticipant
	}
	if call.Status == store.CallStatusEnded || call.Status == store.CallStatusRejected {
		return nil, ErrCallEnded
	}

	info, err := s.engine.GenerateJoinInfo(ctx, call, userID, username)
	if err != nil {
		return nil, fmt.Errorf("generate join info: %w", err)
	}
	return info, nil
}

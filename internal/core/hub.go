package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/smolkov/gridchat-server/internal/metrics"
	"github.com/smolkov/gridchat-server/internal/store"
)

// historyLimit caps the number of messages replayed on channel join.
const historyLimit = 50

// Hub is the channel router: it owns the per-connection protocol state
// machine, validates commands against the session registry, mutates room
// membership, persists messages, and fans events out to the right
// connections. All command processing runs on the single Run goroutine;
// the registry and directory are additionally lock-safe so global
// broadcasts triggered by HTTP handlers bypass the loop.
type Hub struct {
	sessions *SessionRegistry
	rooms    *Directory
	store    store.Store
	verifier TokenVerifier
	calls    CallService
	metrics  *metrics.Metrics
	log      zerolog.Logger

	register chan *Client
	commands chan clientCommand
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// NewHub creates a hub. store and calls may be nil: a nil store disables
// persistence and history (used by unit tests), a nil calls service
// rejects call signaling.
func NewHub(st store.Store, verifier TokenVerifier, calls CallService, m *metrics.Metrics, logger *zerolog.Logger) *Hub {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Hub{
		sessions: NewSessionRegistry(),
		rooms:    NewDirectory(),
		store:    st,
		verifier: verifier,
		calls:    calls,
		metrics:  m,
		log:      lg,
		register: make(chan *Client),
		commands: make(chan clientCommand, 64),
	}
}

// Sessions exposes the session registry for transports and tests.
func (h *Hub) Sessions() *SessionRegistry {
	return h.sessions
}

// Run processes client registration and commands until the context is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.sessions.Register(c)
			h.metrics.ConnectionOpened()
			go h.pump(ctx, c)
		case cc := <-h.commands:
			h.dispatch(ctx, cc.client, cc.cmd)
		}
	}
}

// RegisterClient adds a connection in the unauthenticated state and
// starts consuming its commands.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient releases all state held for the connection: session
// binding, room membership, and the connection itself. Cleanup is
// immediate and does not pass through the command loop, so it works even
// while the hub is shutting down. Idempotent.
func (h *Hub) UnregisterClient(c *Client) {
	h.dropClient(c)
}

func (h *Hub) dropClient(c *Client) {
	if !h.sessions.Unregister(c) {
		return
	}

	id := c.Identity()
	if key, ok := h.rooms.Leave(c); ok && id != nil {
		h.broadcastPresence(EventUserLeft, key, id)
	}
	c.Kick()
	h.metrics.ConnectionClosed()
	h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

// pump forwards one client's commands into the hub loop.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Kicked():
			return
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-ctx.Done():
				return
			case <-c.Kicked():
				return
			}
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandAuthenticate:
		h.handleAuthenticate(c, cmd)
	case CommandJoinChannel:
		h.handleJoinChannel(ctx, c, cmd)
	case CommandSendRoomMessage:
		h.handleMessage(ctx, c, cmd)
	case CommandCallOffer:
		h.handleCallOffer(ctx, c, cmd)
	case CommandCallAnswer:
		h.handleCallAnswer(ctx, c, cmd)
	case CommandCallEnd:
		h.handleCallEnd(ctx, c, cmd)
	default:
		h.log.Warn().Str("client_id", c.ID).Int("kind", int(cmd.Kind)).Msg("unknown command")
		h.sendError(c, ErrCodeBadRequest, "unknown command")
	}
}

// handleAuthenticate upgrades the session exactly once. A failed
// verification terminates the connection so anonymous traffic cannot
// linger.
func (h *Hub) handleAuthenticate(c *Client, cmd *Command) {
	if c.Identity() != nil {
		h.sendError(c, ErrCodeBadRequest, "already authenticated")
		return
	}

	if h.verifier == nil {
		h.sendError(c, ErrCodeInvalidToken, "authentication unavailable")
		h.dropClient(c)
		return
	}

	id, err := h.verifier.VerifyCredential(cmd.Token)
	if err != nil {
		h.log.Warn().Err(err).Str("client_id", c.ID).Msg("credential rejected")
		h.sendError(c, ErrCodeInvalidToken, "invalid credential token")
		h.dropClient(c)
		return
	}

	if !h.sessions.Authenticate(c, id) {
		h.sendError(c, ErrCodeBadRequest, "already authenticated")
		return
	}

	h.log.Info().Str("client_id", c.ID).Int64("user_id", id.UserID).Str("username", id.Username).Msg("session authenticated")
}

// handleJoinChannel switches the connection to the requested room and
// replays history. Membership is never rolled back on a history failure.
func (h *Hub) handleJoinChannel(ctx context.Context, c *Client, cmd *Command) {
	id := c.Identity()
	if id == nil {
		h.sendError(c, ErrCodeUnauthorized, "authenticate before joining a channel")
		return
	}

	key := cmd.Room
	if h.store != nil {
		exists, err := h.store.ChannelExists(ctx, key.GroupID, key.Channel)
		if err != nil {
			h.log.Error().Err(err).Str("room", key.String()).Msg("channel lookup failed")
			h.sendError(c, ErrCodeStorage, "channel lookup failed")
			return
		}
		if !exists {
			h.sendError(c, ErrCodeRoomNotFound, "no such channel")
			return
		}
	}

	prev, had := h.rooms.Join(c, key)
	rejoined := had && prev == key
	if !rejoined {
		if had {
			h.broadcastPresence(EventUserLeft, prev, id)
		}
		h.broadcastPresence(EventUserJoined, key, id)
	}

	messages := []Message{}
	if h.store != nil {
		stored, err := h.store.ListMessages(ctx, key.GroupID, key.Channel, historyLimit)
		if err != nil {
			h.log.Error().Err(err).Str("room", key.String()).Msg("history fetch failed")
			h.sendError(c, ErrCodeStorage, "history unavailable")
			return
		}
		for _, m := range stored {
			messages = append(messages, messageFromStore(m))
		}
		h.metrics.HistoryFetched()
	}

	h.rooms.SendTo(c, &Event{
		Kind:     EventHistory,
		Room:     key,
		Messages: messages,
	})
}

// handleMessage validates, persists, then broadcasts. Persist happens
// before any client observes the message live.
func (h *Hub) handleMessage(ctx context.Context, c *Client, cmd *Command) {
	id := c.Identity()
	if id == nil {
		h.sendError(c, ErrCodeUnauthorized, "authenticate before sending messages")
		return
	}

	key, inRoom := h.rooms.RoomOf(c)
	if !inRoom {
		h.sendError(c, ErrCodeNotInRoom, "join a channel before sending messages")
		return
	}
	if !cmd.Room.Zero() && cmd.Room != key {
		h.sendError(c, ErrCodeNotInRoom, "message targets a channel you are not in")
		return
	}

	if strings.TrimSpace(cmd.Body) == "" && cmd.ImageURL == "" {
		h.sendError(c, ErrCodeEmptyMessage, "message has no content")
		return
	}

	msg := Message{
		Room:      key,
		UserID:    id.UserID,
		Username:  id.Username,
		Body:      cmd.Body,
		ImageURL:  cmd.ImageURL,
		CreatedAt: time.Now().UTC(),
	}

	if h.store != nil {
		// Read-through: display name and avatar reflect the current
		// profile, not the one seen at login.
		author, err := h.store.GetUserByID(ctx, id.UserID)
		if err != nil {
			h.log.Error().Err(err).Int64("user_id", id.UserID).Msg("author lookup failed")
			h.sendError(c, ErrCodeStorage, "could not resolve author profile")
			return
		}
		msg.Username = author.Username
		msg.AvatarURL = author.AvatarURL

		record := &store.Message{
			GroupID:   key.GroupID,
			Channel:   key.Channel,
			UserID:    msg.UserID,
			Body:      msg.Body,
			ImageURL:  msg.ImageURL,
			CreatedAt: msg.CreatedAt,
		}
		if err := h.store.SaveMessage(ctx, record); err != nil {
			h.log.Error().Err(err).Str("room", key.String()).Msg("message persist failed")
			h.sendError(c, ErrCodeStorage, "message could not be saved")
			return
		}
		msg.ID = record.ID
	}

	delivered, members := h.rooms.Broadcast(key, &Event{
		Kind:    EventRoomMessage,
		Room:    key,
		Message: msg,
	})
	h.metrics.MessageRouted()
	h.metrics.BroadcastDelivered(delivered, members)
}

func (h *Hub) handleCallOffer(ctx context.Context, c *Client, cmd *Command) {
	id := c.Identity()
	if id == nil {
		h.sendError(c, ErrCodeUnauthorized, "authenticate before calling")
		return
	}
	if h.calls == nil {
		h.sendError(c, ErrCodeCallsDisabled, "calls are not enabled")
		return
	}

	call, err := h.calls.StartCall(ctx, id.UserID, cmd.ToUserID)
	if err != nil {
		h.log.Warn().Err(err).Int64("to_user_id", cmd.ToUserID).Msg("call offer failed")
		h.sendError(c, ErrCodeCallError, err.Error())
		return
	}

	callEvent := &CallEvent{
		CallID:       call.ID,
		FromUserID:   id.UserID,
		FromUsername: id.Username,
		ToUserID:     cmd.ToUserID,
	}
	h.sendToUser(cmd.ToUserID, &Event{Kind: EventCallIncoming, Call: callEvent})
	h.rooms.SendTo(c, &Event{Kind: EventCallRinging, Call: callEvent})
}

func (h *Hub) handleCallAnswer(ctx context.Context, c *Client, cmd *Command) {
	id := c.Identity()
	if id == nil {
		h.sendError(c, ErrCodeUnauthorized, "authenticate before answering")
		return
	}
	if h.calls == nil {
		h.sendError(c, ErrCodeCallsDisabled, "calls are not enabled")
		return
	}

	if !cmd.Accept {
		call, err := h.calls.RejectCall(ctx, cmd.CallID, id.UserID, cmd.Reason)
		if err != nil {
			h.sendError(c, ErrCodeCallError, err.Error())
			return
		}
		h.sendToUser(call.CallerID, &Event{Kind: EventCallRejected, Call: &CallEvent{
			CallID:     call.ID,
			FromUserID: id.UserID,
			Reason:     cmd.Reason,
		}})
		return
	}

	call, err := h.calls.AcceptCall(ctx, cmd.CallID, id.UserID)
	if err != nil {
		h.sendError(c, ErrCodeCallError, err.Error())
		return
	}

	h.sendToUser(call.CallerID, &Event{Kind: EventCallAccepted, Call: &CallEvent{
		CallID:     call.ID,
		FromUserID: id.UserID,
	}})

	for _, userID := range []int64{call.CallerID, call.CalleeID} {
		username := h.usernameOf(ctx, userID)
		info, err := h.calls.JoinInfo(ctx, call, userID, username)
		if err != nil {
			h.log.Error().Err(err).Str("call_id", call.ID).Int64("user_id", userID).Msg("join info failed")
			continue
		}
		h.sendToUser(userID, &Event{Kind: EventCallJoinInfo, Call: &CallEvent{
			CallID:   call.ID,
			JoinInfo: info,
		}})
	}
}

func (h *Hub) handleCallEnd(ctx context.Context, c *Client, cmd *Command) {
	id := c.Identity()
	if id == nil {
		h.sendError(c, ErrCodeUnauthorized, "authenticate before hanging up")
		return
	}
	if h.calls == nil {
		h.sendError(c, ErrCodeCallsDisabled, "calls are not enabled")
		return
	}

	call, err := h.calls.EndCall(ctx, cmd.CallID, id.UserID)
	if err != nil {
		h.sendError(c, ErrCodeCallError, err.Error())
		return
	}

	ended := &Event{Kind: EventCallEnded, Call: &CallEvent{
		CallID:     call.ID,
		FromUserID: id.UserID,
	}}
	h.sendToUser(call.CallerID, ended)
	h.sendToUser(call.CalleeID, ended)
}

// NotifyProfilePictureChanged broadcasts the new avatar URL to every
// connected client, regardless of room. Called by the HTTP upload handler
// after the profile record is updated; it does not pass through the
// command loop.
func (h *Hub) NotifyProfilePictureChanged(userID int64, avatarURL string) {
	event := &Event{
		Kind:      EventProfileUpdated,
		UserID:    userID,
		AvatarURL: avatarURL,
	}
	for _, c := range h.sessions.All() {
		c.send(event)
	}
}

func (h *Hub) broadcastPresence(kind EventKind, key RoomKey, id *Identity) {
	delivered, members := h.rooms.Broadcast(key, &Event{
		Kind:     kind,
		Room:     key,
		UserID:   id.UserID,
		Username: id.Username,
	})
	h.metrics.BroadcastDelivered(delivered, members)
}

func (h *Hub) sendToUser(userID int64, event *Event) {
	for _, c := range h.sessions.ClientsOf(userID) {
		c.send(event)
	}
}

func (h *Hub) sendError(c *Client, code, msg string) {
	c.send(&Event{Kind: EventError, Error: coreError(code, msg)})
}

func (h *Hub) usernameOf(ctx context.Context, userID int64) string {
	if h.store == nil {
		return ""
	}
	user, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Username
}

func messageFromStore(m *store.Message) Message {
	return Message{
		ID:        m.ID,
		Room:      RoomKey{GroupID: m.GroupID, Channel: m.Channel},
		UserID:    m.UserID,
		Username:  m.Username,
		AvatarURL: m.AvatarURL,
		Body:      m.Body,
		ImageURL:  m.ImageURL,
		CreatedAt: m.CreatedAt,
	}
}

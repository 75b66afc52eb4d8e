package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeAuthenticate = "authenticate"
	InboundTypeJoinChannel  = "joinChannel"
	InboundTypeMessage      = "message"
	InboundTypeCallOffer    = "callOffer"
	InboundTypeCallAnswer   = "callAnswer"
	InboundTypeCallEnd      = "callEnd"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventMessage        = "message"
	EventHistory        = "messageHistory"
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventProfileUpdated = "profilePictureUpdated"
	EventCallIncoming   = "callIncoming"
	EventCallRinging    = "callRinging"
	EventCallAccepted   = "callAccepted"
	EventCallRejected   = "callRejected"
	EventCallEnded      = "callEnded"
	EventCallJoinInfo   = "callJoinInfo"
)

// AuthenticateData carries the credential token presented right after the
// socket opens.
type AuthenticateData struct {
	Token string `json:"token"`
}

// JoinChannelData requests to join a channel inside a group.
type JoinChannelData struct {
	GroupID int64  `json:"groupId"`
	Channel string `json:"channel"`
}

// MessageData is a chat message from the client. Message may be blank when
// ImageURL is set.
type MessageData struct {
	GroupID  int64  `json:"groupId"`
	Channel  string `json:"channel"`
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// CallOfferData starts a call to another user.
type CallOfferData struct {
	ToUserID int64 `json:"toUserId"`
}

// CallAnswerData accepts or rejects an incoming call.
type CallAnswerData struct {
	CallID string `json:"callId"`
	Accept bool   `json:"accept"`
	Reason string `json:"reason,omitempty"`
}

// CallEndData hangs up an active call.
type CallEndData struct {
	CallID string `json:"callId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Entry is one chat message as delivered to clients, both live and in
// history replays.
type Entry struct {
	ID                int64  `json:"id,omitempty"`
	GroupID           int64  `json:"groupId"`
	Channel           string `json:"channel"`
	UserID            int64  `json:"userId"`
	Username          string `json:"username"`
	Message           string `json:"message"`
	ImageURL          string `json:"imageUrl,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	Timestamp         int64  `json:"timestamp"`
}

// HistoryData replays the recent messages of a channel on join, oldest
// first.
type HistoryData struct {
	GroupID  int64   `json:"groupId"`
	Channel  string  `json:"channel"`
	Messages []Entry `json:"messages"`
}

// PresenceData notifies room members about a user joining or leaving.
type PresenceData struct {
	GroupID  int64  `json:"groupId"`
	Channel  string `json:"channel"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// ProfileUpdatedData announces a new profile picture to every connected
// client.
type ProfileUpdatedData struct {
	UserID            int64  `json:"userId"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

// CallData describes call signaling events.
type CallData struct {
	CallID       string `json:"callId"`
	FromUserID   int64  `json:"fromUserId,omitempty"`
	FromUsername string `json:"fromUsername,omitempty"`
	ToUserID     int64  `json:"toUserId,omitempty"`
	Reason       string `json:"reason,omitempty"`

	// Media join credentials, present on callJoinInfo only.
	URL      string `json:"url,omitempty"`
	RoomName string `json:"roomName,omitempty"`
	Token    string `json:"token,omitempty"`
	Identity string `json:"identity,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

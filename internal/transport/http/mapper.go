package http

import (
	"encoding/json"

	"github.com/smolkov/gridchat-server/internal/core"
	"github.com/smolkov/gridchat-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeAuthenticate:
		var data proto.AuthenticateData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Token == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "token is required"}, nil
		}
		return &core.Command{
			Kind:  core.CommandAuthenticate,
			Token: data.Token,
		}, nil, nil
	case proto.InboundTypeJoinChannel:
		var data proto.JoinChannelData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.GroupID == 0 || data.Channel == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "groupId and channel are required"}, nil
		}
		return &core.Command{
			Kind: core.CommandJoinChannel,
			Room: core.RoomKey{GroupID: data.GroupID, Channel: data.Channel},
		}, nil, nil
	case proto.InboundTypeMessage:
		var data proto.MessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:     core.CommandSendRoomMessage,
			Room:     core.RoomKey{GroupID: data.GroupID, Channel: data.Channel},
			Body:     data.Message,
			ImageURL: data.ImageURL,
		}, nil, nil
	case proto.InboundTypeCallOffer:
		var data proto.CallOfferData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.ToUserID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "toUserId is required"}, nil
		}
		return &core.Command{
			Kind:     core.CommandCallOffer,
			ToUserID: data.ToUserID,
		}, nil, nil
	case proto.InboundTypeCallAnswer:
		var data proto.CallAnswerData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.CallID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "callId is required"}, nil
		}
		return &core.Command{
			Kind:   core.CommandCallAnswer,
			CallID: data.CallID,
			Accept: data.Accept,
			Reason: data.Reason,
		}, nil, nil
	case proto.InboundTypeCallEnd:
		var data proto.CallEndData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.CallID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "callId is required"}, nil
		}
		return &core.Command{
			Kind:   core.CommandCallEnd,
			CallID: data.CallID,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func entryFromMessage(msg core.Message) proto.Entry {
	return proto.Entry{
		ID:                msg.ID,
		GroupID:           msg.Room.GroupID,
		Channel:           msg.Room.Channel,
		UserID:            msg.UserID,
		Username:          msg.Username,
		Message:           msg.Body,
		ImageURL:          msg.ImageURL,
		ProfilePictureURL: msg.AvatarURL,
		Timestamp:         msg.CreatedAt.Unix(),
	}
}

func callDataFromEvent(call *core.CallEvent) proto.CallData {
	data := proto.CallData{
		CallID:       call.CallID,
		FromUserID:   call.FromUserID,
		FromUsername: call.FromUsername,
		ToUserID:     call.ToUserID,
		Reason:       call.Reason,
	}
	if call.JoinInfo != nil {
		data.URL = call.JoinInfo.URL
		data.RoomName = call.JoinInfo.RoomName
		data.Token = call.JoinInfo.Token
		data.Identity = call.JoinInfo.Identity
	}
	return data
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data:  entryFromMessage(event.Message),
		}
	case core.EventHistory:
		entries := make([]proto.Entry, 0, len(event.Messages))
		for _, msg := range event.Messages {
			entries = append(entries, entryFromMessage(msg))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventHistory,
			Data: proto.HistoryData{
				GroupID:  event.Room.GroupID,
				Channel:  event.Room.Channel,
				Messages: entries,
			},
		}
	case core.EventUserJoined, core.EventUserLeft:
		name := proto.EventUserJoined
		if event.Kind == core.EventUserLeft {
			name = proto.EventUserLeft
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: name,
			Data: proto.PresenceData{
				GroupID:  event.Room.GroupID,
				Channel:  event.Room.Channel,
				UserID:   event.UserID,
				Username: event.Username,
			},
		}
	case core.EventProfileUpdated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventProfileUpdated,
			Data: proto.ProfileUpdatedData{
				UserID:            event.UserID,
				ProfilePictureURL: event.AvatarURL,
			},
		}
	case core.EventCallIncoming, core.EventCallRinging, core.EventCallAccepted,
		core.EventCallRejected, core.EventCallEnded, core.EventCallJoinInfo:
		names := map[core.EventKind]string{
			core.EventCallIncoming: proto.EventCallIncoming,
			core.EventCallRinging:  proto.EventCallRinging,
			core.EventCallAccepted: proto.EventCallAccepted,
			core.EventCallRejected: proto.EventCallRejected,
			core.EventCallEnded:    proto.EventCallEnded,
			core.EventCallJoinInfo: proto.EventCallJoinInfo,
		}
		out := proto.Outbound{Type: proto.OutboundTypeEvent, Event: names[event.Kind]}
		if event.Call != nil {
			out.Data = callDataFromEvent(event.Call)
		}
		return out
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

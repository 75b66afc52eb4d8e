package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/smolkov/gridchat-server/internal/proto"
)

func dialWS(t *testing.T, ctx context.Context, env *testEnv) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(env.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: data}); err != nil {
		t.Fatalf("write %s frame: %v", typ, err)
	}
}

type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// readUntilEvent reads frames until one with the given event name arrives.
func readUntilEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) rawOutbound {
	t.Helper()

	for {
		var out rawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read waiting for %q: %v", event, err)
		}
		if out.Event == event {
			return out
		}
	}
}

func TestWebSocketAuthenticateJoinAndMessage(t *testing.T) {
	env := startTestServer(t)

	aliceToken := env.registerUser(t, "alice", "password1")
	bobToken := env.registerUser(t, "bob", "password1")
	groupID := env.makeGroupWithChannel(t, "alice", "gophers", "general")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(t, ctx, env)
	connB := dialWS(t, ctx, env)

	sendFrame(t, ctx, connA, proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: aliceToken})
	sendFrame(t, ctx, connB, proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: bobToken})

	join := proto.JoinChannelData{GroupID: groupID, Channel: "general"}
	sendFrame(t, ctx, connA, proto.InboundTypeJoinChannel, join)
	readUntilEvent(t, ctx, connA, proto.EventHistory)
	sendFrame(t, ctx, connB, proto.InboundTypeJoinChannel, join)
	readUntilEvent(t, ctx, connB, proto.EventHistory)

	sendFrame(t, ctx, connA, proto.InboundTypeMessage, proto.MessageData{
		GroupID: groupID,
		Channel: "general",
		Message: "hi there",
	})

	out := readUntilEvent(t, ctx, connB, proto.EventMessage)
	var entry proto.Entry
	if err := json.Unmarshal(out.Data, &entry); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if entry.Username != "alice" || entry.Message != "hi there" || entry.Channel != "general" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Timestamp == 0 {
		t.Fatalf("entry has no timestamp")
	}

	// A third connection joining afterwards sees the message in history.
	connC := dialWS(t, ctx, env)
	sendFrame(t, ctx, connC, proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: bobToken})
	sendFrame(t, ctx, connC, proto.InboundTypeJoinChannel, join)

	histOut := readUntilEvent(t, ctx, connC, proto.EventHistory)
	var hist proto.HistoryData
	if err := json.Unmarshal(histOut.Data, &hist); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(hist.Messages) != 1 || hist.Messages[0].Message != "hi there" {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestWebSocketInvalidTokenClosesConnection(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env)
	sendFrame(t, ctx, conn, proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: "not-a-token"})

	sawError := false
	for {
		var out rawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// The server closes the socket after the error frame.
			break
		}
		if out.Type == proto.OutboundTypeError && out.Error != nil && out.Error.Code == "invalid_token" {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("expected invalid_token error before close")
	}
}

func TestWebSocketJoinRequiresAuth(t *testing.T) {
	env := startTestServer(t)

	env.registerUser(t, "alice", "password1")
	groupID := env.makeGroupWithChannel(t, "alice", "gophers", "general")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env)
	sendFrame(t, ctx, conn, proto.InboundTypeJoinChannel, proto.JoinChannelData{GroupID: groupID, Channel: "general"})

	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized error, got %+v", out)
	}
}

func TestWebSocketMalformedFrame(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: "bogus"}); err != nil {
		t.Fatalf("write bogus frame: %v", err)
	}

	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != "invalid_message" {
		t.Fatalf("expected invalid_message error, got %+v", out)
	}
}

func TestWebSocketMalformedPayloadKeepsConnection(t *testing.T) {
	env := startTestServer(t)

	token := env.registerUser(t, "alice", "password1")
	groupID := env.makeGroupWithChannel(t, "alice", "gophers", "general")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env)
	sendFrame(t, ctx, conn, proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: token})

	// String where a number is expected: the frame is dropped, not the
	// connection.
	badJoin := json.RawMessage(`{"groupId":"one","channel":"general"}`)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoinChannel, Data: badJoin}); err != nil {
		t.Fatalf("write malformed join: %v", err)
	}

	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != "bad_request" {
		t.Fatalf("expected bad_request error, got %+v", out)
	}

	sendFrame(t, ctx, conn, proto.InboundTypeJoinChannel, proto.JoinChannelData{GroupID: groupID, Channel: "general"})
	history := readUntilEvent(t, ctx, conn, proto.EventHistory)
	if history.Type != proto.OutboundTypeEvent {
		t.Fatalf("expected history event after recovering, got %+v", history)
	}
}

// chatcli is a terminal chat client for manual testing: it logs in over
// the REST API, opens the WebSocket, authenticates, joins a channel, and
// relays stdin lines as messages.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/smolkov/gridchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("chatcli: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	user := flag.String("user", "cli-user", "username")
	password := flag.String("password", "cli-password", "password")
	groupID := flag.Int64("group", 1, "group ID")
	channel := flag.String("channel", "general", "channel to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	token, err := login(ctx, *server, *user, *password)
	if err != nil {
		return err
	}

	wsURL := strings.Replace(*server, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		return wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: data})
	}

	if err := send(proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: token}); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if err := send(proto.InboundTypeJoinChannel, proto.JoinChannelData{GroupID: *groupID, Channel: *channel}); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	fmt.Printf("Connected to %s as %s in %d/%s\n", *server, *user, *groupID, *channel)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *groupID, *channel)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

// login registers the user first and falls back to plain login when the
// account already exists.
func login(ctx context.Context, server, user, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": user, "password": password})

	for _, path := range []string{"/api/register", "/api/login"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+path, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}

		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			var auth struct {
				Token string `json:"token"`
			}
			err := json.NewDecoder(resp.Body).Decode(&auth)
			resp.Body.Close()
			if err != nil {
				return "", fmt.Errorf("decode token: %w", err)
			}
			return auth.Token, nil
		}
		resp.Body.Close()
	}

	return "", fmt.Errorf("could not register or log in as %s", user)
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Type == proto.OutboundTypeError {
			fmt.Printf("! error: %s (%s)\n", outbound.Error.Msg, outbound.Error.Code)
			continue
		}

		switch outbound.Event {
		case proto.EventMessage:
			var entry proto.Entry
			if err := json.Unmarshal(outbound.Data, &entry); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			fmt.Printf("[%d/%s] %s: %s\n", entry.GroupID, entry.Channel, entry.Username, entry.Message)
		case proto.EventHistory:
			var hist proto.HistoryData
			if err := json.Unmarshal(outbound.Data, &hist); err != nil {
				log.Printf("unmarshal history: %v", err)
				continue
			}
			for _, entry := range hist.Messages {
				fmt.Printf("(history) %s: %s\n", entry.Username, entry.Message)
			}
		case proto.EventUserJoined, proto.EventUserLeft:
			var p proto.PresenceData
			if err := json.Unmarshal(outbound.Data, &p); err != nil {
				log.Printf("unmarshal presence: %v", err)
				continue
			}
			verb := "joined"
			if outbound.Event == proto.EventUserLeft {
				verb = "left"
			}
			fmt.Printf("[%d/%s] %s %s\n", p.GroupID, p.Channel, p.Username, verb)
		default:
			fmt.Printf("event=%s data=%s\n", outbound.Event, outbound.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, groupID int64, channel string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			payload, err := json.Marshal(proto.MessageData{GroupID: groupID, Channel: channel, Message: text})
			if err != nil {
				log.Printf("marshal msg: %v", err)
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMessage, Data: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

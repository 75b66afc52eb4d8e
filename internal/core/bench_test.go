package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	verifier := staticVerifier{"t-sender": {UserID: 1, Username: "sender"}}
	for i := range recipients {
		verifier[fmt.Sprintf("t-%d", i)] = &Identity{UserID: int64(i + 2), Username: fmt.Sprintf("client-%d", i)}
	}

	hub := NewHub(nil, verifier, nil, nil, nil)
	go hub.Run(ctx)

	room := RoomKey{GroupID: 1, Channel: "bench"}

	sender := NewClient("sender")
	hub.RegisterClient(sender)
	sender.Commands <- &Command{Kind: CommandAuthenticate, Token: "t-sender"}
	sender.Commands <- &Command{Kind: CommandJoinChannel, Room: room}

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		c := NewClient(fmt.Sprintf("c%d", i))
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandAuthenticate, Token: fmt.Sprintf("t-%d", i)}
		c.Commands <- &Command{Kind: CommandJoinChannel, Room: room}
		clients = append(clients, c)
	}

	// Drain events for the sender and all but the first recipient to avoid
	// channel backpressure.
	target := clients[0]
	go func() {
		for range sender.Events {
		}
	}()
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	// Let joins settle, then flush the presence events buffered for the
	// measured recipient.
	time.Sleep(100 * time.Millisecond)
	for {
		select {
		case <-target.Events:
			continue
		default:
		}
		break
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender.Commands <- &Command{
			Kind: CommandSendRoomMessage,
			Room: room,
			Body: "payload",
		}
		<-target.Events
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }

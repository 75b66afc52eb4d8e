package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/smolkov/gridchat-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == 0 || created.Username != "alice" {
		t.Fatalf("unexpected user: %+v", created)
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != created.ID {
		t.Fatalf("expected id %d, got %d", created.ID, byName.ID)
	}

	if err := s.UpdateAvatar(ctx, created.ID, "/uploads/a.png"); err != nil {
		t.Fatalf("update avatar: %v", err)
	}

	byID, err := s.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.AvatarURL != "/uploads/a.png" {
		t.Fatalf("expected avatar update, got %q", byID.AvatarURL)
	}
}

func TestCreateGroupAddsOwnerAsMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	group, err := s.CreateGroup(ctx, "gophers", owner.ID)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	isMember, err := s.IsMember(ctx, owner.ID, group.ID)
	if err != nil {
		t.Fatalf("is member: %v", err)
	}
	if !isMember {
		t.Fatalf("expected owner to be a member")
	}

	groups, err := s.ListGroups(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "gophers" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
}

func TestChannels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner, _ := s.CreateUser(ctx, "alice", "hash")
	group, err := s.CreateGroup(ctx, "gophers", owner.ID)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if _, err := s.CreateChannel(ctx, group.ID, "general"); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if _, err := s.CreateChannel(ctx, group.ID, "random"); err != nil {
		t.Fatalf("create channel: %v", err)
	}

	channels, err := s.ListChannels(ctx, group.ID)
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(channels))
	}

	exists, err := s.ChannelExists(ctx, group.ID, "general")
	if err != nil {
		t.Fatalf("channel exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected general to exist")
	}

	exists, err = s.ChannelExists(ctx, group.ID, "ghost")
	if err != nil {
		t.Fatalf("channel exists: %v", err)
	}
	if exists {
		t.Fatalf("expected ghost to not exist")
	}
}

func TestListMessagesOrderedWithAuthorFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, _ := s.CreateUser(ctx, "alice", "hash")
	if err := s.UpdateAvatar(ctx, alice.ID, "/uploads/alice.png"); err != nil {
		t.Fatalf("update avatar: %v", err)
	}
	group, _ := s.CreateGroup(ctx, "gophers", alice.ID)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, body := range []string{"first", "second", "third"} {
		msg := &store.Message{
			GroupID:   group.ID,
			Channel:   "general",
			UserID:    alice.ID,
			Body:      body,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("save message %q: %v", body, err)
		}
		if msg.ID == 0 {
			t.Fatalf("expected message ID to be set")
		}
	}

	// Message in another channel must not leak into the result.
	other := &store.Message{
		GroupID:   group.ID,
		Channel:   "random",
		UserID:    alice.ID,
		Body:      "elsewhere",
		CreatedAt: base,
	}
	if err := s.SaveMessage(ctx, other); err != nil {
		t.Fatalf("save message: %v", err)
	}

	messages, err := s.ListMessages(ctx, group.ID, "general", 50)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		got := messages[i]
		if got.Body != want {
			t.Fatalf("message %d: expected %q, got %q", i, want, got.Body)
		}
		if got.Username != "alice" || got.AvatarURL != "/uploads/alice.png" {
			t.Fatalf("message %d: author fields not resolved: %+v", i, got)
		}
	}
}

func TestListMessagesKeepsNewestWhenOverLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, _ := s.CreateUser(ctx, "alice", "hash")
	group, _ := s.CreateGroup(ctx, "gophers", alice.ID)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		msg := &store.Message{
			GroupID:   group.ID,
			Channel:   "general",
			UserID:    alice.ID,
			Body:      "msg-" + string(rune('a'+i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("save message %d: %v", i, err)
		}
	}

	messages, err := s.ListMessages(ctx, group.ID, "general", 4)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	// The window keeps the newest rows and the result stays ascending.
	for i, want := range []string{"msg-c", "msg-d", "msg-e", "msg-f"} {
		if messages[i].Body != want {
			t.Fatalf("message %d: expected %q, got %q", i, want, messages[i].Body)
		}
	}
}

func TestCallLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, _ := s.CreateUser(ctx, "alice", "hash")
	bob, _ := s.CreateUser(ctx, "bob", "hash")

	now := time.Now().UTC()
	call := &store.Call{
		ID:             "11111111-2222-3333-4444-555555555555",
		CallerID:       alice.ID,
		CalleeID:       bob.ID,
		Status:         store.CallStatusRinging,
		ExternalRoomID: "gridchat-call-1",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.CreateCall(ctx, call); err != nil {
		t.Fatalf("create call: %v", err)
	}

	if err := s.UpdateCallStatus(ctx, call.ID, store.CallStatusActive); err != nil {
		t.Fatalf("update call status: %v", err)
	}

	got, err := s.GetCall(ctx, call.ID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if got.Status != store.CallStatusActive || got.CallerID != alice.ID {
		t.Fatalf("unexpected call: %+v", got)
	}
}

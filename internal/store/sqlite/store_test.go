package sqlite

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/chatwire/chat-backend/internal/model"
	"github.com/chatwire/chat-backend/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, id, username string) {
	t.Helper()
	err := s.CreateUser(context.Background(), &model.User{
		ID:        id,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
}

func seedConversation(t *testing.T, s *Store, id string, memberIDs ...string) {
	t.Helper()
	now := time.Now().UTC()
	err := s.CreateConversation(context.Background(), &model.Conversation{
		ID:        id,
		IsGroup:   len(memberIDs) > 2,
		CreatedAt: now,
		UpdatedAt: now,
	}, memberIDs)
	if err != nil {
		t.Fatalf("CreateConversation(%s): %v", id, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Open accepted an empty path")
	}
}

func TestUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")
	seedUser(t, s, "u-2", "bob")

	u, err := s.GetUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("username = %q", u.Username)
	}

	if _, err := s.GetUser(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetUser(nope) = %v, want ErrNotFound", err)
	}

	byName, err := s.GetUserByUsername(ctx, "bob")
	if err != nil || byName.ID != "u-2" {
		t.Errorf("GetUserByUsername(bob) = %v, %v", byName, err)
	}

	users, err := s.UsersByUsernames(ctx, []string{"alice", "bob", "ghost"})
	if err != nil {
		t.Fatalf("UsersByUsernames: %v", err)
	}
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Errorf("resolved usernames = %v", names)
	}

	if got, err := s.UsersByUsernames(ctx, nil); err != nil || got != nil {
		t.Errorf("UsersByUsernames(nil) = %v, %v", got, err)
	}
}

func TestConversationMembership(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")
	seedUser(t, s, "u-2", "bob")
	seedConversation(t, s, "conv-1", "u-1", "u-2")
	seedConversation(t, s, "conv-2", "u-1")

	ids, err := s.ConversationIDsForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("ConversationIDsForUser: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "conv-1" || ids[1] != "conv-2" {
		t.Errorf("conversation ids = %v", ids)
	}

	ok, err := s.IsMember(ctx, "conv-1", "u-2")
	if err != nil || !ok {
		t.Errorf("IsMember(conv-1, u-2) = %v, %v", ok, err)
	}
	ok, err = s.IsMember(ctx, "conv-2", "u-2")
	if err != nil || ok {
		t.Errorf("IsMember(conv-2, u-2) = %v, %v", ok, err)
	}

	members, err := s.MembersOf(ctx, "conv-1")
	if err != nil {
		t.Fatalf("MembersOf: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}
	for _, m := range members {
		if m.LastReadAt != nil {
			t.Errorf("fresh member %s has a read cursor", m.UserID)
		}
	}
}

func TestReadCursor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")
	seedConversation(t, s, "conv-1", "u-1")

	at := time.Now().UTC().Truncate(time.Millisecond)
	if err := s.SetLastRead(ctx, "conv-1", "u-1", at); err != nil {
		t.Fatalf("SetLastRead: %v", err)
	}

	members, err := s.MembersOf(ctx, "conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if members[0].LastReadAt == nil || !members[0].LastReadAt.Equal(at) {
		t.Errorf("read cursor = %v, want %v", members[0].LastReadAt, at)
	}
}

func TestMessageLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")
	seedConversation(t, s, "conv-1", "u-1")

	content := "hello"
	msg := &model.Message{
		ID:             "m-1",
		ConversationID: "conv-1",
		SenderID:       "u-1",
		Content:        &content,
		Type:           model.MessageTypeText,
		Metadata:       map[string]any{"client": "web"},
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if err := s.SetLastMessage(ctx, "conv-1", "m-1"); err != nil {
		t.Fatalf("SetLastMessage: %v", err)
	}
	if err := s.SetLastMessage(ctx, "conv-missing", "m-1"); err == nil {
		t.Error("SetLastMessage accepted an unknown conversation")
	}

	got, err := s.GetMessage(ctx, "m-1")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.Content == nil || *got.Content != "hello" {
		t.Errorf("content = %v", got.Content)
	}
	if got.Metadata["client"] != "web" {
		t.Errorf("metadata = %v", got.Metadata)
	}
	if got.UpdatedAt != nil {
		t.Error("fresh message has an updated timestamp")
	}
	if !got.CreatedAt.Equal(msg.CreatedAt) {
		t.Errorf("created at = %v, want %v", got.CreatedAt, msg.CreatedAt)
	}

	at := time.Now().UTC().Truncate(time.Millisecond)
	updated, err := s.UpdateMessageContent(ctx, "m-1", "edited", at)
	if err != nil {
		t.Fatalf("UpdateMessageContent: %v", err)
	}
	if updated.Content == nil || *updated.Content != "edited" {
		t.Errorf("updated content = %v", updated.Content)
	}
	if updated.UpdatedAt == nil || !updated.UpdatedAt.Equal(at) {
		t.Errorf("updated at = %v, want %v", updated.UpdatedAt, at)
	}

	if _, err := s.UpdateMessageContent(ctx, "missing", "x", at); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}

	if err := s.DeleteMessage(ctx, "m-1"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := s.DeleteMessage(ctx, "m-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
	if _, err := s.GetMessage(ctx, "m-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestMediaMessageWithoutContent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")
	seedConversation(t, s, "conv-1", "u-1")

	msg := &model.Message{
		ID:             "m-img",
		ConversationID: "conv-1",
		SenderID:       "u-1",
		Type:           model.MessageTypeImage,
		Metadata:       map[string]any{"url": "https://cdn.example/a.png"},
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	got, err := s.GetMessage(ctx, "m-img")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != nil {
		t.Errorf("media message content = %v, want nil", got.Content)
	}
}

func TestNotifications(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, id := range []string{"n-1", "n-2", "n-3"} {
		err := s.CreateNotification(ctx, &model.Notification{
			ID:        id,
			UserID:    "u-1",
			Kind:      model.NotificationNewMessage,
			Title:     "bob sent a message",
			Body:      "hi",
			Data:      map[string]any{"conversationId": "conv-1"},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("CreateNotification(%s): %v", id, err)
		}
	}

	list, err := s.ListNotifications(ctx, "u-1", false, 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("notifications = %d, want 3", len(list))
	}
	if list[0].ID != "n-3" {
		t.Errorf("newest first ordering violated: %s", list[0].ID)
	}
	if list[0].Data["conversationId"] != "conv-1" {
		t.Errorf("data = %v", list[0].Data)
	}

	limited, err := s.ListNotifications(ctx, "u-1", false, 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("limited list = %d, %v", len(limited), err)
	}

	if count, _ := s.UnreadCount(ctx, "u-1"); count != 3 {
		t.Errorf("unread = %d, want 3", count)
	}

	if err := s.MarkNotificationRead(ctx, "u-1", "n-2"); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	if err := s.MarkNotificationRead(ctx, "someone-else", "n-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("foreign mark read = %v, want ErrNotFound", err)
	}

	unread, err := s.ListNotifications(ctx, "u-1", true, 0)
	if err != nil || len(unread) != 2 {
		t.Errorf("unread list = %d, %v", len(unread), err)
	}

	if err := s.MarkAllNotificationsRead(ctx, "u-1"); err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}
	if count, _ := s.UnreadCount(ctx, "u-1"); count != 0 {
		t.Errorf("unread after mark all = %d", count)
	}
}

func TestPushSubscriptionUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u-1", "alice")

	if _, err := s.PushSubscription(ctx, "u-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing subscription = %v, want ErrNotFound", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	err := s.SavePushSubscription(ctx, &model.PushSubscription{UserID: "u-1", Token: "tok-a", CreatedAt: now})
	if err != nil {
		t.Fatalf("SavePushSubscription: %v", err)
	}
	err = s.SavePushSubscription(ctx, &model.PushSubscription{UserID: "u-1", Token: "tok-b", CreatedAt: now})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	sub, err := s.PushSubscription(ctx, "u-1")
	if err != nil {
		t.Fatalf("PushSubscription: %v", err)
	}
	if sub.Token != "tok-b" {
		t.Errorf("token = %q, want the replacement", sub.Token)
	}
}

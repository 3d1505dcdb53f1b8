package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/chatwire/chat-backend/internal/model"
)

func notificationsFor(st *memStore, userID string) []model.Notification {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []model.Notification
	for _, n := range st.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func TestNotifierSkipsSenderAndCaughtUpMembers(t *testing.T) {
	st := newMemStore()
	st.addUser(model.User{ID: "u-alice", Username: "alice"})
	caughtUp := time.Now().UTC().Add(time.Hour)
	st.addMember("conv-1", "u-alice", nil)
	st.addMember("conv-1", "u-behind", nil)
	st.addMember("conv-1", "u-caught-up", &caughtUp)

	h := newTestHub(st, &fakePush{})
	alice := newFakeConn("c1", "u-alice", "alice")
	mustConnect(t, h, alice)

	ack := h.HandleChatMessage(context.Background(), alice, model.ChatMessagePayload{
		ConversationID: "conv-1",
		Content:        strptr("hi"),
	})
	if !ack.Success {
		t.Fatalf("ack failed: %s", ack.Error)
	}

	if got := notificationsFor(st, "u-alice"); len(got) != 0 {
		t.Errorf("sender received %d notifications", len(got))
	}
	if got := notificationsFor(st, "u-caught-up"); len(got) != 0 {
		t.Errorf("caught-up member received %d notifications", len(got))
	}

	behind := notificationsFor(st, "u-behind")
	if len(behind) != 1 {
		t.Fatalf("behind member received %d notifications, want 1", len(behind))
	}
	n := behind[0]
	if n.Kind != model.NotificationNewMessage {
		t.Errorf("notification kind %q, want new_message", n.Kind)
	}
	if n.Title != "alice sent a message" {
		t.Errorf("notification title %q", n.Title)
	}
	if n.Body != "hi" {
		t.Errorf("notification body %q, want hi", n.Body)
	}
	if n.Read {
		t.Error("fresh notification marked read")
	}
	if n.Data["conversationId"] != "conv-1" || n.Data["messageId"] != ack.Message.ID {
		t.Errorf("notification data = %v", n.Data)
	}
}

func TestNotifierDeliversLiveWhenRecipientOnline(t *testing.T) {
	h, _, alice, bob := twoMemberHub(t)

	ack := h.HandleChatMessage(context.Background(), alice, model.ChatMessagePayload{
		ConversationID: "conv-1",
		Content:        strptr("ping"),
	})
	if !ack.Success {
		t.Fatal(ack.Error)
	}

	frame, ok := bob.lastEvent(model.EventNotification)
	if !ok {
		t.Fatal("online recipient did not receive a live notification")
	}
	var n model.Notification
	if err := json.Unmarshal(frame.Data, &n); err != nil {
		t.Fatal(err)
	}
	if n.Kind != model.NotificationNewMessage || n.Body != "ping" {
		t.Errorf("live notification = %+v", n)
	}
}

func TestNotifierFallsBackToPushWhenRecipientOffline(t *testing.T) {
	st := newMemStore()
	st.addUser(model.User{ID: "u-alice", Username: "alice"})
	st.addMember("conv-1", "u-alice", nil)
	st.addMember("conv-1", "u-carol", nil)
	st.subs["u-carol"] = model.PushSubscription{UserID: "u-carol", Token: "tok-carol"}

	pusher := &fakePush{}
	h := newTestHub(st, pusher)
	h.SetPushTargetURL("https://chat.example/app")
	alice := newFakeConn("c1", "u-alice", "alice")
	mustConnect(t, h, alice)

	ack := h.HandleChatMessage(context.Background(), alice, model.ChatMessagePayload{
		ConversationID: "conv-1",
		Content:        strptr("hi"),
	})
	if !ack.Success {
		t.Fatal(ack.Error)
	}

	pusher.mu.Lock()
	defer pusher.mu.Unlock()
	if len(pusher.sends) != 1 {
		t.Fatalf("push sends = %d, want 1", len(pusher.sends))
	}
	call := pusher.sends[0]
	if call.token != "tok-carol" {
		t.Errorf("push token %q", call.token)
	}
	if call.body != "hi" {
		t.Errorf("push body %q, want hi", call.body)
	}
	if call.targetURL != "https://chat.example/app" {
		t.Errorf("push target url %q", call.targetURL)
	}

	if got := notificationsFor(st, "u-carol"); len(got) != 1 {
		t.Errorf("offline member has %d durable notifications, want 1", len(got))
	}
}

func TestNotifierOfflineWithoutSubscriptionStaysDurableOnly(t *testing.T) {
	st := newMemStore()
	st.addUser(model.User{ID: "u-alice", Username: "alice"})
	st.addMember("conv-1", "u-alice", nil)
	st.addMember("conv-1", "u-carol", nil)

	pusher := &fakePush{}
	h := newTestHub(st, pusher)
	alice := newFakeConn("c1", "u-alice", "alice")
	mustConnect(t, h, alice)

	h.HandleChatMessage(context.Background(), alice, model.ChatMessagePayload{
		ConversationID: "conv-1",
		Content:        strptr("hi"),
	})

	pusher.mu.Lock()
	sends := len(pusher.sends)
	pusher.mu.Unlock()
	if sends != 0 {
		t.Errorf("push attempted for unsubscribed user %d times", sends)
	}
	if got := notificationsFor(st, "u-carol"); len(got) != 1 {
		t.Errorf("durable notifications = %d, want 1", len(got))
	}
}

func TestNotifierMediaBody(t *testing.T) {
	st := newMemStore()
	st.addUser(model.User{ID: "u-alice", Username: "alice"})
	st.addMember("conv-1", "u-alice", nil)
	st.addMember("conv-1", "u-carol", nil)

	h := newTestHub(st, &fakePush{})
	alice := newFakeConn("c1", "u-alice", "alice")
	mustConnect(t, h, alice)

	h.HandleChatMessage(context.Background(), alice, model.ChatMessagePayload{
		ConversationID: "conv-1",
		Type:           model.MessageTypeImage,
	})

	got := notificationsFor(st, "u-carol")
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	if got[0].Body != "[Media]" {
		t.Errorf("media notification body %q, want [Media]", got[0].Body)
	}
}

func TestNotifierMentionsReachNonMembers(t *testing.T) {
	st := newMemStore()
	st.addUser(model.User{ID: "u-alice", Username: "alice"})
	st.addUser(model.User{ID: "u-dave", Username: "dave"})
	st.addMember("conv-1", "u-alice", nil)

	h := newTestHub(st, &fakePush{})
	alice := newFakeConn("c1", "u-alice", "alice")
	mustConnect(t, h, alice)

	h.HandleChatMessage(context.Background(), alice, model.ChatMessagePayload{
		ConversationID: "conv-1",
		Content:        strptr("hey @dave take a look"),
	})

	got := notificationsFor(st, "u-dave")
	if len(got) != 1 {
		t.Fatalf("mentioned non-member has %d notifications, want 1", len(got))
	}
	if got[0].Kind != model.NotificationMention {
		t.Errorf("notification kind %q, want mention", got[0].Kind)
	}
	if got[0].Title != "alice mentioned you" {
		t.Errorf("mention title %q", got[0].Title)
	}
}

func TestNotifierMentionedMemberGetsBothKinds(t *testing.T) {
	h, st, alice, _ := twoMemberHub(t)

	h.HandleChatMessage(context.Background(), alice, model.ChatMessagePayload{
		ConversationID: "conv-1",
		Content:        strptr("@bob you around?"),
	})

	got := notificationsFor(st, "u-bob")
	if len(got) != 2 {
		t.Fatalf("mentioned member has %d notifications, want new_message plus mention", len(got))
	}
	kinds := map[model.NotificationKind]int{}
	for _, n := range got {
		kinds[n.Kind]++
	}
	if kinds[model.NotificationNewMessage] != 1 || kinds[model.NotificationMention] != 1 {
		t.Errorf("notification kinds = %v", kinds)
	}
}

func TestNotifierSelfMentionIgnored(t *testing.T) {
	h, st, alice, _ := twoMemberHub(t)

	h.HandleChatMessage(context.Background(), alice, model.ChatMessagePayload{
		ConversationID: "conv-1",
		Content:        strptr("note to self @alice"),
	})

	for _, n := range notificationsFor(st, "u-alice") {
		if n.Kind == model.NotificationMention {
			t.Error("sender received a mention notification for self-mention")
		}
	}
}

func TestNotifierUnknownMentionIgnored(t *testing.T) {
	h, st, alice, _ := twoMemberHub(t)

	h.HandleChatMessage(context.Background(), alice, model.ChatMessagePayload{
		ConversationID: "conv-1",
		Content:        strptr("ping @nobody_here"),
	})

	st.mu.Lock()
	defer st.mu.Unlock()
	for _, n := range st.notifications {
		if n.Kind == model.NotificationMention {
			t.Error("mention notification created for unregistered username")
		}
	}
}

func TestNotifierMentionsOnlyScanTextMessages(t *testing.T) {
	h, st, alice, _ := twoMemberHub(t)

	caption := "@bob look at this"
	h.HandleChatMessage(context.Background(), alice, model.ChatMessagePayload{
		ConversationID: "conv-1",
		Type:           model.MessageTypeImage,
		Content:        &caption,
	})

	for _, n := range notificationsFor(st, "u-bob") {
		if n.Kind == model.NotificationMention {
			t.Error("mention scanned on a non-text message")
		}
	}
}

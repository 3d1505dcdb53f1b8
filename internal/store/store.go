// Package store defines the persistence collaborator consumed by the
// realtime hub and the REST surface.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/chatwire/chat-backend/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// UserStore resolves user records.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UsersByUsernames resolves the subset of usernames that map to
	// registered users; unknown names are silently omitted.
	UsersByUsernames(ctx context.Context, usernames []string) ([]model.User, error)
}

// ConversationStore covers membership and conversation metadata.
type ConversationStore interface {
	// ConversationIDsForUser returns the conversations the user is a
	// member of; called once per connection at connect time.
	ConversationIDsForUser(ctx context.Context, userID string) ([]string, error)
	// MembersOf returns every persisted member with its read cursor.
	MembersOf(ctx context.Context, conversationID string) ([]model.Member, error)
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
	// SetLastMessage updates the conversation's last-message pointer and
	// touches its updated-at.
	SetLastMessage(ctx context.Context, conversationID, messageID string) error
	// SetLastRead advances a member's read cursor.
	SetLastRead(ctx context.Context, conversationID, userID string, at time.Time) error
}

// MessageStore persists chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *model.Message) error
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	UpdateMessageContent(ctx context.Context, id, content string, at time.Time) (*model.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// NotificationStore persists durable notifications and push subscriptions.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	PushSubscription(ctx context.Context, userID string) (*model.PushSubscription, error)
	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	ConversationStore
	MessageStore
	NotificationStore
}

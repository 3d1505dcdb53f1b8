package model

import (
	"time"
)

// NotificationKind distinguishes why a notification was created.
type NotificationKind string

const (
	NotificationNewMessage NotificationKind = "new_message"
	NotificationMention    NotificationKind = "mention"
)

// Notification is a durable per-user notification record. It is created by
// the hub's dispatcher, delivered live over any active connection, and
// consumed by the REST notification endpoints.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"-"`
	Kind      NotificationKind `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Data      map[string]any   `json:"data,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"timestamp"`
}

// PushSubscription binds a user to a provider-specific push token.
type PushSubscription struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

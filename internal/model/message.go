package model

import (
	"time"
)

// MessageType tags the content of a message.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// Message is the public wire form of a chat message: the exact shape
// broadcast to room members and returned in acks. Content is nil for
// non-text types. A broadcast message is never mutated afterwards; edits
// produce a fresh "message edited" broadcast.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	SenderID       string         `json:"senderId"`
	Content        *string        `json:"content"`
	Type           MessageType    `json:"type"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      *time.Time     `json:"updatedAt,omitempty"`
}

// ChatMessagePayload is the client payload for the "chat message" event.
// The sender identity is always taken from the authenticated connection,
// never from the payload.
type ChatMessagePayload struct {
	ConversationID string         `json:"conversationId"`
	Content        *string        `json:"content,omitempty"`
	Type           MessageType    `json:"type,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// EditMessagePayload is the client payload for the "edit message" event.
type EditMessagePayload struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// DeleteMessagePayload is the client payload for the "delete message" event.
type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

// TypingPayload is the client payload for the "typing" event.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
}

// MarkReadPayload is the client payload for the "markRead" event.
type MarkReadPayload struct {
	ConversationID string `json:"conversationId"`
}

// CallRejectedPayload is the client payload for the "callRejected" event.
// From is accepted for wire compatibility but the hub relays the sender's
// own identity.
type CallRejectedPayload struct {
	ConversationID string `json:"convId"`
	From           string `json:"from"`
}

// CallRejectedEvent is broadcast to the room when a callee declines a call.
type CallRejectedEvent struct {
	From string `json:"from"`
}

// ReadEvent is broadcast to the room when a member advances its read cursor.
type ReadEvent struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	LastReadAt     time.Time `json:"lastReadAt"`
}

// TypingEvent is broadcast to the room while a member is typing.
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	Username       string `json:"username"`
}

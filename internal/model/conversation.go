// Package model defines the domain types shared across the realtime hub,
// the persistence layer, and the REST surface.
package model

import (
	"time"
)

// Conversation is a chat between two or more members.
type Conversation struct {
	ID            string    `json:"id"`
	Title         string    `json:"title,omitempty"`
	IsGroup       bool      `json:"is_group"`
	LastMessageID *string   `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Member is a conversation membership row. LastReadAt is the member's read
// cursor: nil means the member has never marked the conversation read.
type Member struct {
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id"`
	Role           string     `json:"role"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
}

// Member roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

package model

import (
	"time"
)

// User represents a registered account. Registration and credential
// verification happen outside this service; the hub only resolves users
// from bearer tokens and mention lookups.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Name returns the name used in user-facing payloads, preferring the
// display name when set.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

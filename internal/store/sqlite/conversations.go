package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/chatwire/chat-backend/internal/model"
)

// CreateConversation inserts a conversation with its initial members; used
// by seeding and tests.
func (s *Store) CreateConversation(ctx context.Context, conv *model.Conversation, memberIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin conversation insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, title, is_group, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.Title, conv.IsGroup, toMillis(conv.CreatedAt), toMillis(conv.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}

	for _, userID := range memberIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_members (conversation_id, user_id, role) VALUES (?, ?, ?)`,
			conv.ID, userID, model.RoleMember,
		)
		if err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}

	return tx.Commit()
}

// ConversationIDsForUser returns the IDs of every conversation the user is
// a member of.
func (s *Store) ConversationIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id FROM conversation_members WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MembersOf returns every member of a conversation with its read cursor.
func (s *Store) MembersOf(ctx context.Context, conversationID string) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, user_id, role, last_read_at FROM conversation_members WHERE conversation_id = ?`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		var lastRead *int64
		if err := rows.Scan(&m.ConversationID, &m.UserID, &m.Role, &lastRead); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if lastRead != nil {
			t := fromMillis(*lastRead)
			m.LastReadAt = &t
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// IsMember reports whether the user belongs to the conversation.
func (s *Store) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM conversation_members WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return count > 0, nil
}

// SetLastMessage updates the conversation's last-message pointer and
// touches its updated-at.
func (s *Store) SetLastMessage(ctx context.Context, conversationID, messageID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET last_message_id = ?, updated_at = ? WHERE id = ?`,
		messageID, toMillis(time.Now()), conversationID)
	if err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s not found", conversationID)
	}
	return nil
}

// SetLastRead advances a member's read cursor.
func (s *Store) SetLastRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversation_members SET last_read_at = ? WHERE conversation_id = ? AND user_id = ?`,
		toMillis(at), conversationID, userID)
	if err != nil {
		return fmt.Errorf("update read cursor: %w", err)
	}
	return nil
}

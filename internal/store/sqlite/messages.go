package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chatwire/chat-backend/internal/model"
	"github.com/chatwire/chat-backend/internal/store"
)

// CreateMessage persists a message.
func (s *Store) CreateMessage(ctx context.Context, msg *model.Message) error {
	metadata, err := encodeJSON(msg.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, content, type, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, string(msg.Type), metadata, toMillis(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetMessage loads a message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, sender_id, content, type, metadata, created_at, updated_at
		 FROM messages WHERE id = ?`, id)

	var msg model.Message
	var typ, metadata string
	var createdAt int64
	var updatedAt *int64
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &typ, &metadata, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}

	msg.Type = model.MessageType(typ)
	msg.CreatedAt = fromMillis(createdAt)
	if updatedAt != nil {
		t := fromMillis(*updatedAt)
		msg.UpdatedAt = &t
	}
	if msg.Metadata, err = decodeJSON(metadata); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateMessageContent replaces a message's content and returns the
// updated row.
func (s *Store) UpdateMessageContent(ctx context.Context, id, content string, at time.Time) (*model.Message, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET content = ?, updated_at = ? WHERE id = ?`,
		content, toMillis(at), id)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetMessage(ctx, id)
}

// DeleteMessage removes a message.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

package hub

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/chatwire/chat-backend/internal/model"
	"github.com/chatwire/chat-backend/internal/store"
	"github.com/chatwire/chat-backend/pkg/metrics"
)

var tracer = otel.Tracer("github.com/chatwire/chat-backend/internal/hub")

// HandleChatMessage persists an inbound chat message, fans it out to the
// conversation's room (sender included), and hands off notification
// dispatch. The returned ack goes only to the sender. Persistence
// failures are acked and logged but never retried here.
func (h *Hub) HandleChatMessage(ctx context.Context, c Conn, payload model.ChatMessagePayload) model.Ack {
	if payload.ConversationID == "" {
		return model.AckError("conversationId required")
	}

	messageType := payload.Type
	if messageType == "" {
		messageType = model.MessageTypeText
	}
	if messageType == model.MessageTypeText && (payload.Content == nil || *payload.Content == "") {
		return model.AckError("content required")
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: payload.ConversationID,
		SenderID:       c.UserID(),
		Content:        payload.Content,
		Type:           messageType,
		Metadata:       payload.Metadata,
		CreatedAt:      time.Now().UTC(),
	}

	persistCtx, span := tracer.Start(ctx, "relay.persist")
	err := h.store.CreateMessage(persistCtx, msg)
	if err == nil {
		err = h.store.SetLastMessage(persistCtx, msg.ConversationID, msg.ID)
	}
	span.End()
	if err != nil {
		h.log.Error("message persist failed",
			zap.String("conversation_id", msg.ConversationID),
			zap.String("sender_id", msg.SenderID),
			zap.Error(err),
		)
		return model.AckError("failed to send message")
	}

	frame, err := encodeFrame(model.EventChatMessage, msg)
	if err != nil {
		return model.AckError("failed to send message")
	}
	h.broadcastToConversation(msg.ConversationID, frame, "")
	metrics.MessagesTotal.WithLabelValues(string(messageType)).Inc()

	senderName := c.Username()
	h.dispatch(func() {
		h.dispatchMessageNotifications(context.Background(), msg, senderName)
	})

	return model.AckOK(msg)
}

// HandleEditMessage applies an edit after an ownership check and
// broadcasts the updated message as a fresh event.
func (h *Hub) HandleEditMessage(ctx context.Context, c Conn, payload model.EditMessagePayload) model.Ack {
	msg, err := h.store.GetMessage(ctx, payload.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		return model.AckError("message not found")
	}
	if err != nil {
		h.log.Error("message lookup failed", zap.String("message_id", payload.MessageID), zap.Error(err))
		return model.AckError("edit failed")
	}
	if msg.SenderID != c.UserID() {
		return model.AckError("not your message")
	}

	updated, err := h.store.UpdateMessageContent(ctx, payload.MessageID, payload.Content, time.Now().UTC())
	if err != nil {
		h.log.Error("message update failed", zap.String("message_id", payload.MessageID), zap.Error(err))
		return model.AckError("edit failed")
	}

	frame, err := encodeFrame(model.EventMessageEdited, updated)
	if err == nil {
		h.broadcastToConversation(updated.ConversationID, frame, "")
	}
	return model.AckOK(updated)
}

// HandleDeleteMessage removes a message after an ownership check and
// notifies the room.
func (h *Hub) HandleDeleteMessage(ctx context.Context, c Conn, payload model.DeleteMessagePayload) model.Ack {
	msg, err := h.store.GetMessage(ctx, payload.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		return model.AckError("message not found")
	}
	if err != nil {
		h.log.Error("message lookup failed", zap.String("message_id", payload.MessageID), zap.Error(err))
		return model.AckError("delete failed")
	}
	if msg.SenderID != c.UserID() {
		return model.AckError("not your message")
	}

	if err := h.store.DeleteMessage(ctx, payload.MessageID); err != nil {
		h.log.Error("message delete failed", zap.String("message_id", payload.MessageID), zap.Error(err))
		return model.AckError("delete failed")
	}

	frame, err := encodeFrame(model.EventMessageDeleted, model.DeleteMessagePayload{MessageID: msg.ID})
	if err == nil {
		h.broadcastToConversation(msg.ConversationID, frame, "")
	}
	return model.Ack{Success: true, MessageID: msg.ID}
}

// HandleTyping relays a typing indicator to the room, excluding the
// sender. Typing events are neither persisted nor acked.
func (h *Hub) HandleTyping(c Conn, payload model.TypingPayload) {
	if payload.ConversationID == "" {
		return
	}
	frame, err := encodeFrame(model.EventTyping, model.TypingEvent{
		ConversationID: payload.ConversationID,
		Username:       c.Username(),
	})
	if err != nil {
		return
	}
	h.broadcastToConversation(payload.ConversationID, frame, c.ID())
}

// HandleMarkRead advances the member's read cursor and announces the new
// cursor to the room. Requests from non-members are dropped.
func (h *Hub) HandleMarkRead(ctx context.Context, c Conn, payload model.MarkReadPayload) {
	if payload.ConversationID == "" {
		return
	}

	member, err := h.store.IsMember(ctx, payload.ConversationID, c.UserID())
	if err != nil {
		h.log.Error("membership check failed",
			zap.String("conversation_id", payload.ConversationID),
			zap.String("user_id", c.UserID()),
			zap.Error(err),
		)
		return
	}
	if !member {
		return
	}

	now := time.Now().UTC()
	if err := h.store.SetLastRead(ctx, payload.ConversationID, c.UserID(), now); err != nil {
		h.log.Error("read cursor update failed",
			zap.String("conversation_id", payload.ConversationID),
			zap.String("user_id", c.UserID()),
			zap.Error(err),
		)
		return
	}

	frame, err := encodeFrame(model.EventRead, model.ReadEvent{
		ConversationID: payload.ConversationID,
		UserID:         c.UserID(),
		LastReadAt:     now,
	})
	if err == nil {
		h.broadcastToConversation(payload.ConversationID, frame, "")
	}
}

package hub

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatwire/chat-backend/internal/model"
	"github.com/chatwire/chat-backend/internal/store"
	"github.com/chatwire/chat-backend/pkg/metrics"
)

// dispatchMessageNotifications runs after a message is persisted and
// broadcast. Every persisted member except the sender whose read cursor
// predates the message gets a durable notification, delivered live when
// the member has active connections and through the external push
// provider otherwise. Text content is additionally scanned for
// @username mentions, which are dispatched regardless of conversation
// membership.
func (h *Hub) dispatchMessageNotifications(ctx context.Context, msg *model.Message, senderName string) {
	members, err := h.store.MembersOf(ctx, msg.ConversationID)
	if err != nil {
		h.log.Error("member query failed",
			zap.String("conversation_id", msg.ConversationID),
			zap.Error(err),
		)
		return
	}

	body := "[Media]"
	if msg.Content != nil && *msg.Content != "" {
		body = *msg.Content
	}

	for _, member := range members {
		if member.UserID == msg.SenderID {
			continue
		}
		if member.LastReadAt != nil && !member.LastReadAt.Before(msg.CreatedAt) {
			continue
		}
		h.sendNotification(ctx, member.UserID, model.Notification{
			Kind:  model.NotificationNewMessage,
			Title: senderName + " sent a message",
			Body:  body,
			Data: map[string]any{
				"conversationId": msg.ConversationID,
				"messageId":      msg.ID,
				"senderId":       msg.SenderID,
			},
		})
	}

	if msg.Type != model.MessageTypeText || msg.Content == nil {
		return
	}
	names := parseMentions(*msg.Content)
	if len(names) == 0 {
		return
	}

	mentioned, err := h.store.UsersByUsernames(ctx, names)
	if err != nil {
		h.log.Error("mention lookup failed", zap.Error(err))
		return
	}
	for _, user := range mentioned {
		if user.ID == msg.SenderID {
			continue
		}
		h.sendNotification(ctx, user.ID, model.Notification{
			Kind:  model.NotificationMention,
			Title: senderName + " mentioned you",
			Body:  *msg.Content,
			Data: map[string]any{
				"conversationId": msg.ConversationID,
				"messageId":      msg.ID,
			},
		})
	}
}

// sendNotification creates the durable record, then delivers it live to
// any active connection of the recipient, or falls back to the external
// push provider when the recipient is fully offline. Push failures are
// logged, never retried, and never surface to the sender.
func (h *Hub) sendNotification(ctx context.Context, userID string, n model.Notification) {
	n.ID = uuid.Must(uuid.NewV7()).String()
	n.UserID = userID
	n.Read = false
	n.CreatedAt = nowUTC()

	if err := h.store.CreateNotification(ctx, &n); err != nil {
		h.log.Error("notification persist failed",
			zap.String("user_id", userID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err),
		)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind)).Inc()

	if h.presence.IsOnline(userID) {
		frame, err := encodeFrame(model.EventNotification, n)
		if err == nil {
			h.broadcastToUser(userID, frame)
		}
		return
	}

	sub, err := h.store.PushSubscription(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		h.log.Error("push subscription lookup failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	if err := h.push.Send(ctx, sub.Token, n.Title, n.Body, h.pushTargetURL); err != nil {
		metrics.PushDeliveriesTotal.WithLabelValues("error").Inc()
		h.log.Warn("push delivery failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	metrics.PushDeliveriesTotal.WithLabelValues("ok").Inc()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

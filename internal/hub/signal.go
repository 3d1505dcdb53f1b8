package hub

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/chatwire/chat-backend/internal/model"
	"github.com/chatwire/chat-backend/pkg/metrics"
)

var directSignals = map[string]struct{}{
	model.EventRTCOffer:     {},
	model.EventRTCAnswer:    {},
	model.EventRTCCandidate: {},
	model.EventRTCEnd:       {},
}

var groupSignals = map[string]struct{}{
	model.EventRTCGroupOffer:     {},
	model.EventRTCGroupAnswer:    {},
	model.EventRTCGroupCandidate: {},
	model.EventRTCGroupEnd:       {},
}

// IsSignalEvent reports whether an event name belongs to the signaling
// relay.
func IsSignalEvent(event string) bool {
	if _, ok := directSignals[event]; ok {
		return true
	}
	_, ok := groupSignals[event]
	return ok
}

// HandleSignal relays a call-setup event without persistence or
// interpretation. Direct events are addressed to every connection of the
// target user; group events go to the whole room including the sender,
// who must filter client-side. A target with zero connections drops the
// event silently.
func (h *Hub) HandleSignal(c Conn, event string, data json.RawMessage) {
	fields := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			h.log.Warn("malformed signal payload",
				zap.String("event", event),
				zap.String("conn_id", c.ID()),
				zap.Error(err),
			)
			return
		}
	}

	if _, ok := directSignals[event]; ok {
		toUserID, _ := fields["toUserId"].(string)
		if toUserID == "" {
			return
		}
		delete(fields, "toUserId")
		fields["fromUserId"] = c.UserID()
		fields["fromUsername"] = c.Username()

		frame, err := encodeFrame(event, fields)
		if err != nil {
			return
		}
		if sent := h.broadcastToUser(toUserID, frame); sent == 0 {
			h.log.Debug("signal target has no local connections",
				zap.String("event", event),
				zap.String("to_user_id", toUserID),
			)
		}
		metrics.SignalsRelayed.WithLabelValues(event).Inc()
		return
	}

	if _, ok := groupSignals[event]; ok {
		conversationID, _ := fields["conversationId"].(string)
		if conversationID == "" {
			return
		}
		delete(fields, "conversationId")
		fields["fromUserId"] = c.UserID()
		fields["fromUsername"] = c.Username()

		frame, err := encodeFrame(event, fields)
		if err != nil {
			return
		}
		h.broadcastToConversation(conversationID, frame, "")
		metrics.SignalsRelayed.WithLabelValues(event).Inc()
	}
}

// HandleCallRejected tells the conversation's room that the callee
// declined. The rejecting identity comes from the connection, not the
// payload.
func (h *Hub) HandleCallRejected(c Conn, payload model.CallRejectedPayload) {
	if payload.ConversationID == "" {
		return
	}
	frame, err := encodeFrame(model.EventCallRejectedNotice, model.CallRejectedEvent{
		From: c.UserID(),
	})
	if err != nil {
		return
	}
	h.broadcastToConversation(payload.ConversationID, frame, "")
	metrics.SignalsRelayed.WithLabelValues(model.EventCallRejected).Inc()
}

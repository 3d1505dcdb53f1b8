package model

import (
	"encoding/json"
)

// Wire event names. Client-to-hub events carry an optional ack ID that the
// hub echoes back in an EventAck frame.
const (
	EventChatMessage    = "chat message"
	EventEditMessage    = "edit message"
	EventDeleteMessage  = "delete message"
	EventMessageEdited  = "message edited"
	EventMessageDeleted = "message deleted"
	EventTyping         = "typing"
	EventMarkRead       = "markRead"
	EventRead           = "read"
	EventUserOnline     = "user online"
	EventUserOffline    = "user offline"
	EventUsersOnline    = "users online"
	EventNotification   = "notification"
	EventAck            = "ack"
)

// WebRTC signaling event names. The hub relays these without persistence or
// interpretation.
const (
	EventRTCOffer          = "webrtc:offer"
	EventRTCAnswer         = "webrtc:answer"
	EventRTCCandidate      = "webrtc:candidate"
	EventRTCEnd            = "webrtc:end"
	EventRTCGroupOffer     = "webrtc:group-offer"
	EventRTCGroupAnswer    = "webrtc:group-answer"
	EventRTCGroupCandidate = "webrtc:group-candidate"
	EventRTCGroupEnd       = "webrtc:group-end"
)

// Call-rejection event names. A callee declines with EventCallRejected and
// the hub tells the whole room via EventCallRejectedNotice.
const (
	EventCallRejected       = "callRejected"
	EventCallRejectedNotice = "callRejectedNotification"
)

// Frame is the envelope for every event exchanged over a connection.
// ID is set by the client when it wants an ack for the event.
type Frame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame builds a frame with the payload marshaled into Data.
func NewFrame(event string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// Encode marshals the frame for the wire.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// Ack is the hub's response to a client event. Exactly one of Message,
// MessageID, or Error carries detail depending on the outcome.
type Ack struct {
	Success   bool     `json:"success"`
	Message   *Message `json:"message,omitempty"`
	MessageID string   `json:"messageId,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// AckOK returns a success ack carrying the resulting message, if any.
func AckOK(msg *Message) Ack {
	return Ack{Success: true, Message: msg}
}

// AckError returns a failure ack with a caller-facing reason.
func AckError(reason string) Ack {
	return Ack{Success: false, Error: reason}
}

// PresenceEvent is the payload of "user online" and "user offline" frames.
type PresenceEvent struct {
	UserID string `json:"userId"`
}

package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chatwire/chat-backend/internal/hub"
	"github.com/chatwire/chat-backend/internal/model"
	"github.com/chatwire/chat-backend/pkg/logger"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max inbound message size
	maxMessageSize = 512 * 1024 // 512 KB

	// Outbound buffer per connection; a full buffer drops the connection
	sendBufferSize = 256
)

// Client is one live WebSocket session. It implements hub.Conn: the hub
// routes through it but the transport layer owns its lifecycle.
type Client struct {
	hub  *hub.Hub
	conn *websocket.Conn
	log  *logger.Logger

	id        string
	userID    string
	username  string
	createdAt time.Time

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the connection identity, unique for the process lifetime.
func (c *Client) ID() string { return c.id }

// UserID returns the authenticated owner of the connection.
func (c *Client) UserID() string { return c.userID }

// Username returns the owner's user-facing name.
func (c *Client) Username() string { return c.username }

// Send queues an encoded frame without blocking; false means the buffer
// is full and the hub should drop the connection.
func (c *Client) Send(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close tears the transport down. Safe to call more than once; the read
// pump's deferred hub deregistration handles registry cleanup.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump pumps frames from the WebSocket into the hub. Events from one
// connection are handled in order because this is the only reader.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected close", zap.Error(err))
			}
			return
		}
		c.handleFrame(raw)
	}
}

// writePump pumps queued frames to the WebSocket and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) handleFrame(raw []byte) {
	var frame model.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Warn("malformed frame", zap.Error(err))
		return
	}

	ctx := context.Background()

	switch frame.Event {
	case model.EventChatMessage:
		var payload model.ChatMessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			c.ack(frame.ID, model.AckError("malformed payload"))
			return
		}
		c.ack(frame.ID, c.hub.HandleChatMessage(ctx, c, payload))

	case model.EventEditMessage:
		var payload model.EditMessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			c.ack(frame.ID, model.AckError("malformed payload"))
			return
		}
		c.ack(frame.ID, c.hub.HandleEditMessage(ctx, c, payload))

	case model.EventDeleteMessage:
		var payload model.DeleteMessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			c.ack(frame.ID, model.AckError("malformed payload"))
			return
		}
		c.ack(frame.ID, c.hub.HandleDeleteMessage(ctx, c, payload))

	case model.EventTyping:
		var payload model.TypingPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return
		}
		c.hub.HandleTyping(c, payload)

	case model.EventMarkRead:
		var payload model.MarkReadPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return
		}
		c.hub.HandleMarkRead(ctx, c, payload)

	case model.EventCallRejected:
		var payload model.CallRejectedPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return
		}
		c.hub.HandleCallRejected(c, payload)

	default:
		if hub.IsSignalEvent(frame.Event) {
			c.hub.HandleSignal(c, frame.Event, frame.Data)
			return
		}
		c.log.Warn("unknown event", zap.String("event", frame.Event))
	}
}

// ack delivers a handler result back to the sender when the inbound
// frame asked for one.
func (c *Client) ack(id string, result model.Ack) {
	if id == "" {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	frame := model.Frame{Event: model.EventAck, ID: id, Data: raw}
	encoded, err := frame.Encode()
	if err != nil {
		return
	}
	c.Send(encoded)
}

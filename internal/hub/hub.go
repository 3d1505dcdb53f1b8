// Package hub implements the realtime communication core: presence
// tracking, per-conversation broadcast rooms, message relay, WebRTC
// signaling relay, and notification dispatch.
package hub

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chatwire/chat-backend/internal/model"
	"github.com/chatwire/chat-backend/internal/push"
	"github.com/chatwire/chat-backend/internal/store"
	"github.com/chatwire/chat-backend/pkg/logger"
	"github.com/chatwire/chat-backend/pkg/metrics"
)

// Conn is one live client session. The transport layer owns the
// underlying connection; the hub only references it for routing.
type Conn interface {
	ID() string
	UserID() string
	Username() string
	// Send queues an encoded frame for delivery and reports false when
	// the connection's send buffer is full.
	Send(frame []byte) bool
	// Close tears down the underlying transport.
	Close()
}

// Scope addresses a published frame.
type Scope string

const (
	ScopeAll          Scope = "all"
	ScopeConversation Scope = "conv"
	ScopeUser         Scope = "user"
)

// Publisher fans frames out to other hub instances. A nil publisher means
// single-instance deployment: all state is process-local.
type Publisher interface {
	Publish(scope Scope, target string, frame []byte) error
}

// Hub wires the registries, the persistence collaborator, and the push
// sender together and exposes one handler per wire event.
type Hub struct {
	presence  Presence
	rooms     Rooms
	store     store.Store
	push      push.Sender
	publisher Publisher
	log       *logger.Logger

	mu    sync.RWMutex
	conns map[string]Conn

	// dispatch runs notification work off the broadcast path; replaced
	// with a synchronous version in tests.
	dispatch func(func())

	pushTargetURL string
}

// New creates a hub. The presence and rooms registries are injected so
// they can be swapped for shared-store implementations without touching
// call sites.
func New(presence Presence, rooms Rooms, st store.Store, pusher push.Sender, log *logger.Logger) *Hub {
	return &Hub{
		presence: presence,
		rooms:    rooms,
		store:    st,
		push:     pusher,
		log:      log,
		conns:    make(map[string]Conn),
		dispatch: func(fn func()) { go fn() },
	}
}

// SetPublisher attaches a cross-instance fan-out publisher.
func (h *Hub) SetPublisher(p Publisher) {
	h.publisher = p
}

// SetPushTargetURL sets the landing URL attached to external pushes.
func (h *Hub) SetPushTargetURL(url string) {
	h.pushTargetURL = url
}

// Connect assumes authentication happened upstream; the connection is wired
// into the registries: room subscriptions are loaded from persisted
// membership (one query per connect), presence is updated, and the
// caller's online snapshot is delivered. An error means no session state
// was created and the transport should be closed.
func (h *Hub) Connect(ctx context.Context, c Conn) error {
	conversationIDs, err := h.store.ConversationIDsForUser(ctx, c.UserID())
	if err != nil {
		return fmt.Errorf("load memberships: %w", err)
	}

	h.mu.Lock()
	h.conns[c.ID()] = c
	h.mu.Unlock()

	for _, conversationID := range conversationIDs {
		h.rooms.Join(conversationID, c.ID())
	}

	first := h.presence.Add(c.UserID(), c.ID())
	metrics.ConnectionsActive.Inc()
	metrics.OnlineUsers.Set(float64(len(h.presence.OnlineUsers())))

	if first {
		frame, err := encodeFrame(model.EventUserOnline, model.PresenceEvent{UserID: c.UserID()})
		if err == nil {
			h.deliverToAll(frame, c.ID())
			h.publish(ScopeAll, "", frame)
		}
	}

	snapshot, err := encodeFrame(model.EventUsersOnline, h.presence.OnlineUsers())
	if err == nil {
		c.Send(snapshot)
	}

	h.log.Info("connection established",
		zap.String("conn_id", c.ID()),
		zap.String("user_id", c.UserID()),
		zap.Int("rooms", len(conversationIDs)),
	)
	return nil
}

// Disconnect unconditionally removes the connection from both registries.
// It is idempotent and must run even when other teardown steps fail:
// leaked entries cause permanent false online state or misdelivery.
func (h *Hub) Disconnect(c Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c.ID()]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.ID())
	h.mu.Unlock()

	h.rooms.LeaveAll(c.ID())
	last := h.presence.Remove(c.UserID(), c.ID())
	metrics.ConnectionsActive.Dec()
	metrics.OnlineUsers.Set(float64(len(h.presence.OnlineUsers())))

	if last {
		frame, err := encodeFrame(model.EventUserOffline, model.PresenceEvent{UserID: c.UserID()})
		if err == nil {
			h.deliverToAll(frame, c.ID())
			h.publish(ScopeAll, "", frame)
		}
	}

	h.log.Info("connection closed",
		zap.String("conn_id", c.ID()),
		zap.String("user_id", c.UserID()),
	)
}

// Deliver routes a frame that originated on another hub instance to local
// connections only.
func (h *Hub) Deliver(scope Scope, target string, frame []byte) {
	switch scope {
	case ScopeConversation:
		h.deliverToConversation(target, frame, "")
	case ScopeUser:
		h.deliverToUser(target, frame)
	case ScopeAll:
		h.deliverToAll(frame, "")
	}
}

func (h *Hub) conn(connID string) Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[connID]
}

// send delivers an encoded frame to one connection, dropping the
// connection entirely when its buffer is full.
func (h *Hub) send(connID string, frame []byte) bool {
	c := h.conn(connID)
	if c == nil {
		return false
	}
	if !c.Send(frame) {
		h.log.Warn("send buffer full, dropping connection",
			zap.String("conn_id", connID),
			zap.String("user_id", c.UserID()),
		)
		metrics.SlowConsumersDropped.Inc()
		h.Disconnect(c)
		c.Close()
		return false
	}
	return true
}

func (h *Hub) deliverToConversation(conversationID string, frame []byte, excludeConnID string) int {
	sent := 0
	for _, connID := range h.rooms.Members(conversationID) {
		if connID == excludeConnID {
			continue
		}
		if h.send(connID, frame) {
			sent++
		}
	}
	return sent
}

func (h *Hub) deliverToUser(userID string, frame []byte) int {
	sent := 0
	for _, connID := range h.presence.Connections(userID) {
		if h.send(connID, frame) {
			sent++
		}
	}
	return sent
}

func (h *Hub) deliverToAll(frame []byte, excludeConnID string) {
	h.mu.RLock()
	connIDs := make([]string, 0, len(h.conns))
	for connID := range h.conns {
		if connID != excludeConnID {
			connIDs = append(connIDs, connID)
		}
	}
	h.mu.RUnlock()

	for _, connID := range connIDs {
		h.send(connID, frame)
	}
}

// broadcastToConversation fans a frame out to the local room and to other
// instances. Returns how many local connections received it.
func (h *Hub) broadcastToConversation(conversationID string, frame []byte, excludeConnID string) int {
	sent := h.deliverToConversation(conversationID, frame, excludeConnID)
	h.publish(ScopeConversation, conversationID, frame)
	metrics.BroadcastFanout.Observe(float64(sent))
	return sent
}

// broadcastToUser fans a frame out to all of a user's connections, local
// and remote.
func (h *Hub) broadcastToUser(userID string, frame []byte) int {
	sent := h.deliverToUser(userID, frame)
	h.publish(ScopeUser, userID, frame)
	return sent
}

func (h *Hub) publish(scope Scope, target string, frame []byte) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(scope, target, frame); err != nil {
		h.log.Warn("fan-out publish failed",
			zap.String("scope", string(scope)),
			zap.String("target", target),
			zap.Error(err),
		)
	}
}

func encodeFrame(event string, data any) ([]byte, error) {
	frame, err := model.NewFrame(event, data)
	if err != nil {
		return nil, err
	}
	return frame.Encode()
}

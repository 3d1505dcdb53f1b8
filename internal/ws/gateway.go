// Package ws is the connection gateway: it authenticates WebSocket
// handshakes, attaches user identity, and wires connections into the hub.
package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chatwire/chat-backend/internal/auth"
	"github.com/chatwire/chat-backend/internal/hub"
	"github.com/chatwire/chat-backend/internal/store"
	"github.com/chatwire/chat-backend/pkg/logger"
)

// Gateway upgrades authenticated requests into hub connections.
type Gateway struct {
	hub      *hub.Hub
	verifier *auth.Verifier
	users    store.UserStore
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// NewGateway creates a connection gateway. An empty origin list allows
// every origin; production deployments should configure one.
func NewGateway(h *hub.Hub, verifier *auth.Verifier, users store.UserStore, allowedOrigins []string, log *logger.Logger) *Gateway {
	return &Gateway{
		hub:      h,
		verifier: verifier,
		users:    users,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeWS handles GET /ws. A missing, invalid, or unresolvable credential
// rejects the connection before the upgrade: no session state is created.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		g.log.Warn("handshake token rejected", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	user, err := g.users.GetUser(r.Context(), claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		g.log.Warn("handshake user unknown", zap.String("user_id", claims.Subject))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if err != nil {
		g.log.Error("handshake user lookup failed", zap.String("user_id", claims.Subject), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("upgrade failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	connID := uuid.NewString()
	client := &Client{
		hub:       g.hub,
		conn:      conn,
		log:       g.log.WithConnection(connID, user.ID),
		id:        connID,
		userID:    user.ID,
		username:  user.Name(),
		createdAt: time.Now(),
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
	}

	if err := g.hub.Connect(r.Context(), client); err != nil {
		g.log.Error("hub registration failed", zap.String("user_id", user.ID), zap.Error(err))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

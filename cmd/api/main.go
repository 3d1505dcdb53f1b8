// Package main is the entry point for the chat backend server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chatwire/chat-backend/internal/auth"
	"github.com/chatwire/chat-backend/internal/config"
	"github.com/chatwire/chat-backend/internal/handler"
	"github.com/chatwire/chat-backend/internal/hub"
	"github.com/chatwire/chat-backend/internal/middleware"
	natsclient "github.com/chatwire/chat-backend/internal/nats"
	"github.com/chatwire/chat-backend/internal/push"
	"github.com/chatwire/chat-backend/internal/store/sqlite"
	"github.com/chatwire/chat-backend/internal/ws"
	"github.com/chatwire/chat-backend/pkg/logger"
	"github.com/chatwire/chat-backend/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting chat backend")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-backend", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the message store
	st, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// Push provider; a noop sender keeps the dispatch path uniform when
	// no provider is configured.
	var pusher push.Sender = push.Noop{}
	if cfg.PushKey != "" {
		pusher = push.NewClient(cfg.PushEndpoint, cfg.PushKey, cfg.PushAuthToken)
	}

	// Assemble the hub
	h := hub.New(hub.NewMemoryPresence(), hub.NewMemoryRooms(), st, pusher, log)
	h.SetPushTargetURL(cfg.PushTargetURL)

	// Optional cross-instance fan-out over NATS
	var natsClient *natsclient.Client
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		bridge := natsclient.NewBridge(natsClient, log)
		if err := bridge.Subscribe(h); err != nil {
			log.Error("failed to subscribe bridge", zap.Error(err))
			os.Exit(1)
		}
		defer bridge.Close()
		h.SetPublisher(bridge)
	}

	verifier := auth.NewVerifier(cfg.JWTSecret)

	// Initialize handlers
	gateway := ws.NewGateway(h, verifier, st, cfg.AllowedOrigins, log)
	healthHandler := handler.NewHealthHandler(st, natsClient)
	notificationHandler := handler.NewNotificationHandler(st, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint; authenticates itself from the token before
	// upgrading, so it sits outside the REST middleware stack.
	r.Get("/ws", gateway.ServeWS)

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(verifier))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Get("/unread", notificationHandler.ListUnread)
			r.Get("/unread/count", notificationHandler.UnreadCount)
			r.Post("/read-all", notificationHandler.MarkAllRead)
			r.Post("/{id}/read", notificationHandler.MarkRead)
		})

		r.Post("/push/subscribe", notificationHandler.Subscribe)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// corsOrigins mirrors the WebSocket origin policy on the REST surface.
func corsOrigins(allowed []string) []string {
	if len(allowed) == 0 {
		return []string{"https://*", "http://*"}
	}
	return allowed
}

package bots

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/config"
	"github.com/auglet/auglet/internal/orchestrator"
)

// Handler processes one chat turn. *orchestrator.Orchestrator satisfies it.
type Handler interface {
	HandleTurn(ctx context.Context, turn orchestrator.Turn) []orchestrator.Message
}

// Gateway is the chat transport: a REST endpoint for one-shot turns and a
// WebSocket endpoint for persistent clients, both feeding the same handler.
type Gateway struct {
	cfg        config.ServerConfig
	handler    Handler
	router     chi.Router
	httpServer *http.Server
	logger     *zap.Logger
}

// NewGateway builds the gateway and its router.
func NewGateway(cfg config.ServerConfig, handler Handler, logger *zap.Logger) *Gateway {
	g := &Gateway{cfg: cfg, handler: handler, logger: logger.Named("gateway")}
	g.router = g.buildRouter()
	return g
}

func (g *Gateway) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if g.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/api/chat", g.handleChat)
	r.Get("/ws", g.handleWebSocket)

	return r
}

// Router returns the chi router, mostly for tests.
func (g *Gateway) Router() chi.Router { return g.router }

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	msgs := g.handler.HandleTurn(r.Context(), orchestrator.Turn{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		DisplayName:    req.DisplayName,
		Text:           req.Text,
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toWire(req.ConversationID, msgs)); err != nil {
		g.logger.Warn("writing chat response failed", zap.Error(err))
	}
}

// Start begins listening on the configured port.
func (g *Gateway) Start() error {
	addr := fmt.Sprintf(":%d", g.cfg.Port)
	g.httpServer = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	g.logger.Info("chat gateway listening", zap.String("addr", addr))
	return g.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.httpServer != nil {
		return g.httpServer.Shutdown(ctx)
	}
	return nil
}
